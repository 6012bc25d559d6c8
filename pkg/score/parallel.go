package score

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// shardsPerWorker splits the batch finer than the worker count so a
// cancelled context stops the remaining shards sooner.
const shardsPerWorker = 4

// TransformParallel is Transform with the groups of scores[0:n] spread
// over up to workers goroutines (runtime.NumCPU when workers <= 0). Each
// goroutine owns a disjoint, group-aligned shard, so the result equals the
// single-threaded call.
//
// The contract is checked once before any shard starts. Cancelling ctx
// stops shards that have not started yet; shards already written stay
// written and ctx.Err() is returned.
func TransformParallel(ctx context.Context, n int, scores, advWeights []float32, restricted []bool, p Params, workers int) error {
	if err := checkContract("transform parallel", n, len(scores), len(advWeights), len(restricted)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	groups := n / Width
	workers = min(workers, groups)
	if workers == 1 {
		return Transform(n, scores, advWeights, restricted, p)
	}

	shards := min(workers*shardsPerWorker, groups)
	per := (groups + shards - 1) / shards * Width

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += per {
		hi := min(lo+per, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return Transform(hi-lo, scores[lo:hi], advWeights[lo:hi], restricted[lo:hi], p)
		})
	}
	return g.Wait()
}
