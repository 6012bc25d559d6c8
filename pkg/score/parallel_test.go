package score

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformParallel_MatchesSequential(t *testing.T) {
	r := rand.New(rand.NewPCG(21, 22))
	p := testParams()

	for _, workers := range []int{0, 1, 2, 3, 7, 64} {
		for _, n := range []int{8, 24, 8 * 1000} {
			scores, weights, restricted := randomBatch(r, n)
			want := append([]float32(nil), scores...)
			require.NoError(t, Transform(n, want, weights, restricted, p))

			err := TransformParallel(context.Background(), n, scores, weights, restricted, p, workers)
			require.NoError(t, err, "workers=%d n=%d", workers, n)
			requireBitsEqual(t, want, scores)
		}
	}
}

func TestTransformParallel_ContractViolation(t *testing.T) {
	scores := []float32{5, 5, 5, 5}
	err := TransformParallel(context.Background(), 4, scores, scores, []bool{true, true, true, true}, testParams(), 2)
	assert.ErrorIs(t, err, ErrContractViolation)
	assert.Equal(t, []float32{5, 5, 5, 5}, scores)
}

func TestTransformParallel_Cancelled(t *testing.T) {
	r := rand.New(rand.NewPCG(23, 24))
	scores, weights, restricted := randomBatch(r, 8*64)
	before := append([]float32(nil), scores...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := TransformParallel(ctx, len(scores), scores, weights, restricted, testParams(), 4)
	assert.ErrorIs(t, err, context.Canceled)
	requireBitsEqual(t, before, scores)
}
