package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/mchmarny/advscorer/pkg/buffer"
	"github.com/mchmarny/advscorer/pkg/score"
	"github.com/urfave/cli/v3"
)

const (
	benchSizeDefault       = 1024 * 64
	benchIterationsDefault = 100
	benchAlign             = 32
)

var (
	sizeFlag = &cli.IntFlag{
		Name:  "size",
		Usage: "Number of records in the synthetic batch (multiple of 8)",
		Value: benchSizeDefault,
	}

	iterationsFlag = &cli.IntFlag{
		Name:  "iterations",
		Usage: "Number of timed passes per form",
		Value: benchIterationsDefault,
	}

	benchCmd = &cli.Command{
		Name:   "bench",
		Usage:  "Time the scalar, grouped, buffer and sharded forms over a synthetic batch",
		Action: cmdBench,
		Flags: append([]cli.Flag{
			sizeFlag,
			iterationsFlag,
			workersFlag,
		}, paramFlags...),
	}
)

// BenchResult holds the timing of one form.
type BenchResult struct {
	Form            string  `json:"form" yaml:"form"`
	Iterations      int     `json:"iterations" yaml:"iterations"`
	NanosPerRecord  float64 `json:"ns_per_record" yaml:"ns_per_record"`
	RecordsPerSec   float64 `json:"records_per_sec" yaml:"records_per_sec"`
	MatchesEvaluate bool    `json:"matches_evaluate" yaml:"matches_evaluate"`
}

// BenchReport is the output of the bench command.
type BenchReport struct {
	Size    int            `json:"size" yaml:"size"`
	Workers int            `json:"workers" yaml:"workers"`
	Params  score.Params   `json:"params" yaml:"params"`
	Results []*BenchResult `json:"results" yaml:"results"`
}

// benchBatch builds the synthetic batch: score i, weight 1/i and every
// other record restricted.
func benchBatch(n int) (scores, advWeights []float32, restricted []bool) {
	scores = make([]float32, n)
	advWeights = make([]float32, n)
	restricted = make([]bool, n)
	for i := range scores {
		scores[i] = float32(i)
		advWeights[i] = 1 / float32(i)
		restricted[i] = i%2 == 0
	}
	return scores, advWeights, restricted
}

func cmdBench(ctx context.Context, cmd *cli.Command) error {
	n := cmd.Int(sizeFlag.Name)
	iterations := cmd.Int(iterationsFlag.Name)
	if iterations <= 0 {
		return errors.New("iterations must be positive")
	}

	workers := getWorkers(cmd)
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	report, err := bench(ctx, n, iterations, workers, getParams(cmd))
	if err != nil {
		return err
	}

	return encode(cmd, report)
}

func bench(ctx context.Context, n, iterations, workers int, p score.Params) (*BenchReport, error) {
	if n <= 0 || n%score.Width != 0 {
		return nil, fmt.Errorf("size must be a positive multiple of %d: %d", score.Width, n)
	}

	scores, advWeights, restricted := benchBatch(n)
	want := make([]float32, n)
	for i := range want {
		want[i] = score.Evaluate(score.Record{Score: scores[i], AdvWeight: advWeights[i], ViewRestricted: restricted[i]}, p)
	}

	sb, err := buffer.Aligned(n*buffer.ElemSize, benchAlign)
	if err != nil {
		return nil, err
	}
	wb, err := buffer.Aligned(n*buffer.ElemSize, benchAlign)
	if err != nil {
		return nil, err
	}
	fb, err := buffer.Aligned(n*buffer.ElemSize, benchAlign)
	if err != nil {
		return nil, err
	}
	if err := buffer.PutFloat32s(wb, advWeights); err != nil {
		return nil, err
	}
	if err := buffer.PutFlags(fb, restricted); err != nil {
		return nil, err
	}

	work := make([]float32, n)
	forms := []struct {
		name  string
		reset func() error
		run   func() error
		read  func() ([]float32, error)
	}{
		{
			name:  "scalar",
			reset: func() error { copy(work, scores); return nil },
			run: func() error {
				for i := range work {
					work[i] = score.Evaluate(score.Record{Score: work[i], AdvWeight: advWeights[i], ViewRestricted: restricted[i]}, p)
				}
				return nil
			},
			read: func() ([]float32, error) { return work, nil },
		},
		{
			name:  "grouped",
			reset: func() error { copy(work, scores); return nil },
			run:   func() error { return score.Transform(n, work, advWeights, restricted, p) },
			read:  func() ([]float32, error) { return work, nil },
		},
		{
			name:  "buffer",
			reset: func() error { return buffer.PutFloat32s(sb, scores) },
			run: func() error {
				v, err := buffer.Bind(n, sb, wb, fb)
				if err != nil {
					return err
				}
				return v.Transform(p)
			},
			read: func() ([]float32, error) { return buffer.ReadFloat32s(sb, n) },
		},
		{
			name:  "sharded",
			reset: func() error { copy(work, scores); return nil },
			run:   func() error { return score.TransformParallel(ctx, n, work, advWeights, restricted, p, workers) },
			read:  func() ([]float32, error) { return work, nil },
		},
	}

	report := &BenchReport{
		Size:    n,
		Workers: workers,
		Params:  p,
		Results: make([]*BenchResult, 0, len(forms)),
	}

	for _, f := range forms {
		// one verified pass, then the timed passes
		if err := f.reset(); err != nil {
			return nil, err
		}
		if err := f.run(); err != nil {
			return nil, fmt.Errorf("%s pass failed: %w", f.name, err)
		}
		got, err := f.read()
		if err != nil {
			return nil, err
		}
		matches := bitsEqual(want, got)
		if !matches {
			slog.Warn("result differs from scalar form", "form", f.name)
		}

		var elapsed time.Duration
		for range iterations {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := f.reset(); err != nil {
				return nil, err
			}
			start := time.Now()
			if err := f.run(); err != nil {
				return nil, fmt.Errorf("%s pass failed: %w", f.name, err)
			}
			elapsed += time.Since(start)
		}

		total := float64(n) * float64(iterations)
		r := &BenchResult{
			Form:            f.name,
			Iterations:      iterations,
			NanosPerRecord:  float64(elapsed.Nanoseconds()) / total,
			MatchesEvaluate: matches,
		}
		if elapsed > 0 {
			r.RecordsPerSec = total / elapsed.Seconds()
		}
		slog.Debug("bench", "form", r.Form, "ns_per_record", r.NanosPerRecord)
		report.Results = append(report.Results, r)
	}

	return report, nil
}

func bitsEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			return false
		}
	}
	return true
}
