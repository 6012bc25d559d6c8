package score

import (
	"context"
	"testing"
)

const benchBatchSize = 1024 * 64

// benchBatch mirrors the production load profile: ascending scores,
// decaying weights and every other record view restricted.
func benchBatch() (scores, weights []float32, restricted []bool) {
	scores = make([]float32, benchBatchSize)
	weights = make([]float32, benchBatchSize)
	restricted = make([]bool, benchBatchSize)
	for i := range scores {
		scores[i] = float32(i)
		weights[i] = 1 / float32(i)
		restricted[i] = i%2 == 0
	}
	return scores, weights, restricted
}

func benchParams() Params {
	p := DefaultParams()
	p.Slope = 0.2
	p.MinAdvBoost = 10
	p.MaxAdvBoost = 200
	return p
}

// BenchmarkEvaluate benchmarks the scalar form over a whole batch.
func BenchmarkEvaluate(b *testing.B) {
	scores, weights, restricted := benchBatch()
	p := benchParams()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := range scores {
			scores[j] = Evaluate(Record{Score: scores[j], AdvWeight: weights[j], ViewRestricted: restricted[j]}, p)
		}
	}
}

// BenchmarkTransform benchmarks the grouped form over a whole batch.
func BenchmarkTransform(b *testing.B) {
	scores, weights, restricted := benchBatch()
	p := benchParams()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Transform(len(scores), scores, weights, restricted, p)
	}
}

// BenchmarkTransformMask benchmarks the packed mask variant.
func BenchmarkTransformMask(b *testing.B) {
	scores, weights, restricted := benchBatch()
	mask := make([]uint32, len(restricted))
	for i, r := range restricted {
		mask[i] = maskOf(r)
	}
	p := benchParams()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = TransformMask(len(scores), scores, weights, mask, p)
	}
}

// BenchmarkTransformParallel benchmarks sharded evaluation on all CPUs.
func BenchmarkTransformParallel(b *testing.B) {
	scores, weights, restricted := benchBatch()
	p := benchParams()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = TransformParallel(ctx, len(scores), scores, weights, restricted, p, 0)
	}
}
