package buffer

import (
	"math"
	"testing"

	"github.com/mchmarny/advscorer/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAligned(t *testing.T) {
	for _, align := range []int{4, 8, 32, 64} {
		b, err := Aligned(128, align)
		require.NoError(t, err)
		assert.Len(t, b, 128)
		assert.Equal(t, 128, cap(b))
		assert.True(t, IsAligned(b, align), "align %d", align)
	}
}

func TestAligned_Invalid(t *testing.T) {
	_, err := Aligned(16, 0)
	assert.Error(t, err)
	_, err = Aligned(16, 12)
	assert.Error(t, err)
	_, err = Aligned(-1, 8)
	assert.Error(t, err)
}

func TestOffsetForAlign(t *testing.T) {
	assert.Equal(t, 0, offsetForAlign(64, 32))
	assert.Equal(t, 31, offsetForAlign(65, 32))
	assert.Equal(t, 1, offsetForAlign(63, 32))
}

func TestFloat32s(t *testing.T) {
	b, err := Aligned(16, 32)
	require.NoError(t, err)
	require.NoError(t, PutFloat32s(b, []float32{1.5, -2, 0, float32(math.Inf(1))}))

	v, err := Float32s(b)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2, 0, float32(math.Inf(1))}, v)

	// views alias the buffer
	v[1] = 42
	got, err := ReadFloat32s(b, 4)
	require.NoError(t, err)
	assert.Equal(t, float32(42), got[1])
}

func TestFloat32s_Layout(t *testing.T) {
	b, err := Aligned(16, 32)
	require.NoError(t, err)

	_, err = Float32s(b[:6])
	assert.ErrorIs(t, err, ErrLayout)

	_, err = Float32s(b[1:13])
	assert.ErrorIs(t, err, ErrLayout)

	v, err := Float32s(nil)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestMasks(t *testing.T) {
	b, err := Aligned(12, 32)
	require.NoError(t, err)
	require.NoError(t, PutFlags(b, []bool{true, false, true}))

	m, err := Masks(b)
	require.NoError(t, err)
	assert.Equal(t, []uint32{math.MaxUint32, 0, math.MaxUint32}, m)

	_, err = Masks(b[:5])
	assert.ErrorIs(t, err, ErrLayout)
}

func TestPut_ShortBuffer(t *testing.T) {
	b := make([]byte, 4)
	assert.ErrorIs(t, PutFloat32s(b, []float32{1, 2}), ErrLayout)
	assert.ErrorIs(t, PutFlags(b, []bool{true, true}), ErrLayout)
	_, err := ReadFloat32s(b, 2)
	assert.ErrorIs(t, err, ErrLayout)
}

// hostBatch fills three aligned buffers the way a host would.
func hostBatch(t *testing.T, scores, weights []float32, flags []bool) (sb, wb, fb []byte) {
	t.Helper()
	var err error
	sb, err = Aligned(len(scores)*ElemSize, 32)
	require.NoError(t, err)
	wb, err = Aligned(len(weights)*ElemSize, 32)
	require.NoError(t, err)
	fb, err = Aligned(len(flags)*ElemSize, 32)
	require.NoError(t, err)
	require.NoError(t, PutFloat32s(sb, scores))
	require.NoError(t, PutFloat32s(wb, weights))
	require.NoError(t, PutFlags(fb, flags))
	return sb, wb, fb
}

func TestBind(t *testing.T) {
	scores := []float32{0.1, 0.5, 1.0, 1.1, 1.2, 1.3, 1.4, 1.5}
	weights := []float32{-0.1, 0.0, 0.1, 1.0, 2.0, 3.0, 10.0, 100.0}
	flags := []bool{true, true, true, true, true, true, true, false}
	sb, wb, fb := hostBatch(t, scores, weights, flags)

	v, err := Bind(8, sb, wb, fb)
	require.NoError(t, err)
	assert.Equal(t, 8, v.N)
	assert.Len(t, v.Scores, 8)

	require.NoError(t, v.Transform(score.DefaultParams()))

	got, err := ReadFloat32s(sb, 8)
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, -1, 100, 100, 100, 125, 300, 1.5}, got)

	w, err := ReadFloat32s(wb, 8)
	require.NoError(t, err)
	assert.Equal(t, weights, w)
}

func TestBind_MatchesScalar(t *testing.T) {
	p := score.DefaultParams()
	scores := make([]float32, 64)
	weights := make([]float32, 64)
	flags := make([]bool, 64)
	for i := range scores {
		scores[i] = float32(i) / 16
		weights[i] = float32(i%9) - 2
		flags[i] = i%3 != 0
	}
	sb, wb, fb := hostBatch(t, scores, weights, flags)

	v, err := Bind(64, sb, wb, fb)
	require.NoError(t, err)
	require.NoError(t, v.Transform(p))

	got, err := ReadFloat32s(sb, 64)
	require.NoError(t, err)
	for i := range scores {
		want := score.Evaluate(score.Record{Score: scores[i], AdvWeight: weights[i], ViewRestricted: flags[i]}, p)
		assert.Equal(t, want, got[i], "index %d", i)
	}
}

func TestBind_ContractViolation(t *testing.T) {
	full := make([]byte, 64)
	short := make([]byte, 60)

	tests := []struct {
		name             string
		n                int
		scores, w, flags []byte
	}{
		{"zero records", 0, full, full, full},
		{"short scores", 16, short, full, full},
		{"short weights", 16, full, short, full},
		{"short flags", 16, full, full, short},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(tt.n, tt.scores, tt.w, tt.flags)
			assert.ErrorIs(t, err, score.ErrContractViolation)
		})
	}
}

func TestBind_PartialGroupRejected(t *testing.T) {
	sb, wb, fb := hostBatch(t, make([]float32, 12), make([]float32, 12), make([]bool, 12))
	v, err := Bind(12, sb, wb, fb)
	require.NoError(t, err)
	assert.ErrorIs(t, v.Transform(score.DefaultParams()), score.ErrContractViolation)
}

func TestTransformScores(t *testing.T) {
	scores := []float32{1.1, 0.5, 0.5, 1.1, 1.1, 0.5, 0.5, 1.1}
	weights := []float32{1, 1, 1, 0, 1, 1, 1, 0}
	flags := []bool{true, true, false, true, true, true, false, true}
	sb, wb, fb := hostBatch(t, scores, weights, flags)

	err := TransformScores(8, sb, wb, fb, 1, 100, 1, 10, 0.25, 0.5)
	require.NoError(t, err)

	got, err := ReadFloat32s(sb, 8)
	require.NoError(t, err)
	assert.Equal(t, []float32{100, -1, 0.5, -1, 100, -1, 0.5, -1}, got)
}

func TestTransformScores_ContractViolation(t *testing.T) {
	sb, wb, fb := hostBatch(t, make([]float32, 8), make([]float32, 8), make([]bool, 8))
	err := TransformScores(16, sb, wb, fb, 1, 100, 1, 10, 0.25, 0.5)
	assert.ErrorIs(t, err, score.ErrContractViolation)
	err = TransformScores(7, sb, wb, fb, 1, 100, 1, 10, 0.25, 0.5)
	assert.ErrorIs(t, err, score.ErrContractViolation)
}
