package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// testParams are the parameters used by the worked examples.
func testParams() Params {
	return Params{
		MinScore:     1.0,
		MaxScore:     100.0,
		MinAdvWeight: DefaultMinAdvWeight,
		NoAdvScore:   -1.0,
		MinAdvBoost:  1.0,
		MaxAdvBoost:  10.0,
		Slope:        0.25,
		Intercept:    0.5,
	}
}

func nan() float32 {
	return float32(math.NaN())
}

func inf(sign int) float32 {
	return float32(math.Inf(sign))
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, testParams(), p)
	assert.Greater(t, p.MinAdvWeight, float32(0))
	assert.Equal(t, float32(math.SmallestNonzeroFloat32), p.MinAdvWeight)
}

func TestEvaluate(t *testing.T) {
	p := testParams()

	tests := []struct {
		name   string
		record Record
		want   float32
	}{
		{"eligible boost clamped to min", Record{Score: 1.1, AdvWeight: 1.0, ViewRestricted: true}, 100.0},
		{"score below min score", Record{Score: 0.5, AdvWeight: 1.0, ViewRestricted: true}, -1.0},
		{"unrestricted keeps score", Record{Score: 0.5, AdvWeight: 1.0}, 0.5},
		{"unrestricted keeps negative score", Record{Score: -42, AdvWeight: 100}, -42},
		{"score equal to min score", Record{Score: 1.0, AdvWeight: 0.1, ViewRestricted: true}, 100.0},
		{"boost inside range", Record{Score: 1.3, AdvWeight: 3, ViewRestricted: true}, 125.0},
		{"boost inside range high", Record{Score: 1.4, AdvWeight: 10, ViewRestricted: true}, 300.0},
		{"boost clamped to max", Record{Score: 1.5, AdvWeight: 100, ViewRestricted: true}, 1000.0},
		{"zero weight not eligible", Record{Score: 5, AdvWeight: 0, ViewRestricted: true}, -1.0},
		{"negative weight not eligible", Record{Score: 5, AdvWeight: -0.1, ViewRestricted: true}, -1.0},
		{"smallest positive weight eligible", Record{Score: 5, AdvWeight: DefaultMinAdvWeight, ViewRestricted: true}, 100.0},
		{"infinite weight clamped to max", Record{Score: 5, AdvWeight: inf(1), ViewRestricted: true}, 1000.0},
		{"negative infinite weight not eligible", Record{Score: 5, AdvWeight: inf(-1), ViewRestricted: true}, -1.0},
		{"infinite score eligible", Record{Score: inf(1), AdvWeight: 1, ViewRestricted: true}, 100.0},
		{"nan weight not eligible", Record{Score: 5, AdvWeight: nan(), ViewRestricted: true}, -1.0},
		{"nan score not eligible", Record{Score: nan(), AdvWeight: 1, ViewRestricted: true}, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.record, p))
		})
	}
}

func TestEvaluate_NaNPassthrough(t *testing.T) {
	got := Evaluate(Record{Score: nan(), AdvWeight: 1}, testParams())
	assert.True(t, math.IsNaN(float64(got)))
}

func TestEvaluate_NaNBoostClampsToMin(t *testing.T) {
	p := testParams()
	p.Slope = nan()
	assert.Equal(t, float32(100), Evaluate(Record{Score: 5, AdvWeight: 1, ViewRestricted: true}, p))

	// inf * 0 is NaN
	p = testParams()
	p.Slope = 0
	assert.Equal(t, float32(100), Evaluate(Record{Score: 5, AdvWeight: inf(1), ViewRestricted: true}, p))
}

func TestEvaluate_WeightThresholdInclusive(t *testing.T) {
	p := testParams()
	p.MinAdvWeight = 0.5

	at := Record{Score: 2, AdvWeight: 0.5, ViewRestricted: true}
	below := Record{Score: 2, AdvWeight: math.Nextafter32(0.5, 0), ViewRestricted: true}

	assert.Equal(t, float32(100), Evaluate(at, p))
	assert.Equal(t, p.NoAdvScore, Evaluate(below, p))
}

func TestEvaluate_SentinelFollowsParams(t *testing.T) {
	p := testParams()
	p.NoAdvScore = -7.5
	assert.Equal(t, float32(-7.5), Evaluate(Record{Score: 0, AdvWeight: 1, ViewRestricted: true}, p))
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		x, lo, hi float32
		want      float32
	}{
		{"inside", 5, 1, 10, 5},
		{"below", 0.5, 1, 10, 1},
		{"above", 11, 1, 10, 10},
		{"at lo", 1, 1, 10, 1},
		{"at hi", 10, 1, 10, 10},
		{"nan", nan(), 1, 10, 1},
		{"inverted bounds", 5, 10, 1, 1},
		{"negative infinity", inf(-1), 1, 10, 1},
		{"positive infinity", inf(1), 1, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clamp(tt.x, tt.lo, tt.hi))
		})
	}
}

func TestClassify(t *testing.T) {
	p := testParams()
	assert.Equal(t, Passthrough, Classify(Record{Score: 5, AdvWeight: 1}, p))
	assert.Equal(t, Boosted, Classify(Record{Score: 5, AdvWeight: 1, ViewRestricted: true}, p))
	assert.Equal(t, Sentinel, Classify(Record{Score: 0, AdvWeight: 1, ViewRestricted: true}, p))

	assert.Equal(t, "passthrough", Passthrough.String())
	assert.Equal(t, "boosted", Boosted.String())
	assert.Equal(t, "sentinel", Sentinel.String())
}

func TestSummarize(t *testing.T) {
	p := testParams()
	scores := []float32{5, 0, 5, 5}
	weights := []float32{1, 1, 0, 1}
	restricted := []bool{true, true, true, false}

	s := Summarize(len(scores), scores, weights, restricted, p)
	assert.Equal(t, Stats{Records: 4, Boosted: 1, Sentinel: 2, Passthrough: 1}, s)

	s = Summarize(10, scores, weights, restricted[:2], p)
	assert.Equal(t, 2, s.Records)

	s = Summarize(-1, scores, weights, restricted, p)
	assert.Equal(t, Stats{}, s)
}

func TestColumns(t *testing.T) {
	records := []Record{
		{Score: 1, AdvWeight: 2, ViewRestricted: true},
		{Score: 3, AdvWeight: 4},
	}
	scores, weights, restricted := Columns(records)
	assert.Equal(t, []float32{1, 3}, scores)
	assert.Equal(t, []float32{2, 4}, weights)
	assert.Equal(t, []bool{true, false}, restricted)
}
