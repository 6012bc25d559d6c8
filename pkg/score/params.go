package score

import "math"

// Params holds the tuning values for one batch call.
type Params struct {
	MinScore     float32 `json:"min_score" yaml:"min_score"`           // Lowest score still eligible for a boost
	MaxScore     float32 `json:"max_score" yaml:"max_score"`           // Multiplier applied to the clamped boost
	MinAdvWeight float32 `json:"min_adv_weight" yaml:"min_adv_weight"` // Lowest advertising weight still eligible (inclusive)
	NoAdvScore   float32 `json:"no_adv_score" yaml:"no_adv_score"`     // Sentinel for restricted records that are not eligible
	MinAdvBoost  float32 `json:"min_adv_boost" yaml:"min_adv_boost"`   // Lower clamp bound of the boost
	MaxAdvBoost  float32 `json:"max_adv_boost" yaml:"max_adv_boost"`   // Upper clamp bound of the boost
	Slope        float32 `json:"slope" yaml:"slope"`
	Intercept    float32 `json:"intercept" yaml:"intercept"`
}

// Default parameter values.
//
// DefaultMinAdvWeight is the smallest positive float32, so the inclusive
// eligibility test w >= DefaultMinAdvWeight accepts exactly the weights
// with w > 0.
const (
	DefaultMinScore     float32 = 1
	DefaultMaxScore     float32 = 100
	DefaultMinAdvWeight float32 = math.SmallestNonzeroFloat32
	DefaultNoAdvScore   float32 = -1
	DefaultMinAdvBoost  float32 = 1
	DefaultMaxAdvBoost  float32 = 10
	DefaultSlope        float32 = 0.25
	DefaultIntercept    float32 = 0.5
)

// DefaultParams returns the default parameter set.
func DefaultParams() Params {
	return Params{
		MinScore:     DefaultMinScore,
		MaxScore:     DefaultMaxScore,
		MinAdvWeight: DefaultMinAdvWeight,
		NoAdvScore:   DefaultNoAdvScore,
		MinAdvBoost:  DefaultMinAdvBoost,
		MaxAdvBoost:  DefaultMaxAdvBoost,
		Slope:        DefaultSlope,
		Intercept:    DefaultIntercept,
	}
}

// Record is one row of a batch. Batches never materialize it; it exists
// for the scalar form and for hosts that read rows before splitting them
// into columns.
type Record struct {
	Score          float32 `json:"score" yaml:"score"`
	AdvWeight      float32 `json:"adv_weight" yaml:"adv_weight"`
	ViewRestricted bool    `json:"view_restricted" yaml:"view_restricted"`
}

// Columns splits records into the three parallel columns a batch call takes.
func Columns(records []Record) (scores, advWeights []float32, restricted []bool) {
	scores = make([]float32, len(records))
	advWeights = make([]float32, len(records))
	restricted = make([]bool, len(records))
	for i, r := range records {
		scores[i] = r.Score
		advWeights[i] = r.AdvWeight
		restricted[i] = r.ViewRestricted
	}
	return scores, advWeights, restricted
}
