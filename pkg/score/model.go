package score

// Evaluate returns the adjusted score of a single record.
//
// Comparisons follow IEEE-754 semantics, so a NaN score or weight fails
// eligibility. Evaluate never fails.
func Evaluate(r Record, p Params) float32 {
	if !r.ViewRestricted {
		return r.Score
	}
	if !eligible(r, p) {
		return p.NoAdvScore
	}
	return p.MaxScore * clamp(boost(r.AdvWeight, p), p.MinAdvBoost, p.MaxAdvBoost)
}

func eligible(r Record, p Params) bool {
	return r.AdvWeight >= p.MinAdvWeight && r.Score >= p.MinScore
}

// boost is the unclamped linear boost. The conversion keeps the product
// rounded to float32 so the compiler cannot fuse it with the addition.
func boost(w float32, p Params) float32 {
	return float32(w*p.Slope) + p.Intercept
}

// clamp returns min(hi, max(lo, x)) with the NaN-ignoring lane min/max:
// a NaN x yields lo.
func clamp(x, lo, hi float32) float32 {
	if !(x > lo) {
		x = lo
	}
	if !(x < hi) {
		x = hi
	}
	return x
}

// Outcome is the branch of the rule a record takes.
type Outcome int

const (
	Passthrough Outcome = iota
	Boosted
	Sentinel
)

func (o Outcome) String() string {
	switch o {
	case Boosted:
		return "boosted"
	case Sentinel:
		return "sentinel"
	default:
		return "passthrough"
	}
}

// Classify reports which branch Evaluate takes for r.
func Classify(r Record, p Params) Outcome {
	switch {
	case !r.ViewRestricted:
		return Passthrough
	case eligible(r, p):
		return Boosted
	default:
		return Sentinel
	}
}

// Stats counts records per outcome.
type Stats struct {
	Records     int `json:"records" yaml:"records"`
	Boosted     int `json:"boosted" yaml:"boosted"`
	Sentinel    int `json:"sentinel" yaml:"sentinel"`
	Passthrough int `json:"passthrough" yaml:"passthrough"`
}

// Summarize classifies the first n records of a batch. It must run on the
// columns before they are transformed.
func Summarize(n int, scores, advWeights []float32, restricted []bool, p Params) Stats {
	n = min(n, len(scores), len(advWeights), len(restricted))
	s := Stats{Records: max(n, 0)}
	for i := 0; i < n; i++ {
		switch Classify(Record{Score: scores[i], AdvWeight: advWeights[i], ViewRestricted: restricted[i]}, p) {
		case Boosted:
			s.Boosted++
		case Sentinel:
			s.Sentinel++
		default:
			s.Passthrough++
		}
	}
	return s
}
