// Package score applies the advertising boost to relevance scores of a
// ranked result set.
//
// A batch is three index-aligned columns: current scores, advertising
// weights and view-restricted flags. Records whose view is not restricted
// keep their score. Restricted records either receive a clamped linear
// boost or the "no advertising" sentinel:
//
//	eligible = adv_weight >= MinAdvWeight && score >= MinScore
//	boosted  = MaxScore * min(MaxAdvBoost, max(MinAdvBoost, adv_weight*Slope + Intercept))
//
// Evaluate is the scalar form of the rule. Transform evaluates the same
// rule over groups of Width records at a time with mask selects and writes
// the results back into the score column. Both forms produce bit-identical
// float32 results for the same inputs.
//
// Basic usage:
//
//	p := score.DefaultParams()
//	if err := score.Transform(len(scores), scores, weights, restricted, p); err != nil {
//		return err // length not a positive multiple of score.Width
//	}
//
// The package keeps no state between calls. Columns are borrowed for the
// duration of one call only; calls on disjoint ranges may run concurrently.
package score
