package score

import "math"

// Width is the number of records evaluated together as one group.
const Width = 8

const allOnes = ^uint32(0)

// lanes is one group of float32 values.
type lanes [Width]float32

// mask is one group of lane predicates, all ones for true and zero for false.
type mask [Width]uint32

func splat(v float32) (l lanes) {
	for i := range l {
		l[i] = v
	}
	return l
}

func maskOf(b bool) uint32 {
	var m uint32
	if b {
		m = allOnes
	}
	return m
}

func (a *lanes) ge(b *lanes) (m mask) {
	for i := range m {
		m[i] = maskOf(a[i] >= b[i])
	}
	return m
}

func (a *lanes) gt(b *lanes) (m mask) {
	for i := range m {
		m[i] = maskOf(a[i] > b[i])
	}
	return m
}

func (a *lanes) lt(b *lanes) (m mask) {
	for i := range m {
		m[i] = maskOf(a[i] < b[i])
	}
	return m
}

func (m *mask) and(o *mask) (r mask) {
	for i := range r {
		r[i] = m[i] & o[i]
	}
	return r
}

// sel picks a where m is set and b elsewhere by blending bit patterns.
func sel(m *mask, a, b *lanes) (r lanes) {
	for i := range r {
		ab := math.Float32bits(a[i])
		bb := math.Float32bits(b[i])
		r[i] = math.Float32frombits(ab&m[i] | bb&^m[i])
	}
	return r
}

// mulAdd returns a*k+c per lane, rounding the product to float32 first.
func (a *lanes) mulAdd(k, c float32) (r lanes) {
	for i := range r {
		r[i] = float32(a[i]*k) + c
	}
	return r
}

func (a *lanes) scale(k float32) (r lanes) {
	for i := range r {
		r[i] = a[i] * k
	}
	return r
}

// maxOf returns max(lo, x) per lane; lanes where x is NaN take lo.
func maxOf(lo, x *lanes) lanes {
	m := x.gt(lo)
	return sel(&m, x, lo)
}

// minOf returns min(hi, x) per lane; lanes where x is NaN take hi.
func minOf(hi, x *lanes) lanes {
	m := x.lt(hi)
	return sel(&m, x, hi)
}

// kernel carries the splatted parameters of one batch call.
type kernel struct {
	minScore     lanes
	minAdvWeight lanes
	noAdvScore   lanes
	minAdvBoost  lanes
	maxAdvBoost  lanes
	maxScore     float32
	slope        float32
	intercept    float32
}

func newKernel(p Params) kernel {
	return kernel{
		minScore:     splat(p.MinScore),
		minAdvWeight: splat(p.MinAdvWeight),
		noAdvScore:   splat(p.NoAdvScore),
		minAdvBoost:  splat(p.MinAdvBoost),
		maxAdvBoost:  splat(p.MaxAdvBoost),
		maxScore:     p.MaxScore,
		slope:        p.Slope,
		intercept:    p.Intercept,
	}
}

// apply evaluates one group in place. No lane takes a branch: every
// lane computes both the boost and the sentinel and the masks pick.
func (k *kernel) apply(scores, advWeights *lanes, restricted *mask) {
	wm := advWeights.ge(&k.minAdvWeight)
	sm := scores.ge(&k.minScore)
	isAdv := wm.and(&sm)

	b := advWeights.mulAdd(k.slope, k.intercept)
	b = maxOf(&k.minAdvBoost, &b)
	b = minOf(&k.maxAdvBoost, &b)
	b = b.scale(k.maxScore)

	adv := sel(&isAdv, &b, &k.noAdvScore)
	*scores = sel(restricted, &adv, scores)
}
