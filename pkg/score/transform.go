package score

// Transform rewrites scores[0:n] in place with the adjusted score of each
// record, Width records at a time.
//
// n must be positive and a multiple of Width and every column must hold
// at least n records. Otherwise Transform returns a *ContractError and
// leaves scores untouched. Elements past n and the other columns are never
// written.
func Transform(n int, scores, advWeights []float32, restricted []bool, p Params) error {
	if err := checkContract("transform", n, len(scores), len(advWeights), len(restricted)); err != nil {
		return err
	}

	k := newKernel(p)
	for off := 0; off < n; off += Width {
		var m mask
		for i, r := range restricted[off : off+Width] {
			m[i] = maskOf(r)
		}
		k.apply((*lanes)(scores[off:off+Width]), (*lanes)(advWeights[off:off+Width]), &m)
	}
	return nil
}

// TransformMask is Transform over a packed lane mask column, one 32-bit
// word per record. Any non-zero word marks the record as view restricted.
func TransformMask(n int, scores, advWeights []float32, restricted []uint32, p Params) error {
	if err := checkContract("transform mask", n, len(scores), len(advWeights), len(restricted)); err != nil {
		return err
	}

	k := newKernel(p)
	for off := 0; off < n; off += Width {
		var m mask
		for i, w := range restricted[off : off+Width] {
			m[i] = maskOf(w != 0)
		}
		k.apply((*lanes)(scores[off:off+Width]), (*lanes)(advWeights[off:off+Width]), &m)
	}
	return nil
}

// TransformAll accepts a batch of any positive length. The largest prefix
// that is a multiple of Width goes through Transform; the remaining
// records are evaluated one by one with Evaluate.
//
// All three columns must have the same length.
func TransformAll(scores, advWeights []float32, restricted []bool, p Params) error {
	n := len(scores)
	if n == 0 {
		return &ContractError{Op: "transform all", N: n, Reason: "record count must be positive"}
	}
	if len(advWeights) != n || len(restricted) != n {
		return &ContractError{Op: "transform all", N: n, Reason: "columns differ in length"}
	}

	head := n - n%Width
	if head > 0 {
		if err := Transform(head, scores, advWeights, restricted, p); err != nil {
			return err
		}
	}
	for i := head; i < n; i++ {
		scores[i] = Evaluate(Record{Score: scores[i], AdvWeight: advWeights[i], ViewRestricted: restricted[i]}, p)
	}
	return nil
}
