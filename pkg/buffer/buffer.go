// Package buffer binds raw byte buffers shared with a host environment to
// the typed columns of a score batch.
//
// Buffers hold 4-byte elements in native byte order: float32 scores and
// advertising weights, and one 32-bit lane mask word per record for the
// view restricted flag. Views alias the caller's memory; nothing is copied
// and a view must not outlive the call it was created for.
package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/mchmarny/advscorer/pkg/score"
)

// ElemSize is the size in bytes of one buffer element.
const ElemSize = 4

var (
	// ErrLayout is returned for buffers that cannot be viewed as 4-byte elements.
	ErrLayout = errors.New("invalid buffer layout")

	errInvalidAlign = errors.New("alignment must be a positive power of two")
)

// Aligned allocates size bytes whose first byte sits on an align-byte
// boundary, for hosts that hand the same memory to vector code.
func Aligned(size, align int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid buffer size: %d", size)
	}
	if align <= 0 || align&(align-1) != 0 {
		return nil, fmt.Errorf("%w: %d", errInvalidAlign, align)
	}

	buf := make([]byte, size+align)
	off := offsetForAlign(uintptr(unsafe.Pointer(unsafe.SliceData(buf))), align)
	return buf[off : off+size : off+size], nil
}

func offsetForAlign(addr uintptr, align int) int {
	exceed := int(addr % uintptr(align))
	if exceed == 0 {
		return 0
	}
	return align - exceed
}

// IsAligned reports whether the first byte of b sits on an align-byte boundary.
func IsAligned(b []byte, align int) bool {
	if len(b) == 0 || align <= 0 {
		return false
	}
	return offsetForAlign(uintptr(unsafe.Pointer(unsafe.SliceData(b))), align) == 0
}

func checkLayout(b []byte) error {
	if len(b)%ElemSize != 0 {
		return fmt.Errorf("%w: length %d is not a multiple of %d", ErrLayout, len(b), ElemSize)
	}
	if len(b) > 0 && !IsAligned(b, ElemSize) {
		return fmt.Errorf("%w: address is not %d-byte aligned", ErrLayout, ElemSize)
	}
	return nil
}

// Float32s views b as float32 values in native byte order.
func Float32s(b []byte) ([]float32, error) {
	if err := checkLayout(b); err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return []float32{}, nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/ElemSize), nil
}

// Masks views b as 32-bit lane mask words in native byte order.
func Masks(b []byte) ([]uint32, error) {
	if err := checkLayout(b); err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return []uint32{}, nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/ElemSize), nil
}

// PutFloat32s writes v into b in native byte order.
func PutFloat32s(b []byte, v []float32) error {
	if len(b) < len(v)*ElemSize {
		return fmt.Errorf("%w: %d bytes cannot hold %d values", ErrLayout, len(b), len(v))
	}
	for i, f := range v {
		binary.NativeEndian.PutUint32(b[i*ElemSize:], math.Float32bits(f))
	}
	return nil
}

// PutFlags writes one mask word per flag into b, all ones for true.
func PutFlags(b []byte, flags []bool) error {
	if len(b) < len(flags)*ElemSize {
		return fmt.Errorf("%w: %d bytes cannot hold %d flags", ErrLayout, len(b), len(flags))
	}
	for i, f := range flags {
		var w uint32
		if f {
			w = math.MaxUint32
		}
		binary.NativeEndian.PutUint32(b[i*ElemSize:], w)
	}
	return nil
}

// ReadFloat32s copies the first n float32 values out of b.
func ReadFloat32s(b []byte, n int) ([]float32, error) {
	if n < 0 || len(b) < n*ElemSize {
		return nil, fmt.Errorf("%w: %d bytes cannot hold %d values", ErrLayout, len(b), n)
	}
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.NativeEndian.Uint32(b[i*ElemSize:]))
	}
	return v, nil
}

// Views are the typed columns of one bound batch.
type Views struct {
	N          int
	Scores     []float32
	AdvWeights []float32
	Mask       []uint32
}

// Bind checks that every buffer holds at least n elements and returns
// views over the first n of each.
func Bind(n int, scores, advWeights, flags []byte) (*Views, error) {
	if n <= 0 {
		return nil, &score.ContractError{Op: "bind", N: n, Reason: "record count must be positive"}
	}

	need := n * ElemSize
	for _, b := range []struct {
		name string
		buf  []byte
	}{
		{"scores", scores},
		{"adv weights", advWeights},
		{"view restricted", flags},
	} {
		if len(b.buf) < need {
			return nil, &score.ContractError{
				Op:     "bind",
				N:      n,
				Reason: fmt.Sprintf("%s buffer holds %d bytes, need %d", b.name, len(b.buf), need),
			}
		}
	}

	s, err := Float32s(scores[:need])
	if err != nil {
		return nil, fmt.Errorf("binding scores: %w", err)
	}
	w, err := Float32s(advWeights[:need])
	if err != nil {
		return nil, fmt.Errorf("binding adv weights: %w", err)
	}
	m, err := Masks(flags[:need])
	if err != nil {
		return nil, fmt.Errorf("binding view restricted: %w", err)
	}

	return &Views{N: n, Scores: s, AdvWeights: w, Mask: m}, nil
}

// Transform runs the batch over the bound views, rewriting the scores
// buffer in place.
func (v *Views) Transform(p score.Params) error {
	return score.TransformMask(v.N, v.Scores, v.AdvWeights, v.Mask, p)
}

// TransformScores is the native entry point: it binds the three buffers
// and transforms n records. The advertising weight threshold and the
// sentinel take their default values.
func TransformScores(n int, scores, advWeights, flags []byte, minScore, maxScore, minAdvBoost, maxAdvBoost, slope, intercept float32) error {
	v, err := Bind(n, scores, advWeights, flags)
	if err != nil {
		return err
	}

	p := score.DefaultParams()
	p.MinScore = minScore
	p.MaxScore = maxScore
	p.MinAdvBoost = minAdvBoost
	p.MaxAdvBoost = maxAdvBoost
	p.Slope = slope
	p.Intercept = intercept

	return v.Transform(p)
}
