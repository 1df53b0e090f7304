// Package weight is a reference weight type for Go code using weightgen.
//
// A Weight has two dimensions: the computation time it accounts for and the
// size of the proof it needs. Weights are plain comparable values, so
// generated functions can be checked with ==.
package weight

import (
	"fmt"
	"math"
)

// Weight is a two dimensional cost.
type Weight struct {
	RefTime   uint64
	ProofSize uint64
}

// Zero returns the zero weight.
func Zero() Weight { return Weight{} }

// FromParts builds a weight from its two components.
func FromParts(refTime, proofSize uint64) Weight {
	return Weight{RefTime: refTime, ProofSize: proofSize}
}

// IsZero reports whether both components are zero.
func (w Weight) IsZero() bool { return w == Weight{} }

// Add returns w + o. It wraps on overflow; use SaturatingAdd when the sum
// can approach the limits.
func (w Weight) Add(o Weight) Weight {
	return Weight{RefTime: w.RefTime + o.RefTime, ProofSize: w.ProofSize + o.ProofSize}
}

// SaturatingAdd returns w + o, clamping each component at its maximum.
func (w Weight) SaturatingAdd(o Weight) Weight {
	return Weight{
		RefTime:   saturatingAdd(w.RefTime, o.RefTime),
		ProofSize: saturatingAdd(w.ProofSize, o.ProofSize),
	}
}

// AllLTE reports whether every component of w is at most the matching
// component of o.
func (w Weight) AllLTE(o Weight) bool {
	return w.RefTime <= o.RefTime && w.ProofSize <= o.ProofSize
}

func (w Weight) String() string {
	return fmt.Sprintf("Weight(ref_time: %d, proof_size: %d)", w.RefTime, w.ProofSize)
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
