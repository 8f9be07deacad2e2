// Package ahs implements the Admissible Harmonic Succession predicate:
// the evolution rule constraining which successor quantum may follow a
// given predecessor.
package ahs

import (
	"math"

	"coreledger.dev/engine/internal/coord"
)

// Default tuning constants from §4.3.
const (
	Alpha         = 0.8
	TimeWeight    = 0.1
	BaseAllowance = 1.0
)

// Predicate is evaluated at ledger append time against the current
// tail. Its fields allow the tuning constants to be overridden by
// configuration (ahs.alpha); metric selection is informational only —
// the magnitude is always Euclidean (coord.Complex32.Mag).
type Predicate struct {
	Alpha         float32
	TimeWeight    float32
	BaseAllowance float32
}

// Default returns the §4.3 predicate with the spec's default constants.
func Default() Predicate {
	return Predicate{Alpha: Alpha, TimeWeight: TimeWeight, BaseAllowance: BaseAllowance}
}

func dist(p Predicate, prevT coord.Complex32, prevTime uint64, nextT coord.Complex32, nextTime uint64) float32 {
	reDiff := absf32(nextT.Re - prevT.Re)
	imDiff := absf32(nextT.Im - prevT.Im)

	var tDelta int64
	if nextTime >= prevTime {
		tDelta = int64(nextTime - prevTime)
	} else {
		tDelta = int64(prevTime - nextTime)
	}
	tDiff := float32(math.Log1p(float64(tDelta))) * p.TimeWeight
	return reDiff + imDiff + tDiff
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Evaluate reports whether next is an admissible successor of prev,
// given prev's thickness/time and next's thickness/time.
func (p Predicate) Evaluate(prevThickness coord.Complex32, prevTime uint64, nextThickness coord.Complex32, nextTime uint64) bool {
	d := dist(p, prevThickness, prevTime, nextThickness, nextTime)
	bound := p.Alpha*(prevThickness.Mag()+p.BaseAllowance) + p.BaseAllowance
	return d <= bound
}
