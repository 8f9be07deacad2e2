// Package coord defines the primitive value types shared by every quantum:
// the 9-axis Coord9 coordinate and the Complex32 thickness amplitude.
package coord

import "math"

// Coord9 is a quantum's position in the conceptual state space.
type Coord9 struct {
	T uint64 // logical time
	X uint64 // spatial/process index
	A uint32 // actor
	W uint32 // world/branch id
	J uint64 // project id (primary grouping key)
	K uint32 // step id within project
	P uint8  // projection layer
	M uint8  // merge depth
	C uint8  // collapse/cycle count
}

// Complex32 is a two-component IEEE-754 float32 amplitude.
type Complex32 struct {
	Re float32
	Im float32
}

// Mag returns the Euclidean magnitude of c.
//
// Some legacy call sites used the taxicab norm (|re|+|im|) instead; AHS
// MUST use the Euclidean magnitude, so that is the only one implemented
// here.
func (c Complex32) Mag() float32 {
	return float32(math.Sqrt(float64(c.Re)*float64(c.Re) + float64(c.Im)*float64(c.Im)))
}
