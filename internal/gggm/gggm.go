// Package gggm implements the coordinate-algebra operators merge,
// parallel, project and measure_tau over a Value. This layer is a
// supplement: it is never consulted by AHS or the append path, and
// exists purely as an algebraic view over Coord9/Complex32 values.
package gggm

import "coreledger.dev/engine/internal/coord"

// Value pairs a coordinate with its thickness amplitude.
type Value struct {
	Coord     coord.Coord9
	Thickness coord.Complex32
}

// New builds a Value from its two components.
func New(c coord.Coord9, th coord.Complex32) Value {
	return Value{Coord: c, Thickness: th}
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func satAddU32(a, b uint32) uint32 {
	sum := uint64(a) + uint64(b)
	if sum > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(sum)
}

func satAddU8(a, b uint8) uint8 {
	sum := uint16(a) + uint16(b)
	if sum > 0xFF {
		return 0xFF
	}
	return uint8(sum)
}

// Merge combines v with other: a "join" of two histories into a
// successor coordinate, advancing t and accumulating k/m.
func (v Value) Merge(other Value) Value {
	c := v.Coord
	c.T = maxU64(v.Coord.T, other.Coord.T) + 1
	c.X = maxU64(v.Coord.X, other.Coord.X)
	c.J = maxU64(v.Coord.J, other.Coord.J)
	c.K = satAddU32(v.Coord.K+other.Coord.K, 1) // K+other.K wraps per uint32, then saturating +1
	c.M = satAddU8(c.M, 1)
	th := coord.Complex32{
		Re: v.Thickness.Re + other.Thickness.Re + 0.1,
		Im: v.Thickness.Im + other.Thickness.Im + 0.05,
	}
	return Value{Coord: c, Thickness: th}
}

// Parallel combines v with other side-by-side, rather than in
// sequence: w is XORed, p combines additively and k multiplicatively.
func (v Value) Parallel(other Value) Value {
	c := v.Coord
	c.W = v.Coord.W ^ other.Coord.W
	c.P = v.Coord.P + other.Coord.P + 1 // uint8 wraps natively, matching wrapping_add
	c.M = satAddU8(v.Coord.M/2, 1)
	c.K = v.Coord.K*(other.Coord.K+1) + 1 // uint32 wraps natively, matching wrapping_mul
	th := coord.Complex32{
		Re: (v.Thickness.Re * 0.6) + (other.Thickness.Re * 0.8) + 0.05,
		Im: (v.Thickness.Im * 0.4) + (other.Thickness.Im * 0.9) + 0.08,
	}
	return Value{Coord: c, Thickness: th}
}

// Project pins v onto layer, incrementing c and damping thickness.
func (v Value) Project(layer uint8) Value {
	c := v.Coord
	c.P = layer
	c.C = satAddU8(c.C, 1)
	th := coord.Complex32{
		Re: v.Thickness.Re*0.75 + float32(layer)*0.01,
		Im: max32(v.Thickness.Im+0.1, 0.1),
	}
	return Value{Coord: c, Thickness: th}
}

// MeasureTau reads out v's thickness amplitude.
func (v Value) MeasureTau() coord.Complex32 {
	return v.Thickness
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
