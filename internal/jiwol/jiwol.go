// Package jiwol implements the JiwolId codec: a length-20 sequence of
// base-11172 digits encoding a Coord9, laid out field-by-field with a
// fixed digit budget per field.
package jiwol

import "coreledger.dev/engine/internal/coord"

// GG is the JiwolId digit base.
const GG uint64 = 11172

// TotalDigits is the fixed width of an encoded JiwolId.
const TotalDigits = 20

// Id is a 20-digit base-GG positional encoding of a Coord9.
type Id [TotalDigits]uint16

// Field identifies one of Coord9's nine axes.
type Field int

const (
	FieldT Field = iota
	FieldX
	FieldJ
	FieldA
	FieldW
	FieldK
	FieldP
	FieldM
	FieldC
)

// LayoutEntry pairs a coordinate field with the digit count it
// occupies in the encoded id.
type LayoutEntry struct {
	Field  Field
	Digits int
}

// Layout is an ordered list of LayoutEntry whose Digits sum to
// TotalDigits.
type Layout []LayoutEntry

// DefaultLayout is the §4.1 fixed layout: t(6) x(4) j(4) a(1) w(1) k(1)
// p(1) m(1) c(1).
func DefaultLayout() Layout {
	return Layout{
		{FieldT, 6},
		{FieldX, 4},
		{FieldJ, 4},
		{FieldA, 1},
		{FieldW, 1},
		{FieldK, 1},
		{FieldP, 1},
		{FieldM, 1},
		{FieldC, 1},
	}
}

// Valid reports whether l's digit counts sum to exactly TotalDigits.
func (l Layout) Valid() bool {
	total := 0
	for _, e := range l {
		total += e.Digits
	}
	return total == TotalDigits
}

func fieldValue(f Field, c coord.Coord9) uint64 {
	switch f {
	case FieldT:
		return c.T
	case FieldX:
		return c.X
	case FieldJ:
		return c.J
	case FieldA:
		return uint64(c.A)
	case FieldW:
		return uint64(c.W)
	case FieldK:
		return uint64(c.K)
	case FieldP:
		return uint64(c.P)
	case FieldM:
		return uint64(c.M)
	case FieldC:
		return uint64(c.C)
	default:
		return 0
	}
}

func assignField(f Field, c *coord.Coord9, v uint64) {
	switch f {
	case FieldT:
		c.T = v
	case FieldX:
		c.X = v
	case FieldJ:
		c.J = v
	case FieldA:
		c.A = uint32(v)
	case FieldW:
		c.W = uint32(v)
	case FieldK:
		c.K = uint32(v)
	case FieldP:
		c.P = uint8(v)
	case FieldM:
		c.M = uint8(v)
	case FieldC:
		c.C = uint8(v)
	}
}

// Encode lays out c's fields per l, emitting base-GG digits
// least-significant-first within each field's slice. Out-of-range
// values are truncated modulo their digit budget (lossy), per §4.1.
func Encode(l Layout, c coord.Coord9) Id {
	var out Id
	idx := 0
	for _, entry := range l {
		v := fieldValue(entry.Field, c)
		for d := 0; d < entry.Digits && idx < TotalDigits; d++ {
			out[idx] = uint16(v % GG)
			v /= GG
			idx++
		}
	}
	return out
}

// Decode reverses Encode: for each field's digit slice, accumulate
// digit*GG^position, then narrow into the corresponding Coord9 field.
func Decode(l Layout, id Id) coord.Coord9 {
	var c coord.Coord9
	idx := 0
	for _, entry := range l {
		var acc uint64
		mul := uint64(1)
		for d := 0; d < entry.Digits && idx < TotalDigits; d++ {
			acc += uint64(id[idx]) * mul
			mul *= GG
			idx++
		}
		assignField(entry.Field, &c, acc)
	}
	return c
}
