// Package quantum defines UemQuantum, the fixed 3255-byte ledger
// record, and its bit-exact little-endian serialization.
package quantum

import (
	"encoding/binary"
	"fmt"
	"math"

	"coreledger.dev/engine/internal/coord"
	"coreledger.dev/engine/internal/hashutil"
	"coreledger.dev/engine/internal/jiwol"
)

// SemLen is the length of the semantic vector in float32 elements.
const SemLen = 768

// RecordSize is the fixed, non-negotiable on-disk size of a quantum.
const RecordSize = 40 + 8 + 8 + 4 + 4 + 8 + 4 + 1 + 1 + 1 + 32 + SemLen*4 + 32 + 32 + 4 + 4

func init() {
	if RecordSize != 3255 {
		panic(fmt.Sprintf("quantum: RecordSize computed as %d, spec requires 3255", RecordSize))
	}
}

// UemQuantum is one atomic state transition record.
type UemQuantum struct {
	ID            jiwol.Id
	Coord         coord.Coord9
	PayloadHash   [32]byte
	SemanticVec   [SemLen]float32
	PrevHash      [32]byte
	StateSnapshot [32]byte
	Thickness     coord.Complex32
}

// Bytes serializes q into the exact 3255-byte little-endian layout
// described in spec §3, field order and all. No padding is ever
// inserted between fields.
func (q *UemQuantum) Bytes() []byte {
	buf := make([]byte, 0, RecordSize)
	for _, v := range q.ID {
		buf = binary.LittleEndian.AppendUint16(buf, v)
	}
	buf = binary.LittleEndian.AppendUint64(buf, q.Coord.T)
	buf = binary.LittleEndian.AppendUint64(buf, q.Coord.X)
	buf = binary.LittleEndian.AppendUint32(buf, q.Coord.A)
	buf = binary.LittleEndian.AppendUint32(buf, q.Coord.W)
	buf = binary.LittleEndian.AppendUint64(buf, q.Coord.J)
	buf = binary.LittleEndian.AppendUint32(buf, q.Coord.K)
	buf = append(buf, q.Coord.P, q.Coord.M, q.Coord.C)
	buf = append(buf, q.PayloadHash[:]...)
	for _, f := range q.SemanticVec {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	buf = append(buf, q.PrevHash[:]...)
	buf = append(buf, q.StateSnapshot[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(q.Thickness.Re))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(q.Thickness.Im))
	return buf
}

// Parse deserializes an exact RecordSize-byte slice into a UemQuantum.
// A slice of any other length is an InvalidSize condition for the
// caller to surface.
func Parse(b []byte) (*UemQuantum, error) {
	if len(b) != RecordSize {
		return nil, fmt.Errorf("quantum: invalid record size %d, want %d", len(b), RecordSize)
	}
	c := newCursor(b)
	var q UemQuantum
	for i := range q.ID {
		v, err := c.readU16LE()
		if err != nil {
			return nil, err
		}
		q.ID[i] = v
	}
	var err error
	if q.Coord.T, err = c.readU64LE(); err != nil {
		return nil, err
	}
	if q.Coord.X, err = c.readU64LE(); err != nil {
		return nil, err
	}
	if q.Coord.A, err = c.readU32LE(); err != nil {
		return nil, err
	}
	if q.Coord.W, err = c.readU32LE(); err != nil {
		return nil, err
	}
	if q.Coord.J, err = c.readU64LE(); err != nil {
		return nil, err
	}
	if q.Coord.K, err = c.readU32LE(); err != nil {
		return nil, err
	}
	p, err := c.readU8()
	if err != nil {
		return nil, err
	}
	q.Coord.P = p
	m, err := c.readU8()
	if err != nil {
		return nil, err
	}
	q.Coord.M = m
	cc, err := c.readU8()
	if err != nil {
		return nil, err
	}
	q.Coord.C = cc

	ph, err := c.readExact(32)
	if err != nil {
		return nil, err
	}
	copy(q.PayloadHash[:], ph)

	for i := range q.SemanticVec {
		bits, err := c.readU32LE()
		if err != nil {
			return nil, err
		}
		q.SemanticVec[i] = math.Float32frombits(bits)
	}

	prev, err := c.readExact(32)
	if err != nil {
		return nil, err
	}
	copy(q.PrevHash[:], prev)

	snap, err := c.readExact(32)
	if err != nil {
		return nil, err
	}
	copy(q.StateSnapshot[:], snap)

	reBits, err := c.readU32LE()
	if err != nil {
		return nil, err
	}
	q.Thickness.Re = math.Float32frombits(reBits)

	imBits, err := c.readU32LE()
	if err != nil {
		return nil, err
	}
	q.Thickness.Im = math.Float32frombits(imBits)

	if c.remaining() != 0 {
		return nil, fmt.Errorf("quantum: trailing bytes after record")
	}
	return &q, nil
}

// Hash returns hash(serialize(q)) under the given provider.
func (q *UemQuantum) Hash(p hashutil.Provider) [32]byte {
	return p.Sum(q.Bytes())
}

// Genesis synthesizes the all-zero genesis record described in §3's
// Ledger lifecycle: zero-valued except payload_hash = hash("GENESIS"),
// state_snapshot = payload_hash, coord.p = 1.
func Genesis(p hashutil.Provider) *UemQuantum {
	var q UemQuantum
	q.PayloadHash = p.Sum([]byte("GENESIS"))
	q.StateSnapshot = q.PayloadHash
	q.Coord.P = 1
	return &q
}

// Equal reports field-for-field equality, used by round-trip tests.
func (q *UemQuantum) Equal(other *UemQuantum) bool {
	if other == nil {
		return false
	}
	return string(q.Bytes()) == string(other.Bytes())
}
