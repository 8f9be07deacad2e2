package quantum

import (
	"bytes"
	"testing"

	"coreledger.dev/engine/internal/coord"
	"coreledger.dev/engine/internal/hashutil"
)

func sampleQuantum() *UemQuantum {
	q := &UemQuantum{
		Coord:     coord.Coord9{T: 1, X: 2, A: 3, W: 4, J: 5, K: 6, P: 7, M: 8, C: 9},
		Thickness: coord.Complex32{Re: 1.5, Im: -2.5},
	}
	for i := range q.ID {
		q.ID[i] = uint16(i)
	}
	q.PayloadHash[0] = 0xAB
	q.PrevHash[0] = 0xCD
	q.StateSnapshot[0] = 0xEF
	for i := range q.SemanticVec {
		q.SemanticVec[i] = float32(i) * 0.25
	}
	return q
}

func TestBytesExactSize(t *testing.T) {
	q := sampleQuantum()
	b := q.Bytes()
	if len(b) != RecordSize {
		t.Fatalf("len(Bytes()) = %d, want %d", len(b), RecordSize)
	}
	if RecordSize != 3255 {
		t.Fatalf("RecordSize = %d, want 3255", RecordSize)
	}
}

func TestParseRoundTrip(t *testing.T) {
	q := sampleQuantum()
	b := q.Bytes()
	got, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !q.Equal(got) {
		t.Fatalf("round trip mismatch")
	}
	if !bytes.Equal(b, got.Bytes()) {
		t.Fatalf("re-serialization mismatch")
	}
}

func TestParseRejectsWrongSize(t *testing.T) {
	if _, err := Parse(make([]byte, RecordSize-1)); err == nil {
		t.Fatalf("expected error for short record")
	}
	if _, err := Parse(make([]byte, RecordSize+1)); err == nil {
		t.Fatalf("expected error for long record")
	}
}

func TestFieldOffsets(t *testing.T) {
	q := sampleQuantum()
	b := q.Bytes()
	// id: offset 0, 40 bytes.
	if len(b[0:40]) != 40 {
		t.Fatalf("id region wrong size")
	}
	// coord.t at offset 40.
	if b[40] != 1 {
		t.Fatalf("coord.t not at offset 40")
	}
	// payload_hash at offset 79.
	if b[79] != 0xAB {
		t.Fatalf("payload_hash not at offset 79, got %x", b[79])
	}
	// semantic_vec starts at 111, ends at 3183 (3072 bytes).
	if 111+3072 != 3183 {
		t.Fatalf("semantic_vec span miscalculated")
	}
	if b[3183] != 0xCD {
		t.Fatalf("prev_hash not at offset 3183, got %x", b[3183])
	}
	if b[3215] != 0xEF {
		t.Fatalf("state_snapshot not at offset 3215, got %x", b[3215])
	}
}

func TestGenesisIdentity(t *testing.T) {
	for _, p := range []hashutil.Provider{hashutil.Blake3Provider{}, hashutil.Sha256Provider{}} {
		g := Genesis(p)
		var zero [32]byte
		if g.PrevHash != zero {
			t.Fatalf("%s: genesis prev_hash must be zero", p.Name())
		}
		if g.StateSnapshot != g.PayloadHash {
			t.Fatalf("%s: genesis state_snapshot must equal payload_hash", p.Name())
		}
		want := p.Sum([]byte("GENESIS"))
		if g.PayloadHash != want {
			t.Fatalf("%s: genesis payload_hash mismatch", p.Name())
		}
		if g.Coord.P != 1 {
			t.Fatalf("%s: genesis coord.p must be 1", p.Name())
		}
	}
}
