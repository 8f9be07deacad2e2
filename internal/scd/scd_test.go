package scd

import (
	"testing"

	"coreledger.dev/engine/internal/coord"
	"coreledger.dev/engine/internal/hashutil"
	"coreledger.dev/engine/internal/quantum"
)

func buildRecords(n int) []quantum.UemQuantum {
	out := make([]quantum.UemQuantum, n)
	for i := range out {
		out[i] = quantum.UemQuantum{Coord: coord.Coord9{T: uint64(i)}}
	}
	return out
}

func TestCompactNoOpAtThreshold(t *testing.T) {
	records := buildRecords(THRESHOLD)
	result := Compact(records, hashutil.Blake3Provider{})
	if result.Compacted {
		t.Fatalf("expected no-op at exactly THRESHOLD records")
	}
	if len(result.NewRecords) != THRESHOLD {
		t.Fatalf("len = %d, want %d", len(result.NewRecords), THRESHOLD)
	}
}

func TestCompactAboveThreshold(t *testing.T) {
	records := buildRecords(250)
	result := Compact(records, hashutil.Blake3Provider{})
	if !result.Compacted {
		t.Fatalf("expected compaction to trigger above THRESHOLD")
	}
	want := 1 + 1 + TAILKEEP // genesis + summary + tail
	if len(result.NewRecords) != want {
		t.Fatalf("len = %d, want %d", len(result.NewRecords), want)
	}
	if result.NewRecords[0].Coord.T != records[0].Coord.T {
		t.Fatalf("genesis not preserved verbatim")
	}
	for i := 0; i < TAILKEEP; i++ {
		got := result.NewRecords[len(result.NewRecords)-TAILKEEP+i]
		want := records[len(records)-TAILKEEP+i]
		if got.Coord.T != want.Coord.T {
			t.Fatalf("tail record %d not preserved verbatim", i)
		}
	}
}

func TestCompactSummaryPayloadHash(t *testing.T) {
	records := buildRecords(250)
	result := Compact(records, hashutil.Blake3Provider{})
	summary := result.NewRecords[1]
	want := hashutil.Blake3Provider{}.Sum([]byte("SCD_SUMMARY_239"))
	if summary.PayloadHash != want {
		t.Fatalf("summary payload hash mismatch")
	}
	if summary.Coord.T != records[len(records)-1].Coord.T {
		t.Fatalf("summary coord must mirror the last record")
	}
}
