// Package scd implements Self-Compacting Dynamics: the bounded-growth
// rewrite policy that collapses all but a genesis record, one summary
// record, and a fixed tail once a ledger grows past THRESHOLD records
// (spec §4.6).
package scd

import (
	"fmt"

	"coreledger.dev/engine/internal/hashutil"
	"coreledger.dev/engine/internal/quantum"
)

// THRESHOLD is the record count at or below which compaction is a
// no-op, even if the byte-size trigger fires.
const THRESHOLD = 200

// TAILKEEP is the number of most-recent records kept verbatim.
const TAILKEEP = 10

// Result is the outcome of a compaction attempt.
type Result struct {
	Compacted  bool
	NewRecords []quantum.UemQuantum
}

// Compact returns records unchanged (Compacted = false) when
// len(records) <= THRESHOLD. Otherwise it returns genesis + one
// synthesized summary quantum + the last TAILKEEP records, with
// Compacted = true.
func Compact(records []quantum.UemQuantum, hash hashutil.Provider) Result {
	if len(records) <= THRESHOLD {
		out := make([]quantum.UemQuantum, len(records))
		copy(out, records)
		return Result{Compacted: false, NewRecords: out}
	}

	out := make([]quantum.UemQuantum, 0, TAILKEEP+2)
	out = append(out, records[0])

	summaryCount := saturatingSub(len(records), TAILKEEP+1)
	tail := records[len(records)-1]
	var summary quantum.UemQuantum
	summary.Coord = tail.Coord
	summary.Thickness = tail.Thickness
	summary.PayloadHash = hash.Sum([]byte(fmt.Sprintf("SCD_SUMMARY_%d", summaryCount)))
	out = append(out, summary)

	tailStart := saturatingSub(len(records), TAILKEEP)
	out = append(out, records[tailStart:]...)

	return Result{Compacted: true, NewRecords: out}
}

func saturatingSub(a, b int) int {
	if b > a {
		return 0
	}
	return a - b
}
