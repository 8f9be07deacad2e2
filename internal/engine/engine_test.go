package engine

import (
	"path/filepath"
	"testing"

	"coreledger.dev/engine/internal/config"
	"coreledger.dev/engine/internal/coord"
	"coreledger.dev/engine/internal/ledgererr"
	"coreledger.dev/engine/internal/quantum"
	"coreledger.dev/engine/internal/uemtree"
)

func testSpec(t *testing.T) config.Spec {
	t.Helper()
	s := config.DefaultSpec()
	s.Uem.Ledger.Path = filepath.Join(t.TempDir(), "core.uem")
	return s
}

func TestRegistryOpenAppendQuery(t *testing.T) {
	r := NewRegistry()
	handle, err := r.OpenLedger(testSpec(t))
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}

	q := quantum.UemQuantum{Coord: coord.Coord9{T: 1, J: 7, K: 1}, Thickness: coord.Complex32{Re: 0.1, Im: 0.1}}
	compacted, err := r.AppendRecord(handle, q.Bytes())
	if err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}
	if compacted {
		t.Fatalf("did not expect compaction on a 2-record ledger")
	}

	n, err := r.GetRecordsCount(handle)
	if err != nil {
		t.Fatalf("GetRecordsCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("GetRecordsCount = %d, want 2", n)
	}

	j := uint64(7)
	records, err := r.QueryRecords(handle, uemtree.QueryFilter{J: &j})
	if err != nil {
		t.Fatalf("QueryRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("QueryRecords returned %d, want 1", len(records))
	}

	ok, err := r.ValidateChainHandle(handle)
	if err != nil {
		t.Fatalf("ValidateChainHandle: %v", err)
	}
	if !ok {
		t.Fatalf("expected chain to validate")
	}
}

func TestRegistryMissingHandle(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetRecordsCount(Handle(999))
	if err == nil {
		t.Fatalf("expected MissingLedger error")
	}
	if kind, ok := ledgererr.KindOf(err); !ok || kind != ledgererr.MissingLedger {
		t.Fatalf("expected MISSING_LEDGER kind, got %v (ok=%v)", kind, ok)
	}
}

func TestCloseLedgerRemovesHandle(t *testing.T) {
	r := NewRegistry()
	handle, err := r.OpenLedger(testSpec(t))
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	if err := r.CloseLedger(handle); err != nil {
		t.Fatalf("CloseLedger: %v", err)
	}
	if _, err := r.GetRecordsCount(handle); err == nil {
		t.Fatalf("expected handle to be gone after close")
	}
}

func TestApplyQuantumTriggersCompactionPastThreshold(t *testing.T) {
	spec := testSpec(t)
	spec.Scd.TriggerBytes = 1 // force the byte trigger on every append
	r := NewRegistry()
	handle, err := r.OpenLedger(spec)
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}

	var lastCompacted bool
	for i := 1; i <= 205; i++ {
		q := quantum.UemQuantum{Coord: coord.Coord9{T: uint64(i)}, Thickness: coord.Complex32{}}
		compacted, err := r.AppendRecord(handle, q.Bytes())
		if err != nil {
			t.Fatalf("AppendRecord %d: %v", i, err)
		}
		lastCompacted = lastCompacted || compacted
	}
	if !lastCompacted {
		t.Fatalf("expected compaction to trigger within 205 appends at THRESHOLD=200")
	}

	n, err := r.GetRecordsCount(handle)
	if err != nil {
		t.Fatalf("GetRecordsCount: %v", err)
	}
	// Append 200 brings the ledger to 201 records and compacts it to
	// genesis + summary + 10 tail records; appends 201..205 add 5 more.
	if n != 17 {
		t.Fatalf("GetRecordsCount = %d, want 17 (12 after compaction plus 5 appends)", n)
	}

	ok, err := r.ValidateChainHandle(handle)
	if err != nil {
		t.Fatalf("ValidateChainHandle: %v", err)
	}
	if !ok {
		t.Fatalf("expected chain to validate after compaction")
	}
}
