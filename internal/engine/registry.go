package engine

import (
	"sync"
	"sync/atomic"

	"coreledger.dev/engine/internal/config"
	"coreledger.dev/engine/internal/ledgererr"
	"coreledger.dev/engine/internal/quantum"
	"coreledger.dev/engine/internal/uemtree"
)

// Handle is a monotonically increasing, never-reused, non-zero
// identifier assigned when a ledger is opened (spec §3's Handle).
type Handle uint32

// Registry is the process-wide, single-mutex-protected table mapping
// handles to open Hypervisors. There is no per-ledger lock: the
// registry mutex alone serializes every operation against every open
// ledger (spec §4.8).
type Registry struct {
	mu   sync.Mutex
	next atomic.Uint32
	open map[Handle]*Hypervisor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{open: make(map[Handle]*Hypervisor)}
}

// OpenLedger opens (or creates) a ledger per spec and assigns it a
// fresh handle.
func (r *Registry) OpenLedger(spec config.Spec) (Handle, error) {
	h, err := Open(spec)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := Handle(r.next.Add(1))
	r.open[id] = h
	return id, nil
}

// CloseLedger drops a handle from the registry and releases its warm
// index cache file handle. The ledger and cache files are left on disk.
func (r *Registry) CloseLedger(handle Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.open[handle]
	if !ok {
		return ledgererr.New(ledgererr.MissingLedger, "close_ledger: handle not found")
	}
	delete(r.open, handle)
	return h.Close()
}

func (r *Registry) lookup(handle Handle) (*Hypervisor, error) {
	h, ok := r.open[handle]
	if !ok {
		return nil, ledgererr.New(ledgererr.MissingLedger, "handle not found")
	}
	return h, nil
}

// AppendRecord parses a 3255-byte record and applies it through the
// Hypervisor, returning whether compaction occurred.
func (r *Registry) AppendRecord(handle Handle, record []byte) (compacted bool, err error) {
	q, err := quantum.Parse(record)
	if err != nil {
		return false, ledgererr.Wrap(ledgererr.InvalidSize, "append_record", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	h, err := r.lookup(handle)
	if err != nil {
		return false, err
	}
	return h.ApplyQuantum(*q)
}

// ValidateChainHandle re-checks I2-I4 on the ledger behind handle.
func (r *Registry) ValidateChainHandle(handle Handle) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, err := r.lookup(handle)
	if err != nil {
		return false, err
	}
	if err := h.ValidateChain(); err != nil {
		return false, nil
	}
	return true, nil
}

// QueryRecords routes filter to the ledger behind handle, returning
// each matching record's 3255-byte serialization.
func (r *Registry) QueryRecords(handle Handle, filter uemtree.QueryFilter) ([][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, err := r.lookup(handle)
	if err != nil {
		return nil, err
	}
	matches := h.Query(filter)
	out := make([][]byte, len(matches))
	for i := range matches {
		out[i] = matches[i].Bytes()
	}
	return out, nil
}

// ScdCompactHandle forces an SCD evaluation pass against the current
// tail even if the byte trigger hasn't fired. scd.THRESHOLD still
// applies: a ledger of THRESHOLD records or fewer is left unchanged.
func (r *Registry) ScdCompactHandle(handle Handle) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, err := r.lookup(handle)
	if err != nil {
		return false, err
	}
	return h.forceCompact()
}

// GetLastQuantumInfo summarizes the tail record behind handle.
func (r *Registry) GetLastQuantumInfo(handle Handle) (LastQuantumInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, err := r.lookup(handle)
	if err != nil {
		return LastQuantumInfo{}, err
	}
	return h.LastQuantumInfo()
}

// GetRecordsCount reports |records| for the ledger behind handle.
func (r *Registry) GetRecordsCount(handle Handle) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, err := r.lookup(handle)
	if err != nil {
		return 0, err
	}
	return h.RecordCount(), nil
}
