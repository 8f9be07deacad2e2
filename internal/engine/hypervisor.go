// Package engine implements the write-side facade (Hypervisor) and
// the process-wide handle registry that external callers address
// ledgers through (spec §4.7, §4.8).
package engine

import (
	"log/slog"

	"coreledger.dev/engine/internal/ahs"
	"coreledger.dev/engine/internal/config"
	"coreledger.dev/engine/internal/hashutil"
	"coreledger.dev/engine/internal/ledger"
	"coreledger.dev/engine/internal/quantum"
	"coreledger.dev/engine/internal/scd"
	"coreledger.dev/engine/internal/uemtree"
)

// Hypervisor orchestrates append → reindex → maybe-compact against a
// single Ledger. It holds no mutex of its own: callers reach it only
// through the handle registry's single mutex (spec §4.8).
type Hypervisor struct {
	ledger       *ledger.Ledger
	tree         *uemtree.UemTree
	cache        *uemtree.Cache
	hash         hashutil.Provider
	triggerBytes uint64
}

// Open loads (or creates) the ledger at spec's configured path and
// builds its initial index, reusing the bbolt-backed warm index cache
// at "<path>.idx.bolt" when its fingerprint matches the loaded ledger
// (spec §9's permitted incremental-index refinement).
func Open(spec config.Spec) (*Hypervisor, error) {
	hash := hashutil.ByName(spec.Uem.Record.Hash)
	pred := ahs.Predicate{Alpha: spec.Ahs.Alpha, TimeWeight: ahs.TimeWeight, BaseAllowance: ahs.BaseAllowance}

	l, err := ledger.Open(spec.Uem.Ledger.Path, hash, pred)
	if err != nil {
		return nil, err
	}
	h := &Hypervisor{
		ledger:       l,
		hash:         hash,
		triggerBytes: spec.Scd.TriggerBytes,
	}

	cache, err := uemtree.OpenCache(spec.Uem.Ledger.Path + ".idx.bolt")
	if err != nil {
		slog.Warn("engine: warm index cache unavailable, falling back to full rebuilds", "path", spec.Uem.Ledger.Path, "error", err)
	} else {
		h.cache = cache
	}

	h.reindex()
	return h, nil
}

// reindex rebuilds h.tree from the ledger's current record list,
// reusing h.cache when its fingerprint still matches, and re-persists
// the cache on a miss.
func (h *Hypervisor) reindex() {
	records := h.ledger.Records()
	if h.cache != nil {
		fp := uemtree.Fingerprint(records, h.hash)
		if fresh, err := h.cache.Fresh(fp); err == nil && fresh {
			if tree, err := h.cache.Load(records); err == nil {
				h.tree = tree
				return
			}
		}
		h.tree = uemtree.Build(records)
		if err := h.cache.Rebuild(h.tree, fp); err != nil {
			slog.Warn("engine: failed to persist warm index cache", "error", err)
		}
		return
	}
	h.tree = uemtree.Build(records)
}

// ApplyQuantum appends q, rebuilds the index, and runs SCD if the
// byte-size trigger fires and the ledger is past THRESHOLD records
// (spec §4.6, §4.7). It reports whether a compaction rewrite occurred.
func (h *Hypervisor) ApplyQuantum(q quantum.UemQuantum) (compacted bool, err error) {
	if err := h.ledger.Append(q); err != nil {
		return false, err
	}
	h.reindex()

	if h.ledger.SizeBytes() < h.triggerBytes {
		return false, nil
	}

	result := scd.Compact(h.ledger.Records(), h.hash)
	if !result.Compacted {
		return false, nil
	}
	if err := h.ledger.Rewrite(result.NewRecords); err != nil {
		return false, err
	}
	h.reindex()
	slog.Info("scd: compacted ledger", "path", h.ledger.Path(), "new_record_count", len(result.NewRecords))
	return true, nil
}

// forceCompact runs SCD against the current record list regardless of
// the byte-size trigger, backing the external compact(handle) verb
// (spec §6). THRESHOLD (scd.THRESHOLD) still applies: compaction is
// still a no-op for a short ledger.
func (h *Hypervisor) forceCompact() (bool, error) {
	result := scd.Compact(h.ledger.Records(), h.hash)
	if !result.Compacted {
		return false, nil
	}
	if err := h.ledger.Rewrite(result.NewRecords); err != nil {
		return false, err
	}
	h.reindex()
	return true, nil
}

// Close releases the hypervisor's warm index cache file handle, if
// one was opened.
func (h *Hypervisor) Close() error {
	if h.cache != nil {
		return h.cache.Close()
	}
	return nil
}

// Query routes filter to the live index.
func (h *Hypervisor) Query(filter uemtree.QueryFilter) []quantum.UemQuantum {
	return h.tree.Query(filter)
}

// SnapshotState returns the tail record's state_snapshot.
func (h *Hypervisor) SnapshotState() ([32]byte, error) {
	n := h.ledger.Len()
	tail, err := h.ledger.ReadAt(n - 1)
	if err != nil {
		return [32]byte{}, err
	}
	return tail.StateSnapshot, nil
}

// RecordCount reports |records|.
func (h *Hypervisor) RecordCount() int { return h.ledger.Len() }

// ValidateChain re-checks I2-I4 over the live ledger.
func (h *Hypervisor) ValidateChain() error { return h.ledger.ValidateChain() }

// LastQuantumInfo summarizes the tail record for external callers.
type LastQuantumInfo struct {
	ID          [20]uint16
	T           uint64
	PayloadHash [32]byte
	PrevHash    [32]byte
}

// LastQuantumInfo returns a summary of the ledger's tail record.
func (h *Hypervisor) LastQuantumInfo() (LastQuantumInfo, error) {
	n := h.ledger.Len()
	tail, err := h.ledger.ReadAt(n - 1)
	if err != nil {
		return LastQuantumInfo{}, err
	}
	return LastQuantumInfo{
		ID:          [20]uint16(tail.ID),
		T:           tail.Coord.T,
		PayloadHash: tail.PayloadHash,
		PrevHash:    tail.PrevHash,
	}, nil
}
