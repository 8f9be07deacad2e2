// Package ledger implements the append-only, hash-chained quantum
// store described in spec §3: a flat file of concatenated
// RecordSize-byte records with no header and no magic bytes, linked
// by prev_hash/state_snapshot, append-checked against the AHS
// predicate, and rewritable in place by SCD compaction.
package ledger

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"coreledger.dev/engine/internal/ahs"
	"coreledger.dev/engine/internal/hashutil"
	"coreledger.dev/engine/internal/ledgererr"
	"coreledger.dev/engine/internal/quantum"
)

// Ledger is one open, in-memory-resident append-only chain backed by
// a single flat file. All methods serialize on mu; the handle
// registry (internal/engine) additionally serializes across ledgers
// sharing a process.
type Ledger struct {
	mu       sync.Mutex
	path     string
	hash     hashutil.Provider
	pred     ahs.Predicate
	records  []quantum.UemQuantum
	hashMemo *lru.Cache[int, [32]byte]
}

// hashMemoSize bounds the per-index hash memoization cache; a ledger
// larger than this still works, it just recomputes hashes for the
// indexes that get evicted.
const hashMemoSize = 4096

// Open loads path if it exists, rejecting it unless invariants I1-I4
// hold; I5 (AHS) is checked too, but a violation is only logged, never
// returned as an error. If path does not exist, a fresh
// genesis record is synthesized and persisted immediately, so the
// backing file exists with exactly one record as soon as Open returns
// (spec §3's Ledger lifecycle, §6's open_ledger verb).
func Open(path string, hash hashutil.Provider, pred ahs.Predicate) (*Ledger, error) {
	cache, _ := lru.New[int, [32]byte](hashMemoSize)
	l := &Ledger{path: path, hash: hash, pred: pred, hashMemo: cache}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			genesis := []quantum.UemQuantum{*quantum.Genesis(hash)}
			if err := l.persist(genesis); err != nil {
				return nil, err
			}
			l.records = genesis
			return l, nil
		}
		return nil, ledgererr.Wrap(ledgererr.IO, "read ledger file", err)
	}

	records, err := decodeAll(b)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ledgererr.New(ledgererr.InvalidEncoding, "ledger file contains no records")
	}
	if err := validateChain(records, hash); err != nil {
		return nil, err
	}
	if bad := ahsViolations(records, pred); len(bad) > 0 {
		slog.Warn("ledger: AHS does not hold at some record boundaries on load",
			"path", path, "count", len(bad), "first_index", bad[0])
	}
	l.records = records
	return l, nil
}

func decodeAll(b []byte) ([]quantum.UemQuantum, error) {
	if len(b)%quantum.RecordSize != 0 {
		return nil, ledgererr.New(ledgererr.InvalidSize,
			fmt.Sprintf("ledger file length %d is not a multiple of %d", len(b), quantum.RecordSize))
	}
	n := len(b) / quantum.RecordSize
	records := make([]quantum.UemQuantum, 0, n)
	for i := 0; i < n; i++ {
		chunk := b[i*quantum.RecordSize : (i+1)*quantum.RecordSize]
		q, err := quantum.Parse(chunk)
		if err != nil {
			return nil, ledgererr.Wrap(ledgererr.InvalidEncoding, fmt.Sprintf("record %d", i), err)
		}
		records = append(records, *q)
	}
	return records, nil
}

// validateChain checks I2 (genesis shape), I3 (linkage) and I4
// (cumulative snapshot) across the full record list — the invariants
// validate_chain reports on (spec §3). It never returns an error for
// an AHS (I5) violation; those are reported separately by
// ahsViolations, since a compacted ledger's summary boundary may
// legitimately fail AHS without being corrupt.
func validateChain(records []quantum.UemQuantum, hash hashutil.Provider) error {
	genesis := records[0]
	var zero [32]byte
	if genesis.PrevHash != zero {
		return ledgererr.New(ledgererr.LinkageError, "genesis prev_hash must be zero")
	}
	if genesis.StateSnapshot != genesis.PayloadHash {
		return ledgererr.New(ledgererr.SnapshotMismatch, "genesis state_snapshot must equal payload_hash")
	}

	for i := 1; i < len(records); i++ {
		prev := records[i-1]
		next := records[i]

		wantPrevHash := prev.Hash(hash)
		if next.PrevHash != wantPrevHash {
			return ledgererr.New(ledgererr.LinkageError, fmt.Sprintf("record %d prev_hash does not match hash(record %d)", i, i-1))
		}

		wantSnapshot := hash.Sum(append(append([]byte{}, prev.StateSnapshot[:]...), next.PayloadHash[:]...))
		if next.StateSnapshot != wantSnapshot {
			return ledgererr.New(ledgererr.SnapshotMismatch, fmt.Sprintf("record %d state_snapshot does not chain from record %d", i, i-1))
		}
	}
	return nil
}

// ahsViolations returns the indices i>0 at which AHS fails to hold
// between records[i-1] and records[i]. Checked at load time for
// diagnostics only — never treated as a corruption error, since a
// compacted ledger's summary record may legitimately violate it.
func ahsViolations(records []quantum.UemQuantum, pred ahs.Predicate) []int {
	var bad []int
	for i := 1; i < len(records); i++ {
		prev, next := records[i-1], records[i]
		if !pred.Evaluate(prev.Thickness, prev.Coord.T, next.Thickness, next.Coord.T) {
			bad = append(bad, i)
		}
	}
	return bad
}

// chainSnapshot derives the state_snapshot for next following prev.
func chainSnapshot(hash hashutil.Provider, prev quantum.UemQuantum, next *quantum.UemQuantum) [32]byte {
	return hash.Sum(append(append([]byte{}, prev.StateSnapshot[:]...), next.PayloadHash[:]...))
}

// Append evaluates q against the current tail's AHS predicate, links
// it into the chain (prev_hash, state_snapshot), and persists the
// full file. q's own PrevHash/StateSnapshot fields are overwritten.
func (l *Ledger) Append(q quantum.UemQuantum) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tail := l.records[len(l.records)-1]
	if !l.pred.Evaluate(tail.Thickness, tail.Coord.T, q.Thickness, q.Coord.T) {
		return ledgererr.New(ledgererr.AhsViolation, "successor quantum fails AHS against ledger tail")
	}

	q.PrevHash = tail.Hash(l.hash)
	q.StateSnapshot = chainSnapshot(l.hash, tail, &q)

	records := append(append([]quantum.UemQuantum{}, l.records...), q)
	if err := l.persist(records); err != nil {
		return err
	}
	l.records = records
	l.hashMemo.Purge()
	return nil
}

// Rewrite replaces the ledger's contents with records, re-deriving
// prev_hash/state_snapshot chain-forward from the first (genesis)
// record. It does not re-check AHS: SCD's job is to drop history, not
// to re-justify it (spec §5).
func (l *Ledger) Rewrite(records []quantum.UemQuantum) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(records) == 0 {
		return ledgererr.New(ledgererr.InvalidEncoding, "rewrite requires at least a genesis record")
	}
	out := make([]quantum.UemQuantum, len(records))
	out[0] = records[0]
	out[0].PrevHash = [32]byte{}
	for i := 1; i < len(records); i++ {
		out[i] = records[i]
		out[i].PrevHash = out[i-1].Hash(l.hash)
		out[i].StateSnapshot = chainSnapshot(l.hash, out[i-1], &out[i])
	}
	if err := l.persist(out); err != nil {
		return err
	}
	l.records = out
	l.hashMemo.Purge()
	return nil
}

// persist writes records to l.path using a temp-write, fsync,
// rename, fsync-directory sequence.
func (l *Ledger) persist(records []quantum.UemQuantum) error {
	buf := make([]byte, 0, len(records)*quantum.RecordSize)
	for i := range records {
		buf = append(buf, records[i].Bytes()...)
	}

	dir := dirOf(l.path)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ledgererr.Wrap(ledgererr.IO, "create ledger directory", err)
		}
	}

	tmp := l.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return ledgererr.Wrap(ledgererr.IO, "open temp ledger file", err)
	}
	_, werr := f.Write(buf)
	serr := f.Sync()
	cerr := f.Close()
	if werr != nil {
		return ledgererr.Wrap(ledgererr.IO, "write temp ledger file", werr)
	}
	if serr != nil {
		return ledgererr.Wrap(ledgererr.IO, "fsync temp ledger file", serr)
	}
	if cerr != nil {
		return ledgererr.Wrap(ledgererr.IO, "close temp ledger file", cerr)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return ledgererr.Wrap(ledgererr.IO, "rename temp ledger file", err)
	}
	if dir != "" {
		d, err := os.Open(dir)
		if err != nil {
			return ledgererr.Wrap(ledgererr.IO, "open ledger directory for fsync", err)
		}
		derr := d.Sync()
		_ = d.Close()
		if derr != nil {
			return ledgererr.Wrap(ledgererr.IO, "fsync ledger directory", derr)
		}
	}
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

// ValidateChain re-runs the I2/I3/I4 check against the in-memory
// record list. I5 (AHS) is checked on load only, per spec §3: a
// compacted ledger's summary boundary may legitimately violate it.
func (l *Ledger) ValidateChain() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return validateChain(l.records, l.hash)
}

// ReadAt returns a copy of the record at index.
func (l *Ledger) ReadAt(index int) (quantum.UemQuantum, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.records) {
		return quantum.UemQuantum{}, ledgererr.New(ledgererr.InvalidEncoding, "record index out of range")
	}
	return l.records[index], nil
}

// Records returns a copy of the full in-memory record list, for
// callers (UemTree, SCD) that need to operate over the whole chain.
func (l *Ledger) Records() []quantum.UemQuantum {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]quantum.UemQuantum, len(l.records))
	copy(out, l.records)
	return out
}

// Len reports the current record count.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// SizeBytes reports the ledger's current on-disk footprint.
func (l *Ledger) SizeBytes() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.records)) * uint64(quantum.RecordSize)
}

// HashAt returns the memoized hash of the record at index, computing
// and caching it on first access.
func (l *Ledger) HashAt(index int) ([32]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.records) {
		return [32]byte{}, ledgererr.New(ledgererr.InvalidEncoding, "record index out of range")
	}
	if h, ok := l.hashMemo.Get(index); ok {
		return h, nil
	}
	h := l.records[index].Hash(l.hash)
	l.hashMemo.Add(index, h)
	return h, nil
}

// Path returns the ledger's backing file path.
func (l *Ledger) Path() string { return l.path }
