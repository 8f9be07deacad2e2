package uemtree

import (
	"path/filepath"
	"testing"

	"coreledger.dev/engine/internal/hashutil"
	"coreledger.dev/engine/internal/quantum"
)

func TestCacheRebuildAndLoadRoundTrip(t *testing.T) {
	records := sampleRecords()
	tree := Build(records)

	path := filepath.Join(t.TempDir(), "idx.bolt")
	c, err := OpenCache(path)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	fp := Fingerprint(records, hashutil.Blake3Provider{})
	if err := c.Rebuild(tree, fp); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	fresh, err := c.Fresh(fp)
	if err != nil {
		t.Fatalf("Fresh: %v", err)
	}
	if !fresh {
		t.Fatalf("expected Fresh to report true immediately after Rebuild")
	}

	loaded, err := c.Load(records)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := loaded.Query(QueryFilter{J: u64p(1), K: u32p(1)})
	want := tree.Query(QueryFilter{J: u64p(1), K: u32p(1)})
	if len(got) != len(want) {
		t.Fatalf("loaded tree query mismatch: got %d want %d", len(got), len(want))
	}
	for i := range got {
		if !got[i].Equal(&want[i]) {
			t.Fatalf("loaded tree result %d mismatch", i)
		}
	}
}

func TestCacheFreshDetectsStaleness(t *testing.T) {
	records := sampleRecords()
	tree := Build(records)

	path := filepath.Join(t.TempDir(), "idx.bolt")
	c, err := OpenCache(path)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	fp := Fingerprint(records, hashutil.Blake3Provider{})
	if err := c.Rebuild(tree, fp); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	grown := append(append([]quantum.UemQuantum{}, records...), rec(5, 1, 1))
	newFp := Fingerprint(grown, hashutil.Blake3Provider{})
	fresh, err := c.Fresh(newFp)
	if err != nil {
		t.Fatalf("Fresh: %v", err)
	}
	if fresh {
		t.Fatalf("expected Fresh to report false for a grown ledger")
	}
}
