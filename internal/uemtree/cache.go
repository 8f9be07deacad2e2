package uemtree

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"coreledger.dev/engine/internal/hashutil"
	"coreledger.dev/engine/internal/quantum"
)

var (
	bucketMeta     = []byte("meta")
	bucketByTime   = []byte("by_time")
	bucketByProj   = []byte("by_project")
	bucketByStep   = []byte("by_step")
	keyFingerprint = []byte("fingerprint")
)

// Cache is a derived, rebuildable bbolt-backed persistence of a
// UemTree's postings. It is never authoritative: a fingerprint
// mismatch against the live ledger invalidates it and the tree is
// rebuilt in memory and re-rendered to disk. The primary ledger file
// itself never gains a bbolt dependency.
type Cache struct {
	db *bolt.DB
}

// OpenCache opens (creating if absent) a bbolt file at path.
func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("uemtree: open index cache: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketMeta, bucketByTime, bucketByProj, bucketByStep} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying bbolt file handle.
func (c *Cache) Close() error { return c.db.Close() }

// Fingerprint identifies a specific ledger state: the record count
// plus the hash of the tail record. Any change invalidates cached
// postings.
func Fingerprint(records []quantum.UemQuantum, hash hashutil.Provider) []byte {
	fp := make([]byte, 40)
	binary.LittleEndian.PutUint64(fp, uint64(len(records)))
	if len(records) > 0 {
		tail := records[len(records)-1].Hash(hash)
		copy(fp[8:], tail[:])
	}
	return fp
}

// Fresh reports whether the cache's stored fingerprint matches want.
func (c *Cache) Fresh(want []byte) (bool, error) {
	var stored []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get(keyFingerprint)
		if v != nil {
			stored = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return stored != nil && bytesEqual(stored, want), nil
}

// Rebuild persists t's postings under fingerprint fp, replacing
// anything previously cached.
func (c *Cache) Rebuild(t *UemTree, fp []byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketByTime, bucketByProj, bucketByStep} {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}

		byTime := tx.Bucket(bucketByTime)
		for i, e := range t.byTime {
			k := make([]byte, 8)
			binary.BigEndian.PutUint64(k, uint64(i))
			v := make([]byte, 16)
			binary.LittleEndian.PutUint64(v, e.t)
			binary.LittleEndian.PutUint64(v[8:], uint64(e.idx))
			if err := byTime.Put(k, v); err != nil {
				return err
			}
		}

		byProj := tx.Bucket(bucketByProj)
		if err := putPostings(byProj, t.byProject); err != nil {
			return err
		}

		byStep := tx.Bucket(bucketByStep)
		if err := putPostingsU32(byStep, t.byStep); err != nil {
			return err
		}

		return tx.Bucket(bucketMeta).Put(keyFingerprint, fp)
	})
}

func putPostings(b *bolt.Bucket, m map[uint64][]int) error {
	for key, postings := range m {
		k := make([]byte, 8)
		binary.BigEndian.PutUint64(k, key)
		v := make([]byte, len(postings)*8)
		for i, idx := range postings {
			binary.LittleEndian.PutUint64(v[i*8:], uint64(idx))
		}
		if err := b.Put(k, v); err != nil {
			return err
		}
	}
	return nil
}

func putPostingsU32(b *bolt.Bucket, m map[uint32][]int) error {
	for key, postings := range m {
		k := make([]byte, 4)
		binary.BigEndian.PutUint32(k, key)
		v := make([]byte, len(postings)*8)
		for i, idx := range postings {
			binary.LittleEndian.PutUint64(v[i*8:], uint64(idx))
		}
		if err := b.Put(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Load reconstructs a UemTree from cached postings, paired with
// records (which must be the same sequence the cache was built
// against — callers are expected to check Fresh first).
func (c *Cache) Load(records []quantum.UemQuantum) (*UemTree, error) {
	t := &UemTree{
		byProject: make(map[uint64][]int),
		byStep:    make(map[uint32][]int),
		records:   make([]quantum.UemQuantum, len(records)),
	}
	copy(t.records, records)

	err := c.db.View(func(tx *bolt.Tx) error {
		byTime := tx.Bucket(bucketByTime)
		t.byTime = make([]timeEntry, 0, byTime.Stats().KeyN)
		if err := byTime.ForEach(func(_, v []byte) error {
			if len(v) != 16 {
				return fmt.Errorf("uemtree: malformed by_time cache entry")
			}
			t.byTime = append(t.byTime, timeEntry{
				t:   binary.LittleEndian.Uint64(v[:8]),
				idx: int(binary.LittleEndian.Uint64(v[8:])),
			})
			return nil
		}); err != nil {
			return err
		}

		if err := tx.Bucket(bucketByProj).ForEach(func(k, v []byte) error {
			t.byProject[binary.BigEndian.Uint64(k)] = decodePostings(v)
			return nil
		}); err != nil {
			return err
		}

		return tx.Bucket(bucketByStep).ForEach(func(k, v []byte) error {
			t.byStep[binary.BigEndian.Uint32(k)] = decodePostings(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func decodePostings(v []byte) []int {
	out := make([]int, len(v)/8)
	for i := range out {
		out[i] = int(binary.LittleEndian.Uint64(v[i*8:]))
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
