// Package uemtree implements the multi-index query engine over a
// ledger's record list: a time-sorted index plus per-project
// (coord.j) and per-step (coord.k) postings lists, combined by
// set-theoretic intersection per spec §4.5.
package uemtree

import (
	"sort"

	"coreledger.dev/engine/internal/quantum"
)

type timeEntry struct {
	t   uint64
	idx int
}

// UemTree is a read-only snapshot index built fresh over a record
// list. It holds copies of the records it indexes, so later mutation
// of the source ledger does not affect an already-built tree.
type UemTree struct {
	byTime    []timeEntry
	byProject map[uint64][]int
	byStep    map[uint32][]int
	records   []quantum.UemQuantum
}

// QueryFilter narrows a query by time range and/or exact project (j)
// and step (k) coordinates. A nil bound is unconstrained.
type QueryFilter struct {
	TMin *uint64
	TMax *uint64
	J    *uint64
	K    *uint32
}

// Build indexes records, copying them so the returned tree is
// independent of the backing slice.
func Build(records []quantum.UemQuantum) *UemTree {
	t := &UemTree{
		byProject: make(map[uint64][]int),
		byStep:    make(map[uint32][]int),
		records:   make([]quantum.UemQuantum, len(records)),
	}
	copy(t.records, records)

	t.byTime = make([]timeEntry, len(records))
	for i, q := range records {
		t.byTime[i] = timeEntry{t: q.Coord.T, idx: i}
		t.byProject[q.Coord.J] = append(t.byProject[q.Coord.J], i)
		t.byStep[q.Coord.K] = append(t.byStep[q.Coord.K], i)
	}
	sort.Slice(t.byTime, func(a, b int) bool { return t.byTime[a].t < t.byTime[b].t })
	return t
}

// Query applies filter and returns matching records in ascending-t
// order, as deep copies safe for the caller to retain. byTime is
// already time-sorted, so walking it directly yields the result
// order without a second sort.
func (t *UemTree) Query(filter QueryFilter) []quantum.UemQuantum {
	candidates := t.candidateSet(filter)

	out := make([]quantum.UemQuantum, 0, len(candidates))
	for _, e := range t.byTime {
		if _, ok := candidates[e.idx]; !ok {
			continue
		}
		if filter.TMin != nil && e.t < *filter.TMin {
			continue
		}
		if filter.TMax != nil && e.t > *filter.TMax {
			continue
		}
		out = append(out, t.records[e.idx])
	}
	return out
}

// candidateSet starts from every record, then narrows by j and k, each
// step intersecting with the running set (spec §4.5: "j then k then
// [t_min,t_max]").
func (t *UemTree) candidateSet(filter QueryFilter) map[int]struct{} {
	set := make(map[int]struct{}, len(t.records))
	for i := range t.records {
		set[i] = struct{}{}
	}

	if filter.J != nil {
		postings, ok := t.byProject[*filter.J]
		if !ok {
			return map[int]struct{}{}
		}
		set = intersect(set, postings)
	}
	if filter.K != nil {
		postings, ok := t.byStep[*filter.K]
		if !ok {
			return map[int]struct{}{}
		}
		set = intersect(set, postings)
	}
	return set
}

func intersect(set map[int]struct{}, postings []int) map[int]struct{} {
	out := make(map[int]struct{}, len(postings))
	for _, idx := range postings {
		if _, ok := set[idx]; ok {
			out[idx] = struct{}{}
		}
	}
	return out
}

// Len reports the number of indexed records.
func (t *UemTree) Len() int { return len(t.records) }
