package intset

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// densityToDense is the threshold (density = len/universe) at which a
// sparse Set converts to a dense bitmap. densityToSparse is the lower
// threshold at which a dense Set converts back; the gap between the two
// is a hysteresis band that keeps a set hovering near 1/64 density from
// flapping representation on every insert/erase (spec.md §4.1 names only
// the single 1/64 switch-to-bitmap threshold and leaves the return knob
// unspecified — see DESIGN.md).
const (
	densityToDense  = 1.0 / 64.0
	densityToSparse = 1.0 / 128.0
)

// Set is a set of non-negative row indices, represented as either a sorted
// slice (sparse) or a compressed bitmap (dense). The zero value is an
// empty, sparse Set ready to use.
type Set struct {
	sparse []uint32 // sorted ascending, no duplicates; nil when dense
	dense  *roaring.Bitmap
	maxSeen uint32 // highest index ever inserted, used to estimate density
	anySeen bool
}

// New returns an empty Set.
func New() *Set { return &Set{} }

// FromSlice builds a Set from the given row indices (not required sorted
// or unique).
func FromSlice(rows []uint32) *Set {
	s := New()
	for _, r := range rows {
		s.Insert(r)
	}
	return s
}

func (s *Set) universe() uint32 {
	if !s.anySeen {
		return 1
	}
	return s.maxSeen + 1
}

func (s *Set) density() float64 {
	return float64(s.Len()) / float64(s.universe())
}

func (s *Set) isDense() bool { return s.dense != nil }

// Insert adds i to the set. Idempotent.
func (s *Set) Insert(i uint32) {
	if i > s.maxSeen || !s.anySeen {
		s.maxSeen = i
		s.anySeen = true
	}

	if s.isDense() {
		s.dense.Add(i)
		return
	}

	idx := sort.Search(len(s.sparse), func(j int) bool { return s.sparse[j] >= i })
	if idx < len(s.sparse) && s.sparse[idx] == i {
		return
	}
	s.sparse = append(s.sparse, 0)
	copy(s.sparse[idx+1:], s.sparse[idx:])
	s.sparse[idx] = i

	s.maybePromote()
}

// Erase removes i from the set, if present.
func (s *Set) Erase(i uint32) {
	if s.isDense() {
		s.dense.Remove(i)
		s.maybeDemote()
		return
	}

	idx := sort.Search(len(s.sparse), func(j int) bool { return s.sparse[j] >= i })
	if idx < len(s.sparse) && s.sparse[idx] == i {
		s.sparse = append(s.sparse[:idx], s.sparse[idx+1:]...)
	}
}

// Contains reports whether i is a member.
func (s *Set) Contains(i uint32) bool {
	if s.isDense() {
		return s.dense.Contains(i)
	}
	idx := sort.Search(len(s.sparse), func(j int) bool { return s.sparse[j] >= i })
	return idx < len(s.sparse) && s.sparse[idx] == i
}

// Len returns the number of members.
func (s *Set) Len() int {
	if s.isDense() {
		return int(s.dense.GetCardinality())
	}
	return len(s.sparse)
}

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool { return s.Len() == 0 }

// ForEach calls fn for every member in ascending order, stopping early if
// fn returns false.
func (s *Set) ForEach(fn func(uint32) bool) {
	if s.isDense() {
		it := s.dense.Iterator()
		for it.HasNext() {
			if !fn(it.Next()) {
				return
			}
		}
		return
	}
	for _, v := range s.sparse {
		if !fn(v) {
			return
		}
	}
}

// ToSlice returns every member in ascending order.
func (s *Set) ToSlice() []uint32 {
	out := make([]uint32, 0, s.Len())
	s.ForEach(func(v uint32) bool {
		out = append(out, v)
		return true
	})
	return out
}

// NthElement returns the n-th smallest member (0-indexed) and true, or
// (0, false) if n is out of range.
func (s *Set) NthElement(n int) (uint32, bool) {
	if n < 0 || n >= s.Len() {
		return 0, false
	}
	if !s.isDense() {
		return s.sparse[n], true
	}
	it := s.dense.Iterator()
	for i := 0; i < n && it.HasNext(); i++ {
		it.Next()
	}
	if !it.HasNext() {
		return 0, false
	}
	return it.Next(), true
}

// RandomSource is the minimal PRNG surface RandomElement needs; satisfied
// by internal/xrand.Source.
type RandomSource interface {
	Uint64() uint64
}

// RandomElement draws a uniformly random member using prng, or returns
// (0, false) if the set is empty.
func (s *Set) RandomElement(prng RandomSource) (uint32, bool) {
	n := s.Len()
	if n == 0 {
		return 0, false
	}
	idx := int(prng.Uint64() % uint64(n))
	return s.NthElement(idx)
}

// Cursor iterates a Set's elements in ascending order. Next checks for the
// end of the set on every call; there is no separate end marker.
type Cursor struct {
	sparse []uint32
	pos    int
	it     roaring.IntPeekable
	done   bool
}

// NewCursor returns a Cursor positioned before the first element.
func (s *Set) NewCursor() *Cursor {
	if s.isDense() {
		return &Cursor{it: s.dense.Iterator()}
	}
	return &Cursor{sparse: s.sparse, pos: -1}
}

// Next advances the cursor and returns the next element, or (0, false) at
// the end.
func (c *Cursor) Next() (uint32, bool) {
	if c.it != nil {
		if !c.it.HasNext() {
			return 0, false
		}
		return c.it.Next(), true
	}
	c.pos++
	if c.pos >= len(c.sparse) {
		return 0, false
	}
	return c.sparse[c.pos], true
}

func (s *Set) maybePromote() {
	if !s.isDense() && s.density() >= densityToDense {
		bm := roaring.New()
		for _, v := range s.sparse {
			bm.Add(v)
		}
		s.dense = bm
		s.sparse = nil
	}
}

func (s *Set) maybeDemote() {
	if s.isDense() && s.density() < densityToSparse {
		sparse := s.dense.ToArray()
		s.sparse = sparse
		s.dense = nil
	}
}

// clone returns a deep copy, preserving representation.
func (s *Set) clone() *Set {
	c := &Set{maxSeen: s.maxSeen, anySeen: s.anySeen}
	if s.isDense() {
		c.dense = s.dense.Clone()
	} else {
		c.sparse = append([]uint32(nil), s.sparse...)
	}
	return c
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set { return s.clone() }

// Intersect removes from s every member not present in other.
func (s *Set) Intersect(other *Set) {
	if s.isDense() && other.isDense() {
		s.dense.And(other.dense)
		s.maybeDemote()
		return
	}
	kept := make([]uint32, 0, s.Len())
	s.ForEach(func(v uint32) bool {
		if other.Contains(v) {
			kept = append(kept, v)
		}
		return true
	})
	s.resetTo(kept)
}

// Union adds every member of other into s.
func (s *Set) Union(other *Set) {
	if s.isDense() || other.isDense() {
		s.ensureDense()
		other.ForEach(func(v uint32) bool {
			s.dense.Add(v)
			if v >= s.maxSeen {
				s.maxSeen, s.anySeen = v, true
			}
			return true
		})
		return
	}
	other.ForEach(func(v uint32) bool {
		s.Insert(v)
		return true
	})
}

// EraseSet removes from s every member present in other (batch form);
// callers must call Finalize afterwards to allow representation to settle
// (mirrors the source's "in-batch" erase + UpdateSize finalize pattern).
func (s *Set) EraseSet(other *Set) {
	if s.isDense() && other.isDense() {
		s.dense.AndNot(other.dense)
		return
	}
	other.ForEach(func(v uint32) bool {
		s.Erase(v)
		return true
	})
}

// Finalize reconciles representation after a batch of EraseSet/Erase calls.
func (s *Set) Finalize() {
	s.maybeDemote()
	s.maybePromote()
}

func (s *Set) ensureDense() {
	if s.isDense() {
		return
	}
	bm := roaring.New()
	for _, v := range s.sparse {
		bm.Add(v)
	}
	s.dense = bm
	s.sparse = nil
}

func (s *Set) resetTo(rows []uint32) {
	if s.isDense() {
		bm := roaring.New()
		for _, v := range rows {
			bm.Add(v)
		}
		s.dense = bm
		s.maybeDemote()
		return
	}
	s.sparse = rows
	s.maybePromote()
}
