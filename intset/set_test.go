package intset_test

import (
	"math/rand/v2"
	"testing"

	"github.com/amalgam-go/sbfds/intset"
	"github.com/stretchr/testify/require"
)

func TestInsertContainsErase(t *testing.T) {
	s := intset.New()
	require.True(t, s.IsEmpty())

	s.Insert(3)
	s.Insert(1)
	s.Insert(7)
	s.Insert(3) // duplicate, no-op

	require.Equal(t, 3, s.Len())
	require.True(t, s.Contains(1))
	require.True(t, s.Contains(7))
	require.False(t, s.Contains(5))
	require.Equal(t, []uint32{1, 3, 7}, s.ToSlice())

	s.Erase(3)
	require.Equal(t, 2, s.Len())
	require.False(t, s.Contains(3))
}

func TestForEachAscendingOrder(t *testing.T) {
	s := intset.FromSlice([]uint32{9, 2, 5, 2, 0})
	var seen []uint32
	s.ForEach(func(v uint32) bool {
		seen = append(seen, v)
		return true
	})
	require.Equal(t, []uint32{0, 2, 5, 9}, seen)
}

func TestForEachEarlyStop(t *testing.T) {
	s := intset.FromSlice([]uint32{1, 2, 3, 4, 5})
	var seen []uint32
	s.ForEach(func(v uint32) bool {
		seen = append(seen, v)
		return v < 3
	})
	require.Equal(t, []uint32{1, 2, 3}, seen)
}

func TestNthElement(t *testing.T) {
	s := intset.FromSlice([]uint32{10, 20, 30})
	v, ok := s.NthElement(1)
	require.True(t, ok)
	require.Equal(t, uint32(20), v)

	_, ok = s.NthElement(5)
	require.False(t, ok)
}

func TestDensePromotionPreservesContents(t *testing.T) {
	s := intset.New()
	// push density above 1/64 over a small universe to force bitmap promotion
	for i := uint32(0); i < 40; i++ {
		s.Insert(i)
	}
	require.Equal(t, 40, s.Len())
	for i := uint32(0); i < 40; i++ {
		require.True(t, s.Contains(i))
	}
	require.Equal(t, intSlice(0, 40), s.ToSlice())
}

func TestIntersectUnionEraseSet(t *testing.T) {
	a := intset.FromSlice([]uint32{1, 2, 3, 4})
	b := intset.FromSlice([]uint32{3, 4, 5, 6})

	inter := a.Clone()
	inter.Intersect(b)
	require.Equal(t, []uint32{3, 4}, inter.ToSlice())

	union := a.Clone()
	union.Union(b)
	require.Equal(t, []uint32{1, 2, 3, 4, 5, 6}, union.ToSlice())

	erased := a.Clone()
	erased.EraseSet(b)
	erased.Finalize()
	require.Equal(t, []uint32{1, 2}, erased.ToSlice())
}

func TestRandomElementUniformOverSeeds(t *testing.T) {
	s := intset.FromSlice([]uint32{1, 2, 3, 4, 5})
	counts := make(map[uint32]int)
	prng := rand.NewPCG(1, 2)
	for i := 0; i < 2000; i++ {
		v, ok := s.RandomElement(uint64Source{prng})
		require.True(t, ok)
		counts[v]++
	}
	require.Len(t, counts, 5, "every member should be reachable under some draw")
}

func TestCursorMatchesForEach(t *testing.T) {
	s := intset.FromSlice([]uint32{4, 1, 8, 2})
	c := s.NewCursor()
	var got []uint32
	for {
		v, ok := c.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, s.ToSlice(), got)
}

type uint64Source struct{ r *rand.PCG }

func (u uint64Source) Uint64() uint64 { return u.r.Uint64() }

func intSlice(from, to uint32) []uint32 {
	out := make([]uint32, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
