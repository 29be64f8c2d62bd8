package column_test

import (
	"testing"

	"github.com/amalgam-go/sbfds/column"
	"github.com/amalgam-go/sbfds/svalue"
	"github.com/stretchr/testify/require"
)

func TestInsertAndDisjointSets(t *testing.T) {
	c := column.New(5)
	c.InsertRowValue(0, svalue.Num(1))
	c.InsertRowValue(1, svalue.Num(2))
	c.InsertRowValue(2, svalue.Str(7))
	c.InsertRowValue(3, svalue.NullVal())
	// row 4 left Invalid

	assertDisjointUnion(t, c)
	require.True(t, c.NumberRows().Contains(0))
	require.True(t, c.NumberRows().Contains(1))
	require.True(t, c.StringIDRows().Contains(2))
	require.True(t, c.NullRows().Contains(3))
	require.True(t, c.InvalidRows().Contains(4))
}

func TestUpdateRowValue(t *testing.T) {
	c := column.New(3)
	c.InsertRowValue(0, svalue.Num(1))
	c.UpdateRowValue(0, svalue.Num(5))

	require.Equal(t, svalue.Num(5), c.CellAt(0))
	require.True(t, c.NumberRows().Contains(0))
	require.Equal(t, 1, c.GetUniqueValueCount(svalue.Number))
}

func TestRemoveRowValue(t *testing.T) {
	c := column.New(3)
	c.InsertRowValue(0, svalue.Num(1))
	c.RemoveRowValue(0)

	require.True(t, c.InvalidRows().Contains(0))
	require.False(t, c.NumberRows().Contains(0))
	assertDisjointUnion(t, c)
}

func TestFindRowsInRangeMatchesEquality(t *testing.T) {
	c := column.New(4)
	c.InsertRowValue(0, svalue.Num(1))
	c.InsertRowValue(1, svalue.Num(2))
	c.InsertRowValue(2, svalue.Num(3))
	c.InsertRowValue(3, svalue.Num(2))

	rows, err := c.FindRowsInRange(svalue.Num(2), svalue.Num(2), true)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{1, 3}, rows.ToSlice())

	rows, err = c.FindRowsInRange(svalue.Num(1), svalue.Num(2), false)
	require.NoError(t, err)
	require.Empty(t, rows.ToSlice(), "exclusive range (1,2) with only endpoint matches should be empty")
}

func TestFindMinMaxIncludesTies(t *testing.T) {
	c := column.New(4)
	c.InsertRowValue(0, svalue.Num(5))
	c.InsertRowValue(1, svalue.Num(5))
	c.InsertRowValue(2, svalue.Num(1))
	c.InsertRowValue(3, svalue.Num(3))

	top := c.FindMinMax(1, true, nil)
	require.ElementsMatch(t, []uint32{0, 1}, top.ToSlice(), "both rows tied at the max value must be included")
}

func TestClosestValueEntryForNonCyclic(t *testing.T) {
	c := column.New(3)
	c.InsertRowValue(0, svalue.Num(1))
	c.InsertRowValue(1, svalue.Num(10))
	c.InsertRowValue(2, svalue.Num(20))

	entry, ok := c.ClosestValueEntryFor(9, 0)
	require.True(t, ok)
	require.Equal(t, 10.0, entry.Value)
}

func TestClosestValueEntryForCyclicWraps(t *testing.T) {
	c := column.New(3)
	c.InsertRowValue(0, svalue.Num(0))
	c.InsertRowValue(1, svalue.Num(4))
	c.InsertRowValue(2, svalue.Num(1))

	// cycle length 5: target 4.5 is 0.5 from both 4 and 0 (by wrapping), a
	// tie, so either is accepted; 1 is 1.5 away by wrapping.
	entry, ok := c.ClosestValueEntryFor(4.5, 5)
	require.True(t, ok)
	require.Contains(t, []float64{0, 4}, entry.Value)
}

func TestOptimizeColumnIdempotentAndTransparent(t *testing.T) {
	c := column.New(100)
	for i := uint32(0); i < 100; i++ {
		c.InsertRowValue(i, svalue.Num(float64(i%3))) // 3 distinct values, well under threshold
	}

	before := snapshotCells(c, 100)
	c.OptimizeColumn()
	afterFirst := snapshotCells(c, 100)
	c.OptimizeColumn() // idempotent
	afterSecond := snapshotCells(c, 100)

	require.Equal(t, before, afterFirst)
	require.Equal(t, afterFirst, afterSecond)
}

func snapshotCells(c *column.Data, n uint32) []svalue.Value {
	out := make([]svalue.Value, n)
	for i := uint32(0); i < n; i++ {
		out[i] = c.CellAt(i)
	}
	return out
}

func assertDisjointUnion(t *testing.T, c *column.Data) {
	t.Helper()
	seen := make(map[uint32]int)
	for _, s := range []interface {
		ForEach(func(uint32) bool)
	}{c.NumberRows(), c.StringIDRows(), c.CodeRows(), c.NullRows(), c.InvalidRows()} {
		s.ForEach(func(row uint32) bool {
			seen[row]++
			return true
		})
	}
	for row := uint32(0); row < c.NumRows(); row++ {
		require.Equal(t, 1, seen[row], "row %d must appear in exactly one disjoint set", row)
	}
}
