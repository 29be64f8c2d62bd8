package datastore

import (
	"github.com/amalgam-go/sbfds/intset"
	"github.com/amalgam-go/sbfds/svalue"
)

// The feature-presence queries below come in a "first condition" form
// (FindAllWithFeature/FindAllWithoutFeature, populating a fresh
// *intset.Set) and a "subsequent" form (IntersectWithFeature/
// IntersectWithoutFeature, intersecting into a
// caller-supplied set, optionally deferring Finalize for a batch of such
// calls — the in_batch / UpdateSize pattern of §4.5).

// FindAllWithFeature returns every row that carries labelID at all.
func (ds *DataStore) FindAllWithFeature(labelID string) *intset.Set {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	out := intset.New()
	ci, ok := ds.columnIndex(labelID)
	if !ok || ds.numRows == 0 {
		return out
	}
	for row := uint32(0); row < ds.numRows; row++ {
		out.Insert(row)
	}
	out.EraseSet(ds.columns[ci].InvalidRows())
	out.Finalize()
	return out
}

// IntersectWithFeature removes from out every row that does not carry
// labelID. If inBatch, the caller must call out.Finalize() itself once
// done batching several such calls.
func (ds *DataStore) IntersectWithFeature(labelID string, out *intset.Set, inBatch bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	ci, ok := ds.columnIndex(labelID)
	if !ok {
		out.EraseSet(out.Clone())
		return
	}
	out.EraseSet(ds.columns[ci].InvalidRows())
	if !inBatch {
		out.Finalize()
	}
}

// FindAllWithoutFeature returns every row that does not carry labelID.
func (ds *DataStore) FindAllWithoutFeature(labelID string) *intset.Set {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	ci, ok := ds.columnIndex(labelID)
	if !ok {
		return intset.New()
	}
	return ds.columns[ci].InvalidRows().Clone()
}

// IntersectWithoutFeature removes from out every row that does carry
// labelID.
func (ds *DataStore) IntersectWithoutFeature(labelID string, out *intset.Set, inBatch bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	ci, ok := ds.columnIndex(labelID)
	if !ok {
		return
	}
	out.Intersect(ds.columns[ci].InvalidRows())
	if !inBatch {
		out.Finalize()
	}
}

// FindAllWithinRange returns every row whose labelID value lies within
// [lo, hi] (or strictly between, if inclusive is false).
func (ds *DataStore) FindAllWithinRange(labelID string, lo, hi svalue.Value, inclusive bool) *intset.Set {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	ci, ok := ds.columnIndex(labelID)
	if !ok {
		return intset.New()
	}
	out, _ := ds.columns[ci].FindRowsInRange(lo, hi, inclusive)
	return out
}

// equalsSet returns the set of rows whose labelID value equals v.
func (ds *DataStore) equalsSet(labelID string, v svalue.Value) *intset.Set {
	ci, ok := ds.columnIndex(labelID)
	if !ok {
		return intset.New()
	}
	col := ds.columns[ci]
	switch v.Kind {
	case svalue.Number, svalue.StringID:
		out, _ := col.FindRowsInRange(v, v, true)
		return out
	case svalue.Code:
		out := intset.New()
		if v.Code == nil {
			return out
		}
		col.CodeBucketRows(v.Code.DeepSize()).ForEach(func(row uint32) bool {
			if other := col.CellAt(row); other.Code != nil && other.Code.DeepEquals(v.Code) {
				out.Insert(row)
			}
			return true
		})
		return out
	default:
		return intset.New()
	}
}

// FindAllEqualTo returns every row whose labelID value equals v.
func (ds *DataStore) FindAllEqualTo(labelID string, v svalue.Value) *intset.Set {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.equalsSet(labelID, v)
}

// FindAllAmong returns every row whose labelID value equals any of values.
func (ds *DataStore) FindAllAmong(labelID string, values []svalue.Value) *intset.Set {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	out := intset.New()
	for _, v := range values {
		out.Union(ds.equalsSet(labelID, v))
	}
	return out
}

// FindMinMax returns the k rows with the most extreme labelID values
// (largest if isMax), restricted to within if non-nil.
func (ds *DataStore) FindMinMax(labelID string, k int, isMax bool, within *intset.Set) *intset.Set {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	ci, ok := ds.columnIndex(labelID)
	if !ok {
		return intset.New()
	}
	return ds.columns[ci].FindMinMax(k, isMax, within)
}

// NumUniqueValues returns the number of distinct labelID values of type t.
func (ds *DataStore) NumUniqueValues(labelID string, t svalue.Type) int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	ci, ok := ds.columnIndex(labelID)
	if !ok {
		return 0
	}
	return ds.columns[ci].GetUniqueValueCount(t)
}

// NumberValue returns (value, true) for labelID at row if the row holds
// a Number there, or (0, false) otherwise — the Go analogue of the
// source's GetNumberValueFromEntityIndexFunction closures.
func (ds *DataStore) NumberValue(labelID string, row int) (float64, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	ci, ok := ds.columnIndex(labelID)
	if !ok || row < 0 || row >= int(ds.numRows) {
		return 0, false
	}
	col := ds.columns[ci]
	if !col.NumberRows().Contains(uint32(row)) {
		return 0, false
	}
	return col.CellAt(uint32(row)).Number, true
}

// StringIDValue returns (id, true) for labelID at row if the row holds a
// StringID there, or (0, false) otherwise.
func (ds *DataStore) StringIDValue(labelID string, row int) (uint64, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	ci, ok := ds.columnIndex(labelID)
	if !ok || row < 0 || row >= int(ds.numRows) {
		return 0, false
	}
	col := ds.columns[ci]
	if !col.StringIDRows().Contains(uint32(row)) {
		return 0, false
	}
	return col.CellAt(uint32(row)).StringID, true
}
