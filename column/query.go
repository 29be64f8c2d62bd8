package column

import (
	"math"
	"sort"

	"github.com/amalgam-go/sbfds/intset"
	"github.com/amalgam-go/sbfds/svalue"
)

// FindRowsInRange returns every row whose value falls within [low, high]
// (or (low, high) when inclusive is false), traversing the column's
// sorted numeric or string-id index in ascending order. low and high must
// share a Kind of either Number or StringID; any other Kind returns an
// empty set with ErrUnknownValueType.
func (d *Data) FindRowsInRange(low, high svalue.Value, inclusive bool) (*intset.Set, error) {
	out := intset.New()

	switch low.Kind {
	case svalue.Number:
		lo, hi := low.Number, high.Number
		start := sort.SearchFloat64s(d.numberKeys, lo)
		for i := start; i < len(d.numberKeys); i++ {
			k := d.numberKeys[i]
			if k > hi {
				break
			}
			if !inclusive && (k == lo || k == hi) {
				continue
			}
			out.Union(d.numberRowsByValue[k])
		}
		return out, nil

	case svalue.StringID:
		lo, hi := low.StringID, high.StringID
		start := sort.Search(len(d.stringIDKeys), func(i int) bool { return d.stringIDKeys[i] >= lo })
		for _, k := range d.stringIDKeys[start:] {
			if k > hi {
				break
			}
			if !inclusive && (k == lo || k == hi) {
				continue
			}
			out.Union(d.stringIDRowsByValue[k])
		}
		return out, nil

	default:
		return out, ErrUnknownValueType
	}
}

// FindMinMax returns the k row-indices holding the most extreme values
// (largest if isMax, smallest otherwise); every row tied at the k-th
// value is included, so the returned set may have more than k members.
// If within is non-nil, only rows present in within are considered.
func (d *Data) FindMinMax(k int, isMax bool, within *intset.Set) *intset.Set {
	out := intset.New()
	if k <= 0 || len(d.numberKeys) == 0 {
		return out
	}

	count := 0
	visit := func(key float64) bool {
		rows := d.numberRowsByValue[key]
		matched := intset.New()
		rows.ForEach(func(row uint32) bool {
			if within == nil || within.Contains(row) {
				matched.Insert(row)
			}
			return true
		})
		if matched.IsEmpty() {
			return true
		}
		out.Union(matched)
		count += matched.Len()
		return count < k
	}

	if isMax {
		for i := len(d.numberKeys) - 1; i >= 0; i-- {
			if !visit(d.numberKeys[i]) {
				break
			}
		}
	} else {
		for i := 0; i < len(d.numberKeys); i++ {
			if !visit(d.numberKeys[i]) {
				break
			}
		}
	}
	return out
}

// ClosestEntry is the result of ClosestValueEntryFor: the nearest stored
// numeric value to the query target, and the rows holding it.
type ClosestEntry struct {
	Value float64
	Rows  *intset.Set
}

// ClosestValueEntryFor finds the column's stored numeric value closest to
// target via binary search over the sorted key slice. When cycleLength is
// > 0, both neighbors are compared modulo the cycle (the feature wraps
// around, so the "first" key may be closer to target than the
// immediately preceding one). Returns ok=false if the column holds no
// numeric values.
func (d *Data) ClosestValueEntryFor(target float64, cycleLength float64) (entry ClosestEntry, ok bool) {
	n := len(d.numberKeys)
	if n == 0 {
		return ClosestEntry{}, false
	}

	idx := sort.SearchFloat64s(d.numberKeys, target)
	if idx < n && d.numberKeys[idx] == target {
		return ClosestEntry{Value: target, Rows: d.numberRowsByValue[target]}, true
	}

	lowerIdx, upperIdx := idx-1, idx
	cyclic := cycleLength > 0

	dist := func(a, b float64) float64 {
		diff := math.Abs(a - b)
		if cyclic {
			return math.Min(diff, cycleLength-diff)
		}
		return diff
	}

	var best float64
	haveBest := false
	consider := func(i int) {
		if i < 0 || i >= n {
			return
		}
		v := d.numberKeys[i]
		if !haveBest || dist(v, target) < dist(best, target) {
			best = v
			haveBest = true
		}
	}

	consider(lowerIdx)
	consider(upperIdx)
	if cyclic {
		// wrap-around neighbors: smallest key seen "from above" and the
		// largest key seen "from below" the cycle boundary.
		consider(0)
		consider(n - 1)
	}

	if !haveBest {
		return ClosestEntry{}, false
	}
	return ClosestEntry{Value: best, Rows: d.numberRowsByValue[best]}, true
}

// RowsAtNumberValue returns the rows holding exactly this numeric value, or
// an empty set if none do.
func (d *Data) RowsAtNumberValue(v float64) *intset.Set {
	if rows, ok := d.numberRowsByValue[v]; ok {
		return rows
	}
	return intset.New()
}

// RowsAtStringID returns the rows holding exactly this string id, or an
// empty set if none do.
func (d *Data) RowsAtStringID(id uint64) *intset.Set {
	if rows, ok := d.stringIDRowsByValue[id]; ok {
		return rows
	}
	return intset.New()
}

// GetUniqueValueCount returns the number of distinct stored values of the
// given type. For Code, the column only buckets by deep-size (not value
// identity), so this returns the number of distinct size buckets, which
// is a lower bound on the true distinct-value count. datastore exposes it
// through NumUniqueValues.
func (d *Data) GetUniqueValueCount(t svalue.Type) int {
	switch t {
	case svalue.Number:
		return len(d.numberRowsByValue)
	case svalue.StringID:
		return len(d.stringIDRowsByValue)
	case svalue.Code:
		return len(d.codeBuckets)
	case svalue.Null:
		if d.nullRows.IsEmpty() {
			return 0
		}
		return 1
	default:
		return 0
	}
}

// CodeBucketRows returns the rows holding code values whose DeepSize
// equals size.
func (d *Data) CodeBucketRows(size int) *intset.Set {
	if rows, ok := d.codeBuckets[size]; ok {
		return rows
	}
	return intset.New()
}
