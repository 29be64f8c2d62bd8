package column

import (
	"math"
	"sort"

	"github.com/amalgam-go/sbfds/intset"
	"github.com/amalgam-go/sbfds/svalue"
)

// Grow extends the column to newNumRows, inserting Invalid placeholders
// for any newly added rows. It is a no-op if newNumRows <= NumRows().
func (d *Data) Grow(newNumRows uint32) {
	for d.numRows < newNumRows {
		d.appendInvalidRow()
	}
}

func (d *Data) appendInvalidRow() {
	row := d.numRows
	d.numRows++
	invalid := svalue.Value{Kind: svalue.Invalid}
	if d.interning {
		d.cellsInterned = append(d.cellsInterned, 0)
		if d.directFallback == nil {
			d.directFallback = make(map[uint32]svalue.Value)
		}
		d.directFallback[row] = invalid
	} else {
		d.cells = append(d.cells, invalid)
	}
	d.invalidRows.Insert(row)
}

// RemoveLastRow deindexes and truncates the column's final row, shrinking
// NumRows() by one. Used by swap-pop row removal: after moving the last
// row's value into a freed slot, the caller pops the now-duplicated last
// row off every column.
func (d *Data) RemoveLastRow() svalue.Value {
	row := d.numRows - 1
	value := d.CellAt(row)
	d.deindexFrom(row, value)

	if d.interning {
		d.cellsInterned = d.cellsInterned[:row]
		delete(d.directFallback, row)
	} else {
		d.cells = d.cells[:row]
	}
	d.numRows = row
	return value
}

// InsertRowValue places value into row's cell. row must already exist
// (within [0, NumRows())) and currently be Invalid; use UpdateRowValue to
// change an already-populated row.
func (d *Data) InsertRowValue(row uint32, value svalue.Value) {
	d.setCell(row, value)
	d.indexInto(row, value)
}

// UpdateRowValue replaces row's value with a new one: remove-and-reinsert,
// exactly as spec.md describes.
func (d *Data) UpdateRowValue(row uint32, value svalue.Value) {
	d.RemoveRowValue(row)
	d.InsertRowValue(row, value)
}

// RemoveRowValue clears row back to Invalid, removing it from whichever
// sub-index currently holds it.
func (d *Data) RemoveRowValue(row uint32) {
	current := d.CellAt(row)
	d.deindexFrom(row, current)
	d.setCell(row, svalue.Value{Kind: svalue.Invalid})
	d.invalidRows.Insert(row)
}

func (d *Data) setCell(row uint32, value svalue.Value) {
	if !d.interning {
		d.cells[row] = value
		return
	}
	// Code/Null/Invalid values are never interned; they are stored
	// directly even while the column is in interned mode.
	if value.Kind == svalue.Code || value.Kind == svalue.Null || value.Kind == svalue.Invalid || isNaN(value) {
		if d.directFallback == nil {
			d.directFallback = make(map[uint32]svalue.Value)
		}
		d.directFallback[row] = value
		return
	}
	idx := d.internIndexFor(value)
	delete(d.directFallback, row)
	for uint32(len(d.cellsInterned)) <= row {
		d.cellsInterned = append(d.cellsInterned, 0)
	}
	d.cellsInterned[row] = idx
}

// internIndexFor returns the intern table slot for value, creating one if
// this is the first time value has been seen.
func (d *Data) internIndexFor(value svalue.Value) uint32 {
	switch value.Kind {
	case svalue.Number:
		key := numberBits(value.Number)
		if idx, ok := d.internByNumber.Get(key); ok {
			return uint32(idx)
		}
		idx := uint64(len(d.internTable))
		d.internTable = append(d.internTable, value)
		d.internByNumber.Set(key, idx)
		return uint32(idx)
	case svalue.StringID:
		if idx, ok := d.internByStringID.Get(value.StringID); ok {
			return uint32(idx)
		}
		idx := uint64(len(d.internTable))
		d.internTable = append(d.internTable, value)
		d.internByStringID.Set(value.StringID, idx)
		return uint32(idx)
	default:
		// unreachable: callers only intern Number/StringID values.
		d.internTable = append(d.internTable, value)
		return uint32(len(d.internTable) - 1)
	}
}

func (d *Data) indexInto(row uint32, value svalue.Value) {
	d.invalidRows.Erase(row)

	switch {
	case value.Kind == svalue.Null || isNaN(value):
		d.nullRows.Insert(row)
	case value.Kind == svalue.Number:
		d.numberRows.Insert(row)
		rows, ok := d.numberRowsByValue[value.Number]
		if !ok {
			rows = intset.New()
			d.numberRowsByValue[value.Number] = rows
			d.insertNumberKey(value.Number)
		}
		rows.Insert(row)
	case value.Kind == svalue.StringID:
		d.stringIDRows.Insert(row)
		rows, ok := d.stringIDRowsByValue[value.StringID]
		if !ok {
			rows = intset.New()
			d.stringIDRowsByValue[value.StringID] = rows
			d.insertStringIDKey(value.StringID)
		}
		rows.Insert(row)
	case value.Kind == svalue.Code:
		d.codeRows.Insert(row)
		bucket := 0
		if value.Code != nil {
			bucket = value.Code.DeepSize()
		}
		rows, ok := d.codeBuckets[bucket]
		if !ok {
			rows = intset.New()
			d.codeBuckets[bucket] = rows
		}
		rows.Insert(row)
		d.codeRowEntry[row] = codeEntry{bucket: bucket}
	default: // Invalid
		d.invalidRows.Insert(row)
	}
}

func (d *Data) deindexFrom(row uint32, value svalue.Value) {
	switch {
	case value.Kind == svalue.Null || isNaN(value):
		d.nullRows.Erase(row)
	case value.Kind == svalue.Number:
		d.numberRows.Erase(row)
		if rows, ok := d.numberRowsByValue[value.Number]; ok {
			rows.Erase(row)
			if rows.IsEmpty() {
				delete(d.numberRowsByValue, value.Number)
				d.removeNumberKey(value.Number)
			}
		}
	case value.Kind == svalue.StringID:
		d.stringIDRows.Erase(row)
		if rows, ok := d.stringIDRowsByValue[value.StringID]; ok {
			rows.Erase(row)
			if rows.IsEmpty() {
				delete(d.stringIDRowsByValue, value.StringID)
				d.removeStringIDKey(value.StringID)
			}
		}
	case value.Kind == svalue.Code:
		d.codeRows.Erase(row)
		if entry, ok := d.codeRowEntry[row]; ok {
			if rows, ok := d.codeBuckets[entry.bucket]; ok {
				rows.Erase(row)
				if rows.IsEmpty() {
					delete(d.codeBuckets, entry.bucket)
				}
			}
			delete(d.codeRowEntry, row)
		}
	default: // Invalid
		d.invalidRows.Erase(row)
	}
}

func (d *Data) insertNumberKey(value float64) {
	idx := sort.SearchFloat64s(d.numberKeys, value)
	d.numberKeys = append(d.numberKeys, 0)
	copy(d.numberKeys[idx+1:], d.numberKeys[idx:])
	d.numberKeys[idx] = value
}

func (d *Data) removeNumberKey(value float64) {
	idx, ok := d.numberKeyIndex(value)
	if !ok {
		return
	}
	d.numberKeys = append(d.numberKeys[:idx], d.numberKeys[idx+1:]...)
}

func numberBits(f float64) uint64 {
	return math.Float64bits(f)
}

func (d *Data) insertStringIDKey(id uint64) {
	idx := sort.Search(len(d.stringIDKeys), func(i int) bool { return d.stringIDKeys[i] >= id })
	d.stringIDKeys = append(d.stringIDKeys, 0)
	copy(d.stringIDKeys[idx+1:], d.stringIDKeys[idx:])
	d.stringIDKeys[idx] = id
}

func (d *Data) removeStringIDKey(id uint64) {
	idx := sort.Search(len(d.stringIDKeys), func(i int) bool { return d.stringIDKeys[i] >= id })
	if idx < len(d.stringIDKeys) && d.stringIDKeys[idx] == id {
		d.stringIDKeys = append(d.stringIDKeys[:idx], d.stringIDKeys[idx+1:]...)
	}
}
