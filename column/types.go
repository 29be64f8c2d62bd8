package column

import (
	"math"
	"sort"

	"github.com/amalgam-go/sbfds/intset"
	"github.com/amalgam-go/sbfds/svalue"
	"github.com/kelindar/intmap"
)

// codeEntry pairs a code cell with the deep-size bucket it lives in, so
// RemoveRowValue can find which bucket set to clean up without rescanning
// every bucket.
type codeEntry struct {
	bucket int
}

// Data is one column (one label) of per-row feature values.
type Data struct {
	numRows uint32

	// direct cell storage: populated when interning is off.
	cells []svalue.Value

	// interned cell storage: populated when interning is on. cellsInterned
	// holds, per row, an index into internTable; only rows whose value is
	// Number or StringID are ever interned (Code/Null/Invalid rows always
	// resolve through directFallback since they are cheap to store
	// directly and code values must never be deep-copied into a shared
	// table).
	interning        bool
	cellsInterned    []uint32
	internTable      []svalue.Value
	internByNumber   *intmap.Map64 // float64 bits -> intern table index
	internByStringID *intmap.Map64 // string id -> intern table index
	directFallback   map[uint32]svalue.Value // rows holding Code/Null/Invalid values or NaN numbers while interning is on

	// sorted number -> rowset index
	numberKeys []float64
	numberRowsByValue map[float64]*intset.Set

	// string-id -> rowset index, kept in ascending id order (interned ids
	// are assigned by the shared pool, not by lexical string order, but
	// the ordering only needs to be total and stable for range scans)
	stringIDKeys        []uint64
	stringIDRowsByValue map[uint64]*intset.Set

	// code rows, bucketed by DeepSize for within-distance expansion
	codeBuckets  map[int]*intset.Set
	codeRowEntry map[uint32]codeEntry

	// disjoint row sets; invariant checked in tests: their union is
	// exactly [0, numRows) and no row appears in more than one.
	numberRows   *intset.Set
	stringIDRows *intset.Set
	codeRows     *intset.Set
	nullRows     *intset.Set
	invalidRows  *intset.Set
}

// New returns an empty column ready to accept numRows rows of Invalid
// value (the caller then calls InsertRowValue for each row that actually
// carries the feature).
func New(numRows uint32) *Data {
	d := &Data{
		numRows:             numRows,
		cells:               make([]svalue.Value, numRows),
		numberRowsByValue:   make(map[float64]*intset.Set),
		stringIDRowsByValue: make(map[uint64]*intset.Set),
		codeBuckets:         make(map[int]*intset.Set),
		codeRowEntry:        make(map[uint32]codeEntry),
		numberRows:          intset.New(),
		stringIDRows:        intset.New(),
		codeRows:            intset.New(),
		nullRows:            intset.New(),
		invalidRows:         intset.New(),
	}
	for i := range d.cells {
		d.cells[i] = svalue.Value{Kind: svalue.Invalid}
	}
	for r := uint32(0); r < numRows; r++ {
		d.invalidRows.Insert(r)
	}
	return d
}

// NumRows returns the number of rows this column has been sized for.
func (d *Data) NumRows() uint32 { return d.numRows }

// NumberRows returns the set of rows holding a Number value.
func (d *Data) NumberRows() *intset.Set { return d.numberRows }

// StringIDRows returns the set of rows holding a StringID value.
func (d *Data) StringIDRows() *intset.Set { return d.stringIDRows }

// CodeRows returns the set of rows holding a Code value.
func (d *Data) CodeRows() *intset.Set { return d.codeRows }

// NullRows returns the set of rows holding an explicit Null value.
func (d *Data) NullRows() *intset.Set { return d.nullRows }

// InvalidRows returns the set of rows that do not carry this feature.
func (d *Data) InvalidRows() *intset.Set { return d.invalidRows }

// CellAt resolves the current value for row, regardless of whether the
// column is currently interning. This is the one "read adapter" every
// other method and every outside caller goes through.
func (d *Data) CellAt(row uint32) svalue.Value {
	if !d.interning {
		return d.cells[row]
	}
	if v, ok := d.directFallback[row]; ok {
		return v
	}
	idx := d.cellsInterned[row]
	return d.internTable[idx]
}

// numberKeyIndex returns the position of value in numberKeys via binary
// search, and whether it was found exactly.
func (d *Data) numberKeyIndex(value float64) (int, bool) {
	idx := sort.SearchFloat64s(d.numberKeys, value)
	if idx < len(d.numberKeys) && d.numberKeys[idx] == value {
		return idx, true
	}
	return idx, false
}

func isNaN(v svalue.Value) bool {
	return v.Kind == svalue.Number && math.IsNaN(v.Number)
}
