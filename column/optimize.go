package column

import (
	"math"

	"github.com/amalgam-go/sbfds/svalue"
	"github.com/kelindar/intmap"
)

// internMapInitialSize is a conservative starting capacity for the
// kelindar/intmap tables created on each (re)interning pass.
const internMapInitialSize = 64

// OptimizeColumn decides whether interning is worthwhile given the
// current ratio of distinct values to rows (intern when #distinct ≤
// √(2·#rows), per spec.md §3) and rewrites the per-row cell storage to
// match. Idempotent: calling it twice in a row is the same as calling it
// once, and every query returns identical results regardless of which
// representation is currently active.
func (d *Data) OptimizeColumn() {
	desired := d.shouldIntern()
	if desired == d.interning {
		return
	}
	if desired {
		d.convertToInterned()
	} else {
		d.convertToDirect()
	}
}

func (d *Data) shouldIntern() bool {
	if d.numRows == 0 {
		return false
	}
	distinct := len(d.numberRowsByValue) + len(d.stringIDRowsByValue)
	threshold := math.Sqrt(2 * float64(d.numRows))
	return float64(distinct) <= threshold
}

func (d *Data) convertToInterned() {
	snapshot := make([]svalue.Value, d.numRows)
	for row := uint32(0); row < d.numRows; row++ {
		snapshot[row] = d.CellAt(row)
	}

	d.interning = true
	d.internTable = d.internTable[:0]
	d.internByNumber = intmap.New64(internMapInitialSize, 0.9)
	d.internByStringID = intmap.New64(internMapInitialSize, 0.9)
	d.cellsInterned = make([]uint32, d.numRows)
	d.directFallback = make(map[uint32]svalue.Value)
	d.cells = nil

	for row, v := range snapshot {
		d.setCell(uint32(row), v)
	}
}

func (d *Data) convertToDirect() {
	snapshot := make([]svalue.Value, d.numRows)
	for row := uint32(0); row < d.numRows; row++ {
		snapshot[row] = d.CellAt(row)
	}

	d.interning = false
	d.cells = snapshot
	d.cellsInterned = nil
	d.internTable = nil
	d.internByNumber = nil
	d.internByStringID = nil
	d.directFallback = nil
}
