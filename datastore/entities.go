package datastore

import "github.com/amalgam-go/sbfds/svalue"

// AddEntity appends a new row, inserting e's current value into every
// existing column, and returns the row index assigned to it.
func (ds *DataStore) AddEntity(e Entity) int {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	row := ds.numRows
	for i, col := range ds.columns {
		col.Grow(row + 1)
		if value, ok := e.LabelValue(ds.labelOrder[i]); ok {
			col.InsertRowValue(row, value)
		}
	}
	ds.numRows++
	return int(row)
}

// RemoveEntity drops the entity at row. reassign is a validity gate, not
// an arbitrary move-from index: whenever it names any in-range row
// (0 <= reassign < NumInsertedEntities(), including row itself), the data
// store performs a swap-pop — the current last row's values are moved
// into row's now-empty slot (a no-op when row already is the last row)
// and the last row is truncated from every column — and the caller is
// responsible for updating its own row->entity bookkeeping to reflect
// that the entity formerly at the last row index now lives at row.
// Passing an out-of-range reassign (negative, or >= NumInsertedEntities())
// skips the swap-pop entirely, leaving row simply cleared to Invalid in
// every column with the row count unchanged.
func (ds *DataStore) RemoveEntity(row, reassign int) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if row < 0 || row >= int(ds.numRows) {
		return ErrRowOutOfRange
	}

	for _, col := range ds.columns {
		col.RemoveRowValue(uint32(row))
	}

	last := int(ds.numRows) - 1
	if reassign >= 0 && reassign < int(ds.numRows) && last != row {
		for _, col := range ds.columns {
			v := col.CellAt(uint32(last))
			if v.Kind != svalue.Invalid {
				col.InsertRowValue(uint32(row), v)
			}
		}
	}
	if reassign >= 0 && reassign < int(ds.numRows) {
		for _, col := range ds.columns {
			col.RemoveLastRow()
		}
		ds.numRows--
	}
	return nil
}

// UpdateAllLabels re-derives every column's value for row from e.
func (ds *DataStore) UpdateAllLabels(row int, e Entity) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if row < 0 || row >= int(ds.numRows) {
		return ErrRowOutOfRange
	}
	for i, col := range ds.columns {
		if value, ok := e.LabelValue(ds.labelOrder[i]); ok {
			col.UpdateRowValue(uint32(row), value)
		} else {
			col.UpdateRowValue(uint32(row), svalue.Value{Kind: svalue.Invalid})
		}
	}
	return nil
}

// UpdateLabel re-derives row's value for just labelID from e.
func (ds *DataStore) UpdateLabel(row int, labelID string, e Entity) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if row < 0 || row >= int(ds.numRows) {
		return ErrRowOutOfRange
	}
	ci, ok := ds.labelIndex[labelID]
	if !ok {
		return nil
	}
	col := ds.columns[ci]
	if value, ok := e.LabelValue(labelID); ok {
		col.UpdateRowValue(uint32(row), value)
	} else {
		col.UpdateRowValue(uint32(row), svalue.Value{Kind: svalue.Invalid})
	}
	return nil
}
