package datastore

import (
	"context"

	"github.com/amalgam-go/sbfds/column"
)

// shouldParallelizeBuild mirrors the source's AddLabels heuristic
// (SeparableBoxFilterDataStore.h AddLabels): build columns concurrently,
// one goroutine per column, only when there is enough work to be worth
// the dispatch overhead.
func shouldParallelizeBuild(numColumnsAdded int, numRows uint32) bool {
	if numColumnsAdded <= 1 {
		return false
	}
	return numRows > 10000 || (numRows > 200 && numColumnsAdded > 10)
}

// AddLabels adds one column per label in labelIds not already present,
// and populates every row's cell in each new column from entities.
// entities is indexed by row; entities[row].LabelValue(labelId) supplies
// that row's value. When entities holds more elements than
// NumInsertedEntities(), the row count grows to len(entities) first, and
// columns that already existed get Invalid cells for the added rows.
//
// When enough columns and rows are involved, the per-column builds run
// concurrently (bounded by the DataStore's worker pool), exactly as
// AddLabels parallelizes BuildLabel across columns in the source.
func (ds *DataStore) AddLabels(ctx context.Context, labelIDs []string, entities []Entity) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if len(labelIDs) == 0 || len(entities) == 0 {
		return ErrNoLabelsOrEntities
	}

	newLabels := make([]string, 0, len(labelIDs))
	for _, id := range labelIDs {
		if _, exists := ds.labelIndex[id]; !exists {
			newLabels = append(newLabels, id)
		}
	}
	if len(newLabels) == 0 {
		return nil
	}

	if n := uint32(len(entities)); n > ds.numRows {
		for _, col := range ds.columns {
			col.Grow(n)
		}
		ds.numRows = n
	}

	firstNewIndex := len(ds.columns)
	for _, id := range newLabels {
		ds.labelIndex[id] = len(ds.columns)
		ds.labelOrder = append(ds.labelOrder, id)
		ds.columns = append(ds.columns, column.New(ds.numRows))
	}

	if shouldParallelizeBuild(len(newLabels), ds.numRows) {
		group := ds.workers.Group(ctx)
		for i := firstNewIndex; i < len(ds.columns); i++ {
			columnIndex := i
			group.Go(func() error {
				ds.buildLabel(columnIndex, entities)
				return nil
			})
		}
		return group.Wait()
	}

	for i := firstNewIndex; i < len(ds.columns); i++ {
		ds.buildLabel(i, entities)
	}
	return nil
}

// buildLabel populates columnIndex's column from entities; entities
// shorter than numRows leave the remaining rows Invalid.
func (ds *DataStore) buildLabel(columnIndex int, entities []Entity) {
	labelID := ds.labelOrder[columnIndex]
	col := ds.columns[columnIndex]

	n := int(ds.numRows)
	if len(entities) < n {
		n = len(entities)
	}
	for row := 0; row < n; row++ {
		value, ok := entities[row].LabelValue(labelID)
		if !ok {
			continue
		}
		col.InsertRowValue(uint32(row), value)
	}
}

// isColumnRemovable reports whether no entity has a value for columnIndex.
func (ds *DataStore) isColumnRemovable(columnIndex int) bool {
	return ds.columns[columnIndex].InvalidRows().Len() == int(ds.numRows)
}

// removeColumnIndex drops columnIndex, swap-popping the last column into
// its place, exactly as RemoveColumnIndex does in the source.
func (ds *DataStore) removeColumnIndex(columnIndex int) {
	lastIndex := len(ds.columns) - 1
	removedLabel := ds.labelOrder[columnIndex]
	delete(ds.labelIndex, removedLabel)

	if columnIndex != lastIndex {
		movedLabel := ds.labelOrder[lastIndex]
		ds.columns[columnIndex] = ds.columns[lastIndex]
		ds.labelOrder[columnIndex] = movedLabel
		ds.labelIndex[movedLabel] = columnIndex
	}
	ds.columns = ds.columns[:lastIndex]
	ds.labelOrder = ds.labelOrder[:lastIndex]
}

// RemoveUnusedLabels finds any columns no entity carries a value for
// anymore and removes them, working from the highest column index down
// (removal swaps the last column into the current slot, so working
// downward never needs to re-visit an index).
func (ds *DataStore) RemoveUnusedLabels() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	for i := len(ds.columns) - 1; i >= 0; i-- {
		if ds.isColumnRemovable(i) {
			ds.removeColumnIndex(i)
		}
	}
}
