package datastore

import (
	"sync"

	"github.com/amalgam-go/sbfds/column"
	"github.com/amalgam-go/sbfds/internal/pool"
	"github.com/amalgam-go/sbfds/svalue"
)

// DisableAcceleration is a process-wide toggle that, when true, makes
// FindNearestEntities evaluate every candidate's exact distance directly
// instead of using partial-sum pruning. knncache.Cache does not read it:
// GetKnn still serves cached neighbor lists while it is set. Useful for
// testing and for correctness comparisons against the pruned path.
var DisableAcceleration = false

// Entity is the minimal surface a caller's record type must expose for
// this package to build and maintain columns from it. The data store
// never owns or constructs entities itself (§1: it "consumes entities
// that can yield typed values at named labels").
type Entity interface {
	// LabelValue returns the entity's value for labelID, and whether the
	// entity carries that label at all. A false ok leaves the row Invalid
	// for that column.
	LabelValue(labelID string) (svalue.Value, bool)
}

// DataStore is the Separable Box-Filter Data Store: an ordered list of
// columns (one per label), a label-id to column-index map, and a row
// count shared by every column.
type DataStore struct {
	mu sync.RWMutex

	columns    []*column.Data
	labelIndex map[string]int
	labelOrder []string // labelOrder[i] is the label owning columns[i]
	numRows    uint32

	strings *svalue.InternPool
	workers *pool.Pool
}

// New returns an empty DataStore. strings resolves ContinuousString
// feature terms during distance queries; workers bounds parallel column
// builds (a nil workers falls back to pool.New(0), i.e. GOMAXPROCS).
func New(strings *svalue.InternPool, workers *pool.Pool) *DataStore {
	if workers == nil {
		workers = pool.New(0)
	}
	return &DataStore{
		labelIndex: make(map[string]int),
		strings:    strings,
		workers:    workers,
	}
}

// NumInsertedEntities returns the number of rows currently stored.
func (ds *DataStore) NumInsertedEntities() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return int(ds.numRows)
}

// HasLabel reports whether labelID currently has a backing column.
func (ds *DataStore) HasLabel(labelID string) bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	_, ok := ds.labelIndex[labelID]
	return ok
}

// columnIndex returns the column index for labelID, or (-1, false).
func (ds *DataStore) columnIndex(labelID string) (int, bool) {
	i, ok := ds.labelIndex[labelID]
	return i, ok
}

// Strings returns the configured string resolver, for callers that need
// to hand it to a distance.Evaluator.
func (ds *DataStore) Strings() *svalue.InternPool { return ds.strings }
