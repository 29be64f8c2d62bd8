// Package datastore implements the Separable Box-Filter Data Store
// (SBFDS): a columnar, mixed-type acceleration structure over entities
// (rows) and labels (columns) supporting exact-match, range, min/max,
// within-distance, and nearest-neighbor queries under a configurable
// per-query distance.Evaluator.
//
// A DataStore owns an ordered list of column.Data values and a label-id to
// column-index map. Writes (AddEntity, RemoveEntity, AddLabels, label
// removal) are serialized by a write lock; queries take a read lock. The
// nearest-neighbor queries accept an explicit *ScratchBuffers holding the
// reused PartialSumCollection, the tie-breaking PRNG stream and the
// previous query's neighbor ids — callers that query from multiple
// goroutines must use one ScratchBuffers each.
//
//	DataStore
//	 ├─ columns []*column.Data        (one per label)
//	 ├─ labelIndex map[string]int     (label id -> column index)
//	 └─ numRows uint32
//
// DisableAcceleration, when set, forces every distance query down the
// linear-scan path (no partial-sum pruning) — useful for testing and for
// correctness comparisons against the accelerated path.
package datastore
