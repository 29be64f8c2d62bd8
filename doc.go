// Package sbfds implements the Separable Box-Filter Data Store: a
// columnar, mixed-type acceleration structure supporting exact match,
// range, min/max, nearest-neighbor, and within-radius queries under a
// configurable generalized Minkowski distance, together with a
// k-nearest-neighbor cache and information-theoretic conviction queries
// layered on top.
//
// The implementation is organized as one flat package per cooperating
// component:
//
//	intset/     — sparse/dense row-index sets with hysteresis switching
//	svalue/     — the tagged-union feature value and the string intern pool
//	column/     — per-label columnar storage with value interning
//	distance/   — the generalized Minkowski distance evaluator
//	partialsum/ — per-row partial-sum bookkeeping used during pruning search
//	datastore/  — the DataStore itself: labels, entities, and all query forms
//	knncache/   — caches each relevant row's nearest-neighbor list
//	conviction/ — distance contributions, case/group KL divergence, neighbor weights
//
// A DataStore is built from labels and entities that can yield typed
// values at those labels (datastore.Entity); queries run directly against
// it, or against a knncache.Cache layered on top for repeated
// nearest-neighbor lookups, or against a conviction.Processor for
// information-theoretic statistics derived from that cache.
package sbfds
