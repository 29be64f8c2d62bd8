// Package knncache caches each relevant entity's nearest-neighbor list
// against a DataStore, so conviction queries that repeatedly need "the
// k nearest neighbors of row r" don't re-run the search every time.
//
// A Cache is reset against one DataStore/Evaluator/position-label set at
// a time (Reset); Precache fills the per-row lists up front, optionally
// in parallel; GetKnn consults the cache first and only falls back to a
// live search when the cached list can't satisfy the request (too short,
// or the requested holdout removed too many entries). The cache is only
// valid for the duration of one query composition: the DataStore holds no
// reference to it and does not invalidate it on a write, so after any
// write the caller must Reset it before using it again.
package knncache
