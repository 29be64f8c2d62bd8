// Package partialsum implements PartialSumCollection: a flat, reusable
// buffer of per-row (sum, computed-feature-bitmask) pairs used by the
// distance-search paths to track how much of each candidate row's distance
// has been accumulated so far, without allocating per-row state.
//
// Sums and masks live in two separate slices: one float64 running sum per
// row, and ceil(numFeatures/64) uint64 mask words per row (at least one)
// recording which feature indices have been accumulated into that sum.
// Rows are addressed by a dense
// "partial sum index" (0..numInstances), not by entity id — callers map
// entity ids to partial sum indices themselves.
package partialsum
