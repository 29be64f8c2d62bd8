// Package intset implements IntegerSet (C1): a set of non-negative row
// indices that transparently switches between a sorted sparse vector and a
// compressed dense bitmap depending on how dense the set is relative to the
// range of indices it has seen.
//
// Callers never observe which representation backs a Set — every method
// works identically either way, mirroring how column.Data hides its
// interned/direct cell storage behind one read adapter (see column/doc.go).
//
// Complexity: sparse operations are O(log n) lookup / O(n) insert-shift;
// dense operations are the compressed-bitmap complexity of
// github.com/RoaringBitmap/roaring/v2, effectively O(1) amortized for
// insert/contains and O(n) for a full ascending iteration.
package intset
