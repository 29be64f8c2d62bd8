// Package column implements ColumnData (C2): per-feature storage backing
// one label of a datastore.DataStore. A Data owns, for one label:
//
//   - a sorted number→rowset index (for range/min-max/closest-value
//     queries),
//   - a string-id→rowset index,
//   - a code-value rowset bucketed by deep-size,
//   - five disjoint row sets — numberRows, stringIDRows, codeRows,
//     nullRows, invalidRows — whose union always equals every row the
//     column has ever been told about (checked by the property tests in
//     column_test.go),
//   - optional value interning, switched on by OptimizeColumn once the
//     number of distinct values drops low enough relative to row count
//     to be worth the indirection.
//
// The interned/direct cell storage split is a classic space/time
// trade-off modeled as two internal representations behind one read
// adapter (CellAt); nothing outside this package ever sees which one is
// active.
package column
