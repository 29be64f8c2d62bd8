// Package svalue defines the tagged-union feature value that every other
// package in this module builds on: the per-cell value stored in a column,
// compared by a distance evaluator, and returned from a query.
//
// A Value is one of a number, an interned string id, a non-owning reference
// to an external code structure, or an explicit null. A distinguished Kind
// of Invalid (a Value whose Kind is Invalid) flags rows that lack the
// feature entirely — it is not a value in its own right.
//
// Code values are never owned here: CodeRef is a non-owning reference into
// an evaluable-tree arena managed by the (out-of-scope) interpreter layer.
// This package only ever calls DeepEquals/DeepSize on them.
package svalue
