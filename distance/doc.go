// Package distance implements the DistanceEvaluator (C3): per-feature
// distance parameters, term computation under one of the seven feature
// kinds spec.md §3 names, and the shared Minkowski exponent (P) every
// feature in an Evaluator is measured under.
//
// An Evaluator is built once per query (or reused across queries that
// share the same metric configuration — it is cheap to copy) and handed
// to datastore.DataStore's query entry points alongside the candidate rows.
// ComputeTerm is the single entry point every other package calls: it
// resolves null/invalid semantics, computes the raw per-kind difference,
// and returns the weighted, p-exponentiated term ready to accumulate into
// a partialsum.Collection.
package distance
