// Package xrand provides the PRNG abstraction §5 requires: "each query
// receives its own stream (split from a caller stream); no global PRNG."
//
// The core never reaches for math/rand/v2's package-level functions; every
// query that needs randomness (tie-breaking in the nearest-neighbor result
// sort, random-element sampling in IntegerSet) is handed a Source derived
// from the caller's own stream via Split.
package xrand
