// Package conviction derives information-theoretic statistics — distance
// contributions, per-case KL divergence ("conviction"), group KL
// divergence, and cumulative neighbor weights — from a knncache.Cache.
//
// A Processor is stateless beyond its configuration (cache, Transform,
// topK, radius label): every method takes its working set as an argument
// and allocates its own scratch slices rather than reusing thread-local
// buffers, so a single Processor is safe for concurrent use by multiple
// goroutines (a deliberate simplification from the source's thread-local
// ConvictionProcessorBuffers — see DESIGN.md).
package conviction
