// Package pool is the core's stand-in for the source's process-wide
// "urgent" thread pool with cooperative active/waiting task joining (§5
// Concurrency & Resource Model). It is deliberately internal: §1 scopes
// threading primitives as an external collaborator whose interface the
// core merely assumes, so the public packages (datastore, knncache,
// conviction) depend only on Pool's small surface, not on errgroup or
// semaphore directly.
package pool
