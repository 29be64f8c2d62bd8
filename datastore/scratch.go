package datastore

import (
	"github.com/amalgam-go/sbfds/internal/xrand"
	"github.com/amalgam-go/sbfds/partialsum"
)

// ScratchBuffers holds the reused per-thread buffers a distance query
// needs: a PartialSumCollection, a PRNG stream for tie-breaking, and a
// cache of the previous query's nearest-neighbor ids. Callers querying
// concurrently from multiple goroutines must use one ScratchBuffers per
// goroutine — nothing here is safe for concurrent use by itself (§5
// "Per-thread scratch").
type ScratchBuffers struct {
	partialSums *partialsum.Collection
	rand        xrand.Source

	// previousNearestNeighbors caches the row ids returned by the last
	// FindNearestEntities/FindEntitiesNearestToIndexedEntity call on this
	// ScratchBuffers, consulted first on the next query per §4.5 step 6's
	// "prior cache" (most likely to also be good next time).
	previousNearestNeighbors []uint32
}

// NewScratchBuffers returns a ScratchBuffers seeded from rand.
func NewScratchBuffers(rand xrand.Source) *ScratchBuffers {
	return &ScratchBuffers{partialSums: partialsum.New(), rand: rand}
}

// PreviousNearestNeighbors returns the ids cached from the last nearest-
// neighbor query run on this buffer set.
func (s *ScratchBuffers) PreviousNearestNeighbors() []uint32 {
	return s.previousNearestNeighbors
}
