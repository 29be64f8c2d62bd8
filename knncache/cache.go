package knncache

import (
	"context"

	"github.com/amalgam-go/sbfds/datastore"
	"github.com/amalgam-go/sbfds/distance"
	"github.com/amalgam-go/sbfds/intset"
	"github.com/amalgam-go/sbfds/internal/pool"
	"github.com/amalgam-go/sbfds/internal/xrand"
	"github.com/amalgam-go/sbfds/svalue"
)

// NoHoldout is the sentinel "no additional holdout index" value, the Go
// analogue of std::numeric_limits<size_t>::max() in the source.
const NoHoldout = -1

// precacheParallelThreshold is the row count above which Precache fans
// its per-row searches out across a worker pool rather than running them
// inline (§5, "Precache … parallel over rows above ~200").
const precacheParallelThreshold = 200

// Cache caches nearest-neighbor results for every relevant entity in a
// DataStore, keyed by row index.
type Cache struct {
	store *datastore.DataStore

	relevant      *intset.Set
	evaluator     *distance.Evaluator
	positionLabel []string
	radiusLabel   string

	cachedNeighbors [][]datastore.DistanceRef

	workers      *pool.Pool
	seed1, seed2 uint64
}

// New returns an empty Cache. workers bounds Precache's fan-out (nil
// defaults to pool.New(0), i.e. GOMAXPROCS); seed1/seed2 root the
// per-row tie-breaking streams handed to the underlying distance
// searches. Call Reset before use.
func New(workers *pool.Pool, seed1, seed2 uint64) *Cache {
	if workers == nil {
		workers = pool.New(0)
	}
	return &Cache{workers: workers, seed1: seed1, seed2: seed2}
}

// rowScratch returns a fresh ScratchBuffers whose random stream is
// derived deterministically from row, so concurrent Precache workers
// never share or race over PRNG state.
func (c *Cache) rowScratch(row int) *datastore.ScratchBuffers {
	r := uint64(row)
	return datastore.NewScratchBuffers(xrand.New(c.seed1^r, c.seed2^(r*2+1)))
}

// Reset clears internal lists and resizes the cache to the store's
// current row count, binding it to evaluator/positionLabels/radiusLabel
// for every subsequent Precache/GetKnn call until the next Reset.
func (c *Cache) Reset(store *datastore.DataStore, relevant *intset.Set, evaluator *distance.Evaluator,
	positionLabels []string, radiusLabel string) {

	c.store = store
	c.relevant = relevant
	c.evaluator = evaluator
	c.positionLabel = positionLabels
	c.radiusLabel = radiusLabel
	c.cachedNeighbors = make([][]datastore.DistanceRef, store.NumInsertedEntities())
}

// RelevantEntities returns the set of rows this cache was reset against.
func (c *Cache) RelevantEntities() *intset.Set { return c.relevant }

// NumRelevant returns the number of rows in RelevantEntities().
func (c *Cache) NumRelevant() int { return c.relevant.Len() }

// EndEntityIndex returns one past the largest row index this cache can
// address (the size it was last Reset to).
func (c *Cache) EndEntityIndex() int { return len(c.cachedNeighbors) }

// Precache fills the cached neighbor list for every row in subset (or
// every relevant row, if subset is nil), running one search per row,
// fanned out across Cache's worker pool once the batch is large enough
// to be worth it. expandZero is "expand to first nonzero distance"
// (spec.md §4.5 step 7, §4.6) — ties at zero distance beyond topK are
// kept in the cached list rather than truncated away.
func (c *Cache) Precache(ctx context.Context, subset *intset.Set, topK int, expandZero bool) error {
	if subset == nil {
		subset = c.relevant
	}
	rows := subset.ToSlice()

	compute := func(row uint32) error {
		result, err := c.store.FindEntitiesNearestToIndexedEntity(
			c.evaluator, c.positionLabel, int(row), topK, expandZero, c.radiusLabel, c.relevant, NoHoldout, c.rowScratch(int(row)))
		if err != nil {
			return err
		}
		c.cachedNeighbors[row] = result
		return nil
	}

	if len(rows) <= precacheParallelThreshold {
		for _, row := range rows {
			if err := compute(row); err != nil {
				return err
			}
		}
		return nil
	}

	group := c.workers.Group(ctx)
	for _, row := range rows {
		row := row
		group.Go(func() error { return compute(row) })
	}
	return group.Wait()
}

// CachedKnnContainsRow reports whether otherRow appears within the first
// topK cached neighbors of row.
func (c *Cache) CachedKnnContainsRow(row, otherRow, topK int) bool {
	neighbors := c.cachedNeighbors[row]
	n := topK
	if n > len(neighbors) {
		n = len(neighbors)
	}
	for i := 0; i < n; i++ {
		if int(neighbors[i].Row) == otherRow {
			return true
		}
	}
	return false
}

// GetKnn returns row's top-k nearest neighbors, excluding holdout (pass
// NoHoldout for none). If the cached list is insufficient — either
// holdout removed too many entries, or the cache doesn't hold topK
// entries at all — it falls back to a direct (uncached) search, passing
// expandZero ("expand to first nonzero distance", spec.md §4.5 step 7)
// through to that search.
func (c *Cache) GetKnn(row, topK int, expandZero bool, holdout int) ([]datastore.DistanceRef, error) {
	out := make([]datastore.DistanceRef, 0, topK)
	for _, neighbor := range c.cachedNeighbors[row] {
		if int(neighbor.Row) == holdout {
			continue
		}
		out = append(out, neighbor)
		if len(out) >= topK {
			return out, nil
		}
	}
	return c.GetKnnWithoutCache(row, topK, expandZero, holdout)
}

// GetKnnFromIndices is like GetKnn, but only considers neighbors present
// in fromIndices rather than excluding a single holdout row.
func (c *Cache) GetKnnFromIndices(row, topK int, expandZero bool, fromIndices *intset.Set) ([]datastore.DistanceRef, error) {
	out := make([]datastore.DistanceRef, 0, topK)
	for _, neighbor := range c.cachedNeighbors[row] {
		if !fromIndices.Contains(neighbor.Row) {
			continue
		}
		out = append(out, neighbor)
		if len(out) >= topK {
			return out, nil
		}
	}
	return c.store.FindEntitiesNearestToIndexedEntity(
		c.evaluator, c.positionLabel, row, topK, expandZero, c.radiusLabel, fromIndices, NoHoldout, c.rowScratch(row))
}

// GetKnnWithoutCache always performs a live search, bypassing the cache
// entirely — used when the cache is intentionally bypassed, or the query
// position is synthetic rather than an indexed row.
func (c *Cache) GetKnnWithoutCache(row, topK int, expandZero bool, holdout int) ([]datastore.DistanceRef, error) {
	return c.store.FindEntitiesNearestToIndexedEntity(
		c.evaluator, c.positionLabel, row, topK, expandZero, c.radiusLabel, c.relevant, holdout, c.rowScratch(row))
}

// GetKnnAtPosition performs a live nearest-neighbor search against a
// synthetic query position rather than an indexed row — the cache is
// never consulted, since a synthetic position has no cached entry.
func (c *Cache) GetKnnAtPosition(positionValues []svalue.Value, topK int, expandZero bool) ([]datastore.DistanceRef, error) {
	return c.store.FindNearestEntities(
		c.evaluator, c.positionLabel, positionValues, topK, expandZero, c.radiusLabel, -1, c.relevant, c.rowScratch(0))
}
