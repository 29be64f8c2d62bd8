package conviction

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/amalgam-go/sbfds/internal/pool"
	"github.com/amalgam-go/sbfds/intset"
	"github.com/amalgam-go/sbfds/knncache"
	"github.com/amalgam-go/sbfds/svalue"
)

// rowParallelThreshold mirrors knncache's precache threshold: per-row work
// below this count runs inline, above it fans out across Processor's pool.
const rowParallelThreshold = 200

// Ref pairs a value (a distance contribution, a probability, an
// accumulated neighbor weight — the meaning varies by call site, exactly
// as the source's single DistanceReferencePair<size_t> type is reused for
// all of them) with the index it belongs to.
type Ref struct {
	Value float64
	Index int
}

// Processor derives distance-contribution and KL-divergence statistics
// from a knncache.Cache. It holds no per-call mutable state, so one
// Processor may be used concurrently by multiple callers.
type Processor struct {
	cache     *knncache.Cache
	transform Transform
	topK      int
	workers   *pool.Pool
}

// New returns a Processor reading from cache, converting raw distances via
// transform, and fetching topK neighbors per query. workers bounds
// parallel fan-out (nil defaults to pool.New(0)).
func New(cache *knncache.Cache, transform Transform, topK int, workers *pool.Pool) *Processor {
	if workers == nil {
		workers = pool.New(0)
	}
	return &Processor{cache: cache, transform: transform, topK: topK, workers: workers}
}

// forEachRow applies fn to every row in rows, sequentially below
// rowParallelThreshold, fanned out across the worker pool above it.
func (p *Processor) forEachRow(ctx context.Context, rows []uint32, fn func(outIndex int, row uint32) error) error {
	if len(rows) <= rowParallelThreshold {
		for i, row := range rows {
			if err := fn(i, row); err != nil {
				return err
			}
		}
		return nil
	}

	group := p.workers.Group(ctx)
	for i, row := range rows {
		i, row := i, row
		group.Go(func() error { return fn(i, row) })
	}
	return group.Wait()
}

// ComputeDistanceContribution fetches row's top-k cached neighbors
// (holding out holdout, if >= 0) and returns the transform's distance
// contribution scalar.
func (p *Processor) ComputeDistanceContribution(row uint32, holdout int) (float64, error) {
	neighbors, err := p.cache.GetKnn(int(row), p.topK, false, holdout)
	if err != nil {
		return 0, err
	}
	weight := p.transform.EntityWeight(row)
	return p.transform.ComputeDistanceContribution(neighbors, weight), nil
}

// ComputeDistanceContributionExcept is like ComputeDistanceContribution,
// but only considers neighbors present in included.
func (p *Processor) ComputeDistanceContributionExcept(row uint32, included *intset.Set) (float64, error) {
	neighbors, err := p.cache.GetKnnFromIndices(int(row), p.topK, false, included)
	if err != nil {
		return 0, err
	}
	weight := p.transform.EntityWeight(row)
	return p.transform.ComputeDistanceContribution(neighbors, weight), nil
}

// ComputeDistanceContributions computes the distance contribution of
// every row in subset (or every relevant row, if subset is nil), returning
// the contributions in subset's ascending order plus their sum.
func (p *Processor) ComputeDistanceContributions(ctx context.Context, subset *intset.Set) ([]float64, float64, error) {
	if subset == nil {
		subset = p.cache.RelevantEntities()
	}
	rows := subset.ToSlice()
	contribs := make([]float64, len(rows))

	err := p.forEachRow(ctx, rows, func(i int, row uint32) error {
		c, err := p.ComputeDistanceContribution(row, knncache.NoHoldout)
		if err != nil {
			return err
		}
		contribs[i] = c
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sum := 0.0
	for _, c := range contribs {
		sum += c
	}
	return contribs, sum, nil
}

// ComputeDistanceContributionsWithoutCache is like
// ComputeDistanceContributions, but bypasses the cache entirely for every
// row (no sum: callers using this path don't need the aggregate).
func (p *Processor) ComputeDistanceContributionsWithoutCache(ctx context.Context, subset *intset.Set) ([]float64, error) {
	if subset == nil {
		subset = p.cache.RelevantEntities()
	}
	rows := subset.ToSlice()
	contribs := make([]float64, len(rows))

	err := p.forEachRow(ctx, rows, func(i int, row uint32) error {
		neighbors, err := p.cache.GetKnnWithoutCache(int(row), p.topK, false, knncache.NoHoldout)
		if err != nil {
			return err
		}
		weight := p.transform.EntityWeight(row)
		contribs[i] = p.transform.ComputeDistanceContribution(neighbors, weight)
		return nil
	})
	return contribs, err
}

// ComputeDistanceContributionsOnPositions is the positions variant of
// ComputeDistanceContributions: each position's neighbors are fetched live
// via GetKnnAtPosition. A nil position (the Go stand-in for "not an
// ordered-array node") produces NaN rather than being searched.
func (p *Processor) ComputeDistanceContributionsOnPositions(ctx context.Context, positions [][]svalue.Value) ([]float64, error) {
	contribs := make([]float64, len(positions))
	indices := make([]uint32, len(positions))
	for i := range indices {
		indices[i] = uint32(i)
	}

	err := p.forEachRow(ctx, indices, func(_ int, i uint32) error {
		pos := positions[i]
		if pos == nil {
			contribs[i] = math.NaN()
			return nil
		}
		neighbors, err := p.cache.GetKnnAtPosition(pos, p.topK, false)
		if err != nil {
			return err
		}
		contribs[i] = p.transform.ComputeDistanceContribution(neighbors, 1.0)
		return nil
	})
	return contribs, err
}

// ComputeDistanceContributionsFromEntities is like
// ComputeDistanceContributions over every relevant row, except that rows
// not in included get excludedValue instead of their own contribution
// (and are left out of the returned sum).
func (p *Processor) ComputeDistanceContributionsFromEntities(ctx context.Context, included *intset.Set, excludedValue float64) ([]float64, float64, error) {
	rows := p.cache.RelevantEntities().ToSlice()
	contribs := make([]float64, len(rows))

	err := p.forEachRow(ctx, rows, func(i int, row uint32) error {
		if !included.Contains(row) {
			contribs[i] = math.NaN()
			return nil
		}
		c, err := p.ComputeDistanceContributionExcept(row, included)
		if err != nil {
			return err
		}
		contribs[i] = c
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sum := 0.0
	for i, c := range contribs {
		if math.IsNaN(c) {
			contribs[i] = excludedValue
		} else {
			sum += c
		}
	}
	return contribs, sum, nil
}

// updateDistanceContributionsWithHoldout computes, for every relevant row
// whose cached top-k includes holdout, what its distance contribution
// would be with holdout removed from the model. Rows unaffected by the
// removal are omitted from the result entirely. holdout itself is assigned
// holdoutReplacement (a uniform prior on the held-out point).
func (p *Processor) updateDistanceContributionsWithHoldout(holdout uint32, holdoutReplacement float64,
	distContribs []float64, baseSum float64) ([]Ref, float64, error) {

	rows := p.cache.RelevantEntities().ToSlice()
	updatedSum := baseSum
	updated := make([]Ref, 0, p.cache.NumRelevant())

	for i, row := range rows {
		if row == holdout {
			updatedSum -= distContribs[i]
			updated = append(updated, Ref{Value: holdoutReplacement, Index: i})
			continue
		}
		if !p.cache.CachedKnnContainsRow(int(row), int(holdout), p.topK) {
			continue
		}
		contribution, err := p.ComputeDistanceContribution(row, int(holdout))
		if err != nil {
			return nil, 0, err
		}
		if distContribs[i] == contribution {
			continue
		}
		updatedSum -= distContribs[i]
		updatedSum += contribution
		updated = append(updated, Ref{Value: contribution, Index: i})
	}

	if updatedSum == 0.0 {
		avg := 1.0 / float64(p.cache.NumRelevant())
		for i := range updated {
			updated[i].Value = avg
		}
		updatedSum = float64(len(updated)) * avg
	}
	return updated, updatedSum, nil
}

// kullbackLeiblerDivergence computes KL(p || q) = sum p_i * log(p_i / q_i)
// over dense p and q, skipping terms where q_i is zero or NaN.
func kullbackLeiblerDivergence(p, q []float64) float64 {
	sum := 0.0
	for i := range p {
		if q[i] == 0 || math.IsNaN(q[i]) {
			continue
		}
		if p[i] != 0 {
			sum += p[i] * math.Log(p[i]/q[i])
		}
	}
	return sum
}

// partialKLDenseVsSparse computes KL(base || updated) restricted to the
// indices named by updated, treating every other index as unchanged
// (and therefore contributing zero to the divergence).
func partialKLDenseVsSparse(base []float64, updated []Ref) float64 {
	sum := 0.0
	for _, u := range updated {
		if u.Value == 0 || math.IsNaN(u.Value) {
			continue
		}
		pi := base[u.Index]
		if pi != 0 {
			sum += pi * math.Log(pi/u.Value)
		}
	}
	return sum
}

// partialKLSparseVsDense computes KL(updated || base) restricted to the
// indices named by updated.
func partialKLSparseVsDense(updated []Ref, base []float64) float64 {
	sum := 0.0
	for _, u := range updated {
		qi := base[u.Index]
		if qi == 0 || math.IsNaN(qi) {
			continue
		}
		if u.Value != 0 {
			sum += u.Value * math.Log(u.Value/qi)
		}
	}
	return sum
}

// ComputeCaseKLDivergences computes, for each row in rowsToCompute, the KL
// divergence (or conviction, if normalizeConvictions) between the base
// neighbor-distribution and the distribution with that row held out.
// convictionOfRemoval selects D_KL(base || updated); false computes
// D_KL(updated || base), the conviction-of-addition direction.
func (p *Processor) ComputeCaseKLDivergences(ctx context.Context, rowsToCompute *intset.Set,
	normalizeConvictions, convictionOfRemoval bool) ([]float64, error) {

	rows := rowsToCompute.ToSlice()
	if len(rows) == 0 {
		return nil, nil
	}

	// prime the cache at topK+1: a row's own neighbor list must be able to
	// accommodate removing one neighbor and still have topK left.
	if err := p.cache.Precache(ctx, nil, p.topK+1, false); err != nil {
		return nil, err
	}

	baseContribs, contribSum, err := p.ComputeDistanceContributions(ctx, nil)
	if err != nil {
		return nil, err
	}

	baseProbs := make([]float64, len(baseContribs))
	if contribSum != 0 {
		for i, c := range baseContribs {
			baseProbs[i] = c / contribSum
		}
	}

	numRelevant := p.cache.NumRelevant()
	probMassOfNonHoldouts := 1.0 - 1.0/float64(numRelevant)
	// reciprocal of (num_cases_without / num_cases_with) * contrib_sum,
	// cached to avoid a per-row division.
	updatedScaleInverse := float64(numRelevant) / (contribSum * float64(numRelevant-1))

	relevantRows := p.cache.RelevantEntities().ToSlice()
	rowIndex := make(map[uint32]int, len(relevantRows))
	for i, r := range relevantRows {
		rowIndex[r] = i
	}

	convictions := make([]float64, len(rows))
	err = p.forEachRow(ctx, rows, func(outIdx int, row uint32) error {
		updated, updatedSum, err := p.updateDistanceContributionsWithHoldout(row, 1.0/float64(numRelevant), baseContribs, contribSum)
		if err != nil {
			return err
		}

		holdoutIdx := rowIndex[row]
		updatedToProbability := probMassOfNonHoldouts / updatedSum
		for i := range updated {
			if updated[i].Index != holdoutIdx {
				updated[i].Value *= updatedToProbability
			}
		}

		dcUpdateScale := updatedSum * updatedScaleInverse

		var kldUpdated, kldScaled float64
		if convictionOfRemoval {
			kldUpdated = partialKLDenseVsSparse(baseProbs, updated)

			totalUnchanged := contribSum
			for _, u := range updated {
				totalUnchanged -= baseContribs[u.Index]
			}
			totalMassChanged := totalUnchanged / contribSum
			kldScaled = totalMassChanged * math.Log(dcUpdateScale)
		} else {
			kldUpdated = partialKLSparseVsDense(updated, baseProbs)

			totalMassChanged := 1.0
			for _, u := range updated {
				totalMassChanged -= u.Value
			}
			kldScaled = -totalMassChanged * math.Log(dcUpdateScale)
		}

		if kldTotal := kldUpdated + kldScaled; kldTotal >= 0.0 {
			convictions[outIdx] = kldTotal
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	klSum := 0.0
	hasZero := false
	for _, k := range convictions {
		if k > 0.0 {
			klSum += k
		} else {
			hasZero = true
		}
	}
	klAvg := klSum / float64(len(convictions))

	if klAvg == 0.0 {
		for i := range convictions {
			convictions[i] = 1.0
		}
		return convictions, nil
	}
	if normalizeConvictions {
		for i, k := range convictions {
			if k == 0.0 && hasZero {
				convictions[i] = 1.0
				continue
			}
			convictions[i] = klAvg / k
		}
	}
	return convictions, nil
}

// ComputeCaseGroupKLDivergence computes the KL divergence between treating
// baseGroup as the whole model versus the full (combined) model —
// convictionOfRemoval selects the direction, exactly as in
// ComputeCaseKLDivergences.
func (p *Processor) ComputeCaseGroupKLDivergence(ctx context.Context, baseGroup *intset.Set, convictionOfRemoval bool) (float64, error) {
	// prime the cache at 2*topK in an attempt to reduce the number of
	// underlying queries needed given the expected overlap between models.
	if err := p.cache.Precache(ctx, nil, p.topK*2, false); err != nil {
		return 0, err
	}

	combinedContribs, contribSum, err := p.ComputeDistanceContributions(ctx, nil)
	if err != nil {
		return 0, err
	}

	numRelevant := p.cache.NumRelevant()
	scaledBase, scaledBaseSum, err := p.ComputeDistanceContributionsFromEntities(ctx, baseGroup, 1.0/float64(numRelevant))
	if err != nil {
		return 0, err
	}

	baseScalar := 1.0 / contribSum
	for i := range combinedContribs {
		combinedContribs[i] *= baseScalar
	}

	probScalar := float64(baseGroup.Len()) / float64(numRelevant)
	probScalar /= scaledBaseSum

	relevantRows := p.cache.RelevantEntities().ToSlice()
	for i, row := range relevantRows {
		if baseGroup.Contains(row) {
			scaledBase[i] *= probScalar
		}
	}

	if convictionOfRemoval {
		return kullbackLeiblerDivergence(combinedContribs, scaledBase), nil
	}
	return kullbackLeiblerDivergence(scaledBase, combinedContribs), nil
}

// atomicFloat accumulates float64 values from multiple goroutines via a
// compare-and-swap loop over the reinterpreted bit pattern — the Go
// analogue of the source's fetch_add_double, since atomic float add has
// no native instruction here either.
type atomicFloat struct {
	bits atomic.Uint64
}

func (a *atomicFloat) add(delta float64) {
	for {
		old := a.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if a.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (a *atomicFloat) load() float64 { return math.Float64frombits(a.bits.Load()) }

// ComputeNeighborWeightsForRows accumulates, for every row in subset (or
// every relevant row, if nil), its transformed neighbor distances into a
// per-neighbor running total modulated by the row's own entity weight.
// Returns every index with nonzero accumulated weight.
func (p *Processor) ComputeNeighborWeightsForRows(ctx context.Context, subset *intset.Set) ([]Ref, error) {
	if subset == nil {
		subset = p.cache.RelevantEntities()
	}
	if p.cache.NumRelevant() == 0 {
		return nil, nil
	}

	end := p.cache.EndEntityIndex()
	probs := make([]atomicFloat, end)

	rows := subset.ToSlice()
	err := p.forEachRow(ctx, rows, func(_ int, row uint32) error {
		neighbors, err := p.cache.GetKnnWithoutCache(int(row), p.topK, false, knncache.NoHoldout)
		if err != nil {
			return err
		}
		p.transform.TransformDistances(neighbors, false)

		totalProb := 0.0
		for _, n := range neighbors {
			totalProb += n.Distance
		}

		weight := p.transform.EntityWeight(row)
		multiplier := weight / totalProb

		for _, n := range neighbors {
			probs[n.Row].add(n.Distance * multiplier)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return collectNonzero(probs), nil
}

// ComputeNeighborWeightsOnPositions is the positions variant of
// ComputeNeighborWeightsForRows: each position's neighbors are fetched
// live via GetKnnAtPosition, and a nil position (not ordered-array shaped)
// is skipped rather than contributing.
func (p *Processor) ComputeNeighborWeightsOnPositions(ctx context.Context, positions [][]svalue.Value) ([]Ref, error) {
	if p.cache.NumRelevant() == 0 {
		return nil, nil
	}

	end := p.cache.EndEntityIndex()
	probs := make([]atomicFloat, end)

	indices := make([]uint32, len(positions))
	for i := range indices {
		indices[i] = uint32(i)
	}

	err := p.forEachRow(ctx, indices, func(_ int, i uint32) error {
		pos := positions[i]
		if pos == nil {
			return nil
		}
		neighbors, err := p.cache.GetKnnAtPosition(pos, p.topK, false)
		if err != nil {
			return err
		}
		p.transform.TransformDistances(neighbors, false)

		totalProb := 0.0
		for _, n := range neighbors {
			totalProb += n.Distance
		}
		multiplier := 1.0 / totalProb

		for _, n := range neighbors {
			probs[n.Row].add(n.Distance * multiplier)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return collectNonzero(probs), nil
}

func collectNonzero(probs []atomicFloat) []Ref {
	out := make([]Ref, 0, len(probs))
	for i := range probs {
		if v := probs[i].load(); v > 0.0 {
			out = append(out, Ref{Value: v, Index: i})
		}
	}
	return out
}
