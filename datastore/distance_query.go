package datastore

import (
	"math"
	"sort"

	"github.com/amalgam-go/sbfds/distance"
	"github.com/amalgam-go/sbfds/intset"
	"github.com/amalgam-go/sbfds/svalue"
)

// DistanceRef pairs a row index with its distance from a query point, the
// Go analogue of the source's DistanceReferencePair<size_t>.
type DistanceRef struct {
	Row      uint32
	Distance float64
}

// resolvedFeature is one query feature already bound to its backing
// column: the query position's value plus the column it reads from.
type resolvedFeature struct {
	featureIndex int // index into eval.Features
	columnIndex  int
	value        svalue.Value
}

// resolveFeatures binds eval's (already zero-weight-stripped) features to
// their columns via positionLabels/positionValues, indexed by
// keptIndices[i] (eval.Features[i] came from the original feature list at
// that index — see distance.Evaluator.WithoutZeroWeightFeatures). Skips
// any label this DataStore has no column for — an unresolved position
// label simply drops that feature from the query, exactly as
// PopulateTargetValuesAndLabelIndices's "continue" does when a label
// isn't found.
func (ds *DataStore) resolveFeatures(eval *distance.Evaluator, keptIndices []int, positionLabels []string, positionValues []svalue.Value) []resolvedFeature {
	out := make([]resolvedFeature, 0, len(eval.Features))
	for i := range eval.Features {
		orig := keptIndices[i]
		if orig >= len(positionLabels) {
			continue
		}
		ci, ok := ds.columnIndex(positionLabels[orig])
		if !ok {
			continue
		}
		out = append(out, resolvedFeature{featureIndex: i, columnIndex: ci, value: positionValues[orig]})
	}
	return out
}

// rowValue returns columnIndex's value for row; row must be < numRows.
func (ds *DataStore) rowValue(columnIndex int, row uint32) svalue.Value {
	return ds.columns[columnIndex].CellAt(row)
}

// distanceTo computes eval's exponentiated (pre-root) Minkowski sum
// between the resolved query features and row.
func (ds *DataStore) distanceTo(eval *distance.Evaluator, features []resolvedFeature, row uint32, highAccuracy bool) (float64, error) {
	sum := 0.0
	for _, f := range features {
		term, err := eval.ComputeTerm(f.featureIndex, f.value, ds.rowValue(f.columnIndex, row), highAccuracy)
		if err != nil {
			return 0, err
		}
		sum += term
	}
	return sum, nil
}

// FindEntitiesWithinDistance appends to out every candidate row whose
// distance to the query position is <= maxDist, per §4.5's within-
// distance query: zero-weight features are stripped first, maxDist is
// exponentiated once up front, and each row carrying a value r at
// radiusLabel has its exponentiated radius added to that threshold (the
// row is admitted iff its exponentiated sum <= maxDist^p + r^p; for p = 1
// that is raw distance <= maxDist + r).
//
// Each candidate accumulates its sum feature by feature and bails out the
// moment the running sum exceeds its threshold, so no candidate ever pays
// for a feature it couldn't possibly need — the bounded-query analogue of
// §4.5 step 4's pruning, built directly against the query's own maxDist
// rather than against the cross-candidate PartialSumCollection bookkeeping
// FindNearestEntities uses (there is no topK frontier to bound against
// here, so the per-candidate threshold is pruning enough on its own; see
// DESIGN.md).
func (ds *DataStore) FindEntitiesWithinDistance(eval *distance.Evaluator, positionLabels []string,
	positionValues []svalue.Value, maxDist float64, radiusLabel string, candidates *intset.Set) []DistanceRef {

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	pruned, kept := eval.WithoutZeroWeightFeatures()
	features := ds.resolveFeatures(pruned, kept, positionLabels, positionValues)

	expMax := pruned.ExponentiateTerm(maxDist, true)
	radiusColumn, hasRadius := ds.columnIndex(radiusLabel)

	var out []DistanceRef
	candidates.ForEach(func(row uint32) bool {
		threshold := expMax
		if hasRadius {
			if rv := ds.rowValue(radiusColumn, row); rv.Kind == svalue.Number && !math.IsNaN(rv.Number) {
				threshold += pruned.ExponentiateTerm(rv.Number, true)
			}
		}

		sum := 0.0
		accepted := true
		for _, f := range features {
			term, err := pruned.ComputeTerm(f.featureIndex, f.value, ds.rowValue(f.columnIndex, row), false)
			if err != nil || math.IsNaN(term) {
				accepted = false
				break
			}
			sum += term
			if sum > threshold {
				accepted = false
				break
			}
		}
		if !accepted {
			return true
		}

		dist := pruned.InverseExponentiateSum(sum, true)
		if hasRadius {
			if rv := ds.rowValue(radiusColumn, row); rv.Kind == svalue.Number && !math.IsNaN(rv.Number) {
				dist -= rv.Number
			}
		}
		out = append(out, DistanceRef{Row: row, Distance: dist})
		return true
	})
	return out
}

// FindNearestEntities returns the topK candidates nearest to the query
// position, sorted ascending by distance, ties broken uniformly at
// random via scratch's stream (the Go stand-in for
// StochasticTieBreakingPriorityQueue — see DESIGN.md for why a full
// bounded max-heap with an epsilon-banded comparator is not reproduced).
// ignoreRow, if >= 0, is excluded from consideration (used by conviction
// queries that search "the rest of the database" relative to one row).
// expandZero implements "expand to first nonzero distance" (spec.md
// §4.5 step 7): when the topK-th result is still within ε of zero, the
// cut point keeps advancing to include every further candidate tied at
// that same (effectively zero) distance, so the result can legitimately
// hold more than topK entries.
//
// When no admission radius is in play, candidates are examined via
// prunedNearestEntities rather than directly: scratch's PartialSumCollection
// is populated with a cheap per-feature lower bound on every candidate
// (§4.5.1), candidates are then visited prior-cache-first and ascending by
// that bound, and the scan stops the moment no further candidate's bound
// can beat the topK-th exact sum found so far. A radius-bearing query (or
// DisableAcceleration) instead evaluates every candidate's exact distance
// directly, since an admission radius can shrink a candidate's effective
// distance in a way the raw-sum bound can't account for.
func (ds *DataStore) FindNearestEntities(eval *distance.Evaluator, positionLabels []string,
	positionValues []svalue.Value, topK int, expandZero bool, radiusLabel string, ignoreRow int,
	candidates *intset.Set, scratch *ScratchBuffers) ([]DistanceRef, error) {

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	pruned, kept := eval.WithoutZeroWeightFeatures()
	features := ds.resolveFeatures(pruned, kept, positionLabels, positionValues)
	radiusColumn, hasRadius := ds.columnIndex(radiusLabel)

	var all []DistanceRef
	var err error

	// The partial-sum pruning path (§4.5 steps 2-7, §4.5.1) only bounds the
	// raw Minkowski sum; an admission radius can shrink a candidate's final
	// distance unpredictably, so radius-bearing queries and DisableAcceleration
	// fall back to evaluating every candidate directly.
	if !DisableAcceleration && !hasRadius && topK > 0 {
		order := make([]uint32, 0, candidates.Len())
		candidates.ForEach(func(row uint32) bool {
			if int(row) != ignoreRow {
				order = append(order, row)
			}
			return true
		})
		if len(order) > 0 {
			all, err = ds.prunedNearestEntities(pruned, features, order, topK, scratch)
			if err != nil {
				return nil, err
			}
		}
	} else {
		candidates.ForEach(func(row uint32) bool {
			if int(row) == ignoreRow {
				return true
			}
			var sum float64
			sum, err = ds.distanceTo(pruned, features, row, true)
			if err != nil {
				return false
			}
			dist := pruned.InverseExponentiateSum(sum, true)
			if hasRadius {
				if rv := ds.rowValue(radiusColumn, row); rv.Kind == svalue.Number && !math.IsNaN(rv.Number) {
					dist -= rv.Number
				}
			}
			all = append(all, DistanceRef{Row: row, Distance: dist})
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	tieBreak := make([]uint64, len(all))
	for i := range tieBreak {
		tieBreak[i] = scratch.rand.Uint64()
	}
	eps := 2 * float64(len(pruned.Features)) * (math.Nextafter(1, 2) - 1)
	sort.Slice(all, func(i, j int) bool {
		if math.Abs(all[i].Distance-all[j].Distance) > eps {
			return all[i].Distance < all[j].Distance
		}
		return tieBreak[i] < tieBreak[j]
	})

	cut := topK
	if expandZero && topK > 0 && topK < len(all) && math.Abs(all[cut-1].Distance) <= eps {
		for cut < len(all) && math.Abs(all[cut].Distance-all[cut-1].Distance) <= eps {
			cut++
		}
	}
	if cut >= 0 && cut < len(all) {
		all = all[:cut]
	}

	scratch.previousNearestNeighbors = scratch.previousNearestNeighbors[:0]
	for _, r := range all {
		scratch.previousNearestNeighbors = append(scratch.previousNearestNeighbors, r.Row)
	}
	return all, nil
}

// FindEntitiesNearestToIndexedEntity finds the topK nearest neighbors to
// the entity already stored at searchIndex, using that row's own values
// at positionLabels as the query position — used by conviction queries
// where "the query point" is an existing row rather than a synthetic
// position (§6, "used by conviction queries where the query point is an
// existing row"). searchIndex itself is never returned; ignoreIndex, if
// >= 0, is excluded as well.
func (ds *DataStore) FindEntitiesNearestToIndexedEntity(eval *distance.Evaluator, positionLabels []string,
	searchIndex, topK int, expandZero bool, radiusLabel string, candidates *intset.Set, ignoreIndex int,
	scratch *ScratchBuffers) ([]DistanceRef, error) {

	ds.mu.RLock()
	positionValues := make([]svalue.Value, len(positionLabels))
	for i, label := range positionLabels {
		if ci, ok := ds.columnIndex(label); ok {
			positionValues[i] = ds.rowValue(ci, uint32(searchIndex))
		} else {
			positionValues[i] = svalue.Value{Kind: svalue.Invalid}
		}
	}
	ds.mu.RUnlock()

	if ignoreIndex < 0 {
		ignoreIndex = searchIndex
	} else if ignoreIndex != searchIndex && candidates.Contains(uint32(searchIndex)) {
		candidates = candidates.Clone()
		candidates.Erase(uint32(searchIndex))
	}
	return ds.FindNearestEntities(eval, positionLabels, positionValues, topK, expandZero, radiusLabel, ignoreIndex, candidates, scratch)
}
