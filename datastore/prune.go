package datastore

import (
	"sort"

	"github.com/amalgam-go/sbfds/distance"
	"github.com/amalgam-go/sbfds/partialsum"
	"github.com/amalgam-go/sbfds/svalue"
)

// populatePartialSums fills scratch's PartialSumCollection with a cheap,
// per-feature lower bound on each candidate's term for that feature (§4.5.1,
// "populate-partial-sums-with-similar-values"): rather than computing every
// feature for every candidate up front, each feature is populated once via
// the column's own value index and broadcast to every row sharing that
// bound, so the per-feature cost is proportional to the column's distinct
// value count rather than the candidate count wherever the column exposes
// one (nominal exact-match buckets, the closest stored numeric value).
// Every broadcast value populated here is a true lower bound on the
// feature's eventual exact term (for exact-match nominal rows and the
// column's globally closest numeric value it is the exact term), which is
// what lets prunedNearestEntities stop early without ever excluding a
// genuine top-k member.
func populatePartialSums(pruned *distance.Evaluator, features []resolvedFeature, ds *DataStore, order []uint32, ps *partialsum.Collection) error {
	for i, f := range features {
		fp := &pruned.Features[f.featureIndex]
		col := ds.columns[f.columnIndex]
		loc := partialsum.GetAccumLocation(i)

		targetUnknown := f.value.Kind == svalue.Invalid || f.value.IsNullEquivalent()

		if targetUnknown {
			unknownTerm, err := pruned.ComputeTerm(f.featureIndex, f.value, svalue.Value{Kind: svalue.Null}, true)
			if err != nil {
				return err
			}
			knownTerm, err := pruned.ComputeTerm(f.featureIndex, f.value, svalue.Num(0), true)
			if err != nil {
				return err
			}
			for j, row := range order {
				if col.NullRows().Contains(row) || col.InvalidRows().Contains(row) {
					ps.Accum(j, loc, unknownTerm)
				} else {
					ps.Accum(j, loc, knownTerm)
				}
			}
			continue
		}

		knownToUnknown, err := pruned.ComputeTerm(f.featureIndex, f.value, svalue.Value{Kind: svalue.Invalid}, true)
		if err != nil {
			return err
		}

		var matchRows interface{ Contains(uint32) bool }
		var matchTerm, nonMatchTerm float64
		var useExactMatchBucket bool
		var closest float64
		var haveClosest bool

		switch fp.Kind {
		case distance.NominalNumeric, distance.NominalString, distance.NominalCode:
			if fp.NominalOverrides == nil {
				nonMatchTerm, err = pruned.NonMatchTerm(f.featureIndex)
				if err != nil {
					return err
				}
				matchTerm, err = pruned.ComputeTerm(f.featureIndex, f.value, f.value, true)
				if err != nil {
					return err
				}
				switch f.value.Kind {
				case svalue.Number:
					matchRows = col.RowsAtNumberValue(f.value.Number)
					useExactMatchBucket = true
				case svalue.StringID:
					matchRows = col.RowsAtStringID(f.value.StringID)
					useExactMatchBucket = true
				}
			}
		case distance.ContinuousNumeric, distance.ContinuousNumericCyclic:
			cycle := 0.0
			if fp.Kind == distance.ContinuousNumericCyclic {
				cycle = fp.CycleLength
			}
			if entry, ok := col.ClosestValueEntryFor(f.value.Number, cycle); ok {
				closest = entry.Value
				haveClosest = true
			}
			// !ok falls through to the zero-bound default below — it means
			// the column holds no numeric value anywhere, which can't
			// happen for a row this loop has already classified as known.
		}

		for j, row := range order {
			if col.NullRows().Contains(row) || col.InvalidRows().Contains(row) {
				ps.Accum(j, loc, knownToUnknown)
				continue
			}
			switch {
			case useExactMatchBucket:
				if matchRows != nil && matchRows.Contains(row) {
					ps.Accum(j, loc, matchTerm)
				} else {
					ps.Accum(j, loc, nonMatchTerm)
				}
			case haveClosest:
				term, err := pruned.ComputeTerm(f.featureIndex, f.value, svalue.Num(closest), true)
				if err != nil {
					return err
				}
				ps.Accum(j, loc, term)
			case fp.NominalOverrides != nil:
				v := ds.rowValue(f.columnIndex, row)
				term, err := pruned.ComputeTerm(f.featureIndex, f.value, v, true)
				if err != nil {
					return err
				}
				ps.Accum(j, loc, term)
			default:
				// ContinuousString / ContinuousCode: no indexed value ordering
				// to bound against cheaply, so 0 is the only bound that's
				// always safe — a true lower bound, just not a tight one.
				ps.AccumZero(j, loc)
			}
		}
	}
	return nil
}

// prunedNearestEntities computes exact distances for order's candidates,
// using populatePartialSums's per-candidate lower bound to examine the most
// promising candidates first (scratch's prior-cache rows, then ascending
// lower bound) and to stop once no un-examined candidate's bound can beat
// the current topK-th best exact sum. The returned slice holds every
// candidate whose distance was actually computed, not just the final topK —
// callers still run it through the same tie-break sort and expandZero cut
// the brute-force path uses, so results are identical to evaluating every
// candidate directly.
func (ds *DataStore) prunedNearestEntities(pruned *distance.Evaluator, features []resolvedFeature, order []uint32, topK int, scratch *ScratchBuffers) ([]DistanceRef, error) {
	n := len(order)
	scratch.partialSums.ResizeAndClear(len(features), n)
	if err := populatePartialSums(pruned, features, ds, order, scratch.partialSums); err != nil {
		return nil, err
	}

	rowPos := make(map[uint32]int, n)
	for i, row := range order {
		rowPos[row] = i
	}

	visited := make([]bool, n)
	examination := make([]int, 0, n)
	for _, prevRow := range scratch.previousNearestNeighbors {
		if i, ok := rowPos[prevRow]; ok && !visited[i] {
			visited[i] = true
			examination = append(examination, i)
		}
	}

	priorCacheCount := len(examination)

	rest := make([]int, 0, n)
	for i := range order {
		if !visited[i] {
			rest = append(rest, i)
		}
	}
	sort.Slice(rest, func(a, b int) bool {
		return scratch.partialSums.GetSum(rest[a]) < scratch.partialSums.GetSum(rest[b])
	})
	examination = append(examination, rest...)

	bestSums := make([]float64, 0, topK)
	insertSum := func(sum float64) {
		if len(bestSums) < topK {
			idx := sort.SearchFloat64s(bestSums, sum)
			bestSums = append(bestSums, 0)
			copy(bestSums[idx+1:], bestSums[idx:])
			bestSums[idx] = sum
			return
		}
		if sum < bestSums[len(bestSums)-1] {
			idx := sort.SearchFloat64s(bestSums[:len(bestSums)-1], sum)
			copy(bestSums[idx+1:], bestSums[idx:len(bestSums)-1])
			bestSums[idx] = sum
		}
	}
	kthBest := func() float64 {
		if len(bestSums) < topK {
			return -1 // not yet filled: never prune
		}
		return bestSums[len(bestSums)-1]
	}

	all := make([]DistanceRef, 0, n)
	for rank, i := range examination {
		if rank >= priorCacheCount {
			if k := kthBest(); k >= 0 && scratch.partialSums.GetSum(i) > k {
				break
			}
		}
		row := order[i]
		sum, err := ds.distanceTo(pruned, features, row, true)
		if err != nil {
			return nil, err
		}
		insertSum(sum)
		all = append(all, DistanceRef{Row: row, Distance: pruned.InverseExponentiateSum(sum, true)})
	}
	return all, nil
}
