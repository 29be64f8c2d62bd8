package conviction

import (
	"math"

	"github.com/amalgam-go/sbfds/datastore"
)

// Transform converts raw Minkowski distances (as returned by a
// knncache.Cache search) into the weighted probability-mass quantities
// ConvictionProcessor's statistics are built from. The source hardcodes
// one such policy inline; this is pulled out as an interface because the
// source's own call sites already vary the entity-weight function and the
// surprisal direction per caller (EntityWeightFunction, invert flag) — a
// pluggable Transform is the natural generalization (supplemented from
// original_source/Conviction.h; spec.md names neither the interface nor
// excludes it).
type Transform interface {
	// EntityWeight returns row's innate case weight (1.0 if the model is
	// unweighted).
	EntityWeight(row uint32) float64

	// ComputeDistanceContribution reduces neighbors (already weighted by
	// entityWeight's caller context) into a single scalar: "how much
	// probability mass this point carries in the model."
	ComputeDistanceContribution(neighbors []datastore.DistanceRef, entityWeight float64) float64

	// TransformDistances rewrites each neighbor's Distance field in place
	// into a relative likelihood weight. invert selects the surprisal
	// direction (used by ComputeNeighborWeights*, which wants raw
	// likelihood mass rather than a contribution scalar).
	TransformDistances(neighbors []datastore.DistanceRef, invert bool)
}

// SurprisalTransform is the default Transform: distances are converted to
// likelihood weights via exp(-distance) (or exp(distance) when inverted),
// and a row's distance contribution is its weight times the mean
// closeness (1/(1+d)) of its neighbors — rows with tighter neighborhoods
// carry more probability mass.
type SurprisalTransform struct {
	// Weight returns row's innate case weight. Nil means every row has
	// weight 1.0.
	Weight func(row uint32) float64
}

func (t *SurprisalTransform) EntityWeight(row uint32) float64 {
	if t.Weight == nil {
		return 1.0
	}
	return t.Weight(row)
}

func (t *SurprisalTransform) ComputeDistanceContribution(neighbors []datastore.DistanceRef, entityWeight float64) float64 {
	if len(neighbors) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, n := range neighbors {
		sum += 1.0 / (1.0 + n.Distance)
	}
	return entityWeight * sum / float64(len(neighbors))
}

func (t *SurprisalTransform) TransformDistances(neighbors []datastore.DistanceRef, invert bool) {
	for i := range neighbors {
		d := neighbors[i].Distance
		if invert {
			d = -d
		}
		neighbors[i].Distance = math.Exp(-d)
	}
}
