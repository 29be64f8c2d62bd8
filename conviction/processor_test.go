package conviction_test

import (
	"context"
	"math"
	"testing"

	"github.com/amalgam-go/sbfds/conviction"
	"github.com/amalgam-go/sbfds/datastore"
	"github.com/amalgam-go/sbfds/distance"
	"github.com/amalgam-go/sbfds/intset"
	"github.com/amalgam-go/sbfds/knncache"
	"github.com/amalgam-go/sbfds/svalue"
	"github.com/stretchr/testify/require"
)

type row map[string]svalue.Value

func (r row) LabelValue(label string) (svalue.Value, bool) {
	v, ok := r[label]
	return v, ok
}

func buildStore(t *testing.T, coords [][2]float64) *datastore.DataStore {
	t.Helper()
	ds := datastore.New(nil, nil)
	entities := make([]datastore.Entity, len(coords))
	for i, c := range coords {
		entities[i] = row{"x": svalue.Num(c[0]), "y": svalue.Num(c[1])}
	}
	require.NoError(t, ds.AddLabels(context.Background(), []string{"x", "y"}, entities))
	return ds
}

func euclideanEvaluator() *distance.Evaluator {
	fp := distance.FeatureParams{
		Kind: distance.ContinuousNumeric, Weight: 1,
		Deviation: math.NaN(), KnownToUnknown: math.NaN(), UnknownToUnknown: math.NaN(),
		MaxDifference: 1000,
	}
	return distance.New(2, []distance.FeatureParams{fp, fp}, nil)
}

func newProcessor(t *testing.T, coords [][2]float64, topK int) (*conviction.Processor, *intset.Set) {
	t.Helper()
	ds := buildStore(t, coords)
	relevant := ds.FindAllWithFeature("x")

	cache := knncache.New(nil, 1, 2)
	cache.Reset(ds, relevant, euclideanEvaluator(), []string{"x", "y"}, "")

	p := conviction.New(cache, &conviction.SurprisalTransform{}, topK, nil)
	return p, relevant
}

func fiveRowCoords() [][2]float64 {
	return [][2]float64{{0, 0}, {1, 0}, {0, 1}, {10, 10}, {11, 10}}
}

func TestComputeDistanceContributionIsFiniteAndNonNegative(t *testing.T) {
	p, _ := newProcessor(t, fiveRowCoords(), 2)
	c, err := p.ComputeDistanceContribution(0, knncache.NoHoldout)
	require.NoError(t, err)
	require.False(t, math.IsNaN(c))
	require.GreaterOrEqual(t, c, 0.0)
}

func TestComputeDistanceContributionsSumMatchesIndividualSum(t *testing.T) {
	p, relevant := newProcessor(t, fiveRowCoords(), 2)
	contribs, sum, err := p.ComputeDistanceContributions(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, contribs, relevant.Len())

	total := 0.0
	for _, c := range contribs {
		total += c
	}
	require.InDelta(t, total, sum, 1e-9)
}

func TestComputeCaseKLDivergencesReturnsOnePerRow(t *testing.T) {
	p, relevant := newProcessor(t, fiveRowCoords(), 2)
	convictions, err := p.ComputeCaseKLDivergences(context.Background(), relevant, true, true)
	require.NoError(t, err)
	require.Len(t, convictions, relevant.Len())
	for _, c := range convictions {
		require.False(t, math.IsNaN(c))
	}
}

func TestComputeCaseGroupKLDivergenceIsFinite(t *testing.T) {
	p, relevant := newProcessor(t, fiveRowCoords(), 2)
	baseGroup := intset.FromSlice([]uint32{0, 1, 2})
	_ = relevant

	div, err := p.ComputeCaseGroupKLDivergence(context.Background(), baseGroup, true)
	require.NoError(t, err)
	require.False(t, math.IsNaN(div))
	require.False(t, math.IsInf(div, 0))
}

func TestComputeNeighborWeightsForRowsAccumulatesNonzero(t *testing.T) {
	p, relevant := newProcessor(t, fiveRowCoords(), 2)
	weights, err := p.ComputeNeighborWeightsForRows(context.Background(), relevant)
	require.NoError(t, err)
	require.NotEmpty(t, weights)
	for _, w := range weights {
		require.Greater(t, w.Value, 0.0)
	}
}

func TestComputeDistanceContributionsOnPositionsSkipsNilPositions(t *testing.T) {
	p, _ := newProcessor(t, fiveRowCoords(), 2)
	positions := [][]svalue.Value{
		{svalue.Num(0), svalue.Num(0)},
		nil,
	}
	contribs, err := p.ComputeDistanceContributionsOnPositions(context.Background(), positions)
	require.NoError(t, err)
	require.Len(t, contribs, 2)
	require.False(t, math.IsNaN(contribs[0]))
	require.True(t, math.IsNaN(contribs[1]))
}

func TestSurprisalTransformDefaultsToUnitWeight(t *testing.T) {
	tr := &conviction.SurprisalTransform{}
	require.Equal(t, 1.0, tr.EntityWeight(0))

	neighbors := []datastore.DistanceRef{{Row: 0, Distance: 0}, {Row: 1, Distance: 1}}
	tr.TransformDistances(neighbors, false)
	require.InDelta(t, 1.0, neighbors[0].Distance, 1e-9)
	require.InDelta(t, math.Exp(-1), neighbors[1].Distance, 1e-9)
}
