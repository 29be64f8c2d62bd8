package distance_test

import (
	"math"
	"testing"

	"github.com/amalgam-go/sbfds/distance"
	"github.com/amalgam-go/sbfds/svalue"
	"github.com/stretchr/testify/require"
)

func euclideanEvaluator(n int) *distance.Evaluator {
	fs := make([]distance.FeatureParams, n)
	for i := range fs {
		fs[i] = distance.FeatureParams{
			Kind:             distance.ContinuousNumeric,
			Weight:           1,
			Deviation:        math.NaN(),
			KnownToUnknown:   math.NaN(),
			UnknownToUnknown: math.NaN(),
			MaxDifference:    100,
		}
	}
	return distance.New(2, fs, nil)
}

func TestContinuousNumericTermIsSquaredAbsDiff(t *testing.T) {
	e := euclideanEvaluator(1)
	term, err := e.ComputeTerm(0, svalue.Num(3), svalue.Num(7), true)
	require.NoError(t, err)
	require.InDelta(t, 16.0, term, 1e-9) // |3-7|^2
}

func TestInverseExponentiateSumRoot(t *testing.T) {
	e := euclideanEvaluator(1)
	sum := 25.0
	require.InDelta(t, 5.0, e.InverseExponentiateSum(sum, true), 1e-9)
}

func TestNominalSymmetricMatchesZeroNonMatchFixed(t *testing.T) {
	fp := distance.FeatureParams{
		Kind:             distance.NominalString,
		Weight:           1,
		Deviation:        math.NaN(),
		KnownToUnknown:   math.NaN(),
		UnknownToUnknown: math.NaN(),
		MaxDifference:    1,
	}
	e := distance.New(2, []distance.FeatureParams{fp}, nil)

	match, err := e.ComputeTerm(0, svalue.Str(5), svalue.Str(5), true)
	require.NoError(t, err)
	require.Equal(t, 0.0, match)

	nonMatch, err := e.ComputeTerm(0, svalue.Str(5), svalue.Str(6), true)
	require.NoError(t, err)
	require.Greater(t, nonMatch, 0.0)
}

func TestNominalSymmetryABEqualsBA(t *testing.T) {
	fp := distance.FeatureParams{
		Kind: distance.NominalNumeric, Weight: 1,
		Deviation: math.NaN(), KnownToUnknown: math.NaN(), UnknownToUnknown: math.NaN(),
		MaxDifference: 3,
	}
	e := distance.New(2, []distance.FeatureParams{fp}, nil)
	ab, _ := e.ComputeTerm(0, svalue.Num(1), svalue.Num(2), true)
	ba, _ := e.ComputeTerm(0, svalue.Num(2), svalue.Num(1), true)
	require.Equal(t, ab, ba)
}

func TestCyclicDistanceNeverExceedsHalfCycle(t *testing.T) {
	fp := distance.FeatureParams{
		Kind: distance.ContinuousNumericCyclic, Weight: 1,
		Deviation: math.NaN(), KnownToUnknown: math.NaN(), UnknownToUnknown: math.NaN(),
		CycleLength: 10, MaxDifference: 5,
	}
	e := distance.New(1, []distance.FeatureParams{fp}, nil)
	term, err := e.ComputeTerm(0, svalue.Num(0), svalue.Num(9), true)
	require.NoError(t, err)
	require.LessOrEqual(t, term, 5.0)
	require.InDelta(t, 1.0, term, 1e-9) // wraps: min(9, 1) = 1
}

func TestUnknownRoutesThroughKnownUnknownTerm(t *testing.T) {
	fp := distance.FeatureParams{
		Kind: distance.ContinuousNumeric, Weight: 1,
		Deviation: math.NaN(), KnownToUnknown: 42, UnknownToUnknown: 99,
		MaxDifference: 100,
	}
	e := distance.New(1, []distance.FeatureParams{fp}, nil)

	term, err := e.ComputeTerm(0, svalue.Num(5), svalue.NullVal(), true)
	require.NoError(t, err)
	require.Equal(t, 42.0, term)

	term, err = e.ComputeTerm(0, svalue.NullVal(), svalue.NullVal(), true)
	require.NoError(t, err)
	require.Equal(t, 99.0, term)
}

func TestWeightZeroStripped(t *testing.T) {
	fs := []distance.FeatureParams{
		{Kind: distance.ContinuousNumeric, Weight: 0, Deviation: math.NaN(), KnownToUnknown: math.NaN(), UnknownToUnknown: math.NaN(), MaxDifference: 1},
		{Kind: distance.ContinuousNumeric, Weight: 1, Deviation: math.NaN(), KnownToUnknown: math.NaN(), UnknownToUnknown: math.NaN(), MaxDifference: 1},
	}
	e := distance.New(2, fs, nil)
	pruned, kept := e.WithoutZeroWeightFeatures()
	require.Len(t, pruned.Features, 1)
	require.Equal(t, []int{1}, kept)
}

type fakeResolver map[uint64]string

func (f fakeResolver) Lookup(id uint64) (string, bool) { s, ok := f[id]; return s, ok }

func TestContinuousStringNormalizedEditDistance(t *testing.T) {
	resolver := fakeResolver{1: "kitten", 2: "sitting"}
	fp := distance.FeatureParams{
		Kind: distance.ContinuousString, Weight: 1,
		Deviation: math.NaN(), KnownToUnknown: math.NaN(), UnknownToUnknown: math.NaN(),
		MaxDifference: 1,
	}
	e := distance.New(1, []distance.FeatureParams{fp}, resolver)
	term, err := e.ComputeTerm(0, svalue.Str(1), svalue.Str(2), true)
	require.NoError(t, err)
	require.InDelta(t, 3.0/7.0, term, 1e-9) // edit distance 3, normalized by len("sitting")=7
}
