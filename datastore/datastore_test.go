package datastore_test

import (
	"context"
	"math"
	"testing"

	"github.com/amalgam-go/sbfds/datastore"
	"github.com/amalgam-go/sbfds/distance"
	"github.com/amalgam-go/sbfds/internal/xrand"
	"github.com/amalgam-go/sbfds/svalue"
	"github.com/stretchr/testify/require"
)

type row map[string]svalue.Value

func (r row) LabelValue(label string) (svalue.Value, bool) {
	v, ok := r[label]
	return v, ok
}

func buildStore(t *testing.T, rows []row) *datastore.DataStore {
	t.Helper()
	ds := datastore.New(nil, nil)
	entities := make([]datastore.Entity, len(rows))
	for i, r := range rows {
		entities[i] = r
	}
	err := ds.AddLabels(context.Background(), []string{"x", "y"}, entities)
	require.NoError(t, err)
	return ds
}

func TestAddLabelsAndEqualsQuery(t *testing.T) {
	ds := buildStore(t, []row{
		{"x": svalue.Num(1), "y": svalue.Num(10)},
		{"x": svalue.Num(2), "y": svalue.Num(20)},
		{"x": svalue.Num(1), "y": svalue.Num(30)},
	})
	require.Equal(t, 3, ds.NumInsertedEntities())
	require.True(t, ds.HasLabel("x"))
	require.False(t, ds.HasLabel("z"))

	matches := ds.FindAllEqualTo("x", svalue.Num(1))
	require.Equal(t, 2, matches.Len())
	require.True(t, matches.Contains(0))
	require.True(t, matches.Contains(2))
}

func TestWithinRangeContainsExactEquals(t *testing.T) {
	ds := buildStore(t, []row{
		{"x": svalue.Num(5), "y": svalue.Num(1)},
		{"x": svalue.Num(9), "y": svalue.Num(2)},
	})
	rows := ds.FindAllWithinRange("x", svalue.Num(5), svalue.Num(5), true)
	require.Equal(t, 1, rows.Len())
	require.True(t, rows.Contains(0))
}

func TestAddEntityThenRemoveEntityRoundTrips(t *testing.T) {
	ds := buildStore(t, []row{
		{"x": svalue.Num(1), "y": svalue.Num(10)},
		{"x": svalue.Num(2), "y": svalue.Num(20)},
	})
	newRow := ds.AddEntity(row{"x": svalue.Num(3), "y": svalue.Num(30)})
	require.Equal(t, 2, newRow)
	require.Equal(t, 3, ds.NumInsertedEntities())

	// remove row 0, reassigning the last row (2) into its place
	err := ds.RemoveEntity(0, 2)
	require.NoError(t, err)
	require.Equal(t, 2, ds.NumInsertedEntities())

	v, ok := ds.NumberValue("x", 0)
	require.True(t, ok)
	require.Equal(t, 3.0, v) // former row 2's value moved into row 0
}

func TestFindEntitiesWithinDistanceEuclidean(t *testing.T) {
	ds := buildStore(t, []row{
		{"x": svalue.Num(0), "y": svalue.Num(0)},
		{"x": svalue.Num(3), "y": svalue.Num(4)}, // distance 5 from origin
		{"x": svalue.Num(10), "y": svalue.Num(10)},
	})
	fp := distance.FeatureParams{Kind: distance.ContinuousNumeric, Weight: 1, Deviation: math.NaN(), KnownToUnknown: math.NaN(), UnknownToUnknown: math.NaN(), MaxDifference: 20}
	eval := distance.New(2, []distance.FeatureParams{fp, fp}, nil)

	candidates := ds.FindAllWithFeature("x")
	results := ds.FindEntitiesWithinDistance(eval, []string{"x", "y"},
		[]svalue.Value{svalue.Num(0), svalue.Num(0)}, 5.0, "", candidates)

	require.Len(t, results, 2)
	rowsSeen := map[uint32]bool{}
	for _, r := range results {
		rowsSeen[r.Row] = true
	}
	require.True(t, rowsSeen[0])
	require.True(t, rowsSeen[1])
	require.False(t, rowsSeen[2])
}

func TestFindNearestEntitiesReturnsClosestFirst(t *testing.T) {
	ds := buildStore(t, []row{
		{"x": svalue.Num(0), "y": svalue.Num(0)},
		{"x": svalue.Num(100), "y": svalue.Num(100)},
		{"x": svalue.Num(1), "y": svalue.Num(1)},
	})
	fp := distance.FeatureParams{Kind: distance.ContinuousNumeric, Weight: 1, Deviation: math.NaN(), KnownToUnknown: math.NaN(), UnknownToUnknown: math.NaN(), MaxDifference: 200}
	eval := distance.New(2, []distance.FeatureParams{fp, fp}, nil)

	candidates := ds.FindAllWithFeature("x")
	scratch := datastore.NewScratchBuffers(xrand.New(1, 2))
	results, err := ds.FindNearestEntities(eval, []string{"x", "y"},
		[]svalue.Value{svalue.Num(0), svalue.Num(0)}, 2, false, "", -1, candidates, scratch)

	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, uint32(0), results[0].Row)
	require.Equal(t, uint32(2), results[1].Row)
}

func TestFindNearestEntitiesExpandZeroKeepsTiedZeroDistances(t *testing.T) {
	ds := buildStore(t, []row{
		{"x": svalue.Num(0), "y": svalue.Num(0)},
		{"x": svalue.Num(0), "y": svalue.Num(0)}, // exact tie with row 0
		{"x": svalue.Num(0), "y": svalue.Num(0)}, // exact tie with row 0
		{"x": svalue.Num(5), "y": svalue.Num(5)},
	})
	fp := distance.FeatureParams{Kind: distance.ContinuousNumeric, Weight: 1, Deviation: math.NaN(), KnownToUnknown: math.NaN(), UnknownToUnknown: math.NaN(), MaxDifference: 200}
	eval := distance.New(2, []distance.FeatureParams{fp, fp}, nil)

	candidates := ds.FindAllWithFeature("x")
	scratch := datastore.NewScratchBuffers(xrand.New(1, 2))

	// topK=1 without expansion returns only one of the three zero-distance ties.
	results, err := ds.FindNearestEntities(eval, []string{"x", "y"},
		[]svalue.Value{svalue.Num(0), svalue.Num(0)}, 1, false, "", -1, candidates, scratch)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// with expandZero, every tied zero-distance candidate is kept even though topK=1.
	results, err = ds.FindNearestEntities(eval, []string{"x", "y"},
		[]svalue.Value{svalue.Num(0), svalue.Num(0)}, 1, true, "", -1, candidates, scratch)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		require.Equal(t, 0.0, r.Distance)
	}
}

func TestRemoveUnusedLabelsDropsFullyInvalidColumn(t *testing.T) {
	ds := datastore.New(nil, nil)
	entities := []datastore.Entity{row{"x": svalue.Num(1)}, row{"x": svalue.Num(2)}}
	require.NoError(t, ds.AddLabels(context.Background(), []string{"x", "unused"}, entities))
	require.True(t, ds.HasLabel("unused"))

	ds.RemoveUnusedLabels()
	require.False(t, ds.HasLabel("unused"))
	require.True(t, ds.HasLabel("x"))
}
