package partialsum_test

import (
	"testing"

	"github.com/amalgam-go/sbfds/partialsum"
	"github.com/stretchr/testify/require"
)

func TestAccumAddsAndMarksComputed(t *testing.T) {
	c := partialsum.New()
	c.ResizeAndClear(3, 2)

	loc0 := partialsum.GetAccumLocation(0)
	loc1 := partialsum.GetAccumLocation(1)

	c.Accum(0, loc0, 4.0)
	c.Accum(0, loc1, 9.0)

	n, sum := c.GetNumFilledAndSum(0)
	require.Equal(t, 2, n)
	require.Equal(t, 13.0, sum)
	require.True(t, c.IsFeatureAccumulated(0, 0))
	require.True(t, c.IsFeatureAccumulated(0, 1))
	require.False(t, c.IsFeatureAccumulated(0, 2))

	// row 1 untouched
	n1, sum1 := c.GetNumFilledAndSum(1)
	require.Equal(t, 0, n1)
	require.Equal(t, 0.0, sum1)
}

func TestAccumZeroMarksWithoutChangingSum(t *testing.T) {
	c := partialsum.New()
	c.ResizeAndClear(1, 1)
	loc := partialsum.GetAccumLocation(0)

	c.AccumZero(0, loc)
	require.Equal(t, 0.0, c.GetSum(0))
	require.True(t, c.IsFeatureAccumulated(0, 0))
}

func TestSetSumOverwrites(t *testing.T) {
	c := partialsum.New()
	c.ResizeAndClear(1, 1)
	c.Accum(0, partialsum.GetAccumLocation(0), 5)
	c.SetSum(0, 100)
	require.Equal(t, 100.0, c.GetSum(0))
	// mask untouched by SetSum
	require.True(t, c.IsFeatureAccumulated(0, 0))
}

func TestMoreThan64FeaturesSpansMultipleMaskBuckets(t *testing.T) {
	c := partialsum.New()
	c.ResizeAndClear(130, 1)

	for _, f := range []int{0, 63, 64, 65, 129} {
		c.Accum(0, partialsum.GetAccumLocation(f), 1)
	}
	n, sum := c.GetNumFilledAndSum(0)
	require.Equal(t, 5, n)
	require.Equal(t, 5.0, sum)
	require.True(t, c.IsFeatureAccumulated(0, 64))
	require.False(t, c.IsFeatureAccumulated(0, 66))
}

func TestResizeAndClearResetsAllRows(t *testing.T) {
	c := partialsum.New()
	c.ResizeAndClear(4, 2)
	c.Accum(0, partialsum.GetAccumLocation(0), 1)
	c.Accum(1, partialsum.GetAccumLocation(1), 2)

	c.ResizeAndClear(4, 2)
	n0, s0 := c.GetNumFilledAndSum(0)
	n1, s1 := c.GetNumFilledAndSum(1)
	require.Zero(t, n0)
	require.Zero(t, s0)
	require.Zero(t, n1)
	require.Zero(t, s1)
}

func TestIteratorWalksComputedFeatures(t *testing.T) {
	c := partialsum.New()
	c.ResizeAndClear(3, 1)
	c.Accum(0, partialsum.GetAccumLocation(0), 1)
	c.Accum(0, partialsum.GetAccumLocation(2), 1)

	it := c.BeginPartialSumIndex(0)
	var computed []int
	for !it.Done() {
		if it.IsIndexComputed() {
			computed = append(computed, it.Index())
		}
		it.Next()
	}
	require.Equal(t, []int{0, 2}, computed)
}
