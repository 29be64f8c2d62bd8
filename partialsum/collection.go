package partialsum

import "math/bits"

// AccumLocation is the precomputed (bucket, bit) pair for one feature
// index, returned by GetAccumLocation so hot accumulation loops don't
// recompute the division/modulo on every call.
type AccumLocation struct {
	bucket int
	bit    uint64
}

// Collection stores and accumulates partial distance sums for a
// batch of rows. Sums and computed-feature bitmasks are held in separate
// slices (rather than the interleaved union buffer of a from-scratch C
// implementation) since Go has no portable sum/mask union; the per-row
// addressing and bit layout are otherwise unchanged.
type Collection struct {
	sums  []float64
	masks []uint64

	numFeatures    int
	numInstances   int
	numMaskBuckets int
}

// New returns an empty Collection. Call ResizeAndClear before use.
func New() *Collection {
	return &Collection{numMaskBuckets: 1}
}

// Clear zeroes all sums and masks without changing the collection's shape.
func (c *Collection) Clear() {
	for i := range c.sums {
		c.sums[i] = 0
	}
	for i := range c.masks {
		c.masks[i] = 0
	}
}

// ResizeAndClear resizes the collection to hold numInstances rows of
// numFeatures dimensions each, and zeroes all data.
func (c *Collection) ResizeAndClear(numFeatures, numInstances int) {
	c.numFeatures = numFeatures
	c.numInstances = numInstances
	c.numMaskBuckets = (numFeatures + 63) / 64
	if c.numMaskBuckets == 0 {
		c.numMaskBuckets = 1
	}

	if cap(c.sums) >= numInstances {
		c.sums = c.sums[:numInstances]
	} else {
		c.sums = make([]float64, numInstances)
	}
	maskLen := c.numMaskBuckets * numInstances
	if cap(c.masks) >= maskLen {
		c.masks = c.masks[:maskLen]
	} else {
		c.masks = make([]uint64, maskLen)
	}
	c.Clear()
}

// NumFeatures returns the dimensionality the collection was sized for.
func (c *Collection) NumFeatures() int { return c.numFeatures }

// NumInstances returns the row count the collection was sized for.
func (c *Collection) NumInstances() int { return c.numInstances }

// GetAccumLocation returns the precomputed bucket/bit pair for featureIndex,
// to be passed to Accum/AccumZero repeatedly without
// recomputing the division.
func GetAccumLocation(featureIndex int) AccumLocation {
	return AccumLocation{bucket: featureIndex / 64, bit: uint64(1) << uint(featureIndex%64)}
}

func (c *Collection) maskOffset(partialSumIndex, bucket int) int {
	return partialSumIndex*c.numMaskBuckets + bucket
}

// Accum adds value into partialSumIndex's running sum and marks loc's
// feature as computed.
func (c *Collection) Accum(partialSumIndex int, loc AccumLocation, value float64) {
	c.sums[partialSumIndex] += value
	c.masks[c.maskOffset(partialSumIndex, loc.bucket)] |= loc.bit
}

// AccumZero marks loc's feature as computed without touching the sum —
// equivalent to Accum(idx, loc, 0) but skips the float add.
func (c *Collection) AccumZero(partialSumIndex int, loc AccumLocation) {
	c.masks[c.maskOffset(partialSumIndex, loc.bucket)] |= loc.bit
}

// GetNumFilled returns how many features have been accumulated into
// partialSumIndex so far.
func (c *Collection) GetNumFilled(partialSumIndex int) int {
	start := partialSumIndex * c.numMaskBuckets
	end := start + c.numMaskBuckets
	n := 0
	for _, m := range c.masks[start:end] {
		n += bits.OnesCount64(m)
	}
	return n
}

// GetSum returns the running sum for partialSumIndex.
func (c *Collection) GetSum(partialSumIndex int) float64 {
	return c.sums[partialSumIndex]
}

// GetNumFilledAndSum performs GetNumFilled and GetSum in one pass.
func (c *Collection) GetNumFilledAndSum(partialSumIndex int) (numFilled int, sum float64) {
	return c.GetNumFilled(partialSumIndex), c.sums[partialSumIndex]
}

// SetSum overwrites partialSumIndex's running sum without touching its mask.
func (c *Collection) SetSum(partialSumIndex int, value float64) {
	c.sums[partialSumIndex] = value
}

// IsFeatureAccumulated reports whether featureIndex has been accumulated
// into partialSumIndex's sum yet.
func (c *Collection) IsFeatureAccumulated(partialSumIndex, featureIndex int) bool {
	loc := GetAccumLocation(featureIndex)
	return c.masks[c.maskOffset(partialSumIndex, loc.bucket)]&loc.bit != 0
}

// Iterator walks feature indices 0..numFeatures-1 for one row, reporting
// which have been computed. populatePartialSums in datastore does not use
// it; it fills every feature for every candidate.
type Iterator struct {
	c               *Collection
	partialSumIndex int
	index           int
}

// BeginPartialSumIndex returns an Iterator positioned at feature 0 of
// partialSumIndex.
func (c *Collection) BeginPartialSumIndex(partialSumIndex int) *Iterator {
	return &Iterator{c: c, partialSumIndex: partialSumIndex, index: 0}
}

// Done reports whether the iterator has walked past the last feature.
func (it *Iterator) Done() bool { return it.index >= it.c.numFeatures }

// Index returns the current feature index.
func (it *Iterator) Index() int { return it.index }

// Next advances to the next feature index.
func (it *Iterator) Next() { it.index++ }

// IsIndexComputed reports whether the iterator's current feature index has
// been accumulated for its row.
func (it *Iterator) IsIndexComputed() bool {
	return it.c.IsFeatureAccumulated(it.partialSumIndex, it.index)
}
