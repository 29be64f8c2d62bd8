package distance

import (
	"math"

	"github.com/amalgam-go/sbfds/svalue"
)

// ComputeTerm is the single entry point for computing one feature's
// weighted, p-exponentiated distance term between a query value a and a
// stored value b (the order every caller in this module uses), handling null/invalid semantics first (spec.md §4.3,
// §4.5.1): NaN/Null values route through the known-unknown /
// unknown-unknown terms rather than the feature's normal comparison.
func (e *Evaluator) ComputeTerm(featureIndex int, a, b svalue.Value, highAccuracy bool) (float64, error) {
	if featureIndex < 0 || featureIndex >= len(e.Features) {
		return 0, ErrFeatureIndexOutOfRange
	}
	fp := &e.Features[featureIndex]

	aUnknown := a.Kind == svalue.Invalid || a.IsNullEquivalent()
	bUnknown := b.Kind == svalue.Invalid || b.IsNullEquivalent()

	var diff float64
	switch {
	case aUnknown && bUnknown:
		diff = fp.UnknownToUnknown
	case aUnknown || bUnknown:
		diff = fp.KnownToUnknown
	default:
		diff = e.rawDifference(fp, a, b)
	}

	if math.IsNaN(diff) {
		diff = fp.UnknownToUnknown
	}
	return fp.Weight * e.ExponentiateTerm(diff, highAccuracy), nil
}

// rawDifference computes the un-exponentiated, un-weighted difference
// between two known (non-null, non-invalid) values, per feature kind.
func (e *Evaluator) rawDifference(fp *FeatureParams, a, b svalue.Value) float64 {
	switch fp.Kind {
	case NominalNumeric, NominalString, NominalCode:
		return e.nominalTerm(fp, a, b)
	case ContinuousNumeric:
		return smoothDeviation(math.Abs(a.Number-b.Number), fp.Deviation)
	case ContinuousNumericCyclic:
		diff := math.Abs(a.Number - b.Number)
		wrapped := math.Min(diff, fp.CycleLength-diff)
		return smoothDeviation(wrapped, fp.Deviation)
	case ContinuousString:
		return smoothDeviation(e.stringDistance(a.StringID, b.StringID), fp.Deviation)
	case ContinuousCode:
		return codeEditDistance(a.Code, b.Code)
	default:
		return fp.UnknownToUnknown
	}
}

// smoothDeviation applies the "effective difference = max(diff -
// deviation, 0)" smoothing of spec.md §4.3 when a deviation is given.
func smoothDeviation(diff, deviation float64) float64 {
	if math.IsNaN(deviation) {
		return diff
	}
	return math.Max(diff-deviation, 0)
}

// nominalTerm handles both symmetric and asymmetric nominal comparison.
// With no overrides table, it is symmetric: a match (possibly smoothed by
// deviation) emits 0 (or the deviation term), a non-match emits
// MaxDifference (plus Deviation when one is set). With an overrides
// table, lookup is
// keyed by a: asymmetric nominal costs depend on which value is being
// compared *from*.
func (e *Evaluator) nominalTerm(fp *FeatureParams, a, b svalue.Value) float64 {
	match := a.Equal(b)

	if fp.NominalOverrides != nil {
		terms, ok := fp.NominalOverrides[a]
		if !ok {
			terms = NominalTerms{Match: symmetricMatchTerm(fp), NonMatch: symmetricNonMatchTerm(fp)}
		}
		if match {
			return terms.Match
		}
		return terms.NonMatch
	}

	if match {
		return symmetricMatchTerm(fp)
	}
	return symmetricNonMatchTerm(fp)
}

func symmetricMatchTerm(fp *FeatureParams) float64 {
	if math.IsNaN(fp.Deviation) {
		return 0
	}
	return fp.Deviation
}

func symmetricNonMatchTerm(fp *FeatureParams) float64 {
	if !math.IsNaN(fp.Deviation) {
		return fp.Deviation + fp.MaxDifference
	}
	return fp.MaxDifference
}

// NonMatchTerm exposes the non-match term for a feature — used by
// populate-partial-sums-with-similar-values (§4.5.1), which needs to know
// "every un-populated row is at [this] distance" without comparing an
// actual pair of values.
func (e *Evaluator) NonMatchTerm(featureIndex int) (float64, error) {
	if featureIndex < 0 || featureIndex >= len(e.Features) {
		return 0, ErrFeatureIndexOutOfRange
	}
	fp := &e.Features[featureIndex]
	return fp.Weight * e.ExponentiateTerm(symmetricNonMatchTerm(fp), true), nil
}

// stringDistance resolves both ids through e.Strings and returns their
// normalized edit distance. If no resolver is configured, or either id
// fails to resolve, it degrades to an identity comparison (0 if the ids
// are equal, 1 otherwise) rather than panicking.
func (e *Evaluator) stringDistance(idA, idB uint64) float64 {
	if e.Strings == nil {
		if idA == idB {
			return 0
		}
		return 1
	}
	a, okA := e.Strings.Lookup(idA)
	b, okB := e.Strings.Lookup(idB)
	if !okA || !okB {
		if idA == idB {
			return 0
		}
		return 1
	}
	return normalizedEditDistance(a, b)
}
