package distance

import (
	"errors"
	"math"

	"github.com/amalgam-go/sbfds/svalue"
)

// Sentinel errors for distance evaluator construction and use.
var (
	// ErrZeroPValue indicates a p-value of exactly 0 was used against a
	// cache-backed query, which spec.md §3/§7 disallows.
	ErrZeroPValue = errors.New("distance: p-value of 0 is not valid for cache-backed queries")

	// ErrFeatureIndexOutOfRange indicates a query referenced a feature
	// index beyond the Evaluator's configured feature list.
	ErrFeatureIndexOutOfRange = errors.New("distance: feature index out of range")
)

// Kind is one of the seven feature kinds spec.md §3 defines.
type Kind uint8

const (
	NominalNumeric Kind = iota
	NominalString
	NominalCode
	ContinuousNumeric
	ContinuousNumericCyclic
	ContinuousString
	ContinuousCode
)

// NominalTerms holds the asymmetric-nominal match/non-match cost pair for
// one specific value.
type NominalTerms struct {
	Match    float64
	NonMatch float64
}

// FeatureParams configures distance computation for one feature/label.
type FeatureParams struct {
	Kind Kind

	// Weight of zero disables the feature; callers (datastore) strip
	// zero-weight features before search rather than paying the cost of
	// a zero multiply per row, per spec.md §4.3.
	Weight float64

	// Deviation smooths small differences; NaN means "unknown" (no
	// smoothing applied).
	Deviation float64

	// KnownToUnknown / UnknownToUnknown are the costs of comparing a
	// known value against a missing one, and two missing values against
	// each other. NaN defaults to MaxDifference (see ResolveDefaults).
	KnownToUnknown   float64
	UnknownToUnknown float64

	// CycleLength is only meaningful for ContinuousNumericCyclic.
	CycleLength float64

	// NominalOverrides optionally overrides the match/non-match term for
	// specific values of a nominal feature; nil means "use the deviation-
	// derived default for every value."
	NominalOverrides map[svalue.Value]NominalTerms

	// MaxDifference is the maximum observable difference for this
	// feature, set by whoever builds the FeatureParams; datastore does not
	// fill it in, and the Evaluator itself never touches column data. Used
	// to default KnownToUnknown/UnknownToUnknown when they are NaN.
	MaxDifference float64
}

// ResolveDefaults fills NaN KnownToUnknown/UnknownToUnknown from
// MaxDifference, per spec.md §3. Idempotent.
func (fp *FeatureParams) ResolveDefaults() {
	if math.IsNaN(fp.KnownToUnknown) {
		fp.KnownToUnknown = fp.MaxDifference
	}
	if math.IsNaN(fp.UnknownToUnknown) {
		fp.UnknownToUnknown = fp.MaxDifference
	}
}

// StringResolver resolves an interned string id back to its text, needed
// only by ContinuousString features (continuous-string distance operates
// on the actual characters, not the id). Satisfied by *svalue.InternPool.
type StringResolver interface {
	Lookup(id uint64) (string, bool)
}

// Evaluator is the per-query distance specialization: a shared Minkowski
// exponent P plus one FeatureParams per active feature, in the order the
// caller's position-label list names them.
type Evaluator struct {
	P        float64
	Features []FeatureParams

	// Strings resolves StringID values for ContinuousString features.
	// May be nil if no feature uses ContinuousString.
	Strings StringResolver
}

// New returns an Evaluator for the given exponent and features, resolving
// NaN known/unknown defaults on every feature.
func New(p float64, features []FeatureParams, strings StringResolver) *Evaluator {
	e := &Evaluator{P: p, Features: append([]FeatureParams(nil), features...), Strings: strings}
	for i := range e.Features {
		e.Features[i].ResolveDefaults()
	}
	return e
}

// WithoutZeroWeightFeatures returns a new Evaluator (and the surviving
// original feature indices, for callers that need to map back to label
// columns) with every zero-weight feature removed, per spec.md §4.3's
// "weight of zero erases the feature from the query entirely."
func (e *Evaluator) WithoutZeroWeightFeatures() (pruned *Evaluator, keptIndices []int) {
	kept := make([]FeatureParams, 0, len(e.Features))
	idx := make([]int, 0, len(e.Features))
	for i, fp := range e.Features {
		if fp.Weight != 0 {
			kept = append(kept, fp)
			idx = append(idx, i)
		}
	}
	return &Evaluator{P: e.P, Features: kept, Strings: e.Strings}, idx
}

// FastPath identifies the handful of p-values with a cheaper-than-math.Pow
// computation.
type FastPath int

const (
	FastPathNone FastPath = iota
	FastPathSqrt          // p == 0.5
	FastPathLinear        // p == 1
	FastPathSquare        // p == 2
	FastPathMax           // p == +Inf
)

// fastPath classifies e.P.
func (e *Evaluator) fastPath() FastPath {
	switch {
	case e.P == 1:
		return FastPathLinear
	case e.P == 2:
		return FastPathSquare
	case e.P == 0.5:
		return FastPathSqrt
	case math.IsInf(e.P, 1):
		return FastPathMax
	default:
		return FastPathNone
	}
}
