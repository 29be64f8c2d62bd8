package distance

import (
	"github.com/amalgam-go/sbfds/svalue"
)

// normalizedEditDistance returns the Levenshtein edit distance between a
// and b, normalized to [0, 1] by dividing by the longer string's rune
// count (so two empty strings are distance 0, and any pair of non-empty
// strings with no characters in common is distance 1).
//
// No edit-distance library appears anywhere in the retrieved example
// pack, so this is hand-rolled stdlib (unicode/utf8 for rune decoding) —
// see DESIGN.md for why that is the documented exception rather than an
// unexamined default.
func normalizedEditDistance(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 0
	}

	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}

	return float64(levenshtein(ra, rb)) / float64(longest)
}

// levenshtein computes classic edit distance with a two-row rolling DP,
// keeping space to O(len(b)) instead of the full n*m table.
func levenshtein(a, b []rune) int {
	n, m := len(a), len(b)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}

	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}

	for i := 1; i <= n; i++ {
		curr[0] = i
		for j := 1; j <= m; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[m]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// codeEditDistance returns the deep-size edit distance between two
// evaluable code structures: a cheap structural proxy (absolute
// difference in deep-size) when either reference is nil or DeepEquals
// reports equality, and the larger DeepSize as the maximal distance
// otherwise — the core never introspects code structure itself (§9: code
// values are non-owning references only exposing DeepEquals/DeepSize).
func codeEditDistance(a, b svalue.CodeRef) float64 {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0
		}
		if a != nil {
			return float64(a.DeepSize())
		}
		return float64(b.DeepSize())
	}
	if a.DeepEquals(b) {
		return 0
	}
	sizeA, sizeB := a.DeepSize(), b.DeepSize()
	if sizeA > sizeB {
		return float64(sizeA)
	}
	return float64(sizeB)
}
