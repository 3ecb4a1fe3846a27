// Package fuzzy scores how well a short term appears inside a longer, possibly
// noisy text. Inputs are compared as-is; callers lowercase them first.
package fuzzy

import "strings"

// DefaultThreshold is the similarity a vocabulary term needs to count as present.
const DefaultThreshold = 85.0

// Edit costs. A substitution is charged as a deletion plus an insertion, so
// "rust" against "just" scores 75 while the transposed "pyhton" still scores 91.7.
const (
	costIndel         = 1
	costSubstitution  = 2
	costTransposition = 1
)

// Similarity returns the best alignment score in [0,100] of needle against any
// substring of haystack. Windows one rune longer than the needle are tried as
// well so a single doubled character still aligns.
func Similarity(needle, haystack string) float64 {
	if needle == "" {
		return 0
	}

	if strings.Contains(haystack, needle) {
		return 100
	}

	a := []rune(needle)
	h := []rune(haystack)
	if len(h) <= len(a) {
		return ratio(a, h)
	}

	best := 0.0
	for size := len(a); size <= len(a)+1 && size <= len(h); size++ {
		for start := 0; start+size <= len(h); start++ {
			if score := ratio(a, h[start:start+size]); score > best {
				best = score
			}
		}
	}

	return best
}

// Matches reports whether Similarity reaches threshold.
func Matches(needle, haystack string, threshold float64) bool {
	return Similarity(needle, haystack) >= threshold
}

// ratio normalises the weighted edit distance by the combined length.
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}

	d := distance(a, b)
	if d > total {
		d = total
	}

	return 100 * float64(total-d) / float64(total)
}

// distance is the optimal string alignment distance with the weights above.
// Each substring is edited at most once, as in the unit-cost variant.
func distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b) * costIndel
	}
	if len(b) == 0 {
		return len(a) * costIndel
	}

	prev2 := make([]int, len(b)+1)
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j * costIndel
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i * costIndel
		for j := 1; j <= len(b); j++ {
			sub := costSubstitution
			if a[i-1] == b[j-1] {
				sub = 0
			}

			curr[j] = min(prev[j]+costIndel, curr[j-1]+costIndel, prev[j-1]+sub)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] && a[i-1] != b[j-1] {
				curr[j] = min(curr[j], prev2[j-2]+costTransposition)
			}
		}
		prev2, prev, curr = prev, curr, prev2
	}

	return prev[len(b)]
}
