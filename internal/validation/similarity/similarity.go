// Package similarity scores how close two normalized strings are using
// unit-cost edit distance.
package similarity

// Levenshtein returns the minimum number of single-rune insertions, deletions,
// or substitutions that turn a into b.
//
// Time complexity: O(len(a) * len(b))
// Space complexity: O(min(len(a), len(b))).
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	return distance([]rune(a), []rune(b))
}

func distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Keep the shorter string on the row axis.
	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[i] = min(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(a)]
}

// Similarity returns 1 - d/max(len(a), len(b)) over runes, clamped to [0,1].
// Two empty strings are an exact match and score 1.
//
// Callers pass strings already canonicalized by strings.Normalize.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}

	s := 1 - float64(distance(ra, rb))/float64(longest)
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}
