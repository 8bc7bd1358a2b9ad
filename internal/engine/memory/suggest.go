package memory

import (
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/utafrali/storefront-search/internal/engine"
)

// suggest proposes corrected terms for a term that matched nothing. Every
// unknown word is replaced by its k-th closest vocabulary word to form the
// k-th suggestion, so the first suggestion is the most confident one.
// Callers must hold the read lock.
func (e *Engine) suggest(termLower string) []string {
	words := strings.Fields(termLower)
	if len(words) == 0 {
		return []string{}
	}

	corrections := make([][]string, len(words))
	depth := 0
	for i, w := range words {
		if _, known := e.vocabulary[w]; known {
			corrections[i] = []string{w}
			continue
		}
		closest := e.closest(w)
		if len(closest) == 0 {
			return []string{}
		}
		corrections[i] = closest
		depth = max(depth, len(closest))
	}

	suggestions := make([]string, 0, depth)
	for k := 0; k < depth && len(suggestions) < engine.MaxSuggestions; k++ {
		parts := make([]string, len(words))
		for i, c := range corrections {
			parts[i] = c[min(k, len(c)-1)]
		}
		s := strings.Join(parts, " ")
		if s == termLower || slices.Contains(suggestions, s) {
			continue
		}
		suggestions = append(suggestions, s)
	}
	return suggestions
}

type candidate struct {
	word     string
	distance int
	freq     int
}

// closest returns vocabulary words within the allowed edit distance of w,
// nearest first, then most frequent, then alphabetical.
func (e *Engine) closest(w string) []string {
	maxDist := maxEdits(w)
	candidates := make([]candidate, 0)
	for word, freq := range e.vocabulary {
		d := levenshtein(w, word)
		if d == 0 || d > maxDist {
			continue
		}
		candidates = append(candidates, candidate{word: word, distance: d, freq: freq})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.freq != b.freq {
			return a.freq > b.freq
		}
		return a.word < b.word
	})

	out := make([]string, 0, min(len(candidates), engine.MaxSuggestions))
	for _, c := range candidates {
		if len(out) == engine.MaxSuggestions {
			break
		}
		out = append(out, c.word)
	}
	return out
}

// maxEdits mirrors Elasticsearch AUTO fuzziness: 0 edits up to 2 runes,
// 1 edit up to 5 runes, 2 edits beyond.
func maxEdits(w string) int {
	switch n := utf8.RuneCountInString(w); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// levenshtein computes the rune-wise edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
