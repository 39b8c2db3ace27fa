// Package similarity scores how alike two game names are using a
// normalized Damerau-Levenshtein distance, and classifies candidate
// pairs for the synchronizer's discovery pass. Names are folded
// (case, diacritics, punctuation, whitespace) before comparison so
// "Disco Elysium" and "disco  élysium!" score as identical.
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Class is the classification of a candidate pair.
type Class int

const (
	// None means the pair is not considered a match.
	None Class = iota
	// Possible means the pair is close enough to suggest for manual review.
	Possible
	// Match means the pair is close enough to treat as the same title.
	Match
)

// String returns the string representation of the classification.
func (c Class) String() string {
	switch c {
	case Match:
		return "match"
	case Possible:
		return "possible"
	default:
		return "none"
	}
}

// Default classification thresholds over the normalized score.
const (
	DefaultMatchMax    = 0.15
	DefaultPossibleMax = 0.35
)

// foldTransformer strips diacritical marks after NFD decomposition.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds a name for comparison: lowercase, diacritics removed,
// punctuation dropped, whitespace trimmed and collapsed.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// fold punctuation entirely
		default:
			if space && b.Len() > 0 {
				b.WriteRune(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Distance computes the optimal string alignment Damerau-Levenshtein
// distance between two strings: substitutions, insertions, deletions and
// adjacent transpositions, each at unit cost.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// Three rolling rows: two back, one back, current.
	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d := min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d = min(d, prev2[j-2]+1)
			}
			curr[j] = d
		}
		prev2, prev, curr = prev, curr, prev2
	}
	return prev[lb]
}

// Similarity returns the normalized edit distance between two names after
// folding: 0 means identical, 1 maximally dissimilar. The raw distance is
// divided by the longer folded length. Deterministic and symmetric.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	longest := max(len([]rune(na)), len([]rune(nb)))
	if longest == 0 {
		return 0
	}
	return float64(Distance(na, nb)) / float64(longest)
}

// Matcher classifies candidate pairs using configurable thresholds.
type Matcher struct {
	// MatchMax is the highest score still classified as Match.
	MatchMax float64
	// PossibleMax is the highest score still classified as Possible.
	PossibleMax float64
}

// NewMatcher creates a matcher with the given thresholds. Non-positive
// thresholds fall back to the defaults.
func NewMatcher(matchMax, possibleMax float64) *Matcher {
	if matchMax <= 0 {
		matchMax = DefaultMatchMax
	}
	if possibleMax <= 0 {
		possibleMax = DefaultPossibleMax
	}
	return &Matcher{MatchMax: matchMax, PossibleMax: possibleMax}
}

// Classify maps a similarity score to a classification.
func (m *Matcher) Classify(score float64) Class {
	switch {
	case score <= m.MatchMax:
		return Match
	case score <= m.PossibleMax:
		return Possible
	default:
		return None
	}
}

// Suggestion is the result of searching candidates for the closest name.
type Suggestion struct {
	Original string
	Closest  string
	Score    float64
	Class    Class
}

// FindClosest scans candidates for the name with the lowest score against
// original. The suggestion's Class is None when nothing scores within
// PossibleMax; ties keep the first candidate in slice order.
func (m *Matcher) FindClosest(original string, candidates []string) Suggestion {
	best := Suggestion{Original: original, Score: 1, Class: None}
	for _, candidate := range candidates {
		score := Similarity(original, candidate)
		if best.Closest == "" || score < best.Score {
			best.Closest = candidate
			best.Score = score
		}
	}
	if best.Closest != "" {
		best.Class = m.Classify(best.Score)
	}
	if best.Class == None {
		best.Closest = ""
	}
	return best
}
