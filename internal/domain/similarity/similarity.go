// Package similarity provides the pure scoring primitives used by the
// transaction matcher and the categorization resolver.
//
// All functions return a normalized score in [0, 1] and have no side
// effects, which keeps the matching pipeline deterministic and easy to
// test in isolation.
package similarity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Amount banding: an exact match scores 1.0, then calibrated bands based
// on the relative difference against the average magnitude.
const (
	amountBandTight  = 0.01 // within 1%
	amountBandClose  = 0.05 // within 5%
	amountBandLoose  = 0.10 // within 10%
	amountScoreTight = 0.95
	amountScoreClose = 0.8
	amountScoreLoose = 0.6
)

// Amount scores how close two monetary amounts are. Symmetric and
// zero-safe: two exact zeros score 1.0, a zero against a non-zero
// amount scores 0.
func Amount(a, b decimal.Decimal) float64 {
	if a.Equal(b) {
		return 1.0
	}

	avg := a.Abs().Add(b.Abs()).Div(decimal.NewFromInt(2))
	if avg.IsZero() {
		return 0
	}

	ratio, _ := a.Sub(b).Abs().Div(avg).Float64()
	switch {
	case ratio <= amountBandTight:
		return amountScoreTight
	case ratio <= amountBandClose:
		return amountScoreClose
	case ratio <= amountBandLoose:
		return amountScoreLoose
	default:
		return 0
	}
}

// Date scores two dates by absolute day difference as a monotonically
// decreasing step function.
func Date(d1, d2 time.Time) float64 {
	diff := d1.Sub(d2)
	if diff < 0 {
		diff = -diff
	}
	days := int(diff.Hours() / 24)

	switch {
	case days == 0:
		return 1.0
	case days <= 3:
		return 0.9
	case days <= 7:
		return 0.7
	case days <= 14:
		return 0.5
	case days <= 30:
		return 0.3
	default:
		return 0
	}
}

// textOverlapCeiling bounds the character-overlap fallback so it stays a
// weak confirming signal, below substring containment.
const textOverlapCeiling = 0.6

// Text scores two free-text strings case-insensitively. An exact match
// scores 1.0, substring containment 0.8, otherwise a bounded overlap
// ratio over the distinct characters shared by both strings. This is
// deliberately not an edit-distance metric; it is order-insensitive and
// cheap. Use Vendor for name comparisons where order matters.
func Text(s1, s2 string) float64 {
	s1 = strings.ToLower(strings.TrimSpace(s1))
	s2 = strings.ToLower(strings.TrimSpace(s2))

	if s1 == "" || s2 == "" {
		return 0
	}
	if s1 == s2 {
		return 1.0
	}
	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		return 0.8
	}

	set1 := runeSet(s1)
	set2 := runeSet(s2)

	shared := 0
	for r := range set1 {
		if set2[r] {
			shared++
		}
	}

	larger := len(set1)
	if len(set2) > larger {
		larger = len(set2)
	}
	if larger == 0 {
		return 0
	}

	return float64(shared) / float64(larger) * textOverlapCeiling
}

// Vendor scores two vendor names using true Levenshtein distance,
// normalized to [0, 1]. Case-insensitive and whitespace-trimmed.
func Vendor(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == "" && b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}

	return 1.0 - float64(Levenshtein(a, b))/float64(maxLen)
}

// Levenshtein computes the edit distance between two strings, counted
// in runes.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func runeSet(s string) map[rune]bool {
	set := make(map[rune]bool, len(s))
	for _, r := range s {
		if r == ' ' {
			continue
		}
		set[r] = true
	}
	return set
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
