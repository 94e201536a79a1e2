// Package fuzzy folds track names for loose comparison and finds near misses.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize lowercases text, strips accents and punctuation and collapses whitespace.
func (n *Normalizer) Normalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	text = strings.TrimSpace(text)

	return text
}

// CalculateSimilarity scores two strings in [0, 1] by longest common subsequence.
func (n *Normalizer) CalculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	return float64(n.longestCommonSubsequence(s1, s2)) / float64(max(len(s1), len(s2)))
}

// Closest returns the candidate most similar to target after normalization.
// ok is false when candidates is empty or nothing shares a character with target.
func (n *Normalizer) Closest(target string, candidates []string) (best string, score float64, ok bool) {
	normalizedTarget := n.Normalize(target)
	for _, candidate := range candidates {
		s := n.CalculateSimilarity(normalizedTarget, n.Normalize(candidate))
		if s > score {
			best, score, ok = candidate, s, true
		}
	}
	return best, score, ok
}

func (n *Normalizer) longestCommonSubsequence(s1, s2 string) int {
	rows, cols := len(s1), len(s2)
	dp := make([][]int, rows+1)
	for i := range dp {
		dp[i] = make([]int, cols+1)
	}

	for i := 1; i <= rows; i++ {
		for j := 1; j <= cols; j++ {
			if s1[i-1] == s2[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[rows][cols]
}
