package transcription

import (
	"regexp"
	"strings"
)

const (
	// maxOverlapTokens bounds how many trailing words of the previous chunk
	// are compared against the head of the next one. Chunk overlap is about
	// one second of speech, which rarely exceeds a dozen words.
	maxOverlapTokens = 12

	// fuzzyOverlapThreshold is the minimum weighted token overlap for two
	// word runs to count as the same utterance when they are not identical.
	// Recognition of the same audio in two chunks can differ slightly.
	fuzzyOverlapThreshold = 0.6
)

var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

func normalizeTokens(text string) []string {
	lowered := strings.ToLower(text)
	raw := tokenSplitPattern.Split(lowered, -1)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// overlapTokenCount returns how many leading words of next duplicate the
// trailing words of prev. It first looks for the longest exact run, then
// falls back to a fuzzy match for runs the recognizer transcribed slightly
// differently across the two chunks.
func overlapTokenCount(prev, next string) int {
	prevTokens := normalizeTokens(prev)
	nextTokens := normalizeTokens(next)

	limit := maxOverlapTokens
	if len(prevTokens) < limit {
		limit = len(prevTokens)
	}
	if len(nextTokens) < limit {
		limit = len(nextTokens)
	}

	for k := limit; k > 0; k-- {
		if runsEqual(prevTokens[len(prevTokens)-k:], nextTokens[:k]) {
			return k
		}
	}
	for k := limit; k >= 2; k-- {
		if runOverlap(prevTokens[len(prevTokens)-k:], nextTokens[:k]) >= fuzzyOverlapThreshold {
			return k
		}
	}
	return 0
}

func runsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// runOverlap computes the weighted token overlap between two word runs as a
// fraction of the shorter run, ignoring word order.
func runOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	counts := make(map[string]int, len(a))
	for _, token := range a {
		counts[token]++
	}
	overlap := 0
	for _, token := range b {
		if counts[token] > 0 {
			counts[token]--
			overlap++
		}
	}
	shorter := len(a)
	if len(b) < shorter {
		shorter = len(b)
	}
	return float64(overlap) / float64(shorter)
}

// trimLeadingWords removes the first n whitespace-separated words from text.
func trimLeadingWords(text string, n int) string {
	if n <= 0 {
		return text
	}
	fields := strings.Fields(text)
	if n >= len(fields) {
		return ""
	}
	return strings.Join(fields[n:], " ")
}
