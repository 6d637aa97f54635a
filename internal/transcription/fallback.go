package transcription

import (
	"fmt"
	"strings"
)

// Strategy selects how the pipeline reacts when a transcription attempt
// fails the quality gate.
type Strategy string

const (
	// StrategyAlternateLanguage retries the recording against each
	// configured alternate language and keeps the best-ranked attempt.
	StrategyAlternateLanguage Strategy = "alternate_language"
	// StrategyResplit re-chunks the recording with smaller chunks and
	// retries; long chunks sometimes defeat the recognizer on noisy calls.
	StrategyResplit Strategy = "resplit"
	// StrategyManualReview skips retrying and flags the call for a human.
	StrategyManualReview Strategy = "manual_review"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case StrategyAlternateLanguage:
		return StrategyAlternateLanguage, nil
	case StrategyResplit:
		return StrategyResplit, nil
	case StrategyManualReview:
		return StrategyManualReview, nil
	default:
		return "", fmt.Errorf("unknown fallback strategy %q", value)
	}
}
