package transcription

import (
	"fmt"
	"strings"

	"callscribe/internal/config"
)

// QualityMetrics summarizes one transcription attempt for the fallback gate.
type QualityMetrics struct {
	AvgConfidence    float64
	EmptyChunkRatio  float64
	TranscriptChars  int
	ChunkCount       int
	SuccessfulChunks int
}

// EvaluateQuality computes the gate metrics for a set of chunk results.
// Confidence is weighted by each chunk's content duration so short chunks do
// not dominate the average.
func EvaluateQuality(results []ChunkResult) QualityMetrics {
	metrics := QualityMetrics{ChunkCount: len(results)}
	if len(results) == 0 {
		metrics.EmptyChunkRatio = 1
		return metrics
	}

	var weighted, totalWeight float64
	empty := 0
	chars := 0
	for _, result := range results {
		if result.Empty() {
			empty++
			continue
		}
		metrics.SuccessfulChunks++
		w := result.ContentDuration().Seconds()
		if w <= 0 {
			w = 0.001
		}
		weighted += result.AvgConfidence * w
		totalWeight += w
		chars += len(strings.TrimSpace(result.Text))
	}

	if totalWeight > 0 {
		metrics.AvgConfidence = weighted / totalWeight
	}
	metrics.EmptyChunkRatio = float64(empty) / float64(len(results))
	metrics.TranscriptChars = chars
	return metrics
}

// Passes reports whether the metrics clear every configured threshold.
func (m QualityMetrics) Passes(cfg config.Fallback) bool {
	return m.FailureReason(cfg) == ""
}

// FailureReason names the first threshold the metrics miss, or "" when the
// attempt passes. The reason ends up in the quality report for operators.
func (m QualityMetrics) FailureReason(cfg config.Fallback) string {
	if m.AvgConfidence < cfg.MinConfidence {
		return fmt.Sprintf("average confidence %.2f below minimum %.2f", m.AvgConfidence, cfg.MinConfidence)
	}
	if m.EmptyChunkRatio > cfg.MaxEmptyChunkRatio {
		return fmt.Sprintf("empty chunk ratio %.2f above maximum %.2f", m.EmptyChunkRatio, cfg.MaxEmptyChunkRatio)
	}
	if m.TranscriptChars < cfg.MinTranscriptChars {
		return fmt.Sprintf("transcript length %d below minimum %d characters", m.TranscriptChars, cfg.MinTranscriptChars)
	}
	return ""
}

// Rank orders attempts when fallback produces more than one candidate:
// higher confidence wins, then more text, then fewer empty chunks.
func (m QualityMetrics) Rank() [3]float64 {
	return [3]float64{m.AvgConfidence, float64(m.TranscriptChars), 1 - m.EmptyChunkRatio}
}

// BetterThan reports whether m ranks strictly above other.
func (m QualityMetrics) BetterThan(other QualityMetrics) bool {
	a, b := m.Rank(), other.Rank()
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}
