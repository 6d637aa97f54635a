package transcription

import (
	"sort"
	"strings"
	"time"

	"callscribe/internal/language"
)

// Assemble builds the final transcript from stitched segments and the chunk
// results they came from. Overall confidence is weighted by segment duration
// and the detected language is the majority across chunk content, with ties
// going to the requested primary language.
func Assemble(segments []SpeakerSegment, results []ChunkResult, primaryLanguage string) Transcript {
	transcript := Transcript{
		Segments:          segments,
		FullText:          joinSegmentText(segments),
		OverallConfidence: weightedConfidence(segments),
		DetectedLanguage:  detectLanguage(results, primaryLanguage),
	}
	return transcript
}

// detectLanguage picks the language covering the most recording time.
func detectLanguage(results []ChunkResult, primaryLanguage string) string {
	primary, err := language.Normalize(primaryLanguage)
	if err != nil {
		primary = primaryLanguage
	}
	votes := make(map[string]time.Duration)
	for _, result := range results {
		if result.Empty() || result.Language == "" {
			continue
		}
		votes[result.Language] += result.ContentDuration()
	}
	if len(votes) == 0 {
		return primary
	}

	type vote struct {
		lang     string
		duration time.Duration
	}
	ordered := make([]vote, 0, len(votes))
	for lang, duration := range votes {
		ordered = append(ordered, vote{lang, duration})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].duration != ordered[j].duration {
			return ordered[i].duration > ordered[j].duration
		}
		if ordered[i].lang == primary {
			return true
		}
		if ordered[j].lang == primary {
			return false
		}
		return ordered[i].lang < ordered[j].lang
	})
	return ordered[0].lang
}

// CountSpeakers returns how many distinct speakers appear in the segments.
func CountSpeakers(segments []SpeakerSegment) int {
	seen := make(map[int]struct{})
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		seen[seg.Speaker] = struct{}{}
	}
	return len(seen)
}
