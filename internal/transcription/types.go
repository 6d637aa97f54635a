package transcription

import "time"

// SpeakerSegment is one contiguous utterance attributed to a single speaker.
// Times are relative to the start of the full recording once stitched;
// per-chunk results carry chunk-local times until the stitcher shifts them.
type SpeakerSegment struct {
	Speaker    int           `json:"speaker"`
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
}

// ChunkResult is the transcription outcome for one audio chunk, combined with
// the chunk's placement inside the recording.
type ChunkResult struct {
	Index         int
	StartOffset   time.Duration
	ContentStart  time.Duration
	EndOffset     time.Duration
	HardCut       bool
	Segments      []SpeakerSegment
	Text          string
	AvgConfidence float64
	Language      string
	Failed        bool
}

// Empty reports whether the chunk produced no usable text.
func (r ChunkResult) Empty() bool {
	return r.Failed || len(r.Segments) == 0
}

// ContentDuration is the length of the chunk's non-overlapping region.
func (r ChunkResult) ContentDuration() time.Duration {
	return r.EndOffset - r.ContentStart
}

// Transcript is the final assembled output for a recording.
type Transcript struct {
	Segments          []SpeakerSegment `json:"segments"`
	FullText          string           `json:"full_text"`
	OverallConfidence float64          `json:"overall_confidence"`
	DetectedLanguage  string           `json:"detected_language"`
	FallbackUsed      bool             `json:"fallback_used"`
}

// QualityReport records how the pipeline arrived at its output, for operators
// reviewing flagged calls.
type QualityReport struct {
	ChunkCount        int     `json:"chunk_count"`
	SuccessfulChunks  int     `json:"successful_chunks"`
	AvgConfidence     float64 `json:"avg_confidence"`
	EmptyChunkRatio   float64 `json:"empty_chunk_ratio"`
	TranscriptChars   int     `json:"transcript_chars"`
	DetectedSpeakers  int     `json:"detected_speakers"`
	QualityPassed     bool    `json:"quality_passed"`
	FallbackAttempted bool    `json:"fallback_attempted"`
	FallbackUsed      bool    `json:"fallback_used"`
	FallbackStrategy  string  `json:"fallback_strategy,omitempty"`
	TriggerReason     string  `json:"trigger_reason,omitempty"`
	NeedsReview       bool    `json:"needs_review"`
	ReviewReason      string  `json:"review_reason,omitempty"`
}
