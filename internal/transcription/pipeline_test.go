package transcription

import (
	"context"
	"math"
	"strings"
	"testing"

	"callscribe/internal/config"
	"callscribe/internal/logging"
	"callscribe/internal/pcm"
	"callscribe/internal/services/sttapi"
)

// langRecognizer answers by requested language regardless of audio content.
type langRecognizer struct {
	responses map[string]*sttapi.RecognizeResponse
	errs      map[string]error
}

func (f *langRecognizer) Recognize(ctx context.Context, req sttapi.RecognizeRequest) (*sttapi.RecognizeResponse, error) {
	if err, ok := f.errs[req.LanguageCode]; ok {
		return nil, err
	}
	if resp, ok := f.responses[req.LanguageCode]; ok {
		return resp, nil
	}
	return &sttapi.RecognizeResponse{}, nil
}

func pipelineConfig(strategy string) *config.Config {
	return &config.Config{
		STT: config.STT{
			PrimaryLanguage:     "si-LK",
			AlternateLanguages:  []string{"en-US"},
			SpeakerCount:        2,
			MaxConcurrentChunks: 2,
		},
		Chunking: config.Chunking{
			TargetSeconds:  22,
			MaxSeconds:     25,
			MinSeconds:     20,
			MinSilenceMs:   700,
			OverlapSeconds: 1,
		},
		Fallback: config.Fallback{
			Enabled:            true,
			Strategy:           strategy,
			MinConfidence:      0.55,
			MaxEmptyChunkRatio: 0.30,
			MinTranscriptChars: 30,
		},
	}
}

func toneBuffer(seconds float64) *pcm.Buffer {
	rate := 8000
	n := int(seconds * float64(rate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.4 * math.Sin(2*math.Pi*300*float64(i)/float64(rate))
	}
	return &pcm.Buffer{Samples: samples, SampleRate: rate}
}

var speechWords = []string{"thank", "you", "for", "calling", "our", "support", "line", "today"}

func TestPipelinePassesWithoutFallback(t *testing.T) {
	fake := &langRecognizer{responses: map[string]*sttapi.RecognizeResponse{
		"si-LK": makeResponse("si-LK", 0.85, 1, speechWords...),
	}}
	pipeline := NewPipeline(pipelineConfig(string(StrategyAlternateLanguage)), fake, logging.NewNop())

	transcript, report, err := pipeline.Run(context.Background(), toneBuffer(10))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.QualityPassed {
		t.Fatalf("expected quality pass: %+v", report)
	}
	if report.FallbackAttempted || transcript.FallbackUsed {
		t.Fatal("fallback should not run when the gate passes")
	}
	if transcript.DetectedLanguage != "si-LK" {
		t.Fatalf("detected language = %q", transcript.DetectedLanguage)
	}
	if !strings.Contains(transcript.FullText, "thank you for calling") {
		t.Fatalf("full text = %q", transcript.FullText)
	}
}

func TestPipelineAlternateLanguageFallback(t *testing.T) {
	fake := &langRecognizer{responses: map[string]*sttapi.RecognizeResponse{
		"si-LK": makeResponse("si-LK", 0.40, 1, speechWords...),
		"en-US": makeResponse("en-US", 0.90, 1, speechWords...),
	}}
	pipeline := NewPipeline(pipelineConfig(string(StrategyAlternateLanguage)), fake, logging.NewNop())

	transcript, report, err := pipeline.Run(context.Background(), toneBuffer(10))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.FallbackAttempted || !report.FallbackUsed {
		t.Fatalf("expected fallback to run and win: %+v", report)
	}
	if !report.QualityPassed {
		t.Fatalf("alternate language attempt should pass the gate: %+v", report)
	}
	if transcript.DetectedLanguage != "en-US" {
		t.Fatalf("detected language = %q, want en-US", transcript.DetectedLanguage)
	}
	if !transcript.FallbackUsed {
		t.Fatal("transcript should record fallback use")
	}
	if report.TriggerReason == "" {
		t.Fatal("trigger reason missing from report")
	}
}

func TestPipelineKeepsBestAttemptWhenAllFail(t *testing.T) {
	fake := &langRecognizer{responses: map[string]*sttapi.RecognizeResponse{
		"si-LK": makeResponse("si-LK", 0.30, 1, speechWords...),
		"en-US": makeResponse("en-US", 0.45, 1, speechWords...),
	}}
	pipeline := NewPipeline(pipelineConfig(string(StrategyAlternateLanguage)), fake, logging.NewNop())

	transcript, report, err := pipeline.Run(context.Background(), toneBuffer(10))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.QualityPassed {
		t.Fatal("no attempt should pass the gate")
	}
	if !report.NeedsReview || report.ReviewReason == "" {
		t.Fatalf("failed call must be flagged for review: %+v", report)
	}
	// The 0.45 attempt ranks above the 0.30 one.
	if transcript.DetectedLanguage != "en-US" {
		t.Fatalf("best attempt not kept: %+v", transcript)
	}
	if !report.FallbackUsed {
		t.Fatal("best attempt came from fallback")
	}
}

func TestPipelineManualReviewStrategySkipsRetry(t *testing.T) {
	fake := &langRecognizer{responses: map[string]*sttapi.RecognizeResponse{
		"si-LK": makeResponse("si-LK", 0.40, 1, speechWords...),
	}}
	pipeline := NewPipeline(pipelineConfig(string(StrategyManualReview)), fake, logging.NewNop())

	_, report, err := pipeline.Run(context.Background(), toneBuffer(10))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.NeedsReview {
		t.Fatalf("expected review flag: %+v", report)
	}
	if report.FallbackUsed {
		t.Fatal("manual review strategy must not produce a fallback attempt")
	}
	if report.FallbackStrategy != string(StrategyManualReview) {
		t.Fatalf("strategy = %q", report.FallbackStrategy)
	}
}

func TestPipelineResplitStrategyRechunks(t *testing.T) {
	fake := &langRecognizer{responses: map[string]*sttapi.RecognizeResponse{
		"si-LK": makeResponse("si-LK", 0.40, 1, speechWords...),
	}}
	pipeline := NewPipeline(pipelineConfig(string(StrategyResplit)), fake, logging.NewNop())

	_, report, err := pipeline.Run(context.Background(), toneBuffer(10))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.FallbackStrategy != string(StrategyResplit) {
		t.Fatalf("strategy = %q", report.FallbackStrategy)
	}
	if !report.NeedsReview {
		t.Fatal("still-failing call must be flagged for review")
	}
}

func TestPipelinePropagatesAuthFailure(t *testing.T) {
	fake := &langRecognizer{errs: map[string]error{
		"si-LK": sttapi.ErrAuth,
	}}
	pipeline := NewPipeline(pipelineConfig(string(StrategyAlternateLanguage)), fake, logging.NewNop())

	_, _, err := pipeline.Run(context.Background(), toneBuffer(10))
	if err == nil {
		t.Fatal("expected auth failure to abort the pipeline")
	}
}
