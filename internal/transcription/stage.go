package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"callscribe/internal/config"
	"callscribe/internal/logging"
	"callscribe/internal/pcm"
	"callscribe/internal/queue"
	"callscribe/internal/services"
	"callscribe/internal/services/sttapi"
	"callscribe/internal/stage"
)

// Stage runs the transcription pipeline for preprocessed calls and persists
// the transcript, quality report, and review flags back onto the call.
type Stage struct {
	cfg      *config.Config
	client   *sttapi.Client
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewStage wires the transcription stage around a gateway client.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	client := sttapi.NewClient(sttapi.Config{
		BaseURL:        cfg.STT.BaseURL,
		APIKey:         cfg.STT.APIKey,
		TimeoutSeconds: cfg.STT.TimeoutSeconds,
	}, sttapi.WithRetryMaxAttempts(cfg.STT.RetryMaxAttempts))
	return &Stage{
		cfg:      cfg,
		client:   client,
		pipeline: NewPipeline(cfg, client, logger),
		logger:   logging.NewComponentLogger(logger, "transcription"),
	}
}

// Prepare verifies that the staged audio from preprocessing still exists.
func (s *Stage) Prepare(ctx context.Context, call *queue.Call) error {
	if call.NormalizedPath == "" {
		return services.Wrap(services.ErrValidation, "transcription", "prepare", "call has no staged audio", nil)
	}
	if _, err := os.Stat(call.NormalizedPath); err != nil {
		return services.Wrap(services.ErrNotFound, "transcription", "prepare",
			fmt.Sprintf("staged audio missing: %s", call.NormalizedPath), err)
	}
	call.InitProgress("Transcribing", "Submitting audio to speech gateway")
	return nil
}

// Execute runs the pipeline and persists its output.
func (s *Stage) Execute(ctx context.Context, call *queue.Call) error {
	logger := logging.WithContext(ctx, s.logger)

	raw, err := os.ReadFile(call.NormalizedPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcription", "read staged audio", "failed to read staged audio", err)
	}
	buf, err := pcm.DecodeWAV(raw)
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcription", "decode staged audio", "failed to decode staged audio", err)
	}
	call.SetProgress("Transcribing", "Transcribing chunks", 10)

	transcript, report, err := s.pipeline.Run(ctx, buf)
	if err != nil {
		if IsFatal(err) {
			return services.Wrap(services.ErrValidation, "transcription", "stitch", "transcript ordering violated", err)
		}
		return services.Wrap(services.ErrExternalService, "transcription", "pipeline", "transcription pipeline failed", err)
	}
	call.SetProgress("Transcribing", "Writing transcript", 85)

	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcription", "encode transcript", "failed to encode transcript", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcription", "encode report", "failed to encode quality report", err)
	}

	call.TranscriptJSON = string(transcriptJSON)
	call.QualityJSON = string(reportJSON)
	call.DetectedLang = transcript.DetectedLanguage
	call.Confidence = transcript.OverallConfidence
	call.FallbackUsed = transcript.FallbackUsed
	call.NeedsReview = report.NeedsReview
	call.ReviewReason = report.ReviewReason

	if s.cfg.Paths.OutputDir != "" {
		if err := s.writeTranscriptFile(call, transcript); err != nil {
			return err
		}
	}

	call.SetProgressComplete("Transcribed", "Transcript assembled")
	logger.Info("call transcribed",
		logging.Float64("confidence", transcript.OverallConfidence),
		logging.String("language", transcript.DetectedLanguage),
		logging.Bool("fallback_used", transcript.FallbackUsed),
		logging.Bool("needs_review", report.NeedsReview),
		logging.Int("segments", len(transcript.Segments)),
	)
	return nil
}

// writeTranscriptFile renders a human-readable transcript next to the JSON
// kept in the queue.
func (s *Stage) writeTranscriptFile(call *queue.Call, transcript *Transcript) error {
	if err := os.MkdirAll(s.cfg.Paths.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "transcription", "output", "failed to create output directory", err)
	}
	name := call.Title
	if name == "" {
		name = call.CallUUID
	}
	path := filepath.Join(s.cfg.Paths.OutputDir, name+".txt")
	if err := os.WriteFile(path, []byte(FormatTranscript(transcript)), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "transcription", "output", "failed to write transcript file", err)
	}
	return nil
}

// FormatTranscript renders segments as "[MM:SS] Speaker N: text" lines.
func FormatTranscript(transcript *Transcript) string {
	var b strings.Builder
	for _, seg := range transcript.Segments {
		fmt.Fprintf(&b, "[%s] Speaker %d: %s\n", formatOffset(seg.Start), seg.Speaker, seg.Text)
	}
	return b.String()
}

func formatOffset(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// HealthCheck verifies the speech gateway is reachable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("transcription", err.Error())
	}
	return stage.Healthy("transcription")
}
