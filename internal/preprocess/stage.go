package preprocess

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"callscribe/internal/config"
	"callscribe/internal/logging"
	"callscribe/internal/pcm"
	"callscribe/internal/queue"
	"callscribe/internal/services"
	"callscribe/internal/stage"
)

// Stage prepares queued calls for transcription by decoding the source
// recording and writing a normalized mono WAV into the staging directory.
type Stage struct {
	cfg       *config.Config
	processor *Processor
	logger    *slog.Logger
}

// NewStage wires the preprocessing stage.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:       cfg,
		processor: NewProcessor(cfg.Preprocess, logger),
		logger:    logging.NewComponentLogger(logger, "preprocess"),
	}
}

// Prepare validates that the source recording still exists and is readable.
func (s *Stage) Prepare(ctx context.Context, call *queue.Call) error {
	if call.SourcePath == "" {
		return services.Wrap(services.ErrValidation, "preprocess", "prepare", "call has no source path", nil)
	}
	info, err := os.Stat(call.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "preprocess", "prepare",
			fmt.Sprintf("source recording missing: %s", call.SourcePath), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "preprocess", "prepare",
			fmt.Sprintf("source path is a directory: %s", call.SourcePath), nil)
	}
	call.InitProgress("Preprocessing", "Reading source recording")
	return nil
}

// Execute runs the normalization chain and records the staged artifact path.
func (s *Stage) Execute(ctx context.Context, call *queue.Call) error {
	logger := logging.WithContext(ctx, s.logger)

	raw, err := os.ReadFile(call.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "preprocess", "read source", "failed to read source recording", err)
	}
	call.SetProgress("Preprocessing", "Normalizing audio", 25)

	buf, err := s.processor.Run(raw)
	if err != nil {
		return services.Wrap(services.ErrValidation, "preprocess", "normalize", "failed to normalize audio", err)
	}
	call.SetProgress("Preprocessing", "Writing staged audio", 70)

	encoded, err := pcm.EncodeWAV(buf)
	if err != nil {
		return services.Wrap(services.ErrValidation, "preprocess", "encode", "failed to encode staged audio", err)
	}

	stagingDir := filepath.Join(s.cfg.Paths.StagingDir, fmt.Sprintf("call-%d", call.ID))
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "preprocess", "staging", "failed to create staging directory", err)
	}
	stagedPath := filepath.Join(stagingDir, "normalized.wav")
	if err := os.WriteFile(stagedPath, encoded, 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "preprocess", "staging", "failed to write staged audio", err)
	}

	call.NormalizedPath = stagedPath
	call.SetProgressComplete("Preprocessed", "Audio normalized")
	logger.Info("call preprocessed",
		logging.String("staged_path", stagedPath),
		logging.Duration("duration", buf.Duration()),
		logging.Int("sample_rate", buf.SampleRate),
	)
	return nil
}

// HealthCheck reports whether the staging directory is usable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := os.MkdirAll(s.cfg.Paths.StagingDir, 0o755); err != nil {
		return stage.Unhealthy("preprocess", fmt.Sprintf("staging directory unavailable: %v", err))
	}
	probe := filepath.Join(s.cfg.Paths.StagingDir, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return stage.Unhealthy("preprocess", fmt.Sprintf("staging directory not writable: %v", err))
	}
	_ = os.Remove(probe)
	return stage.Healthy("preprocess")
}
