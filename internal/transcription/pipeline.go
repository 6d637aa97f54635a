package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"callscribe/internal/chunking"
	"callscribe/internal/config"
	"callscribe/internal/logging"
	"callscribe/internal/pcm"
)

// Pipeline runs a normalized recording through chunking, gateway invocation,
// the quality gate with its fallback strategies, stitching, and assembly.
type Pipeline struct {
	cfg      *config.Config
	chunker  *chunking.Chunker
	invoker  *Invoker
	stitcher *Stitcher
	logger   *slog.Logger
}

// NewPipeline wires a transcription pipeline around the given recognizer.
func NewPipeline(cfg *config.Config, client Recognizer, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		chunker:  chunking.NewChunker(cfg.Chunking, logger),
		invoker:  NewInvoker(client, cfg.STT, logger),
		stitcher: NewStitcher(logger),
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

type attempt struct {
	language string
	results  []ChunkResult
	segments []SpeakerSegment
	metrics  QualityMetrics
}

// Run transcribes the recording. Attempts that fail the quality gate trigger
// the configured fallback strategy; when every attempt fails the gate the
// best-ranked one is kept and the transcript is flagged for manual review.
func (p *Pipeline) Run(ctx context.Context, buf *pcm.Buffer) (*Transcript, *QualityReport, error) {
	chunks, err := p.chunker.Split(buf)
	if err != nil {
		return nil, nil, err
	}

	primary := p.cfg.STT.PrimaryLanguage
	first, err := p.attempt(ctx, chunks, primary, buf.SampleRate)
	if err != nil {
		return nil, nil, err
	}

	report := &QualityReport{
		ChunkCount:       first.metrics.ChunkCount,
		SuccessfulChunks: first.metrics.SuccessfulChunks,
	}

	best := first
	if reason := first.metrics.FailureReason(p.cfg.Fallback); reason != "" {
		report.TriggerReason = reason
		p.logger.Warn("quality gate failed",
			logging.String("reason", reason),
			logging.Float64("confidence", first.metrics.AvgConfidence),
		)

		if p.cfg.Fallback.Enabled {
			report.FallbackAttempted = true
			fallbackBest, strategy, err := p.runFallback(ctx, chunks, first, buf)
			if err != nil {
				return nil, nil, err
			}
			report.FallbackStrategy = string(strategy)
			if fallbackBest.metrics.BetterThan(best.metrics) {
				best = fallbackBest
				report.FallbackUsed = true
			}
		}
	}

	transcript := Assemble(best.segments, best.results, primary)
	if best.language != "" && transcript.DetectedLanguage == "" {
		transcript.DetectedLanguage = best.language
	}
	transcript.FallbackUsed = report.FallbackUsed

	report.ChunkCount = best.metrics.ChunkCount
	report.SuccessfulChunks = best.metrics.SuccessfulChunks
	report.AvgConfidence = best.metrics.AvgConfidence
	report.EmptyChunkRatio = best.metrics.EmptyChunkRatio
	report.TranscriptChars = best.metrics.TranscriptChars
	report.DetectedSpeakers = CountSpeakers(best.segments)
	report.QualityPassed = best.metrics.Passes(p.cfg.Fallback)
	if !report.QualityPassed {
		report.NeedsReview = true
		report.ReviewReason = best.metrics.FailureReason(p.cfg.Fallback)
		if report.ReviewReason == "" {
			report.ReviewReason = report.TriggerReason
		}
	}
	return &transcript, report, nil
}

// runFallback executes the configured strategy and returns its best attempt.
func (p *Pipeline) runFallback(ctx context.Context, chunks []chunking.Chunk, first attempt, buf *pcm.Buffer) (attempt, Strategy, error) {
	strategy, err := ParseStrategy(p.cfg.Fallback.Strategy)
	if err != nil {
		return first, "", err
	}

	switch strategy {
	case StrategyAlternateLanguage:
		best := first
		for _, alt := range p.cfg.STT.AlternateLanguages {
			p.logger.Info("retrying with alternate language", logging.String("language", alt))
			retry, err := p.attempt(ctx, chunks, alt, buf.SampleRate)
			if err != nil {
				return first, strategy, err
			}
			if retry.metrics.BetterThan(best.metrics) {
				best = retry
			}
			if retry.metrics.Passes(p.cfg.Fallback) {
				break
			}
		}
		return best, strategy, nil

	case StrategyResplit:
		resplitCfg := p.cfg.Chunking
		resplitCfg.TargetSeconds = halveFloor(resplitCfg.TargetSeconds, 5)
		resplitCfg.MaxSeconds = halveFloor(resplitCfg.MaxSeconds, 6)
		resplitCfg.MinSeconds = halveFloor(resplitCfg.MinSeconds, 4)
		p.logger.Info("retrying with smaller chunks",
			logging.Int("target_seconds", resplitCfg.TargetSeconds),
		)
		smaller, err := chunking.NewChunker(resplitCfg, p.logger).Split(buf)
		if err != nil {
			return first, strategy, err
		}
		retry, err := p.attempt(ctx, smaller, p.cfg.STT.PrimaryLanguage, buf.SampleRate)
		if err != nil {
			return first, strategy, err
		}
		if retry.metrics.BetterThan(first.metrics) {
			return retry, strategy, nil
		}
		return first, strategy, nil

	default:
		// Manual review: no retry, the caller flags the call.
		return first, StrategyManualReview, nil
	}
}

func (p *Pipeline) attempt(ctx context.Context, chunks []chunking.Chunk, languageCode string, sampleRate int) (attempt, error) {
	results, err := p.invoker.Run(ctx, chunks, languageCode, sampleRate)
	if err != nil {
		return attempt{}, err
	}
	segments, err := p.stitcher.Stitch(results)
	if err != nil {
		return attempt{}, fmt.Errorf("stitch %s attempt: %w", languageCode, err)
	}
	return attempt{
		language: languageCode,
		results:  results,
		segments: segments,
		metrics:  EvaluateQuality(results),
	}, nil
}

func halveFloor(value, floor int) int {
	halved := value / 2
	if halved < floor {
		return floor
	}
	return halved
}

// IsFatal reports whether a pipeline error cannot be fixed by retrying the
// call later with the same configuration.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStitch)
}
