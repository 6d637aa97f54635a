package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"callscribe/internal/chunking"
	"callscribe/internal/config"
	"callscribe/internal/language"
	"callscribe/internal/logging"
	"callscribe/internal/services/sttapi"
)

// Recognizer is the speech gateway surface the invoker depends on.
type Recognizer interface {
	Recognize(ctx context.Context, req sttapi.RecognizeRequest) (*sttapi.RecognizeResponse, error)
}

const defaultMaxConcurrentChunks = 4

// Invoker submits chunks to the speech gateway with bounded concurrency and
// gathers the results back into recording order.
type Invoker struct {
	client Recognizer
	cfg    config.STT
	logger *slog.Logger
}

// NewInvoker constructs an Invoker around the given recognizer.
func NewInvoker(client Recognizer, cfg config.STT, logger *slog.Logger) *Invoker {
	return &Invoker{
		client: client,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "transcription"),
	}
}

// Run transcribes every chunk in the given language. Chunks that fail after
// the client's own retries are marked Failed rather than aborting the whole
// recording; an authentication failure aborts immediately since every
// remaining chunk would fail the same way.
func (inv *Invoker) Run(ctx context.Context, chunks []chunking.Chunk, languageCode string, sampleRate int) ([]ChunkResult, error) {
	if len(chunks) == 0 {
		return nil, errors.New("transcription: no chunks to submit")
	}

	maxConcurrent := inv.cfg.MaxConcurrentChunks
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentChunks
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]ChunkResult, len(chunks))
	sem := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var authErr error

	for i := range chunks {
		wg.Add(1)
		go func(chunk chunking.Chunk) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-runCtx.Done():
				results[chunk.Index] = failedResult(chunk)
				return
			}

			result, err := inv.transcribeChunk(runCtx, chunk, languageCode, sampleRate)
			if err != nil {
				if errors.Is(err, sttapi.ErrAuth) {
					mu.Lock()
					if authErr == nil {
						authErr = err
					}
					mu.Unlock()
					cancel()
				}
				inv.logger.Warn("chunk transcription failed",
					logging.Int("chunk_index", chunk.Index),
					logging.Error(err),
				)
				results[chunk.Index] = failedResult(chunk)
				return
			}
			results[chunk.Index] = result
		}(chunks[i])
	}
	wg.Wait()

	if authErr != nil {
		return nil, fmt.Errorf("transcription aborted: %w", authErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (inv *Invoker) transcribeChunk(ctx context.Context, chunk chunking.Chunk, languageCode string, sampleRate int) (ChunkResult, error) {
	start := time.Now()
	resp, err := inv.client.Recognize(ctx, sttapi.RecognizeRequest{
		Audio:              chunk.Audio,
		SampleRateHertz:    sampleRate,
		LanguageCode:       languageCode,
		AlternateLanguages: inv.cfg.AlternateLanguages,
		SpeakerCount:       inv.cfg.SpeakerCount,
	})
	if err != nil {
		return ChunkResult{}, err
	}

	result := resultFromResponse(chunk, resp, languageCode)
	inv.logger.Debug("chunk transcribed",
		logging.Int("chunk_index", chunk.Index),
		logging.Int("segments", len(result.Segments)),
		logging.Float64("confidence", result.AvgConfidence),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func failedResult(chunk chunking.Chunk) ChunkResult {
	return ChunkResult{
		Index:        chunk.Index,
		StartOffset:  chunk.StartOffset,
		ContentStart: chunk.ContentStart,
		EndOffset:    chunk.EndOffset,
		HardCut:      chunk.HardCut,
		Failed:       true,
	}
}

// resultFromResponse flattens the gateway response into speaker segments with
// chunk-local timing. Consecutive words with the same speaker tag collapse
// into one segment.
func resultFromResponse(chunk chunking.Chunk, resp *sttapi.RecognizeResponse, fallbackLanguage string) ChunkResult {
	result := ChunkResult{
		Index:        chunk.Index,
		StartOffset:  chunk.StartOffset,
		ContentStart: chunk.ContentStart,
		EndOffset:    chunk.EndOffset,
		HardCut:      chunk.HardCut,
	}

	languageVotes := make(map[string]int)
	for _, res := range resp.Results {
		if len(res.Alternatives) == 0 {
			continue
		}
		alt := res.Alternatives[0]
		if lang, err := language.Normalize(res.LanguageCode); err == nil && lang != "" {
			languageVotes[lang]++
		}
		result.Segments = append(result.Segments, segmentsFromAlternative(alt, chunk.Duration())...)
	}

	fallback, err := language.Normalize(fallbackLanguage)
	if err != nil {
		fallback = fallbackLanguage
	}
	result.Language = majorityLanguage(languageVotes, fallback)
	result.Text = joinSegmentText(result.Segments)
	result.AvgConfidence = weightedConfidence(result.Segments)
	return result
}

func segmentsFromAlternative(alt sttapi.Alternative, chunkLen time.Duration) []SpeakerSegment {
	if len(alt.Words) == 0 {
		text := strings.TrimSpace(alt.Transcript)
		if text == "" {
			return nil
		}
		// No word-level detail: attribute the whole alternative to one
		// speaker spanning the chunk.
		return []SpeakerSegment{{
			Speaker:    1,
			Start:      0,
			End:        chunkLen,
			Text:       text,
			Confidence: alt.Confidence,
		}}
	}

	var segments []SpeakerSegment
	var current *SpeakerSegment
	var words []string
	var confSum float64
	var confCount int

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.Join(words, " ")
		if confCount > 0 {
			current.Confidence = confSum / float64(confCount)
		} else {
			current.Confidence = alt.Confidence
		}
		segments = append(segments, *current)
		current = nil
		words = nil
		confSum = 0
		confCount = 0
	}

	for _, word := range alt.Words {
		speaker := word.SpeakerTag
		if speaker <= 0 {
			speaker = 1
		}
		if current == nil || current.Speaker != speaker {
			flush()
			current = &SpeakerSegment{Speaker: speaker, Start: word.StartOffset()}
		}
		current.End = word.EndOffset()
		words = append(words, word.Word)
		if word.Confidence > 0 {
			confSum += word.Confidence
			confCount++
		}
	}
	flush()
	return segments
}

func joinSegmentText(segments []SpeakerSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}

// weightedConfidence averages segment confidences weighted by duration so a
// long confident utterance outweighs a short uncertain one.
func weightedConfidence(segments []SpeakerSegment) float64 {
	var weighted, total float64
	for _, seg := range segments {
		w := seg.End.Seconds() - seg.Start.Seconds()
		if w <= 0 {
			w = 0.001
		}
		weighted += seg.Confidence * w
		total += w
	}
	if total <= 0 {
		return 0
	}
	return weighted / total
}

func majorityLanguage(votes map[string]int, fallback string) string {
	if len(votes) == 0 {
		return fallback
	}
	type vote struct {
		lang  string
		count int
	}
	ordered := make([]vote, 0, len(votes))
	for lang, count := range votes {
		ordered = append(ordered, vote{lang, count})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		// Tie goes to the requested language, then lexical order for
		// deterministic output.
		if ordered[i].lang == fallback {
			return true
		}
		if ordered[j].lang == fallback {
			return false
		}
		return ordered[i].lang < ordered[j].lang
	})
	return ordered[0].lang
}
