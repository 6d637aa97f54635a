package chunking

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"callscribe/internal/config"
	"callscribe/internal/logging"
	"callscribe/internal/pcm"
)

// ErrChunking marks recordings that cannot be split into valid chunks.
var ErrChunking = errors.New("chunking error")

// tailMergeThreshold is the shortest trailing remainder worth emitting as its
// own chunk. Anything shorter is folded into the previous chunk instead.
const tailMergeThreshold = 2 * time.Second

// Chunker splits normalized recordings into bounded, overlapping chunks,
// preferring to cut inside silences so words are not split mid-utterance.
type Chunker struct {
	cfg    config.Chunking
	logger *slog.Logger
}

// NewChunker constructs a Chunker with the given settings.
func NewChunker(cfg config.Chunking, logger *slog.Logger) *Chunker {
	return &Chunker{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "chunking"),
	}
}

// Split divides the recording into chunks no longer than the configured
// maximum. Cut points land on silence midpoints when a long enough silence
// falls inside the allowed window, and on a hard boundary otherwise. Every
// chunk after the first starts early by the configured overlap so the
// stitcher can realign text across the seam.
//
// The chunks' content regions cover the recording exactly once: each chunk's
// content begins where the previous chunk ended.
func (c *Chunker) Split(buf *pcm.Buffer) ([]Chunk, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, fmt.Errorf("%w: empty recording", ErrChunking)
	}

	target := time.Duration(c.cfg.TargetSeconds) * time.Second
	max := time.Duration(c.cfg.MaxSeconds) * time.Second
	min := time.Duration(c.cfg.MinSeconds) * time.Second
	overlap := time.Duration(c.cfg.OverlapSeconds * float64(time.Second))
	minSilence := time.Duration(c.cfg.MinSilenceMs) * time.Millisecond

	total := buf.Duration()
	if total <= max {
		audio, err := pcm.EncodeWAV(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrChunking, err)
		}
		return []Chunk{{Index: 0, EndOffset: total, Audio: audio}}, nil
	}

	silences := detectSilences(buf, c.cfg.SilenceThresholdDB, minSilence)
	cutPoints := make([]time.Duration, 0, len(silences))
	for _, run := range silences {
		cutPoints = append(cutPoints, run.midpoint())
	}

	var chunks []Chunk
	cursor := time.Duration(0)
	for cursor < total {
		remaining := total - cursor
		if remaining <= max {
			chunks = append(chunks, c.buildChunk(buf, len(chunks), cursor, total, overlap, false))
			break
		}

		cut, hard := c.selectCut(cutPoints, cursor, target, min, max)
		if total-cut < tailMergeThreshold {
			// A sliver of a chunk transcribes poorly; extend to the end.
			chunks = append(chunks, c.buildChunk(buf, len(chunks), cursor, total, overlap, hard))
			break
		}
		chunks = append(chunks, c.buildChunk(buf, len(chunks), cursor, cut, overlap, hard))
		cursor = cut
	}

	for i := range chunks {
		slice := buf.Slice(chunks[i].StartOffset, chunks[i].EndOffset)
		audio, err := pcm.EncodeWAV(slice)
		if err != nil {
			return nil, fmt.Errorf("%w: encode chunk %d: %w", ErrChunking, i, err)
		}
		chunks[i].Audio = audio
	}

	c.logger.Debug("recording split",
		logging.Duration("duration", total),
		logging.Int("chunks", len(chunks)),
		logging.Int("silences", len(silences)),
	)
	return chunks, nil
}

// selectCut picks the silence midpoint closest to the target length inside
// the [min, max] window after cursor. Without one, the cut is forced at max.
func (c *Chunker) selectCut(cutPoints []time.Duration, cursor, target, min, max time.Duration) (time.Duration, bool) {
	lo := cursor + min
	hi := cursor + max
	ideal := cursor + target

	best := time.Duration(-1)
	bestDist := time.Duration(1<<62 - 1)
	for _, p := range cutPoints {
		if p < lo || p > hi {
			continue
		}
		dist := p - ideal
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best = p
			bestDist = dist
		}
	}
	if best >= 0 {
		return best, false
	}
	return hi, true
}

func (c *Chunker) buildChunk(buf *pcm.Buffer, index int, contentStart, end, overlap time.Duration, hard bool) Chunk {
	start := contentStart
	if index > 0 {
		start = contentStart - overlap
		if start < 0 {
			start = 0
		}
	}
	return Chunk{
		Index:           index,
		StartOffset:     start,
		ContentStart:    contentStart,
		EndOffset:       end,
		OverlapWithPrev: contentStart - start,
		HardCut:         hard,
	}
}
