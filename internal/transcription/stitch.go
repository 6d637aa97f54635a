package transcription

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"callscribe/internal/logging"
)

// ErrStitch marks an ordering violation in the stitched output. It indicates
// a bug in chunking or stitching rather than bad input audio.
var ErrStitch = errors.New("stitch error")

const (
	// speakerContinuityGap is the largest silence across a chunk boundary
	// that still suggests the same speaker kept talking. Diarization tags
	// are assigned per chunk, so adjacent chunks may label the same voice
	// differently and need realigning.
	speakerContinuityGap = 2500 * time.Millisecond

	// adjacentMergeGap is the largest pause between two segments of the
	// same speaker that still reads as one utterance.
	adjacentMergeGap = time.Second
)

// Stitcher merges per-chunk results into one ordered, speaker-consistent
// segment list.
type Stitcher struct {
	logger *slog.Logger
}

// NewStitcher constructs a Stitcher.
func NewStitcher(logger *slog.Logger) *Stitcher {
	return &Stitcher{logger: logging.NewComponentLogger(logger, "stitch")}
}

// Stitch combines chunk results in recording order: it shifts chunk-local
// times to recording offsets, drops text duplicated by the chunk overlap,
// realigns diarization labels across boundaries, and merges utterances the
// chunk cut split apart. Failed chunks leave a gap.
func (s *Stitcher) Stitch(results []ChunkResult) ([]SpeakerSegment, error) {
	ordered := append([]ChunkResult(nil), results...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var stitched []SpeakerSegment
	for _, result := range ordered {
		if result.Empty() {
			continue
		}
		segments := shiftSegments(result.Segments, result.StartOffset)
		segments = dropOverlapSegments(segments, result.ContentStart)
		if len(segments) == 0 {
			continue
		}

		if len(stitched) > 0 {
			segments = alignBoundary(stitched[len(stitched)-1], segments)
			if len(segments) == 0 {
				continue
			}
		}
		stitched = append(stitched, segments...)
	}

	stitched = mergeAdjacent(stitched)
	stitched = clampOverlaps(stitched)

	for i := 1; i < len(stitched); i++ {
		if stitched[i].Start < stitched[i-1].Start {
			return nil, fmt.Errorf("%w: segment %d starts at %v before predecessor at %v",
				ErrStitch, i, stitched[i].Start, stitched[i-1].Start)
		}
		if stitched[i].Start < stitched[i-1].End {
			return nil, fmt.Errorf("%w: segment %d at %v overlaps predecessor ending at %v",
				ErrStitch, i, stitched[i].Start, stitched[i-1].End)
		}
	}
	s.logger.Debug("chunks stitched",
		logging.Int("chunks", len(ordered)),
		logging.Int("segments", len(stitched)),
	)
	return stitched, nil
}

func shiftSegments(segments []SpeakerSegment, offset time.Duration) []SpeakerSegment {
	shifted := make([]SpeakerSegment, len(segments))
	for i, seg := range segments {
		seg.Start += offset
		seg.End += offset
		shifted[i] = seg
	}
	return shifted
}

// dropOverlapSegments removes segments that lie entirely inside the overlap
// region; their content already appeared at the end of the previous chunk.
// A segment straddling the content boundary is kept whole and deduplicated
// by text instead, since recognizers do not split words at exact offsets.
func dropOverlapSegments(segments []SpeakerSegment, contentStart time.Duration) []SpeakerSegment {
	kept := segments[:0]
	for _, seg := range segments {
		if seg.End <= contentStart {
			continue
		}
		kept = append(kept, seg)
	}
	return kept
}

// alignBoundary reconciles the head of a chunk with the stitched tail.
// Duplicated words from the overlap region identify an utterance that spans
// the cut: the duplicate is trimmed, and because diarization labels are
// assigned per chunk, a label disagreement on such a continuing utterance
// means the chunk's speakers 1 and 2 are swapped wholesale.
func alignBoundary(last SpeakerSegment, segments []SpeakerSegment) []SpeakerSegment {
	first := &segments[0]
	gap := first.Start - last.End
	if gap > speakerContinuityGap {
		// Too far apart to share the overlap region; similar wording at
		// this distance is coincidence, not duplication.
		return segments
	}
	overlap := overlapTokenCount(last.Text, first.Text)
	if overlap == 0 {
		return segments
	}

	if first.Speaker != last.Speaker && swapSpeaker(first.Speaker) == last.Speaker {
		for i := range segments {
			segments[i].Speaker = swapSpeaker(segments[i].Speaker)
		}
	}

	first.Text = trimLeadingWords(first.Text, overlap)
	if strings.TrimSpace(first.Text) == "" {
		return segments[1:]
	}
	if first.Start < last.End {
		first.Start = last.End
		if first.End < first.Start {
			first.End = first.Start
		}
	}
	return segments
}

func swapSpeaker(speaker int) int {
	switch speaker {
	case 1:
		return 2
	case 2:
		return 1
	default:
		return speaker
	}
}

// mergeAdjacent joins consecutive segments of the same speaker separated by
// at most adjacentMergeGap, so a sentence split by a chunk cut reads as one
// utterance.
// clampOverlaps trims each segment so it ends no later than its successor
// starts. Diarized crosstalk comes back as overlapping utterances; the
// transcript keeps both speakers by truncating the earlier one where the
// next begins.
func clampOverlaps(segments []SpeakerSegment) []SpeakerSegment {
	for i := 1; i < len(segments); i++ {
		if segments[i-1].End > segments[i].Start {
			segments[i-1].End = segments[i].Start
		}
	}
	return segments
}

func mergeAdjacent(segments []SpeakerSegment) []SpeakerSegment {
	if len(segments) < 2 {
		return segments
	}
	merged := segments[:1]
	for _, seg := range segments[1:] {
		last := &merged[len(merged)-1]
		if seg.Speaker == last.Speaker && seg.Start-last.End <= adjacentMergeGap {
			last.Confidence = mergeConfidence(*last, seg)
			if seg.Text != "" {
				if last.Text == "" {
					last.Text = seg.Text
				} else {
					last.Text += " " + seg.Text
				}
			}
			if seg.End > last.End {
				last.End = seg.End
			}
			continue
		}
		merged = append(merged, seg)
	}
	return merged
}

func mergeConfidence(a, b SpeakerSegment) float64 {
	wa := a.End.Seconds() - a.Start.Seconds()
	wb := b.End.Seconds() - b.Start.Seconds()
	if wa <= 0 {
		wa = 0.001
	}
	if wb <= 0 {
		wb = 0.001
	}
	return (a.Confidence*wa + b.Confidence*wb) / (wa + wb)
}
