package transcription

import (
	"errors"
	"testing"
	"time"

	"callscribe/internal/logging"
)

func sec(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func seg(speaker int, start, end float64, text string, confidence float64) SpeakerSegment {
	return SpeakerSegment{Speaker: speaker, Start: sec(start), End: sec(end), Text: text, Confidence: confidence}
}

func TestStitchSingleChunkPassesThrough(t *testing.T) {
	stitcher := NewStitcher(logging.NewNop())
	results := []ChunkResult{{
		Index:     0,
		EndOffset: sec(20),
		Segments: []SpeakerSegment{
			seg(1, 0, 5, "hello how can I help you", 0.9),
			seg(2, 6, 10, "I have a question about my bill", 0.85),
		},
	}}

	segments, err := stitcher.Stitch(results)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Speaker != 1 || segments[1].Speaker != 2 {
		t.Fatalf("speakers changed: %+v", segments)
	}
	if segments[0].Start != 0 || segments[1].Start != sec(6) {
		t.Fatalf("times changed: %+v", segments)
	}
}

func TestStitchShiftsChunkLocalTimes(t *testing.T) {
	stitcher := NewStitcher(logging.NewNop())
	results := []ChunkResult{
		{
			Index:     0,
			EndOffset: sec(20),
			Segments:  []SpeakerSegment{seg(1, 0, 19, "hello thanks for calling support today", 0.9)},
		},
		{
			Index:        1,
			StartOffset:  sec(19),
			ContentStart: sec(20),
			EndOffset:    sec(40),
			Segments:     []SpeakerSegment{seg(2, 2, 10, "yes I need help with my router", 0.9)},
		},
	}

	segments, err := stitcher.Stitch(results)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[1].Start != sec(21) {
		t.Fatalf("second segment start = %v, want 21s", segments[1].Start)
	}
}

func TestStitchRemovesOverlapDuplicateOnce(t *testing.T) {
	stitcher := NewStitcher(logging.NewNop())
	results := []ChunkResult{
		{
			Index:     0,
			EndOffset: sec(20),
			Segments:  []SpeakerSegment{seg(1, 0, 19.5, "so the total on your account is forty dollars", 0.9)},
		},
		{
			Index:        1,
			StartOffset:  sec(19),
			ContentStart: sec(20),
			EndOffset:    sec(40),
			// The overlap region re-heard "is forty dollars".
			Segments: []SpeakerSegment{seg(1, 0.2, 8, "is forty dollars and it is due on friday", 0.9)},
		},
	}

	segments, err := stitcher.Stitch(results)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected merged single segment, got %d: %+v", len(segments), segments)
	}
	want := "so the total on your account is forty dollars and it is due on friday"
	if segments[0].Text != want {
		t.Fatalf("text = %q, want %q", segments[0].Text, want)
	}
}

func TestStitchDropsSegmentsInsideOverlapRegion(t *testing.T) {
	stitcher := NewStitcher(logging.NewNop())
	results := []ChunkResult{
		{
			Index:     0,
			EndOffset: sec(20),
			Segments:  []SpeakerSegment{seg(1, 0, 19.8, "everything up to the cut point", 0.9)},
		},
		{
			Index:        1,
			StartOffset:  sec(19),
			ContentStart: sec(20),
			EndOffset:    sec(40),
			Segments: []SpeakerSegment{
				// Entirely inside [19s, 20s): duplicated content.
				seg(1, 0.1, 0.9, "cut point", 0.9),
				seg(2, 1.5, 9, "and now a different speaker responds", 0.9),
			},
		},
	}

	segments, err := stitcher.Stitch(results)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segments), segments)
	}
	if segments[1].Text != "and now a different speaker responds" {
		t.Fatalf("unexpected second segment: %+v", segments[1])
	}
}

func TestStitchRealignsSwappedSpeakerTags(t *testing.T) {
	stitcher := NewStitcher(logging.NewNop())
	results := []ChunkResult{
		{
			Index:     0,
			EndOffset: sec(20),
			Segments: []SpeakerSegment{
				seg(1, 0, 9, "agent speaking first in this call", 0.9),
				seg(2, 10, 19.5, "customer says the invoice total was wrong", 0.9),
			},
		},
		{
			// Diarization labeled the continuing customer voice as 1 here,
			// and the overlap re-heard the tail of the complaint.
			Index:        1,
			StartOffset:  sec(19),
			ContentStart: sec(20),
			EndOffset:    sec(40),
			Segments: []SpeakerSegment{
				seg(1, 0.3, 6, "the invoice total was wrong and far too high", 0.9),
				seg(2, 7, 12, "the agent offers a solution now", 0.9),
			},
		},
	}

	segments, err := stitcher.Stitch(results)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments after boundary merge, got %d: %+v", len(segments), segments)
	}
	// Continuing voice keeps label 2; the chunk's labels were swapped.
	if segments[1].Speaker != 2 {
		t.Fatalf("boundary segment speaker = %d, want 2", segments[1].Speaker)
	}
	if want := "customer says the invoice total was wrong and far too high"; segments[1].Text != want {
		t.Fatalf("boundary text = %q, want %q", segments[1].Text, want)
	}
	if segments[2].Speaker != 1 {
		t.Fatalf("following segment speaker = %d, want 1", segments[2].Speaker)
	}
}

func TestStitchKeepsLabelsAcrossLongGap(t *testing.T) {
	stitcher := NewStitcher(logging.NewNop())
	results := []ChunkResult{
		{
			Index:     0,
			EndOffset: sec(20),
			Segments:  []SpeakerSegment{seg(1, 0, 10, "speech well before the boundary", 0.9)},
		},
		{
			Index:        1,
			StartOffset:  sec(19),
			ContentStart: sec(20),
			EndOffset:    sec(40),
			// Starts 14s after the previous segment ended: no continuity.
			Segments: []SpeakerSegment{seg(2, 5, 10, "a new remark after a long silence", 0.9)},
		},
	}

	segments, err := stitcher.Stitch(results)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if segments[1].Speaker != 2 {
		t.Fatalf("labels should not swap across a long gap: %+v", segments[1])
	}
}

func TestStitchMergesAdjacentSameSpeaker(t *testing.T) {
	stitcher := NewStitcher(logging.NewNop())
	results := []ChunkResult{{
		Index:     0,
		EndOffset: sec(20),
		Segments: []SpeakerSegment{
			seg(1, 0, 4, "I wanted to ask", 0.8),
			seg(1, 4.5, 8, "about my last invoice", 0.9),
			seg(2, 12, 15, "sure let me check", 0.85),
		},
	}}

	segments, err := stitcher.Stitch(results)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected merge to 2 segments, got %d", len(segments))
	}
	if segments[0].Text != "I wanted to ask about my last invoice" {
		t.Fatalf("merged text = %q", segments[0].Text)
	}
	if segments[0].End != sec(8) {
		t.Fatalf("merged end = %v", segments[0].End)
	}
}

func TestStitchSkipsFailedChunks(t *testing.T) {
	stitcher := NewStitcher(logging.NewNop())
	results := []ChunkResult{
		{
			Index:     0,
			EndOffset: sec(20),
			Segments:  []SpeakerSegment{seg(1, 0, 10, "before the failed chunk", 0.9)},
		},
		{Index: 1, StartOffset: sec(19), ContentStart: sec(20), EndOffset: sec(40), Failed: true},
		{
			Index:        2,
			StartOffset:  sec(39),
			ContentStart: sec(40),
			EndOffset:    sec(60),
			Segments:     []SpeakerSegment{seg(2, 2, 10, "after the failed chunk", 0.9)},
		},
	}

	segments, err := stitcher.Stitch(results)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments around the gap, got %d", len(segments))
	}
	if segments[1].Start != sec(41) {
		t.Fatalf("segment after gap starts at %v", segments[1].Start)
	}
}

func TestStitchReportsOrderViolation(t *testing.T) {
	stitcher := NewStitcher(logging.NewNop())
	results := []ChunkResult{
		{
			Index:        0,
			StartOffset:  sec(30),
			ContentStart: sec(30),
			EndOffset:    sec(50),
			Segments:     []SpeakerSegment{seg(1, 0, 10, "this chunk claims a late offset", 0.9)},
		},
		{
			Index:        1,
			StartOffset:  sec(0),
			ContentStart: sec(0),
			EndOffset:    sec(20),
			Segments:     []SpeakerSegment{seg(2, 0, 10, "but follows one that started earlier", 0.9)},
		},
	}

	_, err := stitcher.Stitch(results)
	if !errors.Is(err, ErrStitch) {
		t.Fatalf("expected ErrStitch, got %v", err)
	}
}

func TestStitchResolvesCrosstalkOverlap(t *testing.T) {
	stitcher := NewStitcher(logging.NewNop())
	results := []ChunkResult{{
		Index:     0,
		EndOffset: sec(20),
		Segments: []SpeakerSegment{
			seg(1, 0, 10, "let me walk you through the refund process step by step", 0.9),
			seg(2, 4, 8, "sorry to interrupt but which order", 0.85),
		},
	}}

	segments, err := stitcher.Stitch(results)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].End != sec(4) {
		t.Fatalf("first segment end = %v, want 4s", segments[0].End)
	}
	for i := 1; i < len(segments); i++ {
		if segments[i].Start < segments[i-1].End {
			t.Fatalf("segment %d at %v overlaps predecessor ending at %v",
				i, segments[i].Start, segments[i-1].End)
		}
	}
	if segments[1].Text != "sorry to interrupt but which order" {
		t.Fatalf("crosstalk text lost: %+v", segments[1])
	}
}
