package chunking

import (
	"math"
	"testing"
	"time"

	"callscribe/internal/config"
	"callscribe/internal/logging"
	"callscribe/internal/pcm"
)

func testConfig() config.Chunking {
	return config.Chunking{
		TargetSeconds:  22,
		MaxSeconds:     25,
		MinSeconds:     20,
		MinSilenceMs:   700,
		OverlapSeconds: 1.0,
	}
}

// buildAudio constructs a synthetic recording from (speech, silence) spans.
func buildAudio(rate int, spans ...span) *pcm.Buffer {
	var samples []float64
	for _, sp := range spans {
		n := int(sp.seconds * float64(rate))
		for i := 0; i < n; i++ {
			if sp.silent {
				samples = append(samples, 0)
			} else {
				samples = append(samples, 0.4*math.Sin(2*math.Pi*300*float64(i)/float64(rate)))
			}
		}
	}
	return &pcm.Buffer{Samples: samples, SampleRate: rate}
}

type span struct {
	seconds float64
	silent  bool
}

func speech(seconds float64) span { return span{seconds: seconds} }
func pause(seconds float64) span  { return span{seconds: seconds, silent: true} }

func TestSplitShortRecordingYieldsSingleChunk(t *testing.T) {
	chunker := NewChunker(testConfig(), logging.NewNop())
	buf := buildAudio(8000, speech(10))

	chunks, err := chunker.Split(buf)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].StartOffset != 0 || chunks[0].OverlapWithPrev != 0 {
		t.Fatalf("single chunk must not carry overlap: %+v", chunks[0])
	}
	if len(chunks[0].Audio) == 0 {
		t.Fatal("chunk audio is empty")
	}
}

func TestSplitPrefersSilenceCutPoints(t *testing.T) {
	chunker := NewChunker(testConfig(), logging.NewNop())
	// Silence at ~21s and ~42s: both inside the [20s, 25s] window from the
	// respective chunk starts, so both should become cut points.
	buf := buildAudio(8000,
		speech(21), pause(1),
		speech(20), pause(1),
		speech(17),
	)

	chunks, err := chunker.Split(buf)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.HardCut {
			t.Fatalf("chunk %d should be a silence cut, got hard cut", i)
		}
	}
	// First cut should land in the middle of the first silence.
	cut := chunks[0].EndOffset
	if cut < 21*time.Second || cut > 22*time.Second {
		t.Fatalf("first cut outside silence run: %v", cut)
	}
}

func TestSplitHardCutsWithoutSilence(t *testing.T) {
	chunker := NewChunker(testConfig(), logging.NewNop())
	buf := buildAudio(8000, speech(60))

	chunks, err := chunker.Split(buf)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks for 60s of continuous speech, got %d", len(chunks))
	}
	if !chunks[0].HardCut || !chunks[1].HardCut {
		t.Fatal("expected hard cuts when no silence is available")
	}
	if got := chunks[0].EndOffset; got != 25*time.Second {
		t.Fatalf("expected hard cut at 25s, got %v", got)
	}
}

func TestSplitContentRegionsCoverRecording(t *testing.T) {
	chunker := NewChunker(testConfig(), logging.NewNop())
	buf := buildAudio(8000,
		speech(23), pause(1),
		speech(30), pause(1),
		speech(25),
	)

	chunks, err := chunker.Split(buf)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	cursor := time.Duration(0)
	for i, ch := range chunks {
		if ch.ContentStart != cursor {
			t.Fatalf("chunk %d content starts at %v, want %v", i, ch.ContentStart, cursor)
		}
		if ch.EndOffset <= ch.ContentStart {
			t.Fatalf("chunk %d has empty content region", i)
		}
		cursor = ch.EndOffset
	}
	if diff := (buf.Duration() - cursor).Abs(); diff > 50*time.Millisecond {
		t.Fatalf("chunks end at %v, recording is %v", cursor, buf.Duration())
	}
}

func TestSplitOverlapCarriedFromPreviousChunk(t *testing.T) {
	chunker := NewChunker(testConfig(), logging.NewNop())
	buf := buildAudio(8000, speech(60))

	chunks, err := chunker.Split(buf)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i, ch := range chunks {
		if i == 0 {
			continue
		}
		if ch.OverlapWithPrev != time.Second {
			t.Fatalf("chunk %d overlap = %v, want 1s", i, ch.OverlapWithPrev)
		}
		if ch.StartOffset != ch.ContentStart-time.Second {
			t.Fatalf("chunk %d start = %v, content = %v", i, ch.StartOffset, ch.ContentStart)
		}
	}
}

func TestSplitMergesShortTail(t *testing.T) {
	chunker := NewChunker(testConfig(), logging.NewNop())
	// 26s continuous: a 25s hard cut would strand a 1s tail, which should be
	// folded into a single longer final chunk instead.
	buf := buildAudio(8000, speech(26))

	chunks, err := chunker.Split(buf)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected tail merged into 1 chunk, got %d", len(chunks))
	}
}

func TestSplitRejectsEmptyRecording(t *testing.T) {
	chunker := NewChunker(testConfig(), logging.NewNop())
	if _, err := chunker.Split(&pcm.Buffer{SampleRate: 8000}); err == nil {
		t.Fatal("expected error for empty recording")
	}
}

func TestDetectSilencesFindsQuietRuns(t *testing.T) {
	buf := buildAudio(8000, speech(2), pause(1), speech(2))
	runs := detectSilences(buf, 0, 700*time.Millisecond)
	if len(runs) != 1 {
		t.Fatalf("expected 1 silence run, got %d", len(runs))
	}
	mid := runs[0].midpoint()
	if mid < 2300*time.Millisecond || mid > 2700*time.Millisecond {
		t.Fatalf("silence midpoint %v outside expected range", mid)
	}
}

func TestDetectSilencesIgnoresShortGaps(t *testing.T) {
	buf := buildAudio(8000, speech(2), pause(0.3), speech(2))
	runs := detectSilences(buf, 0, 700*time.Millisecond)
	if len(runs) != 0 {
		t.Fatalf("expected no runs for 300ms gap, got %d", len(runs))
	}
}

func TestSplitChunkAudioMatchesOffsets(t *testing.T) {
	chunker := NewChunker(testConfig(), logging.NewNop())
	buf := buildAudio(8000, speech(60))

	chunks, err := chunker.Split(buf)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected a multi-chunk split, got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		decoded, err := pcm.DecodeWAV(ch.Audio)
		if err != nil {
			t.Fatalf("chunk %d audio does not decode: %v", i, err)
		}
		want := ch.EndOffset - ch.StartOffset
		if diff := (decoded.Duration() - want).Abs(); diff > 10*time.Millisecond {
			t.Fatalf("chunk %d audio is %v, offsets span %v", i, decoded.Duration(), want)
		}
	}
}
