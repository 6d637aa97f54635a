package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"callscribe/internal/pcm"
)

// ToneBuffer builds a sine tone suitable for exercising the audio pipeline.
func ToneBuffer(sampleRate int, seconds, freq, amplitude float64) *pcm.Buffer {
	n := int(seconds * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return &pcm.Buffer{Samples: samples, SampleRate: sampleRate}
}

// SpeechPattern builds alternating speech-like tone and silence spans. Each
// span is (seconds, silent) in order.
func SpeechPattern(sampleRate int, spans ...Span) *pcm.Buffer {
	var samples []float64
	for _, span := range spans {
		n := int(span.Seconds * float64(sampleRate))
		for i := 0; i < n; i++ {
			if span.Silent {
				samples = append(samples, 0)
			} else {
				samples = append(samples, 0.4*math.Sin(2*math.Pi*300*float64(i)/float64(sampleRate)))
			}
		}
	}
	return &pcm.Buffer{Samples: samples, SampleRate: sampleRate}
}

// Span describes one segment of a synthetic recording.
type Span struct {
	Seconds float64
	Silent  bool
}

// WriteWAV encodes the buffer and writes it under dir, returning the path.
func WriteWAV(t testing.TB, dir, name string, buf *pcm.Buffer) string {
	t.Helper()

	data, err := pcm.EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
