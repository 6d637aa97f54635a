package pcm

import (
	"math"
	"time"
)

// Buffer holds mono PCM samples normalized to [-1, 1].
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	seconds := float64(len(b.Samples)) / float64(b.SampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// Slice copies the samples between start and end into a new buffer. The range
// is clamped to the underlying data.
func (b *Buffer) Slice(start, end time.Duration) *Buffer {
	if b == nil || b.SampleRate <= 0 {
		return &Buffer{SampleRate: 16000}
	}
	lo := int(start.Seconds() * float64(b.SampleRate))
	hi := int(end.Seconds() * float64(b.SampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(b.Samples) {
		hi = len(b.Samples)
	}
	if lo >= hi {
		return &Buffer{SampleRate: b.SampleRate}
	}
	out := make([]float64, hi-lo)
	copy(out, b.Samples[lo:hi])
	return &Buffer{Samples: out, SampleRate: b.SampleRate}
}

// PeakDB returns the peak level in dBFS, or -96 for silence.
func (b *Buffer) PeakDB() float64 {
	peak := 0.0
	for _, s := range b.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak <= 0 {
		return -96
	}
	return 20 * math.Log10(peak)
}

// RMSDB returns the root-mean-square level of a sample range in dBFS, or -96
// for silence. The range is clamped to the underlying data.
func (b *Buffer) RMSDB(lo, hi int) float64 {
	if b == nil || len(b.Samples) == 0 {
		return -96
	}
	if lo < 0 {
		lo = 0
	}
	if hi > len(b.Samples) {
		hi = len(b.Samples)
	}
	if lo >= hi {
		return -96
	}
	var sum float64
	for _, s := range b.Samples[lo:hi] {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(hi-lo))
	if rms <= 0 {
		return -96
	}
	return 20 * math.Log10(rms)
}
