package pcm

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidAudio marks byte buffers that cannot be decoded as WAV audio.
var ErrInvalidAudio = errors.New("invalid audio")

// DecodeWAV decodes a WAV blob into a mono normalized PCM buffer. Multi-channel
// input is downmixed by averaging.
func DecodeWAV(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidAudio)
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a wav file", ErrInvalidAudio)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: read pcm: %v", ErrInvalidAudio, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidAudio)
	}

	channels := 1
	sampleRate := int(dec.SampleRate)
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			channels = buf.Format.NumChannels
		}
		if sampleRate == 0 {
			sampleRate = buf.Format.SampleRate
		}
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing sample rate", ErrInvalidAudio)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch]) / scale
		}
		samples[i] = sum / float64(channels)
	}

	return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
}

// EncodeWAV renders the buffer as a 16-bit mono PCM WAV blob.
func EncodeWAV(buf *Buffer) ([]byte, error) {
	if buf == nil || buf.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing sample rate", ErrInvalidAudio)
	}

	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}

	ws := &writeSeekBuffer{}
	enc := wav.NewEncoder(ws, buf.SampleRate, 16, 1, 1)
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(intBuf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return ws.Bytes(), nil
}

// writeSeekBuffer adapts an in-memory byte slice to io.WriteSeeker so the wav
// encoder can patch RIFF sizes after writing.
type writeSeekBuffer struct {
	data []byte
	pos  int
}

func (w *writeSeekBuffer) Write(p []byte) (int, error) {
	if needed := w.pos + len(p); needed > len(w.data) {
		grown := make([]byte, needed)
		copy(grown, w.data)
		w.data = grown
	}
	copy(w.data[w.pos:], p)
	w.pos += len(p)
	return len(p), nil
}

func (w *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(w.pos) + offset
	case io.SeekEnd:
		next = int64(len(w.data)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek: negative position")
	}
	w.pos = int(next)
	return next, nil
}

func (w *writeSeekBuffer) Bytes() []byte {
	return w.data
}
