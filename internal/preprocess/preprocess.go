package preprocess

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"callscribe/internal/config"
	"callscribe/internal/logging"
	"callscribe/internal/pcm"
)

// ErrPreprocess marks audio that cannot be normalized for transcription.
// Failures of this kind are fatal for the whole pipeline run.
var ErrPreprocess = errors.New("preprocess error")

// Processor normalizes raw call audio into the canonical form the chunker and
// the speech gateway expect: mono PCM at the configured sample rate, with
// optional high-pass filtering and headroom normalization.
type Processor struct {
	cfg    config.Preprocess
	logger *slog.Logger
}

// NewProcessor constructs a Processor with the given settings.
func NewProcessor(cfg config.Preprocess, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "preprocess"),
	}
}

// Run decodes and normalizes a raw WAV payload. Each processing step can be
// toggled independently through configuration.
func (p *Processor) Run(raw []byte) (*pcm.Buffer, error) {
	buf, err := pcm.DecodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreprocess, err)
	}
	originalRate := buf.SampleRate
	originalDuration := buf.Duration()

	if p.cfg.ResampleEnabled && p.cfg.TargetSampleRate > 0 && buf.SampleRate != p.cfg.TargetSampleRate {
		buf = resampleLinear(buf, p.cfg.TargetSampleRate)
	}
	if p.cfg.HighPassEnabled {
		cutoff := p.cfg.HighPassHz
		if cutoff < 20 {
			cutoff = 20
		}
		highPass(buf, float64(cutoff))
	}
	if p.cfg.NormalizeEnabled {
		headroom := p.cfg.NormalizeHeadroomDB
		if headroom < 0.1 {
			headroom = 0.1
		}
		normalizePeak(buf, headroom)
	}

	if len(buf.Samples) == 0 {
		return nil, fmt.Errorf("%w: no samples after normalization", ErrPreprocess)
	}

	p.logger.Debug("audio normalized",
		logging.Int("original_rate", originalRate),
		logging.Int("sample_rate", buf.SampleRate),
		logging.Duration("duration", originalDuration),
		logging.Bool("high_pass", p.cfg.HighPassEnabled),
		logging.Bool("normalized", p.cfg.NormalizeEnabled),
	)
	return buf, nil
}

// resampleLinear converts the buffer to outRate using linear interpolation.
func resampleLinear(buf *pcm.Buffer, outRate int) *pcm.Buffer {
	inRate := buf.SampleRate
	if inRate <= 0 || outRate <= 0 || inRate == outRate || len(buf.Samples) == 0 {
		return buf
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(float64(len(buf.Samples)) * ratio)
	if outLen <= 1 {
		outLen = 1
	}
	out := make([]float64, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		if i0 >= len(buf.Samples)-1 {
			out[i] = buf.Samples[len(buf.Samples)-1]
			continue
		}
		frac := srcPos - float64(i0)
		s0 := buf.Samples[i0]
		s1 := buf.Samples[i0+1]
		out[i] = s0 + (s1-s0)*frac
	}
	return &pcm.Buffer{Samples: out, SampleRate: outRate}
}

// highPass applies a single-pole high-pass filter in place. Telephony audio
// carries hum and rumble below the voice band which degrades recognition.
func highPass(buf *pcm.Buffer, cutoffHz float64) {
	if len(buf.Samples) == 0 || buf.SampleRate <= 0 {
		return
	}
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	dt := 1.0 / float64(buf.SampleRate)
	alpha := rc / (rc + dt)

	prevIn := buf.Samples[0]
	prevOut := buf.Samples[0]
	for i := 1; i < len(buf.Samples); i++ {
		in := buf.Samples[i]
		out := alpha * (prevOut + in - prevIn)
		buf.Samples[i] = out
		prevIn = in
		prevOut = out
	}
}

// normalizePeak scales samples so the peak sits headroomDB below full scale.
func normalizePeak(buf *pcm.Buffer, headroomDB float64) {
	peak := 0.0
	for _, s := range buf.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak <= 0 {
		return
	}
	target := math.Pow(10, -headroomDB/20)
	gain := target / peak
	for i := range buf.Samples {
		buf.Samples[i] *= gain
	}
}
