package chunking

import (
	"time"

	"callscribe/internal/pcm"
)

// silenceRelativeDB is how far below the overall track loudness a window must
// fall to count as silence when no explicit threshold is configured.
const silenceRelativeDB = 16.0

// silenceFloorDB is the absolute fallback threshold for tracks too quiet to
// derive a meaningful relative threshold from.
const silenceFloorDB = -45.0

// silenceWindow is the analysis granularity for RMS loudness.
const silenceWindow = 10 * time.Millisecond

type silenceRun struct {
	start time.Duration
	end   time.Duration
}

func (r silenceRun) midpoint() time.Duration {
	return r.start + (r.end-r.start)/2
}

// detectSilences scans the buffer in fixed windows and returns every run of
// consecutive quiet windows at least minLen long.
func detectSilences(buf *pcm.Buffer, thresholdDB float64, minLen time.Duration) []silenceRun {
	if buf == nil || len(buf.Samples) == 0 || buf.SampleRate <= 0 {
		return nil
	}
	if thresholdDB == 0 {
		thresholdDB = deriveThreshold(buf)
	}

	windowSamples := int(float64(buf.SampleRate) * silenceWindow.Seconds())
	if windowSamples < 1 {
		windowSamples = 1
	}

	var runs []silenceRun
	runStart := -1
	total := len(buf.Samples)
	for start := 0; start < total; start += windowSamples {
		end := start + windowSamples
		if end > total {
			end = total
		}
		quiet := buf.RMSDB(start, end) < thresholdDB
		if quiet && runStart < 0 {
			runStart = start
		}
		if !quiet && runStart >= 0 {
			runs = appendRun(runs, buf, runStart, start, minLen)
			runStart = -1
		}
	}
	if runStart >= 0 {
		runs = appendRun(runs, buf, runStart, total, minLen)
	}
	return runs
}

func appendRun(runs []silenceRun, buf *pcm.Buffer, startSample, endSample int, minLen time.Duration) []silenceRun {
	start := sampleOffset(buf, startSample)
	end := sampleOffset(buf, endSample)
	if end-start < minLen {
		return runs
	}
	return append(runs, silenceRun{start: start, end: end})
}

// deriveThreshold anchors the silence threshold to the track's own loudness.
// Telephony recordings vary widely in level, so a fixed threshold either
// misses silences on quiet calls or splits words on loud ones.
func deriveThreshold(buf *pcm.Buffer) float64 {
	loudness := buf.RMSDB(0, len(buf.Samples))
	threshold := loudness - silenceRelativeDB
	if loudness <= silenceFloorDB {
		return silenceFloorDB
	}
	if threshold < silenceFloorDB {
		threshold = silenceFloorDB
	}
	return threshold
}

func sampleOffset(buf *pcm.Buffer, sample int) time.Duration {
	return time.Duration(float64(sample) / float64(buf.SampleRate) * float64(time.Second))
}
