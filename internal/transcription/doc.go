// Package transcription turns chunked call audio into a final transcript.
// It fans chunks out to the speech gateway with bounded concurrency, scores
// each attempt against the quality gate, retries under the configured
// fallback strategy, and stitches per-chunk segments into one ordered,
// speaker-consistent transcript.
package transcription
