package chunking

import "time"

// Chunk is one bounded slice of a normalized recording, ready for the speech
// gateway. Offsets are relative to the start of the full recording.
//
// StartOffset marks where the chunk's audio begins, including the overlap
// region carried from the previous chunk. ContentStart marks where new,
// non-overlapping content begins; segments before it duplicate the tail of
// the previous chunk and are removed again during stitching.
type Chunk struct {
	Index           int
	StartOffset     time.Duration
	ContentStart    time.Duration
	EndOffset       time.Duration
	OverlapWithPrev time.Duration
	Audio           []byte
	HardCut         bool
}

// Duration returns the total audio length of the chunk, overlap included.
func (c Chunk) Duration() time.Duration {
	return c.EndOffset - c.StartOffset
}
