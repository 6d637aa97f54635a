// Package chunking splits normalized call audio into bounded, overlapping
// chunks sized for the speech gateway. Cut points prefer silence midpoints so
// utterances stay intact; when no usable silence exists, the chunker falls
// back to a hard cut at the maximum length.
package chunking
