package transcription

import "testing"

func TestAssembleDetectsMajorityLanguage(t *testing.T) {
	segments := []SpeakerSegment{
		seg(1, 0, 10, "hello thank you for calling", 0.9),
		seg(2, 11, 18, "I would like to check my balance", 0.8),
	}
	results := []ChunkResult{
		{Index: 0, EndOffset: sec(20), Language: "en-US", Segments: segments[:1]},
		{Index: 1, StartOffset: sec(20), ContentStart: sec(20), EndOffset: sec(50), Language: "si-LK", Segments: segments[1:]},
	}

	transcript := Assemble(segments, results, "si-LK")
	if transcript.DetectedLanguage != "si-LK" {
		t.Fatalf("detected language = %q, want si-LK", transcript.DetectedLanguage)
	}
	if transcript.FullText == "" {
		t.Fatal("full text is empty")
	}
}

func TestAssembleNormalizesPrimaryLanguage(t *testing.T) {
	transcript := Assemble(nil, nil, "si_lk")
	if transcript.DetectedLanguage != "si-LK" {
		t.Fatalf("detected language = %q, want si-LK", transcript.DetectedLanguage)
	}
}

func TestAssembleKeepsUnparseablePrimaryVerbatim(t *testing.T) {
	transcript := Assemble(nil, nil, "not a code")
	if transcript.DetectedLanguage != "not a code" {
		t.Fatalf("detected language = %q, want the raw input", transcript.DetectedLanguage)
	}
}
