package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"callscribe/internal/queue"
	"callscribe/internal/testsupport"
	"callscribe/internal/transcription"
)

func TestShowDisplaysCallDetails(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	call := testsupport.NewCall(t, env.store, "/recordings/billing-dispute.wav")
	transcript := transcription.Transcript{
		Segments: []transcription.SpeakerSegment{
			{Speaker: 1, Start: 0, End: 2 * time.Second, Text: "hello how can I help", Confidence: 0.9},
			{Speaker: 2, Start: 2 * time.Second, End: 4 * time.Second, Text: "my bill is wrong", Confidence: 0.85},
		},
		FullText:          "hello how can I help my bill is wrong",
		OverallConfidence: 0.88,
		DetectedLanguage:  "si-LK",
	}
	encoded, err := json.Marshal(transcript)
	if err != nil {
		t.Fatalf("marshal transcript: %v", err)
	}
	call.Status = queue.StatusCompleted
	call.TranscriptJSON = string(encoded)
	call.DetectedLang = "si-LK"
	call.Confidence = 0.88
	if err := env.store.Update(ctx, call); err != nil {
		t.Fatalf("update call: %v", err)
	}

	out, _, err := runCLI(t, []string{"show", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "billing-dispute")
	requireContains(t, out, "completed")
	requireContains(t, out, "si-LK")

	out, _, err = runCLI(t, []string{"show", "1", "--transcript"}, env.configPath)
	if err != nil {
		t.Fatalf("show transcript: %v", err)
	}
	requireContains(t, out, "Speaker 1: hello how can I help")
	requireContains(t, out, "Speaker 2: my bill is wrong")

	out, _, err = runCLI(t, []string{"show", call.CallUUID}, env.configPath)
	if err != nil {
		t.Fatalf("show by uuid: %v", err)
	}
	requireContains(t, out, call.CallUUID)
}

func TestShowUnknownCall(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"show", "42"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown call")
	}
}
