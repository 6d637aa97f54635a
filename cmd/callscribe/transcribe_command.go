package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"callscribe/internal/logging"
	"callscribe/internal/preprocess"
	"callscribe/internal/services/sttapi"
	"callscribe/internal/transcription"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var outputPath string

	cmd := &cobra.Command{
		Use:   "transcribe <path>",
		Short: "Transcribe a single recording without queueing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			raw, err := os.ReadFile(absPath)
			if err != nil {
				return fmt.Errorf("read recording: %w", err)
			}

			logger := logging.NewNop()
			buf, err := preprocess.NewProcessor(cfg.Preprocess, logger).Run(raw)
			if err != nil {
				return err
			}

			client := sttapi.NewClient(sttapi.Config{
				BaseURL:        cfg.STT.BaseURL,
				APIKey:         cfg.STT.APIKey,
				TimeoutSeconds: cfg.STT.TimeoutSeconds,
			}, sttapi.WithRetryMaxAttempts(cfg.STT.RetryMaxAttempts))

			pipeline := transcription.NewPipeline(cfg, client, logger)
			transcript, report, err := pipeline.Run(cmd.Context(), buf)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputPath != "" {
				if err := os.WriteFile(outputPath, []byte(transcription.FormatTranscript(transcript)), 0o644); err != nil {
					return fmt.Errorf("write transcript: %w", err)
				}
				fmt.Fprintf(out, "Wrote transcript to %s\n", outputPath)
			}

			if jsonOutput {
				payload := struct {
					Transcript *transcription.Transcript    `json:"transcript"`
					Quality    *transcription.QualityReport `json:"quality"`
				}{transcript, report}
				encoded, err := json.MarshalIndent(payload, "", "  ")
				if err != nil {
					return fmt.Errorf("encode result: %w", err)
				}
				fmt.Fprintln(out, string(encoded))
				return nil
			}

			text := transcription.FormatTranscript(transcript)
			if strings.TrimSpace(text) == "" {
				fmt.Fprintln(out, "No speech detected")
			} else {
				fmt.Fprint(out, text)
			}

			rows := [][]string{
				{"Language", transcript.DetectedLanguage},
				{"Confidence", fmt.Sprintf("%.2f", transcript.OverallConfidence)},
				{"Chunks", fmt.Sprintf("%d/%d", report.SuccessfulChunks, report.ChunkCount)},
				{"Speakers", fmt.Sprintf("%d", report.DetectedSpeakers)},
				{"Quality passed", yesNo(report.QualityPassed)},
				{"Fallback used", yesNo(report.FallbackUsed)},
			}
			if report.NeedsReview {
				rows = append(rows, []string{"Needs review", report.ReviewReason})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the transcript and quality report as JSON")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the formatted transcript to a file")
	return cmd
}
