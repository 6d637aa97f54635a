package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"callscribe/internal/queue"
	"callscribe/internal/transcription"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var withTranscript bool

	cmd := &cobra.Command{
		Use:   "show <id|uuid>",
		Short: "Display details for a queued call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				call, err := lookupCall(cmd, store, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				rows := [][]string{
					{"ID", strconv.FormatInt(call.ID, 10)},
					{"UUID", call.CallUUID},
					{"Title", call.Title},
					{"Status", string(call.Status)},
					{"Source", call.SourcePath},
					{"Created", call.CreatedAt.Format(time.RFC3339)},
				}
				if call.DetectedLang != "" {
					rows = append(rows, []string{"Language", call.DetectedLang})
					rows = append(rows, []string{"Confidence", fmt.Sprintf("%.2f", call.Confidence)})
					rows = append(rows, []string{"Fallback used", yesNo(call.FallbackUsed)})
				}
				if call.NeedsReview {
					rows = append(rows, []string{"Needs review", call.ReviewReason})
				}
				if call.ErrorMessage != "" {
					rows = append(rows, []string{"Error", call.ErrorMessage})
				}
				if call.ProgressStage != "" {
					rows = append(rows, []string{"Progress", fmt.Sprintf("%s (%.0f%%)", call.ProgressStage, call.ProgressPercent)})
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))

				if withTranscript {
					if strings.TrimSpace(call.TranscriptJSON) == "" {
						fmt.Fprintln(out, "No transcript available")
						return nil
					}
					var transcript transcription.Transcript
					if err := json.Unmarshal([]byte(call.TranscriptJSON), &transcript); err != nil {
						return fmt.Errorf("decode stored transcript: %w", err)
					}
					fmt.Fprint(out, transcription.FormatTranscript(&transcript))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&withTranscript, "transcript", "t", false, "Print the stored transcript")
	return cmd
}

func lookupCall(cmd *cobra.Command, store *queue.Store, key string) (*queue.Call, error) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		call, err := store.GetByID(cmd.Context(), id)
		if err != nil {
			return nil, err
		}
		if call == nil {
			return nil, fmt.Errorf("call %d not found", id)
		}
		return call, nil
	}
	call, err := store.GetByUUID(cmd.Context(), key)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, fmt.Errorf("call %q not found", key)
	}
	return call, nil
}
