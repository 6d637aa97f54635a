package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"callscribe/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the call queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(stats))
				for _, status := range queue.AllStatuses() {
					count, ok := stats[status]
					if !ok || count == 0 {
						continue
					}
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, 1)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, value := range listStatuses {
				status, ok := queue.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				calls, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(calls) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(calls))
				for _, call := range calls {
					rows = append(rows, []string{
						strconv.FormatInt(call.ID, 10),
						call.Title,
						string(call.Status),
						call.CreatedAt.Format(time.RFC3339),
						call.DetectedLang,
						formatConfidence(call),
						yesNo(call.NeedsReview),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Created", "Language", "Confidence", "Review"},
					rows,
					0, 5,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id]",
		Short: "Reset failed calls for another attempt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()

				if len(args) == 1 {
					id, err := strconv.ParseInt(args[0], 10, 64)
					if err != nil {
						return fmt.Errorf("invalid call id %q", args[0])
					}
					if _, err := store.Retry(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(out, "Call %d reset for retry\n", id)
					return nil
				}

				failed, err := store.List(cmd.Context(), queue.StatusFailed)
				if err != nil {
					return err
				}
				retried := 0
				for _, call := range failed {
					if _, err := store.Retry(cmd.Context(), call.ID); err != nil {
						return err
					}
					retried++
				}
				fmt.Fprintf(out, "Retried %d failed calls\n", retried)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove calls from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected := 0
			for _, flag := range []bool{clearCompleted, clearFailed, clearAll} {
				if flag {
					selected++
				}
			}
			if selected != 1 {
				return errors.New("specify exactly one of --completed, --failed, or --all")
			}

			return ctx.withStore(func(store *queue.Store) error {
				var statuses []queue.Status
				label := "calls"
				switch {
				case clearCompleted:
					statuses = []queue.Status{queue.StatusCompleted}
					label = "completed calls"
				case clearFailed:
					statuses = []queue.Status{queue.StatusFailed}
					label = "failed calls"
				}

				removed, err := store.Clear(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove completed calls")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove failed calls")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every call")
	return cmd
}

func formatConfidence(call *queue.Call) string {
	if call.Confidence == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", call.Confidence)
}
