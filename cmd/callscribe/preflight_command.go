package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"callscribe/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, disk space, and gateway connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			failed := 0
			for _, result := range results {
				mark := "ok"
				if !result.Passed {
					mark = "FAIL"
					failed++
				}
				rows = append(rows, []string{result.Name, mark, result.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "Result", "Detail"},
				rows,
			))
			if failed > 0 {
				return errors.New("one or more preflight checks failed")
			}
			return nil
		},
	}
}
