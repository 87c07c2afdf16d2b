package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qalint/internal/format"
)

var historyFlags struct {
	limit    int
	markdown bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent quality-check runs",
	Long:  "Prints the most recent tool runs recorded by the server, newest first.",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyFlags.limit, "limit", 20, "Maximum runs to show")
	f.BoolVar(&historyFlags.markdown, "markdown", false, "Render as a Markdown table")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := setupCLI()
	if err != nil {
		return err
	}

	hist, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer hist.Close()

	runs, err := hist.ListRuns(historyFlags.limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	tb := format.New(historyFlags.markdown)
	tb.Header("ID", "When", "Tool", "Status", "Message")
	tb.WrapColumn(5, 60)
	for _, run := range runs {
		tb.Row(run.ID, run.CreatedAt, run.Tool, run.Status, run.Message)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tb.String())
	return nil
}
