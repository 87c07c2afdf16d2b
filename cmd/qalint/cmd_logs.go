package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"qalint/internal/format"
	"qalint/internal/logindex"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect qalint server log files",
	Long:  "List, read and clear the timestamped log files the server writes.",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List log files, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := setupCLI()
		if err != nil {
			return err
		}
		files, err := logindex.New(cfg.Abs(cfg.LogDir), "").List()
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No log files found.")
			return nil
		}

		tb := format.New(false)
		tb.Header("Index", "Modified", "Path")
		for i, f := range files {
			tb.Row(i, f.ModTime.Format(time.RFC3339), f.Path)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tb.String())
		return nil
	},
}

var logsReadCmd = &cobra.Command{
	Use:   "read [index]",
	Short: "Print one log file's entries (0 = newest, -1 = oldest)",
	Long: `Prints the JSON-line entries of one log file. Index 0 is the newest
file, -1 the oldest. Negative indexes need a -- separator:

  qalint logs read -- -1`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setupCLI()
		if err != nil {
			return err
		}
		index := 0
		if len(args) == 1 {
			index, err = strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index must be an integer, got %q", args[0])
			}
		}

		res, err := logindex.New(cfg.Abs(cfg.LogDir), "").Read(index)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%d entries)\n", res.FilePath, res.EntryCount)
		for _, entry := range res.Entries {
			line, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			fmt.Fprintln(out, string(line))
		}
		return nil
	},
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all log files except the newest one",
	Long: `Deletes every log file except the newest, which a running server may
still be writing to. With no log files at all there is nothing to spare
and the command refuses.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := setupCLI()
		if err != nil {
			return err
		}
		current, err := currentLogPath(cfg.Abs(cfg.LogDir))
		if err != nil {
			return err
		}
		deleted, err := logindex.New(cfg.Abs(cfg.LogDir), current).Clear()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d log file(s).\n", deleted)
		return nil
	},
}

// currentLogPath treats the newest log file as the active one so clear can
// spare it. The server process knows its own file; the CLI has to infer it.
func currentLogPath(dir string) (string, error) {
	files, err := logindex.New(dir, "").List()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", logindex.ErrNoCurrentLog
		}
		return "", err
	}
	if len(files) == 0 {
		return "", logindex.ErrNoCurrentLog
	}
	return files[0].Path, nil
}

func init() {
	logsCmd.AddCommand(logsListCmd)
	logsCmd.AddCommand(logsReadCmd)
	logsCmd.AddCommand(logsClearCmd)
	rootCmd.AddCommand(logsCmd)
}
