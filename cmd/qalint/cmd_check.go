package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"qalint/internal/envelope"
	"qalint/internal/logindex"
	mcpserver "qalint/internal/mcp"
)

var checkFlags struct {
	parallel int
}

// checkTools maps CLI check names to their MCP tools.
var checkTools = map[string]string{
	"all":       "run_all",
	"autoflake": "run_autoflake",
	"coverage":  "run_coverage",
	"flake8":    "run_flake8",
	"pytest":    "run_pytest",
}

var checkCmd = &cobra.Command{
	Use:   "check [pytest|coverage|flake8|autoflake|all ...]",
	Short: "Run quality checks and print their result envelopes",
	Long: `Runs the named checks (default: the full sweep) and prints each result
envelope as JSON, exactly as an MCP caller would receive it. The exit
status is non-zero when any envelope reports issues or an error, so the
command can gate CI pipelines without an MCP client.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkFlags.parallel, "parallel", 0, "Max checks running at once during the sweep (default: config parallel)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := setupCLI()
	if err != nil {
		return err
	}
	if checkFlags.parallel > 0 {
		cfg.Parallel = checkFlags.parallel
	}

	tools := make([]string, 0, len(args))
	if len(args) == 0 {
		tools = append(tools, "run_all")
	}
	for _, name := range args {
		tool, ok := checkTools[name]
		if !ok {
			return fmt.Errorf("unknown check %q (available: all, autoflake, coverage, flake8, pytest)", name)
		}
		tools = append(tools, tool)
	}

	hist, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer hist.Close()

	srv := mcpserver.NewServer(cfg, logindex.New(cfg.Abs(cfg.LogDir), ""), hist)

	out := cmd.OutOrStdout()
	notClean := 0
	for _, tool := range tools {
		env, err := srv.RunTool(cmd.Context(), tool, "")
		if err != nil {
			return err
		}
		if env.Status != envelope.StatusSuccess {
			notClean++
		}
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	}
	if notClean > 0 {
		return fmt.Errorf("%d of %d checks reported issues", notClean, len(tools))
	}
	return nil
}
