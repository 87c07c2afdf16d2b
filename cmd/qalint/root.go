package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"qalint/internal/config"
	"qalint/internal/history"
	"qalint/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	config string
}

var rootCmd = &cobra.Command{
	Use:   "qalint",
	Short: "Guided quality checks for Python projects over MCP",
	Long: "Qalint runs pytest, coverage and flake8 against a Python project and\n" +
		"distills their reports into one actionable issue at a time, served to\n" +
		"coding agents over the Model Context Protocol.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.config, "config", "", "Config file path (default: ./qalint.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.Version = version
}

// loadConfig reads the configuration named by --config, or searches the
// working directory when the flag is unset. The result is validated before
// any command acts on it.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if rootFlags.config != "" {
		cfg, err = config.Load(rootFlags.config)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	return cfg, nil
}

// setupCLI loads the configuration and routes logs to stderr for commands
// that run outside the server.
func setupCLI() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), "text")
	return cfg, nil
}

func openHistory(cfg *config.Config) (history.Store, error) {
	return history.Open(cfg.Abs(cfg.HistoryDB))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
