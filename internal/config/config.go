// Package config loads the qalint configuration file and applies defaults,
// so the server runs out of the box in a project that has none.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Check is one external quality tool invocation. Command is run through
// the shell from the project root; Report is the project-root-relative
// path of the JSON report the tool writes, empty when the tool produces
// no report file.
type Check struct {
	Command        string `yaml:"command"`
	Report         string `yaml:"report"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Config is the top-level qalint configuration.
type Config struct {
	ProjectRoot string           `yaml:"project_root"`
	ReportsDir  string           `yaml:"reports_dir"`
	LogDir      string           `yaml:"log_dir"`
	LogLevel    string           `yaml:"log_level"`
	HistoryDB   string           `yaml:"history_db"`
	Parallel    int              `yaml:"parallel"`
	Checks      map[string]Check `yaml:"checks"`
}

// Default returns the built-in configuration used when no config file is
// present. The check commands mirror the conventional pytest/flake8
// invocations that write JSON reports under the reports directory.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a qalint configuration from the given YAML file
// path, then fills unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config file in standard locations and loads
// the first one found. Search order: ./qalint.yaml, ./qalint.yml. When
// none exists the built-in defaults are returned.
func LoadDefault() (*Config, error) {
	for _, path := range []string{"qalint.yaml", "qalint.yml"} {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

func applyDefaults(cfg *Config) {
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = "."
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = "reports"
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = filepath.Join(".qalint", "qalint.db")
	}
	if cfg.Parallel == 0 {
		cfg.Parallel = 2
	}
	if cfg.Checks == nil {
		cfg.Checks = map[string]Check{}
	}
	for name, check := range defaultChecks() {
		if _, ok := cfg.Checks[name]; !ok {
			cfg.Checks[name] = check
		}
	}
}

func defaultChecks() map[string]Check {
	return map[string]Check{
		"pytest": {
			Command: "python -m pytest --json-report --json-report-file=reports/pytest_results.json" +
				" --cov --cov-report=json:reports/coverage.json",
			Report:         "reports/pytest_results.json",
			TimeoutSeconds: 600,
		},
		"flake8": {
			Command:        "flake8 --format=json --output-file=reports/flake8.json --max-line-length=89 --ignore=E203,W503",
			Report:         "reports/flake8.json",
			TimeoutSeconds: 120,
		},
		"autoflake": {
			Command: "autoflake --recursive --remove-all-unused-imports --remove-unused-variables" +
				" --remove-duplicate-keys --expand-star-imports --ignore-init-module-imports --quiet",
			TimeoutSeconds: 120,
		},
	}
}

// Abs resolves a project-root-relative path. Absolute paths pass through.
func (c *Config) Abs(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.ProjectRoot, rel)
}

// CheckReportPath returns the absolute report path of a named check, or
// empty when the check is unknown or writes no report.
func (c *Config) CheckReportPath(name string) string {
	check, ok := c.Checks[name]
	if !ok || check.Report == "" {
		return ""
	}
	return c.Abs(check.Report)
}

// RawCoveragePath is where the coverage run writes its raw JSON report.
func (c *Config) RawCoveragePath() string {
	return c.Abs(filepath.Join(c.ReportsDir, "coverage.json"))
}

// CoverageIssuesPath is where distilled coverage gaps are written.
func (c *Config) CoverageIssuesPath() string {
	return c.Abs(filepath.Join(c.ReportsDir, "coverage_issues.json"))
}

// FailedTestsPath is where the distilled test failure report is written.
func (c *Config) FailedTestsPath() string {
	return c.Abs(filepath.Join(c.ReportsDir, "failed_tests.json"))
}

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var recognizedLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks a Config for structural errors. It returns a slice of
// all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Parallel < 0 {
		errs = append(errs, ValidationError{Field: "parallel", Message: "must not be negative"})
	}
	if !recognizedLevels[cfg.LogLevel] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("unrecognized level %q", cfg.LogLevel),
		})
	}
	for name, check := range cfg.Checks {
		if check.Command == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("checks.%s.command", name),
				Message: "is required",
			})
		}
		if check.TimeoutSeconds < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("checks.%s.timeout_seconds", name),
				Message: "must not be negative",
			})
		}
	}
	return errs
}
