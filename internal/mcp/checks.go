package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"qalint/internal/envelope"
	"qalint/internal/issue"
	"qalint/internal/report"
	"qalint/internal/runner"
)

// runPytest executes the pytest check and evaluates its reports.
func (s *Server) runPytest(ctx context.Context, filePath string) (envelope.Envelope, error) {
	check, ok := s.Config.Checks["pytest"]
	if !ok {
		return envelope.Envelope{}, fmt.Errorf("check %q is not configured", "pytest")
	}
	var extra []string
	if filePath != "" && filePath != "." {
		extra = append(extra, filePath)
	}
	res, err := s.runner.Run(ctx, "pytest", check, extra...)
	if err != nil {
		return envelope.Envelope{}, err
	}
	return s.evalPytest(res, "run_pytest")
}

// evalPytest turns a finished pytest run into an envelope. The raw report is
// distilled into the failed-tests report and the raw coverage report into the
// coverage-issues map, then the first failure becomes the issue to fix.
// Collection errors take precedence over test failures.
func (s *Server) evalPytest(res *runner.Result, tool string) (envelope.Envelope, error) {
	reportPath := s.Config.CheckReportPath("pytest")
	data, err := os.ReadFile(reportPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return envelope.Envelope{}, fmt.Errorf("read pytest report: %w", err)
		}
		if res.ExitCode != 0 {
			return envelope.Failure(
				fmt.Sprintf("Pytest failed with exit code %d", res.ExitCode),
				tool,
				"There was an error running pytest. Please check the output above for details on what went wrong. This could be due to test failures, collection errors, or issues with the pytest configuration.",
			), nil
		}
		return envelope.Failure(
			fmt.Sprintf("Pytest report not found: %s", reportPath),
			tool,
			"Pytest ran but wrote no JSON report. Check that pytest-json-report is installed and that the configured report path matches the command's --json-report-file argument.",
		), nil
	}

	rep, err := report.DistillTestReport(data)
	if err != nil {
		return envelope.Failure(
			fmt.Sprintf("Error: Invalid report in %s: %v", reportPath, err),
			tool,
			"There was an error processing the pytest results. Please check if the report file is valid JSON.",
		), nil
	}

	s.writeFailedTests(rep)
	s.distillCoverage()

	if failure, ok := report.First(rep.FailedCollections); ok {
		return envelope.IssuesFound(failure, tool,
			"Don't worry, we've got this! Let's fix this collection error first before running tests. This is typically an import error or missing module. I'll help you understand the error and find a solution. We'll get your tests running in no time!",
		), nil
	}
	if failure, ok := report.First(rep.FailedTests); ok {
		return envelope.IssuesFound(failure, tool,
			"You're making great progress! Let's tackle this test failure together. I'll explain what's happening and suggest how to fix it. Once you've made the changes, call the run_pytest tool again and we'll see if we've resolved it. Remember, test failures are just stepping stones to better code!",
		), nil
	}
	if res.ExitCode != 0 {
		return envelope.Failure(
			fmt.Sprintf("Tests appear to have passed according to the JSON report, but pytest returned a non-zero exit code (%d). This could indicate an issue with the test runner, coverage reporting, or other pytest plugins.", res.ExitCode),
			tool,
			"Review the output above to understand why pytest returned a non-zero exit code. This might be due to coverage issues, deprecation warnings, or other non-test-related problems.",
		), nil
	}
	return envelope.Success(
		"Excellent work! All tests passed successfully with no errors or failures detected. Your code is looking great!",
		"Let's keep the momentum going! Call the mcp tool run_coverage to analyze code coverage and make sure we've tested everything thoroughly.",
	), nil
}

// writeFailedTests persists the distilled test report next to the raw one.
// Failures are logged and skipped so a broken write never masks the run.
func (s *Server) writeFailedTests(rep *report.TestReport) {
	data, err := report.EncodeTestReport(rep)
	if err != nil {
		s.log.Warn("encoding failed-tests report failed", "error", err)
		return
	}
	path := s.Config.FailedTestsPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.Warn("writing failed-tests report failed", "path", path, "error", err)
	}
}

// distillCoverage converts the raw coverage report into the coverage-issues
// map consumed by the coverage tool. A missing raw report is fine (the check
// may run without coverage enabled); anything else is logged and skipped.
func (s *Server) distillCoverage() {
	rawPath := s.Config.RawCoveragePath()
	data, err := os.ReadFile(rawPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("reading raw coverage report failed", "path", rawPath, "error", err)
		}
		return
	}
	issues, err := report.ParseRawCoverage(data, "")
	if err != nil {
		s.log.Warn("distilling coverage report failed", "path", rawPath, "error", err)
		return
	}
	out, err := report.EncodeCoverageIssues(issues)
	if err != nil {
		s.log.Warn("encoding coverage issues failed", "error", err)
		return
	}
	outPath := s.Config.CoverageIssuesPath()
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		s.log.Warn("writing coverage issues failed", "path", outPath, "error", err)
	}
}

// evalCoverage reads the coverage-issues map and reports the first gap,
// optionally restricted to one file. The map is produced by the test run, so
// its absence means tests have not been run yet.
func (s *Server) evalCoverage(filePath, tool string) (envelope.Envelope, error) {
	path := s.Config.CoverageIssuesPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return envelope.Failure(
				fmt.Sprintf("Coverage report not found: %s", path),
				tool,
				"Run the run_pytest tool first to generate coverage data, then check coverage again.",
			), nil
		}
		return envelope.Envelope{}, fmt.Errorf("read coverage report: %w", err)
	}

	issues, err := report.ParseCoverage(data)
	if err != nil {
		return envelope.Failure(
			fmt.Sprintf("Error: Invalid JSON in %s: %v", path, err),
			tool,
			"There was an error processing the coverage report. Please check if the file is valid JSON.",
		), nil
	}
	if filePath != "" {
		issues = filterToFile(issues, filePath)
	}

	if iss, ok := report.First(issues); ok {
		return envelope.IssuesFound(iss, tool,
			"We're making great progress! Let's improve the test coverage for these areas. I'll help you understand what needs to be tested and how to write effective tests for the missing coverage. Once you've added the tests, run the pytest tool again. Remember, better test coverage means more reliable code!",
		), nil
	}
	return envelope.Success(
		"Outstanding job! Your test coverage is complete and comprehensive. You're doing excellent work!",
		"You're on a roll! Let's continue with running the linting tools to make sure your code style is as perfect as your test coverage. Keep up the great work!",
	), nil
}

// filterToFile keeps issues whose file matches the requested path exactly or
// by trailing path segment.
func filterToFile(issues []issue.CoverageIssue, filePath string) []issue.CoverageIssue {
	var out []issue.CoverageIssue
	for _, iss := range issues {
		if iss.FilePath == filePath || strings.HasSuffix(iss.FilePath, "/"+filePath) {
			out = append(out, iss)
		}
	}
	return out
}

// runFlake8 executes the flake8 check and evaluates its report.
func (s *Server) runFlake8(ctx context.Context, filePath string) (envelope.Envelope, error) {
	check, ok := s.Config.Checks["flake8"]
	if !ok {
		return envelope.Envelope{}, fmt.Errorf("check %q is not configured", "flake8")
	}
	s.removeStaleReport("flake8")
	var extra []string
	if filePath != "" && filePath != "." {
		extra = append(extra, filePath)
	}
	res, err := s.runner.Run(ctx, "flake8", check, extra...)
	if err != nil {
		return envelope.Envelope{}, err
	}
	return s.evalFlake8(res, "run_flake8")
}

// evalFlake8 turns a finished flake8 run into an envelope. A missing report
// is treated as a clean run.
func (s *Server) evalFlake8(res *runner.Result, tool string) (envelope.Envelope, error) {
	if res.ExitCode != 0 && strings.Contains(res.Stderr, "No such file or directory") {
		return envelope.Failure(
			fmt.Sprintf("Flake8 failed with error: %s", res.Stderr),
			tool,
			"There was an error running flake8. Please check if flake8 is installed correctly and that the file path is valid.",
		), nil
	}

	reportPath := s.Config.CheckReportPath("flake8")
	data, err := os.ReadFile(reportPath)
	if err != nil {
		if os.IsNotExist(err) {
			return envelope.Success(
				"No issues found (results file not present).",
				"Your code appears to be clean with no unused imports or variables.",
			), nil
		}
		return envelope.Envelope{}, fmt.Errorf("read flake8 report: %w", err)
	}

	issues, err := report.ParseStyle(data)
	if err != nil {
		return envelope.Failure(
			fmt.Sprintf("Error: Invalid JSON in %s: %v", reportPath, err),
			tool,
			"There was an error processing the flake8 results. Please check if the file is valid JSON.",
		), nil
	}

	if iss, ok := report.First(issues); ok {
		return envelope.IssuesFound(iss, tool,
			"Let's fix the issue in the file. After fixing this issue, run the mcp tool run_flake8 again to check for more issues.",
		), nil
	}
	return envelope.Success(
		"Great job! Your code is clean with no unused imports or variables.",
		"Your code is looking great! You are done! Great job! Thank you so much.",
	), nil
}

// runAutoflake executes the autoflake check. With fix enabled the changes are
// applied in place; autoflake reports through its exit code only.
func (s *Server) runAutoflake(ctx context.Context, filePath string, fix bool) (envelope.Envelope, error) {
	check, ok := s.Config.Checks["autoflake"]
	if !ok {
		return envelope.Envelope{}, fmt.Errorf("check %q is not configured", "autoflake")
	}
	var extra []string
	if fix {
		extra = append(extra, "--in-place")
	}
	if filePath == "" {
		filePath = "."
	}
	extra = append(extra, filePath)

	res, err := s.runner.Run(ctx, "autoflake", check, extra...)
	if err != nil {
		return envelope.Envelope{}, err
	}
	if res.ExitCode == 0 {
		return envelope.Success(
			"Autoflake analysis completed successfully.",
			"Great job! Your code is clean and free of unused imports and variables. Keep up the good work!",
		), nil
	}
	s.log.Error("autoflake failed", "exit_code", res.ExitCode, "stderr", res.Stderr)
	return envelope.Failure(
		fmt.Sprintf("Autoflake analysis failed with exit code %d", res.ExitCode),
		"run_autoflake",
		"Let's fix these issues together. I'll help you understand what's wrong and how to fix it. Once you've made the changes, run the autoflake tool again to verify the fixes.",
	), nil
}

// runSweep runs the test and style checks concurrently, then evaluates their
// reports in fixed precedence: tests, then coverage, then style. The first
// envelope that is not a success wins, with its follow-up retargeted at the
// sweep itself so the fix loop re-runs everything.
func (s *Server) runSweep(ctx context.Context, filePath string) (envelope.Envelope, error) {
	s.removeStaleReport("flake8")
	results, err := s.runner.RunAll(ctx, s.Config, []string{"pytest", "flake8"}, s.Config.Parallel)
	if err != nil {
		return envelope.Envelope{}, err
	}

	env, err := s.evalPytest(results[0], "run_all")
	if err != nil || env.Status != envelope.StatusSuccess {
		return env, err
	}
	env, err = s.evalCoverage(filePath, "run_all")
	if err != nil || env.Status != envelope.StatusSuccess {
		return env, err
	}
	env, err = s.evalFlake8(results[1], "run_all")
	if err != nil || env.Status != envelope.StatusSuccess {
		return env, err
	}
	return envelope.Success(
		"All checks passed: tests, coverage, and style are clean.",
		"Excellent work! Your code passes the full quality sweep. Keep up the great work!",
	), nil
}

// removeStaleReport deletes a check's previous report file so findings never
// leak across runs.
func (s *Server) removeStaleReport(name string) {
	path := s.Config.CheckReportPath(name)
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("removing stale report failed", "check", name, "path", path, "error", err)
	}
}
