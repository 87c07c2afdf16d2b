package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"qalint/internal/issue"
)

// TestReport is the distilled test-run report: run counters plus the two
// failure sequences. Collection failures and test failures stay separate
// and keep their source order; they are never merged.
type TestReport struct {
	Summary           issue.TestSummary         `json:"summary"`
	FailedCollections []issue.CollectionFailure `json:"failed_collections"`
	FailedTests       []issue.TestFailure       `json:"failed_tests"`
}

// ParseTestResults reads a distilled test report.
func ParseTestResults(data []byte) (*TestReport, error) {
	var rep TestReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse test results: %w", err)
	}
	return &rep, nil
}

// EncodeTestReport serializes a distilled report for writing next to the
// raw tool output.
func EncodeTestReport(rep *TestReport) ([]byte, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode test report: %w", err)
	}
	return data, nil
}

// rawTestReport mirrors the parts of a pytest json-report document the
// distiller reads. Collectors stays raw: the field has two shapes in the
// wild (a list of collector records, or an object with an errors list).
type rawTestReport struct {
	Summary    json.RawMessage `json:"summary"`
	Collectors json.RawMessage `json:"collectors"`
	Tests      json.RawMessage `json:"tests"`
}

type rawCollector struct {
	NodeID   string `json:"nodeid"`
	Outcome  string `json:"outcome"`
	Longrepr string `json:"longrepr"`
}

type rawTest struct {
	NodeID   string    `json:"nodeid"`
	Outcome  string    `json:"outcome"`
	Duration float64   `json:"duration"`
	Longrepr string    `json:"longrepr"`
	Setup    *rawPhase `json:"setup"`
	Call     *rawPhase `json:"call"`
	Teardown *rawPhase `json:"teardown"`
}

type rawPhase struct {
	Outcome   string                 `json:"outcome"`
	Crash     *issue.CrashInfo       `json:"crash"`
	Traceback []issue.TracebackEntry `json:"traceback"`
	Longrepr  string                 `json:"longrepr"`
}

// DistillTestReport reduces a raw pytest json-report document to the
// distilled report: failed collectors and failed tests in source order,
// plus the summary counters with the collection-failure count filled in.
func DistillTestReport(data []byte) (*TestReport, error) {
	var raw rawTestReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse test report: %w", err)
	}
	if raw.Tests == nil {
		return nil, fmt.Errorf(`test report has no "tests" key`)
	}

	failedCollections, err := distillCollectors(raw.Collectors)
	if err != nil {
		return nil, err
	}

	var tests []rawTest
	if err := json.Unmarshal(raw.Tests, &tests); err != nil {
		return nil, fmt.Errorf("parse tests: %w", err)
	}
	var failedTests []issue.TestFailure
	for _, test := range tests {
		if test.Outcome != "failed" {
			continue
		}
		failedTests = append(failedTests, issue.TestFailure{
			NodeID:       test.NodeID,
			Outcome:      test.Outcome,
			Message:      test.Longrepr,
			Duration:     test.Duration,
			PhaseDetails: distillPhases(test),
		})
	}

	var summary issue.TestSummary
	if raw.Summary != nil {
		if err := json.Unmarshal(raw.Summary, &summary); err != nil {
			return nil, fmt.Errorf("parse summary: %w", err)
		}
	}
	summary.CollectionFailures = len(failedCollections)

	return &TestReport{
		Summary:           summary,
		FailedCollections: failedCollections,
		FailedTests:       failedTests,
	}, nil
}

// distillCollectors handles both collector shapes: a list of collector
// records with outcomes, or an object carrying an errors list.
func distillCollectors(raw json.RawMessage) ([]issue.CollectionFailure, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] == 'n' {
		return nil, nil
	}

	var records []rawCollector
	switch trimmed[0] {
	case '[':
		var collectors []rawCollector
		if err := json.Unmarshal(raw, &collectors); err != nil {
			return nil, fmt.Errorf("parse collectors: %w", err)
		}
		for _, c := range collectors {
			if c.Outcome == "failed" {
				records = append(records, c)
			}
		}
	case '{':
		var wrapper struct {
			Errors []rawCollector `json:"errors"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("parse collector errors: %w", err)
		}
		records = wrapper.Errors
	default:
		return nil, fmt.Errorf("parse collectors: unexpected shape %s", preview(trimmed))
	}

	var failed []issue.CollectionFailure
	for _, c := range records {
		failed = append(failed, issue.CollectionFailure{
			NodeID:  c.NodeID,
			Message: c.Longrepr,
		})
	}
	return failed, nil
}

// distillPhases keeps only phases that carry failure detail.
func distillPhases(test rawTest) map[string]issue.PhaseDetail {
	phases := make(map[string]issue.PhaseDetail)
	for name, phase := range map[string]*rawPhase{
		"setup":    test.Setup,
		"call":     test.Call,
		"teardown": test.Teardown,
	} {
		if phase == nil {
			continue
		}
		if phase.Crash == nil && len(phase.Traceback) == 0 && phase.Longrepr == "" {
			continue
		}
		phases[name] = issue.PhaseDetail{
			Crash:     phase.Crash,
			Traceback: phase.Traceback,
			Message:   phase.Longrepr,
		}
	}
	if len(phases) == 0 {
		return nil
	}
	return phases
}

func preview(data []byte) string {
	const max = 40
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
