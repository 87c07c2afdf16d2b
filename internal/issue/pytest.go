package issue

import (
	"encoding/json"
	"fmt"
)

// summaryCounters are the counter fields the pipeline understands. Anything
// else in a summary object rides along in Extra.
var summaryCounters = []string{
	"total", "passed", "failed", "skipped", "errors",
	"xfailed", "xpassed", "collected", "collection_failures",
}

// TestSummary aggregates one test run. Counters the pipeline understands
// are typed fields; unknown fields are preserved verbatim in Extra and
// re-emitted on serialization, so reports from newer tool versions pass
// through without loss.
type TestSummary struct {
	Total              int
	Passed             int
	Failed             int
	Skipped            int
	Errors             int
	XFailed            int
	XPassed            int
	Collected          int
	CollectionFailures int

	Extra map[string]json.RawMessage
}

func (s *TestSummary) counterFields() map[string]*int {
	return map[string]*int{
		"total":               &s.Total,
		"passed":              &s.Passed,
		"failed":              &s.Failed,
		"skipped":             &s.Skipped,
		"errors":              &s.Errors,
		"xfailed":             &s.XFailed,
		"xpassed":             &s.XPassed,
		"collected":           &s.Collected,
		"collection_failures": &s.CollectionFailures,
	}
}

// UnmarshalJSON lifts known counters into typed fields and keeps every
// other member verbatim in Extra.
func (s *TestSummary) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal test summary: %w", err)
	}
	fields := s.counterFields()
	for _, name := range summaryCounters {
		value, ok := raw[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, fields[name]); err != nil {
			return fmt.Errorf("summary counter %q: %w", name, err)
		}
		delete(raw, name)
	}
	if len(raw) > 0 {
		s.Extra = raw
	} else {
		s.Extra = nil
	}
	return nil
}

// MarshalJSON emits all known counters plus the preserved extras.
func (s TestSummary) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(summaryCounters)+len(s.Extra))
	for name, field := range s.counterFields() {
		out[name] = *field
	}
	for name, value := range s.Extra {
		if _, ok := out[name]; !ok {
			out[name] = value
		}
	}
	return json.Marshal(out)
}

// CrashInfo is the crash location reported for a failed test phase.
type CrashInfo struct {
	Path    string `json:"path,omitempty"`
	LineNo  int    `json:"lineno,omitempty"`
	Message string `json:"message,omitempty"`
}

// TracebackEntry is one frame of a failure traceback.
type TracebackEntry struct {
	Path    string `json:"path,omitempty"`
	LineNo  int    `json:"lineno,omitempty"`
	Message string `json:"message,omitempty"`
}

// PhaseDetail is the failure detail of one test phase (setup, call or
// teardown).
type PhaseDetail struct {
	Crash     *CrashInfo       `json:"crash,omitempty"`
	Traceback []TracebackEntry `json:"traceback,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// TestFailure is one failed test with per-phase failure detail.
type TestFailure struct {
	NodeID       string                 `json:"node_id"`
	Outcome      string                 `json:"outcome"`
	Message      string                 `json:"message,omitempty"`
	Duration     float64                `json:"duration,omitempty"`
	PhaseDetails map[string]PhaseDetail `json:"phase_details,omitempty"`
}

// CollectionFailure is a test file that could not be collected, typically
// an import error or a missing module.
type CollectionFailure struct {
	NodeID  string `json:"node_id"`
	Message string `json:"message,omitempty"`
}
