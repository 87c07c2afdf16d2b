package issue

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTestSummary_KnownCounters(t *testing.T) {
	in := `{"total": 10, "passed": 7, "failed": 2, "skipped": 1, "collected": 10}`
	var s TestSummary
	if err := json.Unmarshal([]byte(in), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := TestSummary{Total: 10, Passed: 7, Failed: 2, Skipped: 1, Collected: 10}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestTestSummary_PreservesUnknownFields(t *testing.T) {
	in := `{"total": 3, "passed": 3, "rerun": 2, "warnings": ["slow fixture"]}`
	var s TestSummary
	if err := json.Unmarshal([]byte(in), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(s.Extra) != 2 {
		t.Fatalf("Extra = %v, want 2 preserved fields", s.Extra)
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Unmarshal(out): %v", err)
	}
	if got, want := decoded["rerun"], float64(2); got != want {
		t.Errorf("rerun = %v, want %v", got, want)
	}
	if _, ok := decoded["warnings"].([]any); !ok {
		t.Errorf("warnings not preserved: %v", decoded["warnings"])
	}

	var back TestSummary
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal(round trip): %v", err)
	}
	if back.Total != 3 || back.Passed != 3 {
		t.Errorf("counters lost in round trip: %+v", back)
	}
	if diff := cmp.Diff(s.Extra, back.Extra); diff != "" {
		t.Errorf("extras lost in round trip (-want +got):\n%s", diff)
	}
}

func TestTestSummary_RejectsNonObject(t *testing.T) {
	var s TestSummary
	if err := json.Unmarshal([]byte(`[1, 2]`), &s); err == nil {
		t.Error("expected error for non-object summary")
	}
	if err := json.Unmarshal([]byte(`{"total": "many"}`), &s); err == nil {
		t.Error("expected error for non-integer counter")
	}
}

func TestTestFailure_WireShape(t *testing.T) {
	in := `{
		"node_id": "tests/test_app.py::test_run",
		"outcome": "failed",
		"message": "AssertionError: boom",
		"duration": 0.42,
		"phase_details": {
			"call": {
				"crash": {"path": "tests/test_app.py", "lineno": 17, "message": "AssertionError: boom"},
				"traceback": [{"path": "tests/test_app.py", "lineno": 17, "message": "in test_run"}]
			}
		}
	}`
	var f TestFailure
	if err := json.Unmarshal([]byte(in), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if f.NodeID != "tests/test_app.py::test_run" || f.Outcome != "failed" {
		t.Errorf("identity fields wrong: %+v", f)
	}
	call, ok := f.PhaseDetails["call"]
	if !ok {
		t.Fatalf("missing call phase: %+v", f.PhaseDetails)
	}
	if call.Crash == nil || call.Crash.LineNo != 17 {
		t.Errorf("crash detail wrong: %+v", call.Crash)
	}
	if len(call.Traceback) != 1 {
		t.Errorf("traceback wrong: %+v", call.Traceback)
	}
}

func TestCollectionFailure_OptionalMessage(t *testing.T) {
	var cf CollectionFailure
	if err := json.Unmarshal([]byte(`{"node_id": "tests/broken.py"}`), &cf); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	out, err := json.Marshal(cf)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("Unmarshal(out): %v", err)
	}
	if _, present := m["message"]; present {
		t.Errorf("empty message should be omitted: %s", out)
	}
}
