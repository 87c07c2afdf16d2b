package history

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SqlStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSqlStore_SaveAndGet(t *testing.T) {
	s := openTestStore(t)

	run := &Run{
		Tool:    "run_pytest",
		Status:  "Issues Found",
		Message: "1 test failed",
		Issue:   json.RawMessage(`{"node_id":"tests/test_app.py::test_run"}`),
	}
	id, err := s.SaveRun(run)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id == 0 || run.ID != id {
		t.Errorf("SaveRun id = %d, run.ID = %d", id, run.ID)
	}
	if run.CreatedAt == "" {
		t.Error("SaveRun should fill CreatedAt")
	}

	got, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got == nil {
		t.Fatal("GetRun returned nil")
	}
	if got.Tool != "run_pytest" || got.Status != "Issues Found" || got.Message != "1 test failed" {
		t.Errorf("GetRun = %+v", got)
	}
	var issue map[string]string
	if err := json.Unmarshal(got.Issue, &issue); err != nil {
		t.Fatalf("issue payload: %v", err)
	}
	if issue["node_id"] != "tests/test_app.py::test_run" {
		t.Errorf("issue = %v", issue)
	}
}

func TestSqlStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetRun(42)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing run, got %+v", got)
	}
}

func TestSqlStore_ListNewestFirst(t *testing.T) {
	s := openTestStore(t)

	for _, tool := range []string{"run_pytest", "run_coverage", "run_flake8"} {
		if _, err := s.SaveRun(&Run{Tool: tool, Status: "Success"}); err != nil {
			t.Fatalf("SaveRun(%s): %v", tool, err)
		}
	}

	runs, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	want := []string{"run_flake8", "run_coverage", "run_pytest"}
	for i, w := range want {
		if runs[i].Tool != w {
			t.Errorf("runs[%d].Tool = %q, want %q", i, runs[i].Tool, w)
		}
	}

	limited, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns(2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs, got %d", len(limited))
	}
}

func TestSqlStore_NullableFields(t *testing.T) {
	s := openTestStore(t)

	id, err := s.SaveRun(&Run{Tool: "clear_logs", Status: "Success"})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Message != "" {
		t.Errorf("Message = %q, want empty", got.Message)
	}
	if got.Issue != nil {
		t.Errorf("Issue = %s, want nil", got.Issue)
	}
}

func TestSqlStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.SaveRun(&Run{Tool: "run_all", Status: "Error", Message: "boom"}); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	runs, err := s2.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Message != "boom" {
		t.Errorf("reopened runs = %+v", runs)
	}
}

func TestMemStore_MatchesContract(t *testing.T) {
	var s Store = NewMemStore()
	defer s.Close()

	first, err := s.SaveRun(&Run{Tool: "run_pytest", Status: "Success"})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	second, err := s.SaveRun(&Run{Tool: "run_flake8", Status: "Issues Found"})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if second <= first {
		t.Errorf("ids should increase: %d then %d", first, second)
	}

	runs, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].Tool != "run_flake8" {
		t.Errorf("ListRuns = %+v", runs)
	}

	missing, err := s.GetRun(99)
	if err != nil || missing != nil {
		t.Errorf("GetRun(99) = %+v, %v", missing, err)
	}
}
