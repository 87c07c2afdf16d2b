package runner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qalint/internal/config"
	"qalint/internal/logging"
)

func TestMain(m *testing.M) {
	logging.Init(slog.LevelError, "text")
	os.Exit(m.Run())
}

func TestRun_CapturesOutput(t *testing.T) {
	r := New(t.TempDir())
	res, err := r.Run(context.Background(), "echo", config.Check{Command: "echo hello; echo oops >&2"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "oops" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
	if res.Check != "echo" {
		t.Errorf("Check = %q", res.Check)
	}
}

func TestRun_NonZeroExitIsNotError(t *testing.T) {
	r := New(t.TempDir())
	res, err := r.Run(context.Background(), "fail", config.Check{Command: "exit 3"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestRun_AppendsExtraArgs(t *testing.T) {
	r := New(t.TempDir())
	res, err := r.Run(context.Background(), "echo", config.Check{Command: "echo"}, "src/app.py")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "src/app.py" {
		t.Errorf("Stdout = %q, want src/app.py", res.Stdout)
	}
}

func TestRun_RunsInDir(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	res, err := r.Run(context.Background(), "pwd", config.Check{Command: "pwd"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	if err != nil {
		t.Fatalf("eval stdout: %v", err)
	}
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("eval dir: %v", err)
	}
	if got != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}

func TestRun_CreatesReportDir(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	check := config.Check{
		Command: "echo '{}' > reports/out.json",
		Report:  "reports/out.json",
	}
	if _, err := r.Run(context.Background(), "report", check); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "reports", "out.json")); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

func TestRun_Timeout(t *testing.T) {
	r := New(t.TempDir())
	_, err := r.Run(context.Background(), "slow", config.Check{Command: "sleep 5", TimeoutSeconds: 1})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunAll_PreservesOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Checks = map[string]config.Check{
		"a": {Command: "echo a"},
		"b": {Command: "echo b"},
		"c": {Command: "echo c"},
	}
	r := New(t.TempDir())

	results, err := r.RunAll(context.Background(), cfg, []string{"c", "a", "b"}, 2)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"c", "a", "b"} {
		if results[i].Check != want {
			t.Errorf("results[%d].Check = %q, want %q", i, results[i].Check, want)
		}
		if strings.TrimSpace(results[i].Stdout) != want {
			t.Errorf("results[%d].Stdout = %q, want %q", i, results[i].Stdout, want)
		}
	}
}

func TestRunAll_UnknownCheck(t *testing.T) {
	cfg := config.Default()
	r := New(t.TempDir())

	_, err := r.RunAll(context.Background(), cfg, []string{"pytest", "nonsense"}, 2)
	if err == nil {
		t.Fatal("expected error for unknown check")
	}
	if !strings.Contains(err.Error(), `unknown check "nonsense"`) {
		t.Errorf("unexpected error: %v", err)
	}
}
