// Package runner executes configured quality checks through the shell
// and captures their outcome. A check's non-zero exit code is data, not
// an error: the evaluation layer decides what it means.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"qalint/internal/config"
	"qalint/internal/logging"
)

// Result captures one finished check invocation.
type Result struct {
	Check    string
	ExitCode int
	Duration time.Duration
	Stdout   string
	Stderr   string
}

// Runner executes checks from a fixed working directory.
type Runner struct {
	dir string
	log *slog.Logger
}

// New returns a Runner rooted at dir, normally the project root.
func New(dir string) *Runner {
	return &Runner{dir: dir, log: logging.New("runner")}
}

// Run executes one check and waits for it to finish. extraArgs are
// appended verbatim to the shell command. The returned error is reserved
// for launch failures and timeouts; tool findings surface as a non-zero
// ExitCode in the Result.
func (r *Runner) Run(ctx context.Context, name string, check config.Check, extraArgs ...string) (*Result, error) {
	if check.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(check.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	command := check.Command
	for _, arg := range extraArgs {
		command += " " + arg
	}

	if check.Report != "" {
		reportDir := filepath.Dir(filepath.Join(r.dir, check.Report))
		if err := os.MkdirAll(reportDir, 0755); err != nil {
			return nil, fmt.Errorf("create report dir: %w", err)
		}
	}

	r.log.Info("running check", "check", name, "command", command)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Check:    name,
		Duration: time.Since(start),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("check %s timed out after %ds", name, check.TimeoutSeconds)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run check %s: %w", name, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	r.log.Debug("check finished",
		"check", name, "exit_code", res.ExitCode, "duration", res.Duration)
	return res, nil
}

// RunAll runs the named checks concurrently, bounded by limit workers.
// Results come back in the same order as names. Unknown check names fail
// before anything is launched.
func (r *Runner) RunAll(ctx context.Context, cfg *config.Config, names []string, limit int) ([]*Result, error) {
	for _, name := range names {
		if _, ok := cfg.Checks[name]; !ok {
			return nil, fmt.Errorf("unknown check %q", name)
		}
	}
	if limit <= 0 {
		limit = 1
	}

	results := make([]*Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range names {
		g.Go(func() error {
			res, err := r.Run(gctx, name, cfg.Checks[name])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
