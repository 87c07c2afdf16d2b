package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"qalint/internal/config"
	"qalint/internal/envelope"
	"qalint/internal/history"
	"qalint/internal/logging"
	"qalint/internal/logindex"
	"qalint/internal/metrics"
	"qalint/internal/runner"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP SDK server and exposes the quality-check, log and
// history tools to a connected agent.
type Server struct {
	MCPServer *sdkmcp.Server
	Config    *config.Config
	Logs      *logindex.Index
	History   history.Store

	runner *runner.Runner
	log    *slog.Logger
}

// NewServer creates an MCP server bound to one project. Checks run from the
// configured project root so relative report paths resolve correctly.
func NewServer(cfg *config.Config, logs *logindex.Index, hist history.Store) *Server {
	s := &Server{
		Config:  cfg,
		Logs:    logs,
		History: hist,
		runner:  runner.New(cfg.ProjectRoot),
		log:     logging.New("mcp"),
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "qalint", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_pytest",
		Description: "Run the configured pytest check and analyze the results. Returns the first collection error or test failure to fix, or a success summary.",
	}, s.handleRunPytest)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_coverage",
		Description: "Check code coverage and identify untested code. Returns the first coverage gap to fix, optionally filtered to one file.",
	}, s.handleRunCoverage)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_flake8",
		Description: "Check code style and quality using flake8. Returns the first style issue to fix.",
	}, s.handleRunFlake8)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_autoflake",
		Description: "Detect unused imports and variables, fixing them in place unless fix is disabled.",
	}, s.handleRunAutoflake)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_all",
		Description: "Run the full quality sweep (tests, coverage, style) and return the first issue found, or a combined success.",
	}, s.handleRunAll)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "read_log",
		Description: "Read a log file by index. 0 is the newest file; negative indices count from the oldest.",
	}, s.handleReadLog)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "clear_logs",
		Description: "Delete all log files except the current one. Returns the number of files deleted.",
	}, s.handleClearLogs)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "current_log_file",
		Description: "Return the path of the current log file.",
	}, s.handleCurrentLogFile)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "qa_history",
		Description: "List recent tool runs recorded in the history store, newest first.",
	}, s.handleQAHistory)
}

// --- Tool input/output types ---

type runPytestInput struct {
	FilePath string `json:"file_path,omitempty" jsonschema:"file or directory to test, relative to the project root (empty or . runs everything)"`
}

type runCoverageInput struct {
	FilePath string `json:"file_path,omitempty" jsonschema:"restrict coverage gaps to this file (matched exactly or by trailing path segment)"`
}

type runFlake8Input struct {
	FilePath string `json:"file_path,omitempty" jsonschema:"file or directory to check, relative to the project root (empty or . checks everything)"`
}

type runAutoflakeInput struct {
	FilePath string `json:"file_path,omitempty" jsonschema:"file or directory to analyze (default .)"`
	Fix      *bool  `json:"fix,omitempty" jsonschema:"apply fixes in place (default true)"`
}

type runAllInput struct {
	FilePath string `json:"file_path,omitempty" jsonschema:"restrict coverage gaps to this file; the underlying checks always sweep the whole project"`
}

type readLogInput struct {
	Index int `json:"index,omitempty" jsonschema:"log file index: 0 is the newest, negative counts from the oldest (-1 is the oldest)"`
}

type clearLogsInput struct{}

type clearLogsOutput struct {
	Deleted int `json:"deleted"`
}

type currentLogFileInput struct{}

type currentLogFileOutput struct {
	FilePath string `json:"file_path"`
}

type qaHistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 20)"`
}

type runRecord struct {
	ID        int64  `json:"id"`
	Tool      string `json:"tool"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Issue     any    `json:"issue,omitempty"`
	CreatedAt string `json:"created_at"`
}

type qaHistoryOutput struct {
	Runs []runRecord `json:"runs"`
}

// --- Tool handlers ---

func (s *Server) handleRunPytest(ctx context.Context, _ *sdkmcp.CallToolRequest, input runPytestInput) (*sdkmcp.CallToolResult, envelope.Envelope, error) {
	env := s.dispatch(ctx, "run_pytest", func(ctx context.Context) (envelope.Envelope, error) {
		return s.runPytest(ctx, input.FilePath)
	})
	return nil, env, nil
}

func (s *Server) handleRunCoverage(ctx context.Context, _ *sdkmcp.CallToolRequest, input runCoverageInput) (*sdkmcp.CallToolResult, envelope.Envelope, error) {
	env := s.dispatch(ctx, "run_coverage", func(ctx context.Context) (envelope.Envelope, error) {
		return s.evalCoverage(input.FilePath, "run_coverage")
	})
	return nil, env, nil
}

func (s *Server) handleRunFlake8(ctx context.Context, _ *sdkmcp.CallToolRequest, input runFlake8Input) (*sdkmcp.CallToolResult, envelope.Envelope, error) {
	env := s.dispatch(ctx, "run_flake8", func(ctx context.Context) (envelope.Envelope, error) {
		return s.runFlake8(ctx, input.FilePath)
	})
	return nil, env, nil
}

func (s *Server) handleRunAutoflake(ctx context.Context, _ *sdkmcp.CallToolRequest, input runAutoflakeInput) (*sdkmcp.CallToolResult, envelope.Envelope, error) {
	fix := input.Fix == nil || *input.Fix
	env := s.dispatch(ctx, "run_autoflake", func(ctx context.Context) (envelope.Envelope, error) {
		return s.runAutoflake(ctx, input.FilePath, fix)
	})
	return nil, env, nil
}

func (s *Server) handleRunAll(ctx context.Context, _ *sdkmcp.CallToolRequest, input runAllInput) (*sdkmcp.CallToolResult, envelope.Envelope, error) {
	env := s.dispatch(ctx, "run_all", func(ctx context.Context) (envelope.Envelope, error) {
		return s.runSweep(ctx, input.FilePath)
	})
	return nil, env, nil
}

func (s *Server) handleReadLog(_ context.Context, _ *sdkmcp.CallToolRequest, input readLogInput) (*sdkmcp.CallToolResult, logindex.ReadResult, error) {
	start := time.Now()
	res, err := s.Logs.Read(input.Index)
	s.observe("read_log", start, err)
	if err != nil {
		return nil, logindex.ReadResult{}, err
	}
	return nil, *res, nil
}

func (s *Server) handleClearLogs(_ context.Context, _ *sdkmcp.CallToolRequest, _ clearLogsInput) (*sdkmcp.CallToolResult, clearLogsOutput, error) {
	start := time.Now()
	deleted, err := s.Logs.Clear()
	s.observe("clear_logs", start, err)
	if err != nil {
		return nil, clearLogsOutput{}, err
	}
	return nil, clearLogsOutput{Deleted: deleted}, nil
}

func (s *Server) handleCurrentLogFile(_ context.Context, _ *sdkmcp.CallToolRequest, _ currentLogFileInput) (*sdkmcp.CallToolResult, currentLogFileOutput, error) {
	start := time.Now()
	path, err := s.Logs.Current()
	s.observe("current_log_file", start, err)
	if err != nil {
		return nil, currentLogFileOutput{}, err
	}
	return nil, currentLogFileOutput{FilePath: path}, nil
}

func (s *Server) handleQAHistory(_ context.Context, _ *sdkmcp.CallToolRequest, input qaHistoryInput) (*sdkmcp.CallToolResult, qaHistoryOutput, error) {
	start := time.Now()
	runs, err := s.History.ListRuns(input.Limit)
	s.observe("qa_history", start, err)
	if err != nil {
		return nil, qaHistoryOutput{}, err
	}

	records := make([]runRecord, 0, len(runs))
	for _, run := range runs {
		rec := runRecord{
			ID:        run.ID,
			Tool:      run.Tool,
			Status:    run.Status,
			Message:   run.Message,
			CreatedAt: run.CreatedAt,
		}
		if len(run.Issue) > 0 {
			var v any
			if err := json.Unmarshal(run.Issue, &v); err == nil {
				rec.Issue = v
			}
		}
		records = append(records, rec)
	}
	return nil, qaHistoryOutput{Runs: records}, nil
}

// RunTool executes one envelope-producing tool by its MCP name, outside any
// MCP session. The CLI uses it for one-shot runs; metrics and history record
// these the same as tool calls from a connected agent.
func (s *Server) RunTool(ctx context.Context, tool, filePath string) (envelope.Envelope, error) {
	var fn func(context.Context) (envelope.Envelope, error)
	switch tool {
	case "run_pytest":
		fn = func(ctx context.Context) (envelope.Envelope, error) { return s.runPytest(ctx, filePath) }
	case "run_coverage":
		fn = func(context.Context) (envelope.Envelope, error) { return s.evalCoverage(filePath, tool) }
	case "run_flake8":
		fn = func(ctx context.Context) (envelope.Envelope, error) { return s.runFlake8(ctx, filePath) }
	case "run_autoflake":
		fn = func(ctx context.Context) (envelope.Envelope, error) { return s.runAutoflake(ctx, filePath, true) }
	case "run_all":
		fn = func(ctx context.Context) (envelope.Envelope, error) { return s.runSweep(ctx, filePath) }
	default:
		return envelope.Envelope{}, fmt.Errorf("unknown tool %q", tool)
	}
	return s.dispatch(ctx, tool, fn), nil
}

// dispatch runs one envelope-producing operation: the evaluation runs under
// envelope.Guard so the caller always receives a well-formed envelope, and
// the outcome is counted and recorded in the history store.
func (s *Server) dispatch(ctx context.Context, tool string, fn func(context.Context) (envelope.Envelope, error)) envelope.Envelope {
	start := time.Now()
	env := envelope.Guard(ctx, s.log, tool, fn)
	metrics.RecordToolCall(tool, string(env.Status), time.Since(start))
	s.recordRun(tool, env)
	return env
}

func (s *Server) recordRun(tool string, env envelope.Envelope) {
	run := &history.Run{
		Tool:    tool,
		Status:  string(env.Status),
		Message: env.Message,
	}
	if env.Issue != nil {
		if data, err := json.Marshal(env.Issue); err == nil {
			run.Issue = data
		}
	}
	if _, err := s.History.SaveRun(run); err != nil {
		s.log.Warn("recording run history failed", "tool", tool, "error", err)
	}
}

func (s *Server) observe(tool string, start time.Time, err error) {
	status := string(envelope.StatusSuccess)
	if err != nil {
		status = string(envelope.StatusError)
	}
	metrics.RecordToolCall(tool, status, time.Since(start))
}
