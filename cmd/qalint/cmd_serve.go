package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"qalint/internal/logging"
	"qalint/internal/logindex"
	mcpserver "qalint/internal/mcp"
	"qalint/internal/metrics"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var serveFlags struct {
	transport string
	addr      string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio or HTTP",
	Long: `Starts the qalint MCP server. Over stdio the editor launches qalint as a
child process and speaks MCP on stdin/stdout; logs go to stderr and to a
timestamped file under the log directory.

The stdio server monitors for parent process death. When the editor
disconnects or restarts, the server self-terminates to prevent zombie
processes.

The http transport serves MCP at /mcp and Prometheus metrics at /metrics.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.transport, "transport", "stdio", "MCP transport: stdio or http")
	f.StringVar(&serveFlags.addr, "addr", ":8716", "Listen address for the http transport")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logPath, err := logging.Setup(cfg.Abs(cfg.LogDir), logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("set up log file: %w", err)
	}

	hist, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer hist.Close()

	srv := mcpserver.NewServer(cfg, logindex.New(cfg.Abs(cfg.LogDir), logPath), hist)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	log := logging.New("serve")
	switch serveFlags.transport {
	case "stdio":
		mcpserver.WatchParent(ctx, cancel)
		log.Info("starting qalint MCP server over stdio (parent watchdog active)", "log_file", logPath)
		return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
	case "http":
		return serveHTTP(ctx, cancel, srv, log)
	default:
		return fmt.Errorf("unknown transport %q (available: stdio, http)", serveFlags.transport)
	}
}

func serveHTTP(ctx context.Context, cancel context.CancelFunc, srv *mcpserver.Server, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return srv.MCPServer
	}, nil))
	mux.Handle("/metrics", metrics.Handler())

	httpSrv := &http.Server{
		Addr:    serveFlags.addr,
		Handler: mux,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			log.Info("received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown", "error", err)
		}
		cancel()
	}()

	log.Info("starting qalint MCP server over http", "addr", serveFlags.addr)
	if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
