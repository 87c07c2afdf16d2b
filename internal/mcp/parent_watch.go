package mcp

import (
	"context"
	"os"
	"time"

	"qalint/internal/logging"
)

// WatchParent cancels the server context when the parent process goes away.
// Under the stdio transport the parent is the MCP client; an orphaned server
// should exit rather than linger. It must not read stdin, the stdio
// transport owns it, so the parent pid is polled instead.
func WatchParent(ctx context.Context, cancel context.CancelFunc) {
	log := logging.New("mcp")
	ppid := os.Getppid()
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if os.Getppid() != ppid {
					log.Warn("parent process died, shutting down", "was_pid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
