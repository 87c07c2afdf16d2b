// Package history persists the outcome of every tool invocation so past
// runs can be inspected after the fact.
package history

import "encoding/json"

// Run is one recorded tool invocation and its envelope outcome.
type Run struct {
	ID        int64           `json:"id"`
	Tool      string          `json:"tool"`
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Issue     json.RawMessage `json:"issue,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// Store is the persistence facade for run history. Implementations are
// SQLite or in-memory.
type Store interface {
	// SaveRun records a finished run and fills in its ID and CreatedAt.
	SaveRun(run *Run) (int64, error)
	// ListRuns returns the most recent runs, newest first. limit <= 0
	// applies the default of 20.
	ListRuns(limit int) ([]*Run, error)
	// GetRun returns a run by ID, or nil when no such run exists.
	GetRun(id int64) (*Run, error)
	Close() error
}
