// Package logindex tracks the server's log files and exposes them for
// inspection. The current log file is fixed when the index is created;
// older files are discovered by scanning the log directory.
package logindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"qalint/internal/logging"
)

// ErrNoCurrentLog is returned when the index has no active log file,
// for example when running outside a server process.
var ErrNoCurrentLog = errors.New("no log file has been set")

// RangeError reports a log file index outside the valid window.
// With N files the valid indices are -N through N-1.
type RangeError struct {
	Index int
	Count int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("log file index %d out of range. Available range: %d to %d", e.Index, -e.Count, e.Count-1)
}

// LogFile is one discovered log file.
type LogFile struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"modified_time"`
}

// Record is one parsed log entry. Entries are JSON lines written by the
// logging setup; their shape is passed through as-is.
type Record map[string]any

// ReadResult is the payload returned for a single log file.
type ReadResult struct {
	FilePath   string   `json:"file_path"`
	Entries    []Record `json:"entries"`
	EntryCount int      `json:"entry_count"`
}

// Index reads and manages the log files in one directory.
type Index struct {
	dir     string
	current string
	log     *slog.Logger
}

// New returns an index over dir. current is the path of the active log
// file and may be empty when no server is writing logs.
func New(dir, current string) *Index {
	return &Index{
		dir:     dir,
		current: current,
		log:     logging.New("logindex"),
	}
}

// Current returns the path of the active log file.
func (ix *Index) Current() (string, error) {
	if ix.current == "" {
		return "", ErrNoCurrentLog
	}
	return ix.current, nil
}

// List returns all log files in the directory, newest first.
func (ix *Index) List() ([]LogFile, error) {
	entries, err := os.ReadDir(ix.dir)
	if err != nil {
		return nil, fmt.Errorf("list log dir: %w", err)
	}

	var files []LogFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			ix.log.Warn("skipping unreadable log file", "file", entry.Name(), "error", err)
			continue
		}
		files = append(files, LogFile{
			Path:    filepath.Join(ix.dir, entry.Name()),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Path > files[j].Path
	})
	return files, nil
}

// Read parses the log file selected by index. Files are ordered newest
// first, and negative indices count from the end of that ordering, so 0
// is the newest file and -1 the oldest. Lines that are not valid JSON
// are skipped and do not count toward EntryCount.
func (ix *Index) Read(index int) (*ReadResult, error) {
	files, err := ix.List()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no log files found in %s", ix.dir)
	}
	// Written without negating index: -math.MinInt overflows back to itself.
	if index >= len(files) || index < -len(files) {
		return nil, &RangeError{Index: index, Count: len(files)}
	}

	pos := index
	if pos < 0 {
		pos += len(files)
	}
	path := files[pos].Path

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read log file %s: %w", path, err)
	}

	result := &ReadResult{FilePath: path, Entries: []Record{}}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			ix.log.Warn("skipping malformed log line", "file", path, "line", i+1, "error", err)
			continue
		}
		result.Entries = append(result.Entries, rec)
	}
	result.EntryCount = len(result.Entries)
	return result, nil
}

// Clear deletes every log file except the current one and returns the
// number of files actually removed. Files that cannot be deleted are
// logged and skipped. The current log file is never a deletion
// candidate, so an index without one refuses to clear anything.
func (ix *Index) Clear() (int, error) {
	if ix.current == "" {
		return 0, ErrNoCurrentLog
	}
	files, err := ix.List()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, file := range files {
		if filepath.Clean(file.Path) == filepath.Clean(ix.current) {
			continue
		}
		if err := os.Remove(file.Path); err != nil {
			ix.log.Warn("failed to delete log file", "file", file.Path, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
