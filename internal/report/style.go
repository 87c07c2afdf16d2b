package report

import (
	"encoding/json"
	"fmt"

	"qalint/internal/issue"
)

// ParseStyle normalizes a style report: a JSON object mapping file names
// to arrays of findings. Only non-empty arrays contribute. Output order is
// file order as written, then in-file order.
func ParseStyle(data []byte) ([]issue.StyleIssue, error) {
	var issues []issue.StyleIssue
	err := forEachMember(data, func(key string, value json.RawMessage) error {
		var perFile []issue.StyleIssue
		if err := json.Unmarshal(value, &perFile); err != nil {
			return fmt.Errorf("style findings for %q: %w", key, err)
		}
		issues = append(issues, perFile...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}
