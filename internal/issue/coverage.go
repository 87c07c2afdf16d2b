package issue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BranchCoverage is one missed branch arc from a coverage report,
// serialized as a two-element array [source, target]. Endpoints are line
// numbers, or symbolic labels such as "exit" for arcs leaving the section.
type BranchCoverage struct {
	Source any
	Target any
}

// String renders the arc as "source -> target".
func (b BranchCoverage) String() string {
	return fmt.Sprintf("%v -> %v", b.Source, b.Target)
}

// MarshalJSON serializes the arc back to its [source, target] pair form.
func (b BranchCoverage) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{b.Source, b.Target})
}

// UnmarshalJSON deserializes a [source, target] pair. The pair must have
// exactly two elements, each an integer or a string.
func (b *BranchCoverage) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal branch pair: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("branch pair must have exactly 2 elements, got %d", len(raw))
	}
	source, err := decodeBranchEndpoint(raw[0])
	if err != nil {
		return fmt.Errorf("branch source: %w", err)
	}
	target, err := decodeBranchEndpoint(raw[1])
	if err != nil {
		return fmt.Errorf("branch target: %w", err)
	}
	b.Source = source
	b.Target = target
	return nil
}

// decodeBranchEndpoint accepts an integer line number or a string label.
func decodeBranchEndpoint(raw json.RawMessage) (any, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return nil, fmt.Errorf("endpoint %s is neither int nor string", raw)
}

// CoverageIssue is the uncovered remainder of one section (a function or
// class) of one file. Identity is the (FilePath, SectionName) pair; the
// payload is whichever of the missing-line and missing-branch sets the
// report carried.
type CoverageIssue struct {
	FilePath        string           `json:"file_path"`
	SectionName     string           `json:"section_name"`
	MissingLines    []int            `json:"missing_lines,omitempty"`
	MissingBranches []BranchCoverage `json:"missing_branches,omitempty"`
}

// Size is the total count of uncovered units: missing lines plus missing
// branches.
func (c CoverageIssue) Size() int {
	return len(c.MissingLines) + len(c.MissingBranches)
}

// Key returns the "file:section" composite key used by processed coverage
// reports.
func (c CoverageIssue) Key() string {
	return c.FilePath + ":" + c.SectionName
}

// String renders the issue for humans: the section header followed by the
// missing lines and branch arcs.
func (c CoverageIssue) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%s\n", c.FilePath, c.SectionName)
	if len(c.MissingLines) > 0 {
		fmt.Fprintf(&sb, "  Missing lines: %v\n", c.MissingLines)
	}
	if len(c.MissingBranches) > 0 {
		fmt.Fprintf(&sb, "  Missing branches: %d\n", len(c.MissingBranches))
		for _, branch := range c.MissingBranches {
			fmt.Fprintf(&sb, "    %s\n", branch)
		}
	}
	return sb.String()
}

// SplitKey splits a "file:section" composite key at the first colon. A key
// with no colon is treated as a bare file path with an empty section.
func SplitKey(key string) (filePath, sectionName string) {
	filePath, sectionName, _ = strings.Cut(key, ":")
	return filePath, sectionName
}
