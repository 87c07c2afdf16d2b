package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"qalint/internal/issue"
)

// coverageEntry is the value shape of one processed-report member.
type coverageEntry struct {
	MissingLines    []int                  `json:"missing_lines,omitempty"`
	MissingBranches []issue.BranchCoverage `json:"missing_branches,omitempty"`
}

// ParseCoverage normalizes a processed coverage report: a JSON object
// mapping "file:section" keys to missing-line and missing-branch sets.
// Members with neither field are dropped. Output order follows the
// document.
func ParseCoverage(data []byte) ([]issue.CoverageIssue, error) {
	var issues []issue.CoverageIssue
	err := forEachMember(data, func(key string, value json.RawMessage) error {
		var entry coverageEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			return fmt.Errorf("coverage entry %q: %w", key, err)
		}
		if len(entry.MissingLines) == 0 && len(entry.MissingBranches) == 0 {
			return nil
		}
		filePath, sectionName := issue.SplitKey(key)
		issues = append(issues, issue.CoverageIssue{
			FilePath:        filePath,
			SectionName:     sectionName,
			MissingLines:    entry.MissingLines,
			MissingBranches: entry.MissingBranches,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// EncodeCoverageIssues writes issues in the processed report form: one
// member per section keyed "file:section", in first-appearance order. A
// lines issue and a branches issue for the same section merge into one
// member.
func EncodeCoverageIssues(issues []issue.CoverageIssue) ([]byte, error) {
	var keys []string
	merged := make(map[string]*coverageEntry)
	for _, ci := range issues {
		key := ci.Key()
		entry, ok := merged[key]
		if !ok {
			entry = &coverageEntry{}
			merged[key] = entry
			keys = append(keys, key)
		}
		entry.MissingLines = append(entry.MissingLines, ci.MissingLines...)
		entry.MissingBranches = append(entry.MissingBranches, ci.MissingBranches...)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("encode coverage key %q: %w", key, err)
		}
		value, err := json.Marshal(merged[key])
		if err != nil {
			return nil, fmt.Errorf("encode coverage entry %q: %w", key, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// rawFileCoverage is the per-file shape of a raw coverage.py JSON report.
// Functions and classes stay raw so their member order survives.
type rawFileCoverage struct {
	MissingLines    []int                  `json:"missing_lines"`
	MissingBranches []issue.BranchCoverage `json:"missing_branches"`
	Functions       json.RawMessage        `json:"functions"`
	Classes         json.RawMessage        `json:"classes"`
}

type rawSectionCoverage struct {
	MissingLines    []int                  `json:"missing_lines"`
	MissingBranches []issue.BranchCoverage `json:"missing_branches"`
}

type namedSection struct {
	name    string
	section rawSectionCoverage
}

// ParseRawCoverage distills a raw coverage.py JSON report ({"files": ...})
// into coverage issues, one per section with missing branches and one per
// section with missing lines. Fully covered files are skipped. When
// specificFile is set only files matching it (exactly, or by trailing path
// segment) contribute. Order follows the document: files, then functions
// before classes within a file.
func ParseRawCoverage(data []byte, specificFile string) ([]issue.CoverageIssue, error) {
	var files json.RawMessage
	err := forEachMember(data, func(key string, value json.RawMessage) error {
		if key == "files" {
			files = value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	var issues []issue.CoverageIssue
	err = forEachMember(files, func(filePath string, value json.RawMessage) error {
		if !isJSONObject(value) {
			return nil
		}
		if specificFile != "" && !matchesFile(filePath, specificFile) {
			return nil
		}
		var file rawFileCoverage
		if err := json.Unmarshal(value, &file); err != nil {
			return fmt.Errorf("coverage data for %q: %w", filePath, err)
		}

		functions, err := decodeSections(file.Functions)
		if err != nil {
			return fmt.Errorf("functions of %q: %w", filePath, err)
		}
		classes, err := decodeSections(file.Classes)
		if err != nil {
			return fmt.Errorf("classes of %q: %w", filePath, err)
		}

		fileHasIssues := len(file.MissingLines) > 0 || len(file.MissingBranches) > 0
		sectionHasIssues := false
		for _, ns := range functions {
			if ns.section.hasIssues() {
				sectionHasIssues = true
				break
			}
		}
		if !sectionHasIssues {
			for _, ns := range classes {
				if ns.section.hasIssues() {
					sectionHasIssues = true
					break
				}
			}
		}
		if !fileHasIssues && !sectionHasIssues {
			return nil
		}

		for _, group := range [][]namedSection{functions, classes} {
			for _, ns := range group {
				if len(ns.section.MissingBranches) > 0 {
					issues = append(issues, issue.CoverageIssue{
						FilePath:        filePath,
						SectionName:     ns.name,
						MissingBranches: ns.section.MissingBranches,
					})
				}
				if len(ns.section.MissingLines) > 0 {
					issues = append(issues, issue.CoverageIssue{
						FilePath:     filePath,
						SectionName:  ns.name,
						MissingLines: ns.section.MissingLines,
					})
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func (s rawSectionCoverage) hasIssues() bool {
	return len(s.MissingLines) > 0 || len(s.MissingBranches) > 0
}

// decodeSections walks a functions or classes object in document order.
func decodeSections(raw json.RawMessage) ([]namedSection, error) {
	if !isJSONObject(raw) {
		return nil, nil
	}
	var out []namedSection
	err := forEachMember(raw, func(key string, value json.RawMessage) error {
		var section rawSectionCoverage
		if err := json.Unmarshal(value, &section); err != nil {
			return fmt.Errorf("section %q: %w", key, err)
		}
		out = append(out, namedSection{name: key, section: section})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// matchesFile reports whether a coverage file path matches the requested
// file: either exactly or as the trailing path segment.
func matchesFile(filePath, specificFile string) bool {
	return filePath == specificFile || strings.HasSuffix(filePath, "/"+specificFile)
}
