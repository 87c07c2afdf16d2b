package issue

import (
	"fmt"
	"strings"
)

// StyleIssue is one style-checker finding, carried verbatim. Style tools
// disagree on their JSON shapes, so the record stays an open map; the
// accessors pull the common fields tolerantly and return zero values when
// a field is absent or mistyped.
type StyleIssue map[string]any

func (s StyleIssue) str(keys ...string) string {
	for _, key := range keys {
		if v, ok := s[key].(string); ok {
			return v
		}
	}
	return ""
}

func (s StyleIssue) num(keys ...string) int {
	for _, key := range keys {
		switch v := s[key].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return 0
}

// File returns the path the finding points at.
func (s StyleIssue) File() string {
	return s.str("filename", "file_path", "file")
}

// Line returns the line the finding points at, or 0 when unknown.
func (s StyleIssue) Line() int {
	return s.num("line_number", "line", "row")
}

// Code returns the checker's error code (e.g. "F401").
func (s StyleIssue) Code() string {
	return s.str("code", "error_code")
}

// Text returns the human-readable finding text.
func (s StyleIssue) Text() string {
	return s.str("text", "message", "description")
}

// String renders the finding in the usual checker output form,
// "file:line: code text", from whichever fields are present.
func (s StyleIssue) String() string {
	var sb strings.Builder
	if file := s.File(); file != "" {
		sb.WriteString(file)
		if line := s.Line(); line > 0 {
			fmt.Fprintf(&sb, ":%d", line)
		}
		sb.WriteString(": ")
	}
	if code := s.Code(); code != "" {
		sb.WriteString(code)
		sb.WriteString(" ")
	}
	sb.WriteString(s.Text())
	return strings.TrimSpace(sb.String())
}
