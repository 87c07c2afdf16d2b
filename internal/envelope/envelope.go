// Package envelope defines the uniform tool response: a status, an
// optional message, at most one issue to act on, and instructions for the
// caller's next step. Every remotely invoked operation returns exactly one
// of the three envelope shapes, so an automated caller can drive a
// fix-verify loop without parsing tool-specific output.
package envelope

import (
	"context"
	"log/slog"
)

// Status classifies a tool response.
type Status string

const (
	StatusSuccess     Status = "Success"
	StatusIssuesFound Status = "Issues Found"
	StatusError       Status = "Error"
)

// NextAction names the tool the caller should invoke next and when.
type NextAction struct {
	Tool         string `json:"Tool"`
	Instructions string `json:"Instructions,omitempty"`
}

// Envelope is the uniform tool response. Success carries a message,
// Issues Found carries exactly one issue, Error carries the failure
// message; Instructions always tell the caller what to do next.
type Envelope struct {
	Status       Status      `json:"Status"`
	Message      string      `json:"Message,omitempty"`
	Issue        any         `json:"Issue,omitempty"`
	Instructions string      `json:"Instructions,omitempty"`
	NextAction   *NextAction `json:"NextAction,omitempty"`
}

// Success returns a Success envelope.
func Success(message, instructions string) Envelope {
	return Envelope{Status: StatusSuccess, Message: message, Instructions: instructions}
}

// IssuesFound returns an Issues Found envelope carrying the one issue to
// fix now. The next action points back at the producing tool so the caller
// can verify the fix by re-running it.
func IssuesFound(iss any, tool, instructions string) Envelope {
	return Envelope{
		Status:       StatusIssuesFound,
		Issue:        iss,
		Instructions: instructions,
		NextAction: &NextAction{
			Tool:         tool,
			Instructions: "Run " + tool + " again after fixing this issue.",
		},
	}
}

// Failure returns an Error envelope. When tool is non-empty the next
// action points at it as the remediation step.
func Failure(message, tool, instructions string) Envelope {
	env := Envelope{Status: StatusError, Message: message, Instructions: instructions}
	if tool != "" {
		env.NextAction = &NextAction{Tool: tool}
	}
	return env
}

// Guard runs fn and converts any returned error or panic into an Error
// envelope, so a tool boundary always yields a well-formed result. The
// failure detail goes to the log, not to the caller.
func Guard(ctx context.Context, log *slog.Logger, tool string, fn func(context.Context) (Envelope, error)) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("tool panicked", "tool", tool, "panic", r)
			env = guardFailure(tool)
		}
	}()
	env, err := fn(ctx)
	if err != nil {
		log.Error("tool failed", "tool", tool, "error", err)
		return guardFailure(tool)
	}
	return env
}

func guardFailure(tool string) Envelope {
	return Failure(
		"An unexpected error occurred",
		tool,
		"Please check the logs for more details. If the issue persists, contact support.",
	)
}
