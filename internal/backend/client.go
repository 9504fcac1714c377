// Package backend defines the generation capability consumed by the
// classifier and the structured extractors, with a live HTTP client and a
// deterministic simulation.
package backend

import (
	"context"
	"fmt"
)

// Client is the consumed generation capability. Implementations are
// selected once at orchestrator construction; callers never inspect the
// concrete type.
type Client interface {
	// Generate returns the model's text answer for a prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateJSON returns the model's answer parsed as a JSON object.
	// A syntactically broken answer surfaces as *MalformedResponseError.
	GenerateJSON(ctx context.Context, prompt string) (map[string]any, error)
	// IsAvailable probes whether the backend can serve requests.
	IsAvailable(ctx context.Context) bool
}

// MalformedResponseError reports a backend answer that was not valid JSON.
type MalformedResponseError struct {
	Snippet string
	Cause   error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("backend returned malformed JSON: %v", e.Cause)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// snippet caps raw response text for error messages and logs.
func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
