// Package provider defines the LLM provider abstraction and the ordered
// fallback pool the pipeline agents call through.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider is a single LLM backend capable of serving completions.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name returns the stable identifier the pool and logs use for
	// this backend, e.g. "gemini" or "openai".
	Name() string

	// Complete sends one completion request and returns the model's
	// text output. Implementations honor ctx cancellation.
	Complete(ctx context.Context, req Request) (string, error)
}

// Request configures a completion call.
type Request struct {
	// System is the system instruction, empty for none.
	System string

	// Prompt is the user-turn content. Required.
	Prompt string

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int

	// Temperature controls sampling. Zero means provider default.
	Temperature float64
}

// Result is a successful pool invocation.
type Result struct {
	// Text is the raw model output, untouched by any sanitization.
	Text string

	// Provider names the backend that produced the text.
	Provider string

	// Duration is the wall time of the successful attempt only.
	Duration time.Duration
}

// Error wraps a provider failure with enough context to decide whether
// the pool should have expected a retry to help.
type Error struct {
	Provider  string
	Op        string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a provider Error.
func NewError(providerName, op string, err error, retryable bool) *Error {
	return &Error{Provider: providerName, Op: op, Err: err, Retryable: retryable}
}

// isRetryableStatus reports whether an HTTP status from an upstream API
// indicates a transient condition.
func isRetryableStatus(status int) bool {
	switch status {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}

// isRetryableMessage scans an upstream error body for transient-failure
// markers. Used when the status code alone is ambiguous.
func isRetryableMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "overloaded") ||
		strings.Contains(lower, "temporarily")
}
