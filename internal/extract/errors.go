package extract

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingAPIKey means the selected provider has no credential configured.
var ErrMissingAPIKey = errors.New("missing text-completion API key")

// ErrEmptyOutput means the service answered without any output text.
var ErrEmptyOutput = errors.New("empty output text")

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// APIError is a non-retryable non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
