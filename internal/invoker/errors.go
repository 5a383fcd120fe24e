package invoker

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fnolguard/internal/domain"
)

// RateLimitError indicates a model backend returned HTTP 429.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Model      string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Model, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(model string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Model:      model,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Both delay-seconds and HTTP-date forms are accepted. Returns 0 if the
// value is empty, invalid or in the past.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return secs
	}
	if t, err := http.ParseTime(val); err == nil {
		if d := time.Until(t); d > 0 {
			return int(d.Round(time.Second).Seconds())
		}
	}
	return 0
}

// StatusError is a non-2xx reply from a model backend. The body is kept for
// logs but never shown to API callers.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Backend, e.StatusCode, truncate(e.Body, 500))
}

// PublicDetail omits the upstream body.
func (e *StatusError) PublicDetail() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// StatusFailure builds the error for a non-2xx response, turning 429 into a
// RateLimitError.
func StatusFailure(backend, model string, resp *http.Response, body []byte) error {
	baseErr := &StatusError{Backend: backend, StatusCode: resp.StatusCode, Body: string(body)}
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return NewRateLimitError(model, baseErr, retryAfter)
	}
	return baseErr
}

// AsInvocationError wraps a strategy failure in a domain.ModelInvocationError.
// Configuration errors and errors that are already invocation errors pass
// through unchanged.
func AsInvocationError(model string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrModelConfig) || errors.Is(err, domain.ErrModelInvocation) {
		return err
	}
	invErr := &domain.ModelInvocationError{Model: model, Err: err}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		invErr.RetryAfter = rl.RetryAfter
	}
	return invErr
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
