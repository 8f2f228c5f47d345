package soundcloud

import (
	"fmt"
	"time"

	"scbulk/internal/shared"
)

// AuthError indicates the access token expired and the single refresh attempt
// failed. Callers should prompt for re-authentication; the client never
// retries past one refresh.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("session invalid, re-authenticate: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError is the terminal error returned when the retry cap for 429
// responses is exhausted. Rate limiting below the cap is handled internally
// and invisible to callers.
type RateLimitError struct {
	Attempts   int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited after %d retries (last hint %s)", e.Attempts, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return shared.ErrRateLimited }

// UpstreamError represents any other non-success upstream response. The body
// is truncated and sanitized before it is stored, so it is safe to log.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream error: status %d", e.Status)
	}
	return fmt.Sprintf("upstream error: status %d: %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error { return shared.ErrAPIRequest }
