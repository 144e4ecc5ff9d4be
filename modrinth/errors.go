package modrinth

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the registry has no record for the requested
// hash or project. It is a valid outcome, not a transport failure.
var ErrNotFound = errors.New("not found on modrinth")

// RateLimitError is returned when the API answers 429. The client
// retries these with backoff; callers only see one after retries are
// exhausted.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by modrinth api, retry after %s", e.RetryAfter)
	}
	return "rate limited by modrinth api"
}

// APIError covers non-2xx responses and undecodable bodies.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api request failed: status %d, body: %s", e.StatusCode, e.Body)
}

// retryable reports whether an error is worth another attempt: transport
// failures and rate limits are, 4xx responses are not.
func retryable(err error) bool {
	var rate *RateLimitError
	if errors.As(err, &rate) {
		return true
	}
	var api *APIError
	if errors.As(err, &api) {
		return api.StatusCode >= 500
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	return true
}
