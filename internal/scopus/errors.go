package scopus

import (
	"errors"
	"fmt"
)

// Common errors returned by the Scopus client.
var (
	// ErrAuthError indicates an authentication error (missing/invalid API key).
	ErrAuthError = errors.New("Scopus authentication error")

	// ErrRateLimited indicates the quota or rate limit has been exceeded.
	ErrRateLimited = errors.New("Scopus rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with Scopus")

	// ErrInvalidResponse indicates a body that does not decode as the expected envelope.
	ErrInvalidResponse = errors.New("invalid response from Scopus")

	// ErrRetryExhausted indicates every attempt of a request failed.
	ErrRetryExhausted = errors.New("Scopus request failed after retries")
)

// APIError represents a non-success HTTP status from the Scopus API.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("Scopus API error (status %d): %s (url: %s)", e.StatusCode, e.Message, e.URL)
	}
	return fmt.Sprintf("Scopus API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match the sentinel that corresponds to the status.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 401 || e.StatusCode == 403:
		return ErrAuthError
	case e.StatusCode == 429:
		return ErrRateLimited
	default:
		return nil
	}
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthError)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// StatusCode extracts the HTTP status from an APIError chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
