package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a deck or deck card does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps request validation failures
	ErrInvalidInput = errors.New("invalid input")
)

// UpstreamError is a non-success response from Scryfall or a model provider,
// returned after retries are exhausted or for statuses that are never retried.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s error %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s error %d: %s", e.Service, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth retrying (429 and 5xx)
func (e *UpstreamError) Retryable() bool {
	return retryableStatus(e.StatusCode)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// truncateBody keeps error bodies readable in logs and API responses
func truncateBody(b []byte) string {
	const maxLen = 500
	if len(b) > maxLen {
		return string(b[:maxLen]) + "..."
	}
	return string(b)
}
