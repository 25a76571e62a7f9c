package nhlapi

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// ErrorClass classifies an upstream failure for retry policy and metrics.
type ErrorClass string

const (
	// ErrorClassRateLimited covers 429 and 503 responses. Retried with
	// exponential backoff.
	ErrorClassRateLimited ErrorClass = "rate_limited"

	// ErrorClassServer covers the remaining 5xx responses. Retried with
	// linear backoff.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassClient covers every other non-2xx response. Permanent, never
	// retried.
	ErrorClassClient ErrorClass = "client"
)

// APIError is a non-2xx response from the NHL API.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	URL        string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("NHL API %s error (status %d): %s", e.Class, e.StatusCode, e.URL)
}

// classifyStatus maps an HTTP status code to an error class. 429 and 503 both
// signal throttling upstream; the stats API uses 503 for it.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == 429 || code == 503:
		return ErrorClassRateLimited
	case code >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// shouldRetry reports whether an error class is worth retrying.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassRateLimited, ErrorClassServer:
		return true
	default:
		return false
	}
}

// Backoff bases per error class.
const (
	rateLimitBackoffBase = 2 * time.Second
	serverBackoffBase    = 1 * time.Second
)

// backoffFor returns the wait before retry number attempt+1. Rate limits back
// off exponentially (2s, 4s, 8s, ...); server errors linearly (1s, 2s, 3s, ...).
func backoffFor(class ErrorClass, attempt int) time.Duration {
	if class == ErrorClassRateLimited {
		return rateLimitBackoffBase * (1 << attempt)
	}
	return serverBackoffBase * time.Duration(attempt+1)
}
