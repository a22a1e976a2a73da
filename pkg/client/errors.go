package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrAPIKeyNotSet is returned when no API key was given and the
	// SECAPIO_API_KEY environment variable is empty.
	ErrAPIKeyNotSet = errors.New("sec-api.io API key not set")

	// ErrInvalidAPIKey is returned when sec-api.io answers 403 Forbidden.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrSectionNotFound is returned when the extractor answers 404.
	ErrSectionNotFound = errors.New("section not found")

	// ErrRequest wraps failures of the query API.
	ErrRequest = errors.New("sec-api.io request failed")

	// ErrNoFilings is returned when a metadata query matches nothing.
	ErrNoFilings = errors.New("no filings found")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// APIError is a failed sec-api.io call with its classification.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string

	// RetryAfter is the server's requested wait for 429 responses.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sec-api.io %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("sec-api.io %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// classOf returns the classification of err, or "" for errors that did not
// come from an API call.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ""
}

// retryAfterOf returns the server-requested wait carried by err.
func retryAfterOf(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors (404, 403, ...) fail fast
		return false
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
