package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/feature-store/pkg/feature"
)

// ErrInvalidResponse is returned when a 2xx response body cannot be decoded.
var ErrInvalidResponse = errors.New("invalid response body")

// ErrorClass represents a classification of failed calls.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// classifyStatus maps an HTTP status to its error class. 2xx and 3xx have none.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// APIError is a non-2xx answer of the feature store.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass

	// Detail is the server's error message.
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("feature store %s error (status %d): %s", e.ErrorClass, e.StatusCode, e.Detail)
}

// Is maps status codes onto the feature error sentinels, so callers can
// test errors.Is(err, feature.ErrNotFound) on either side of the wire.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return target == feature.ErrValidation
	case http.StatusNotFound:
		return target == feature.ErrNotFound
	case http.StatusServiceUnavailable:
		return target == feature.ErrStoreUnavailable
	}
	return false
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass == ErrorClassServer
	}
	var netErr *networkError
	return errors.As(err, &netErr)
}

// networkError wraps transport failures.
type networkError struct {
	err error
}

func (e *networkError) Error() string { return "network error: " + e.err.Error() }

func (e *networkError) Unwrap() error { return e.err }
