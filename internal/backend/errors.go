package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConflict is returned when the backend rejects a reservation slot.
	ErrConflict = errors.New("backend: reservation conflict")
	// ErrUnauthorized covers rejected credentials and missing or expired tokens.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrNotFound is returned for unknown reservations or services.
	ErrNotFound = errors.New("backend: not found")
	// ErrTransport wraps network failures before any response arrived.
	ErrTransport = errors.New("backend: transport failure")
	// ErrInvalidResponse is returned when a response body cannot be decoded.
	ErrInvalidResponse = errors.New("backend: invalid response")
)

// APIError is a non-2xx answer from the backend. Message holds the
// backend's {message} field when it sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("backend returned HTTP %d: %s", e.Status, e.Message)
}

// Is maps status codes onto the package sentinels so callers can use errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	default:
		return false
	}
}

// MessageOf returns the backend message carried by err, if any.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
