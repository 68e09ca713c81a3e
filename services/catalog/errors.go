package catalog

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the catalog has no record for an id.
	ErrNotFound = errors.New("catalog: title not found")
	// ErrUnauthorized is returned when the bearer credential is missing,
	// expired or revoked.
	ErrUnauthorized = errors.New("catalog: credential rejected")
	// ErrValidation is returned for malformed input before any request is
	// issued.
	ErrValidation = errors.New("catalog: invalid input")
)

// ServerError reports a transient upstream failure (5xx or throttling).
type ServerError struct {
	Status    int
	RequestID string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("catalog: server error (status %d, request %s)", e.Status, e.RequestID)
}

// ClientError reports a request the server rejected outright. Unlike
// ServerError these are never retried.
type ClientError struct {
	Status    int
	RequestID string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("catalog: request rejected (status %d, request %s)", e.Status, e.RequestID)
}

// NetworkError reports that no usable response arrived at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("catalog: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether the error is the result of a superseded
// request. Cancelled requests are discarded silently, never surfaced.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
