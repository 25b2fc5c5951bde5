package authclient

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates a request was rejected before any network call.
	ErrValidation = errors.New("validation failed")
	// ErrNetwork indicates a transport failure, an unreadable response, or a
	// non-success response converted with a result's Err method.
	ErrNetwork = errors.New("network error")
)

// StatusError is a non-success response from the authentication service.
// It matches ErrNetwork with errors.Is.
type StatusError struct {
	Action     Action
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned status %d", e.Action, e.StatusCode)
	}
	return fmt.Sprintf("%s: server returned status %d: %s", e.Action, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrNetwork }
