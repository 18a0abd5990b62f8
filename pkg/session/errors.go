package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("session: already started")

	// ErrStartFailed marks a fatal session-start failure. Wrapped by StartError.
	ErrStartFailed = errors.New("session: start failed")

	// ErrClosed is returned when using a session after Close.
	ErrClosed = errors.New("session: closed")

	// ErrNotFound is returned by Manager when no session has the given ID.
	ErrNotFound = errors.New("session: not found")

	// ErrUnknownEvent is returned by Dispatch for unrecognised event kinds.
	ErrUnknownEvent = errors.New("session: unknown event")
)

// ReloadMessage is shown to the user when a session cannot start.
const ReloadMessage = "Could not start the AR experience. Please reload the page."

// StartError is the fatal error kind: the tracker could not start (camera
// permission denied, target files missing). No recovery is attempted.
type StartError struct {
	SessionID string
	Err       error
}

// Error implements the error interface.
func (e *StartError) Error() string {
	return fmt.Sprintf("session %s: start failed: %v", e.SessionID, e.Err)
}

// Unwrap returns the underlying error.
func (e *StartError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStartFailed) true for every StartError.
func (e *StartError) Is(target error) bool {
	return target == ErrStartFailed
}
