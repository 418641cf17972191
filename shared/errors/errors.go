package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

var (
	ErrBoardNotFound       = &ErrorWithStatusCode{Message: "Board not found", StatusCode: http.StatusNotFound}
	ErrStoryNotFound       = &ErrorWithStatusCode{Message: "Story not found", StatusCode: http.StatusNotFound}
	ErrParticipantNotFound = &ErrorWithStatusCode{Message: "Participant not found", StatusCode: http.StatusNotFound}
	ErrNotParticipant      = &ErrorWithStatusCode{Message: "Only board participants can vote", StatusCode: http.StatusForbidden}
	ErrUserNotFound        = &ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
	ErrAssistantDisabled   = &ErrorWithStatusCode{Message: "Assistant is not configured", StatusCode: http.StatusServiceUnavailable}
	ErrAssistantBusy       = &ErrorWithStatusCode{Message: "Assistant is rate limited, try again later", StatusCode: http.StatusTooManyRequests}
)

// PersistenceError wraps a storage failure. Its details are logged, never shown to clients.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence returns err unchanged when it already carries a status code or is
// a PersistenceError, and wraps it otherwise.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var withCode *ErrorWithStatusCode
	if errors.As(err, &withCode) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsNotFound(err error) bool {
	var e *ErrorWithStatusCode
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}
