package models

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindConflict       ErrorKind = "conflict"
	KindNotFound       ErrorKind = "not_found"
	KindPartialFailure ErrorKind = "partial_failure"
)

// AppError carries the category of a failure so handlers can map it to a status code.
// Step and Completed are only set for partial failures of multi-entity writes.
type AppError struct {
	Kind      ErrorKind
	Message   string
	Step      string
	Completed []string
	Err       error
}

func (e *AppError) Error() string {
	switch {
	case e.Kind == KindPartialFailure && e.Step != "":
		msg := fmt.Sprintf("%s: step %q failed", e.Message, e.Step)
		if len(e.Completed) > 0 {
			msg += fmt.Sprintf(" after [%s]", strings.Join(e.Completed, ", "))
		}
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *AppError) Unwrap() error {
	return e.Err
}

var (
	ErrInvalidID           = NewValidationError("invalid id format")
	ErrScheduleNotFound    = NewNotFoundError("schedule not found")
	ErrPaymentNotFound     = NewNotFoundError("payment not found")
	ErrSessionNotFound     = NewNotFoundError("session not found")
	ErrBookingDeleteFailed = &AppError{Kind: KindPartialFailure, Message: "failed to delete booking"}
)

func NewValidationError(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

func NewConflictError(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func NewPartialFailureError(step string, completed []string, err error) *AppError {
	return &AppError{
		Kind:      KindPartialFailure,
		Message:   "booking partially applied",
		Step:      step,
		Completed: completed,
		Err:       err,
	}
}

// KindOf returns the kind of the first AppError in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
