package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error surfaced by a controller matches exactly one of
// these through errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("no active principal")
	ErrAuthorization   = errors.New("caller is not the author")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrDecode          = errors.New("failed to encode file")
	ErrRemoteFault     = errors.New("remote call failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// Error codes
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeAuthorization   = "FORBIDDEN"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeDecode          = "DECODE_ERROR"
	CodeRemoteFault     = "REMOTE_FAULT"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
)

// Error carries a stable code for the transport layer next to the wrapped kind.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ========================================
// CONSTRUCTORS
// ========================================

func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Err: ErrValidation}
}

func Unauthenticated() *Error {
	return &Error{Code: CodeUnauthenticated, Message: "sign in required", Err: ErrUnauthenticated}
}

func Authorization(message string) *Error {
	return &Error{Code: CodeAuthorization, Message: message, Err: ErrAuthorization}
}

func PayloadTooLarge(size, limit int64) *Error {
	return &Error{
		Code:    CodePayloadTooLarge,
		Message: fmt.Sprintf("file is %d bytes, limit is %d bytes", size, limit),
		Err:     ErrPayloadTooLarge,
	}
}

func Decode(cause error) *Error {
	return &Error{Code: CodeDecode, Message: "could not read file", Err: fmt.Errorf("%w: %w", ErrDecode, cause)}
}

func NotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Message: what + " not found", Err: ErrNotFound}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message, Err: ErrConflict}
}

// Remote wraps a collaborator failure. The cause stays reachable through
// errors.Is / errors.As.
func Remote(op string, cause error) *Error {
	return &Error{
		Code:    CodeRemoteFault,
		Message: op,
		Err:     fmt.Errorf("%w: %w", ErrRemoteFault, cause),
	}
}

// CodeOf returns the code of the first *Error in the chain, or "" if none.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ========================================
// MULTI-STEP FAILURES
// ========================================

// StepError reports which step of a non-transactional flow failed. Steps
// that ran before it are not rolled back.
type StepError struct {
	Step string
	// IDs of the documents the step failed on, when the step fans out.
	Failed []string
	Err    error
}

func (e *StepError) Error() string {
	if len(e.Failed) > 0 {
		return fmt.Sprintf("step %q failed for [%s]: %v", e.Step, strings.Join(e.Failed, ", "), e.Err)
	}
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepOf returns the failing step name, or "" if err is not a StepError.
func StepOf(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}
