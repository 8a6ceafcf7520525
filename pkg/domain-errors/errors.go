// Package dErrors provides coded domain errors. Services return these so
// transports can translate failures uniformly and callers can branch on the
// failure kind without string matching.
//
// For infrastructure facts (record absent, row version conflict) stores return
// pkg/platform/sentinel errors; services translate those into coded errors at
// the boundary.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code tags a domain error with its failure kind.
type Code string

const (
	// CodeInvalidInput covers malformed or missing input (ValidationError).
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound covers lookups of records that do not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict covers lost compare-and-swap races (ConcurrentModification).
	CodeConflict Code = "conflict"
	// CodeForbidden covers role/jurisdiction/assignment denials (AuthorizationError).
	CodeForbidden Code = "forbidden"
	// CodeGeofenceViolation covers actions attempted outside the permitted radius.
	CodeGeofenceViolation Code = "geofence_violation"
	// CodeIllegalTransition covers state changes absent from the transition table.
	CodeIllegalTransition Code = "illegal_transition"
	// CodeTerminalState covers transition attempts on verified/rejected documents.
	CodeTerminalState Code = "terminal_state"
	// CodeInvariantViolation covers aggregate invariants broken by a mutation.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnavailable covers external collaborator timeouts and failures.
	CodeUnavailable Code = "unavailable"
	// CodeInternal covers everything the caller cannot act on.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It wraps an optional cause for errors.Is/As.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto the HTTP status the transport layer should emit.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeIllegalTransition, CodeTerminalState, CodeInvariantViolation:
		return http.StatusConflict
	case CodeForbidden, CodeGeofenceViolation:
		return http.StatusForbidden
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
