// Package domainerrors defines the coded errors that cross linkup's service
// boundary. Services translate store sentinels into these; the HTTP layer
// maps codes onto statuses in exactly one place.
//
// Codes describe what the caller did wrong (or that we failed), never how
// the failure happened internally.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for callers.
type Code string

const (
	// CodeNotFound: the referenced record does not exist.
	CodeNotFound Code = "NOT_FOUND"
	// CodeSelfConnection: a user attempted to connect with themselves.
	CodeSelfConnection Code = "SELF_CONNECTION"
	// CodeDuplicateRequest: a record already exists between the pair, in
	// either direction and any state.
	CodeDuplicateRequest Code = "DUPLICATE_REQUEST"
	// CodeAddresseeUnavailable: the addressee is unknown or inactive
	// according to the profile directory.
	CodeAddresseeUnavailable Code = "ADDRESSEE_UNAVAILABLE"
	// CodeUnauthorizedAction: the caller may not mutate this record.
	CodeUnauthorizedAction Code = "UNAUTHORIZED_ACTION"
	// CodeUnauthorizedAccess: the caller may not read this record.
	CodeUnauthorizedAccess Code = "UNAUTHORIZED_ACCESS"
	// CodeInvalidStateTransition: the operation is not legal from the
	// record's current lifecycle state.
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"

	// CodeInvalidInput: malformed request data (bad UUID, missing field).
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeUnauthorized: the caller's identity could not be established.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeInternal: persistence or infrastructure failure; safe generic
	// message for callers, details stay in logs.
	CodeInternal Code = "INTERNAL"
)

// Error is a coded domain error. It may wrap an underlying cause.
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

// New creates a coded error with a caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted caller-facing message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause is
// preserved for errors.Is/As but never shown to callers.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost code carried by err, or CodeInternal when
// err is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
