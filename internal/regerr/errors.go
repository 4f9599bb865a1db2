// Package regerr defines the error taxonomy shared by every orcsym registry.
//
// Registries never panic across their API. Failures are returned as values
// carrying a Code so callers (the orchestra compiler, opcodes, the host
// application) can decide whether to abort setup, report a per-event
// performance error, or give up on the engine instance.
package regerr

import (
	"errors"
	"fmt"
)

// Code categorizes registry errors.
type Code int

// Unknown is reported by CodeOf for errors that do not belong to the taxonomy.
const Unknown Code = -1

const (
	// OK is the code of a nil error.
	OK Code = iota

	// InvalidName indicates a malformed name or one with disallowed characters.
	InvalidName

	// InvalidArgument indicates a bad size, type field, number or kind.
	InvalidArgument

	// AlreadyExists indicates the name is already registered.
	AlreadyExists

	// Conflict indicates a number collision, a channel type mismatch, or a
	// one-shot operation run twice.
	Conflict

	// NotFound indicates a lookup miss.
	NotFound

	// WrongType indicates the target exists but has the wrong kind
	// (e.g. control metadata on an audio channel).
	WrongType

	// InvalidRange indicates inconsistent control channel metadata.
	InvalidRange

	// OutOfMemory indicates an allocation failure; prior state is untouched.
	OutOfMemory

	// ParseError indicates a malformed plugin directory descriptor.
	ParseError

	// LoadFailure indicates a plugin library failed to load.
	LoadFailure

	// InitError is an initialization-time resolution failure. It aborts the
	// triggering setup operation only.
	InitError

	// PerfError is a performance-time resolution failure. It is reported per
	// event and never stops the audio callback.
	PerfError
)

var codeNames = [...]string{
	OK:              "OK",
	InvalidName:     "INVALID_NAME",
	InvalidArgument: "INVALID_ARGUMENT",
	AlreadyExists:   "ALREADY_EXISTS",
	Conflict:        "CONFLICT",
	NotFound:        "NOT_FOUND",
	WrongType:       "WRONG_TYPE",
	InvalidRange:    "INVALID_RANGE",
	OutOfMemory:     "OUT_OF_MEMORY",
	ParseError:      "PARSE_ERROR",
	LoadFailure:     "LOAD_FAILURE",
	InitError:       "INIT_ERROR",
	PerfError:       "PERF_ERROR",
}

// String returns the upper-case code name.
func (c Code) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// Error is the common error value returned by registries.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the failing operation, e.g. "globals.Create".
	Op string

	// Name is the symbol the operation was given, if any.
	Name string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// New creates an Error with the given code and message.
func New(code Code, op, name, message string) *Error {
	return &Error{Code: code, Op: op, Name: name, Message: message}
}

// Wrap creates an Error that wraps an underlying cause.
func Wrap(code Code, op, name string, err error) *Error {
	return &Error{Code: code, Op: op, Name: name, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the error category.
func (e *Error) ErrorCode() Code {
	return e.Code
}

// Coder is implemented by every error that belongs to the taxonomy,
// including package-specific errors carrying extra data.
type Coder interface {
	error
	ErrorCode() Code
}

// CodeOf returns the Code carried by err, OK for nil, and Unknown for
// errors outside the taxonomy.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var c Coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return Unknown
}

// Is reports whether err carries the given code.
// Uses errors.As to handle wrapped errors.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsNotFound returns true if the error is a lookup miss.
func IsNotFound(err error) bool { return Is(err, NotFound) }

// IsAlreadyExists returns true if the name was already registered.
func IsAlreadyExists(err error) bool { return Is(err, AlreadyExists) }

// IsConflict returns true if the error is a number or type collision.
func IsConflict(err error) bool { return Is(err, Conflict) }

// IsOutOfMemory returns true if the error is an allocation failure.
func IsOutOfMemory(err error) bool { return Is(err, OutOfMemory) }
