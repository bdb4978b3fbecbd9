// Package errs defines the error taxonomy shared by the bgmd core and the
// process-scoped error context that the call surface reports through.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure
type Kind int

const (
	// Validation covers unresolved songs, unknown attributes, bad values and
	// unrecognized sources.
	Validation Kind = iota
	// State covers operations that are invalid for the current state.
	State
	// Resource covers allocation failures.
	Resource
	// Engine covers failures reported by the audio engine.
	Engine
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case State:
		return "state"
	case Resource:
		return "resource"
	case Engine:
		return "engine"
	default:
		return "unknown"
	}
}

// Error is a classified failure carrying the operation context it happened in
// and a human readable message.
type Error struct {
	Kind    Kind
	Context string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	if e.Context == "" {
		return e.Msg
	}
	return e.Context + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind
func New(kind Kind, context, msg string) *Error {
	return &Error{Kind: kind, Context: context, Msg: msg}
}

// Newf creates an error of the given kind with a formatted message
func Newf(kind Kind, context, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Context: context, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an error whose cause is err, so errors.Is matches sentinels.
func Wrap(kind Kind, context string, err error, msg string) *Error {
	return &Error{Kind: kind, Context: context, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or false if err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// ContextOf returns the operation context of err, or "".
func ContextOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Context
	}
	return ""
}
