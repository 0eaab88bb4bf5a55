// Package forecasterror defines the typed failures produced by the forecasting
// pipeline and its adapters. Every error carries a Kind so transports can map
// it to a status code without string matching.
package forecasterror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// MalformedInput means the request is missing required fields or has bad values.
	MalformedInput Kind = "malformed_input"
	// InsufficientData means the training series was empty.
	InsufficientData Kind = "insufficient_data"
	// Timeout means the deadline passed before the result was ready.
	Timeout Kind = "timeout"
	// Unauthorized means no user could be resolved from the credential.
	Unauthorized Kind = "unauthorized"
	// Storage means the history source failed.
	Storage Kind = "storage"
	// Internal is anything else.
	Internal Kind = "internal"
)

// Error is the concrete error type returned by pipeline stages.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap creates an Error of the given kind around err.
func Wrap(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Malformed reports unusable input.
func Malformed(op, msg string) *Error {
	return New(MalformedInput, op, msg)
}

// Malformedf is Malformed with formatting.
func Malformedf(op, format string, args ...interface{}) *Error {
	return New(MalformedInput, op, fmt.Sprintf(format, args...))
}

// NoData reports an empty training series.
func NoData(op string) *Error {
	return New(InsufficientData, op, "no historical observations to train on")
}

// Deadline reports an expired deadline.
func Deadline(op string, err error) *Error {
	return Wrap(Timeout, op, "deadline exceeded", err)
}

// Unauth reports a missing or unknown credential.
func Unauth(op, msg string) *Error {
	return New(Unauthorized, op, msg)
}

// StorageFailure reports a failed history read or write.
func StorageFailure(op string, err error) *Error {
	return Wrap(Storage, op, "history store failure", err)
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal
// when there is none. A nil error has no kind and returns "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
