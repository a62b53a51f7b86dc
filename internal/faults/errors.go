// Package faults defines the closed failure taxonomy for transcode jobs and
// normalizes arbitrary failures from the engine boundary into it.
package faults

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a normalized failure.
type Kind string

const (
	KindInitialization       Kind = "InitializationError"
	KindUnsupportedParameter Kind = "UnsupportedParameterError"
	KindEngineExecution      Kind = "EngineExecutionError"
	KindMarshal              Kind = "MarshalError"
	KindUnknown              Kind = "UnknownError"
)

const unknownMessage = "Unknown error"

// Sentinels match any *Error of the same kind via errors.Is.
var (
	ErrInitialization       = &Error{Kind: KindInitialization}
	ErrUnsupportedParameter = &Error{Kind: KindUnsupportedParameter}
	ErrEngineExecution      = &Error{Kind: KindEngineExecution}
	ErrMarshal              = &Error{Kind: KindMarshal}
	ErrUnknown              = &Error{Kind: KindUnknown}
)

// Error is a classified failure. Message is human readable and, for engine
// execution failures, carries the engine's text verbatim.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error formats the failure for logs.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by kind, and by message when the target has one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Initialization reports that the engine could not be constructed.
func Initialization(op string, err error) *Error {
	return &Error{Kind: KindInitialization, Op: op, Message: messageOf(err), Err: err}
}

// UnsupportedParameter reports an option the engine cannot accept.
func UnsupportedParameter(op, message string) *Error {
	return &Error{Kind: KindUnsupportedParameter, Op: op, Message: message}
}

// EngineExecution reports a failure the engine raised while encoding.
func EngineExecution(op, message string) *Error {
	if strings.TrimSpace(message) == "" {
		message = unknownMessage
	}
	return &Error{Kind: KindEngineExecution, Op: op, Message: message}
}

// Marshal reports a failure copying data across the engine boundary.
func Marshal(op string, err error) *Error {
	return &Error{Kind: KindMarshal, Op: op, Message: messageOf(err), Err: err}
}

// Unknown wraps a failure that could not be classified.
func Unknown(err error) *Error {
	return &Error{Kind: KindUnknown, Message: messageOf(err), Err: err}
}

// KindOf returns the kind of a normalized error, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return Normalize(err).Kind
}

// Normalize maps any error into the taxonomy. It never panics; a failure it
// cannot inspect becomes KindUnknown with a best-effort message.
func Normalize(err error) (out *Error) {
	if err == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			out = &Error{Kind: KindUnknown, Message: unknownMessage}
		}
	}()

	var classified *Error
	if errors.As(err, &classified) && classified != nil {
		return classified
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindEngineExecution, Message: err.Error(), Err: err}
	}
	return Unknown(err)
}

// FromPanic normalizes a value recovered from a panic at the engine boundary.
func FromPanic(r any) *Error {
	switch v := r.(type) {
	case nil:
		return nil
	case *Error:
		return v
	case error:
		return Normalize(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return &Error{Kind: KindUnknown, Message: unknownMessage}
		}
		return &Error{Kind: KindUnknown, Message: v}
	case fmt.Stringer:
		return &Error{Kind: KindUnknown, Message: safeString(v)}
	default:
		return &Error{Kind: KindUnknown, Message: fmt.Sprintf("%v", v)}
	}
}

// messageOf extracts an error message, falling back to a generic one.
func messageOf(err error) string {
	if err == nil {
		return unknownMessage
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return unknownMessage
	}
	return msg
}

func safeString(s fmt.Stringer) (out string) {
	defer func() {
		if recover() != nil {
			out = unknownMessage
		}
	}()
	if msg := strings.TrimSpace(s.String()); msg != "" {
		return msg
	}
	return unknownMessage
}
