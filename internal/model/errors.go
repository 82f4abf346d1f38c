package model

import "fmt"

// ErrorKind is the machine-readable taxonomy of spec.md §7. It is a
// classification, not a Go error type hierarchy.
type ErrorKind string

const (
	ErrInvalidArgument   ErrorKind = "InvalidArgument"
	ErrNotFound          ErrorKind = "NotFound"
	ErrInvalidTransition ErrorKind = "InvalidTransition"
	ErrBackpressure      ErrorKind = "Backpressure"
	ErrDeadlineExpired   ErrorKind = "DeadlineExpired"
	ErrUnrecoverableLoss ErrorKind = "UnrecoverableLoss"
	ErrCodecError        ErrorKind = "CodecError"
	ErrIO                ErrorKind = "Io"
	ErrInternal          ErrorKind = "Internal"
)

// CoreError is a control-plane-facing error carrying its taxonomy kind.
type CoreError struct {
	Kind    ErrorKind
	Message string
}

func (e *CoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError constructs a CoreError.
func NewError(kind ErrorKind, format string, args ...interface{}) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err, defaulting to Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if ce, ok := err.(*CoreError); ok {
		return ce.Kind
	}
	return ErrInternal
}
