package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// StructuredError is an error annotated with a cause and key/value attributes,
// which Log renders as slog fields. Attributes keep the order they were added
// in, and a repeated key replaces the earlier value in place.
type StructuredError struct {
	err   error
	cause error
	attrs []slog.Attr
}

// Error implements the error interface. Only the main message is returned; the
// cause and attributes are rendered by Log.
func (e *StructuredError) Error() string {
	return e.err.Error()
}

// Unwrap allows errors.Is and errors.As to match both the error and its cause.
func (e *StructuredError) Unwrap() []error {
	errs := []error{e.err}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Cause returns the error that caused this one, if any.
func (e *StructuredError) Cause() error {
	return e.cause
}

// Attrs returns a copy of the error attributes.
func (e *StructuredError) Attrs() []slog.Attr {
	return slices.Clone(e.attrs)
}

// Attr returns the value of the attribute with the given key.
func (e *StructuredError) Attr(key string) (slog.Value, bool) {
	for _, a := range e.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return slog.Value{}, false
}

// NewWith creates a new StructuredError from a message with optional
// attributes. Attributes are given as alternating keys and values, or as
// slog.Attr values, the same way slog.Logger.Info accepts them.
func NewWith(msg string, args ...any) *StructuredError {
	return With(errors.New(msg), args...)
}

// NewWithCause is like NewWith, but also records the cause.
func NewWithCause(msg string, cause error, args ...any) *StructuredError {
	return WithCause(errors.New(msg), cause, args...)
}

// With adds attributes to err. If err is already a *StructuredError, a new one
// is returned with the combined attributes and the same cause.
func With(err error, args ...any) *StructuredError {
	var cause error
	if se, ok := err.(*StructuredError); ok { //nolint:errorlint // Only direct values are merged.
		cause = se.cause
	}
	return build(err, cause, args)
}

// WithCause is like With, but sets or replaces the cause.
func WithCause(err, cause error, args ...any) *StructuredError {
	return build(err, cause, args)
}

func build(err, cause error, args []any) *StructuredError {
	se := &StructuredError{err: err, cause: cause}
	if prev, ok := err.(*StructuredError); ok { //nolint:errorlint // Only direct values are merged.
		se.err = prev.err
		se.attrs = slices.Clone(prev.attrs)
	}

	for len(args) > 0 {
		var a slog.Attr
		switch key := args[0].(type) {
		case slog.Attr:
			a, args = key, args[1:]
		case string:
			if len(args) < 2 {
				panic(fmt.Sprintf("missing value for error attribute '%s'", key))
			}
			a, args = slog.Any(key, args[1]), args[2:]
		default:
			panic(fmt.Sprintf("error attribute key must be a string or slog.Attr, got %T", key))
		}
		se.set(a)
	}

	return se
}

func (e *StructuredError) set(a slog.Attr) {
	i := slices.IndexFunc(e.attrs, func(o slog.Attr) bool { return o.Key == a.Key })
	if i == -1 {
		e.attrs = append(e.attrs, a)
		return
	}
	e.attrs[i] = a
}
