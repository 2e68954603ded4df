package errors

import (
	"errors"
	"fmt"
)

// wrappedError annotates a cause with a short action phrase.
type wrappedError struct {
	cause error
	msg   string
}

func (w *wrappedError) Error() string { return w.msg + ": " + w.cause.Error() }
func (w *wrappedError) Unwrap() error { return w.cause }

// New calls [errors.New].
func New(text string) error {
	return errors.New(text) //nolint:err113
}

// Errorf calls [fmt.Errorf].
func Errorf(format string, vals ...any) error {
	return fmt.Errorf(format, vals...) //nolint:err113
}

// Wrap returns nil if cause is nil. Otherwise it prefixes the cause message
// with text.
func Wrap(cause error, text string) error {
	if cause == nil {
		return nil
	}

	return &wrappedError{cause: cause, msg: text}
}

// Wrapf is [Wrap] with a formatted message.
func Wrapf(cause error, format string, vals ...any) error {
	if cause == nil {
		return nil
	}

	return &wrappedError{cause: cause, msg: fmt.Sprintf(format, vals...)}
}

// Join calls [errors.Join].
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Is calls [errors.Is].
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As calls [errors.As].
func As(err error, target any) bool {
	return errors.As(err, target)
}
