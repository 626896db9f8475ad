package errors

import (
	"github.com/cockroachdb/errors"
)

// ErrValidation marks errors caused by bad caller input.
var ErrValidation = errors.New("validation error")

// Wrap - Wrap err with a context message. Returns nil when err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf - Wrap err with a formatted context message. Returns nil when err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Validation - Create a new error marked as a validation error
func Validation(msg string) error {
	return errors.Mark(errors.New(msg), ErrValidation)
}

// IsValidation reports whether any error in err's chain is marked as a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
