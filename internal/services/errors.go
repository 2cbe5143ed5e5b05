package services

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a referenced record does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// TranslationError wraps any failure of content extraction or the translation model call.
// Message carries the upstream error text.
type TranslationError struct {
	Message string
	Err     error
}

func (e *TranslationError) Error() string {
	return "translation failed: " + e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

func newTranslationError(err error, format string, args ...interface{}) *TranslationError {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &TranslationError{Message: msg, Err: err}
}

// ValidationError is returned for requests that can never succeed as given
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTranslationError reports whether err is or wraps a TranslationError
func IsTranslationError(err error) bool {
	var te *TranslationError
	return errors.As(err, &te)
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
