package webhook

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPayload     = errors.New("malformed callback payload")
	ErrMissingTransaction   = errors.New("callback has no transaction object")
	ErrMissingTransactionID = errors.New("callback transaction has no id")
	ErrMissingReference     = errors.New("callback has no reference")
	ErrInvalidSignature     = errors.New("callback signature rejected")
)

// ValidationError marks a callback that cannot be acted on. Redelivering the
// same body will fail the same way.
type ValidationError struct {
	Reason error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason.Error(), e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

func newValidationError(reason error, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Detail: detail}
}

// IsValidationError reports whether err came from callback validation.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
