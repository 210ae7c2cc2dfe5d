package errors

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// maxIDLength bounds element identifiers so derived edge ids stay reasonable.
const maxIDLength = 256

// ValidationError reports a rejected input value. It is returned before any
// layout work starts so callers never see a partial result.
type ValidationError struct {
	Code    Code   // ErrCodeInvalidWorkflow, ErrCodeInvalidConfig, ...
	Field   string // Offending field path (may be empty)
	Message string
}

// Invalid creates a ValidationError for field with a formatted message.
func Invalid(code Code, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    code,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.message())
}

func (e *ValidationError) message() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ValidateID validates an element identifier used as a node or edge endpoint.
//
// The rules are intentionally conservative:
//   - No empty or whitespace-only ids
//   - No control characters
//   - Maximum length of 256 characters
func ValidateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return Invalid(ErrCodeInvalidWorkflow, field, "id cannot be empty")
	}

	if len(id) > maxIDLength {
		return Invalid(ErrCodeInvalidWorkflow, field, "id too long (max %d characters)", maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return Invalid(ErrCodeInvalidWorkflow, field, "id contains invalid control characters")
		}
	}

	return nil
}
