// internal/validation/validation.go
//
// Field validators for the auth form.
//
// Context
// -------
// Each validator is a pure function over the raw field value.  A nil
// *Error means the value passes.  Validators never panic and never return
// a Go error; the caller decides how to surface the message.
//
// The email check is intentionally shallow: a value passes when it contains
// both an "@" and a ".", in any position.  Inputs such as "@." are accepted.
//
// Notes
// -----
//   - Lengths are counted in runes.
//   - Oxford commas, two spaces after periods.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMinPasswordLength is the minimum password length used by the form.
const DefaultMinPasswordLength = 5

// Kind classifies a validation failure.
type Kind uint8

const (
	EmptyField Kind = iota + 1
	InvalidFormat
	TooShort
	Mismatch
)

func (k Kind) String() string {
	switch k {
	case EmptyField:
		return "empty_field"
	case InvalidFormat:
		return "invalid_format"
	case TooShort:
		return "too_short"
	case Mismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Error is a user-facing validation failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Message returns the error text, or "" for a nil *Error.
func Message(e *Error) string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Email checks that value is non-blank and contains both "@" and ".".
func Email(value string) *Error {
	if strings.TrimSpace(value) == "" {
		return &Error{Kind: EmptyField, Message: "Email is required"}
	}
	if !strings.Contains(value, "@") || !strings.Contains(value, ".") {
		return &Error{Kind: InvalidFormat, Message: "Please enter a valid email"}
	}
	return nil
}

// Password checks that value is non-blank and at least minLength runes long.
// The length check uses the untrimmed value.
func Password(value string, minLength int) *Error {
	if strings.TrimSpace(value) == "" {
		return &Error{Kind: EmptyField, Message: "Password is required"}
	}
	if utf8.RuneCountInString(value) < minLength {
		return &Error{
			Kind:    TooShort,
			Message: fmt.Sprintf("Password must be at least %d characters", minLength),
		}
	}
	return nil
}

// Confirmation checks that confirm is non-blank and exactly equals original.
func Confirmation(confirm, original string) *Error {
	if strings.TrimSpace(confirm) == "" {
		return &Error{Kind: EmptyField, Message: "Please confirm your password"}
	}
	if confirm != original {
		return &Error{Kind: Mismatch, Message: "Passwords do not match"}
	}
	return nil
}
