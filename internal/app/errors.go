package app

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed input field. It is always
// recoverable and surfaced to the caller with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState is returned when an operation is not legal in the
	// record's current lifecycle status.
	ErrInvalidState = errors.New("not allowed in current status")

	// ErrPermission is returned when the caller does not own the record.
	ErrPermission = errors.New("only the requester can do this")

	// ErrSelfAction is returned when a user acts as donor or responder
	// on their own request or alert.
	ErrSelfAction = errors.New("cannot respond to your own request")

	// ErrAlreadyResponded is returned on duplicate alert responses.
	ErrAlreadyResponded = errors.New("already responded to this alert")

	// ErrInvalidCredentials is shown on failed login. The message must not
	// reveal whether the email exists.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrPhoneAlreadyExists = errors.New("phone number already registered")
)
