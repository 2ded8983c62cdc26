package session

import (
	"errors"

	"github.com/hrbooteh/assessor/internal/api"
)

// FailureKind is the user-facing category of a login or register failure.
// The UI layer switches on this instead of inspecting HTTP statuses.
type FailureKind int

const (
	// KindOther covers failures with no more specific category.
	KindOther FailureKind = iota
	// KindInvalidCredentials means the email/password pair was rejected.
	KindInvalidCredentials
	// KindAlreadyRegistered means the account already exists.
	KindAlreadyRegistered
	// KindValidation means the server rejected the submitted fields.
	KindValidation
	// KindUnreachable means the server could not be contacted at all.
	KindUnreachable
)

// AuthError wraps a gateway failure with its user-facing category.
type AuthError struct {
	Kind    FailureKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying gateway error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// classifyLogin maps a login failure to its user-facing category.
func classifyLogin(err error) *AuthError {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return &AuthError{Kind: KindOther, Message: "unexpected error during login", Err: err}
	}
	switch apiErr.Status {
	case 401:
		return &AuthError{Kind: KindInvalidCredentials, Message: "invalid email or password", Err: err}
	case 422:
		return &AuthError{Kind: KindValidation, Message: validationMessage(apiErr), Err: err}
	case 0:
		return &AuthError{Kind: KindUnreachable, Message: "unable to connect to server", Err: err}
	default:
		return &AuthError{Kind: KindOther, Message: apiErr.Message, Err: err}
	}
}

// classifyRegister maps a register failure to its user-facing category.
// Duplicate accounts surface as 400 from the original backend, 409 from
// conventional ones; both mean "already registered".
func classifyRegister(err error) *AuthError {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return &AuthError{Kind: KindOther, Message: "unexpected error during registration", Err: err}
	}
	switch apiErr.Status {
	case 400, 409:
		return &AuthError{Kind: KindAlreadyRegistered, Message: "this email is already registered", Err: err}
	case 422:
		return &AuthError{Kind: KindValidation, Message: validationMessage(apiErr), Err: err}
	case 0:
		return &AuthError{Kind: KindUnreachable, Message: "unable to connect to server", Err: err}
	default:
		return &AuthError{Kind: KindOther, Message: apiErr.Message, Err: err}
	}
}

// validationMessage prefers the server's own detail text for 422s.
func validationMessage(apiErr *api.Error) string {
	if apiErr.Message != "" && apiErr.Message != "API request failed" {
		return apiErr.Message
	}
	return "please check the submitted information"
}
