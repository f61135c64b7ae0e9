package identity

import (
	"errors"
	"fmt"
)

// Error codes for categorizing errors.
const (
	CodeUnknownIdentity      = "UNKNOWN_IDENTITY"
	CodeInvalidCredential    = "INVALID_CREDENTIAL"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeIdentityExists       = "IDENTITY_ALREADY_EXISTS"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
	CodeUnsupportedProvider  = "UNSUPPORTED_PROVIDER"
)

// Sentinel errors for use with errors.Is().
//
// ErrUnknownIdentity and ErrInvalidCredential both wrap
// ErrAuthenticationFailed: callers at the user-facing boundary match
// on the generic sentinel and present a single "invalid email or
// password" message, so the two failure kinds are not distinguishable
// by an attacker probing for accounts.
var (
	// ErrAuthenticationFailed is the generic credential failure.
	ErrAuthenticationFailed = errors.New("invalid email or password")

	// ErrUnknownIdentity means no user exists for the given email.
	ErrUnknownIdentity = fmt.Errorf("unknown identity: %w", ErrAuthenticationFailed)

	// ErrInvalidCredential means the user exists but the password
	// does not match (or the account has no usable password).
	ErrInvalidCredential = fmt.Errorf("invalid credential: %w", ErrAuthenticationFailed)

	// ErrIdentityExists means a signup conflicts with an existing
	// email or provider id.
	ErrIdentityExists = errors.New("an account with this email already exists")

	// ErrStoreUnavailable means the underlying store could not be
	// reached. Transient; per-request, never fatal to the process.
	ErrStoreUnavailable = errors.New("store is unavailable")

	// ErrUnsupportedProvider means an OAuth profile named a provider
	// this resolver does not handle.
	ErrUnsupportedProvider = errors.New("unsupported oauth provider")
)

// AuthError is a structured error type that includes an error code and
// optional wrapped error.
type AuthError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is() and
// errors.As().
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates a new AuthError with the given code, message,
// and optional wrapped error.
func NewAuthError(code, message string, err error) *AuthError {
	return &AuthError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsAuthenticationError returns true if the error is a credential
// failure (as opposed to a store or configuration failure).
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}
