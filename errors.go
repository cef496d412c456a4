package slingshot

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeAccountConflict    = "ACCOUNT_EXISTS"
	textCodeInvalidCode        = "INVALID_VERIFICATION_CODE"
	textCodeNetworkFailure     = "AUTH_NETWORK_FAILURE"
	textCodeMalformedSnapshot  = "MALFORMED_SESSION_SNAPSHOT"
)

// ErrInvalidCredentials is returned when the remote system rejects the
// email/password pair.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountConflict is returned when registering an email that already has
// an account.
var ErrAccountConflict = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(textCodeAccountConflict).
	WithCode(goerrors.CodeConflict)

// ErrInvalidVerificationCode is returned when the remote system rejects the
// OTP. Codes that are not exactly six digits are rejected client-side and
// never reach the gateway.
var ErrInvalidVerificationCode = goerrors.New("invalid verification code", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidCode).
	WithCode(goerrors.CodeBadRequest)

// ErrNetworkUnavailable covers transport and server failures on any remote
// auth call.
var ErrNetworkUnavailable = goerrors.New("unable to reach the authentication service", goerrors.CategoryOperation).
	WithTextCode(textCodeNetworkFailure).
	WithCode(goerrors.CodeInternal)

// ErrMalformedSnapshot marks a persisted session snapshot that could not be
// decoded. It is recovered silently: a malformed snapshot behaves like an
// absent one.
var ErrMalformedSnapshot = goerrors.New("malformed session snapshot", goerrors.CategoryInternal).
	WithTextCode(textCodeMalformedSnapshot).
	WithCode(goerrors.CodeInternal)

// ErrNoCredential is the error when no bearer credential is stored
var ErrNoCredential = errors.New("no credential present")

// ErrMissingGateway signals a machine constructed without its remote façade.
var ErrMissingGateway = errors.New("missing auth gateway")

// IsAuthError will check for rejected credentials
func IsAuthError(err error) bool {
	return hasCategory(err, goerrors.CategoryAuth)
}

// IsConflictError will check for duplicate-account failures
func IsConflictError(err error) bool {
	return hasCategory(err, goerrors.CategoryConflict)
}

// IsValidationError will check for client-detected or remote-rejected input
func IsValidationError(err error) bool {
	return hasCategory(err, goerrors.CategoryValidation)
}

// IsNetworkError will check for transport/server failures
func IsNetworkError(err error) bool {
	return hasCategory(err, goerrors.CategoryOperation)
}

func hasCategory(err error, category goerrors.Category) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == category
	}
	return false
}

// NormalizeMessage collapses any failure into the human-readable string that
// ends up in Session.Error. Callers of the state machine observe that field,
// never an error value.
func NormalizeMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
