package auth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeEmailTokenTaken    = "EMAIL_TOKEN_TAKEN"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodePasswordUnchanged  = "PASSWORD_UNCHANGED"
	TextCodeEmailUnchanged     = "EMAIL_UNCHANGED"
	TextCodeEmailTokenNotFound = "EMAIL_TOKEN_NOT_FOUND"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMissing       = "TOKEN_MISSING"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeUnknownService     = "UNKNOWN_SERVICE"
	TextCodeForbidden          = "FORBIDDEN"
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password can not be empty")

// ErrMismatchedHashAndPassword bad password
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password")

// ErrRecordNotFound is returned by the store when a lookup misses
var ErrRecordNotFound = errors.New("record not found")

// ErrDuplicateRecord is returned by the store on unique constraint violations
var ErrDuplicateRecord = errors.New("duplicate record")

var (
	ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithTextCode(TextCodeUserNotFound)

	ErrEmailTaken = goerrors.New("email already in use", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithTextCode(TextCodeEmailTaken)

	ErrEmailTokenTaken = goerrors.New("email token already assigned to another user", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict).
				WithTextCode(TextCodeEmailTokenTaken)

	ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeInvalidCredentials)

	ErrPasswordUnchanged = goerrors.New("new password must differ from the current one", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodePasswordUnchanged)

	ErrEmailUnchanged = goerrors.New("new email must differ from the current one", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeEmailUnchanged)

	ErrEmailTokenNotFound = goerrors.New("invalid or already used email token", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithTextCode(TextCodeEmailTokenNotFound)

	ErrEmailTokenExpired = goerrors.New("email token has expired", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithTextCode(TextCodeTokenExpired)

	ErrTokenMissing = goerrors.New("missing bearer token", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeTokenMissing)

	ErrTokenMalformed = goerrors.New("malformed or invalid token", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeTokenMalformed)

	ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeTokenExpired)

	ErrUnknownService = goerrors.New("token subject is not a known service", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeUnknownService)

	ErrForbidden = goerrors.New("not allowed to act on this resource", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeForbidden)
)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if hasAuthTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasAuthTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}

// hasAuthTextCode walks the chain looking for an auth error with code.
// Email token expiry shares TOKEN_EXPIRED but is a NotFound error.
func hasAuthTextCode(err error, code string) bool {
	for e := err; e != nil; {
		rich, ok := e.(*goerrors.Error)
		if !ok {
			e = errors.Unwrap(e)
			continue
		}
		if rich.TextCode == code && rich.Category == goerrors.CategoryAuth {
			return true
		}
		e = rich.Source
	}
	return false
}

// malformedToken keeps ErrTokenMalformed in the chain and records the
// parser failure as metadata.
func malformedToken(cause error) error {
	clone := ErrTokenMalformed.Clone()
	if clone == nil {
		return ErrTokenMalformed
	}
	clone.Source = ErrTokenMalformed
	if cause != nil {
		clone = clone.WithMetadata(map[string]any{"cause": cause.Error()})
	}
	return clone
}

func internalError(err error, message string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithCode(goerrors.CodeInternal)
}
