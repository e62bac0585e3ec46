package core

import (
	"errors"
	"fmt"
)

// Authentication errors
var (
	ErrTokenInvalid      = errors.New("the token is invalid or expired")                         // 401
	ErrEmailUnverified   = errors.New("the identity provider has not verified this email")       // 401
	ErrCredentialInvalid = errors.New("invalid email or password")                               // 401
	ErrProviderMismatch  = errors.New("email is registered with a different sign-in method")     // 409
	ErrSubjectConflict   = errors.New("email is already linked to a different provider account") // 409
)

// ErrWrongProvider is returned by the password path for social accounts. It
// matches both ErrCredentialInvalid and ErrProviderMismatch.
var ErrWrongProvider = fmt.Errorf("%w: %w", ErrCredentialInvalid, ErrProviderMismatch)

// ErrMissingAuthHeader is a protected request without credentials.
var ErrMissingAuthHeader = fmt.Errorf("%w: authentication credentials were not provided", ErrTokenInvalid)

// ErrAccountInactive blocks every login path for a deactivated account.
var ErrAccountInactive = fmt.Errorf("%w: account is inactive", ErrCredentialInvalid)

// Validation errors (client input)
var (
	ErrValidation = errors.New("validation error") // 400

	ErrEmailRequired     = fmt.Errorf("%w: email is required", ErrValidation)
	ErrInvalidEmail      = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrPasswordRequired  = fmt.Errorf("%w: password is required", ErrValidation)
	ErrPasswordTooShort  = fmt.Errorf("%w: password is too short", ErrValidation)
	ErrPasswordTooLong   = fmt.Errorf("%w: password is too long", ErrValidation)
	ErrPasswordMismatch  = fmt.Errorf("%w: password fields didn't match", ErrValidation)
	ErrTokenRequired     = fmt.Errorf("%w: auth_token is required", ErrValidation)
	ErrRefreshRequired   = fmt.Errorf("%w: refresh is required", ErrValidation)
	ErrInvalidAuthHeader = fmt.Errorf("%w: invalid authorization format, expected 'Bearer <token>'", ErrValidation)
)

// Registry errors
var (
	ErrAccountNotFound = errors.New("account not found")                         // 404
	ErrEmailTaken      = errors.New("an account with this email already exists") // 409
	ErrSubjectTaken    = errors.New("provider subject is already bound")         // 409
)

// Config errors (server-side configuration)
var (
	ErrDBAdapterRequired     = errors.New("database adapter is required")       // 500
	ErrHTTPAdapterRequired   = errors.New("http adapter is required")           // 500
	ErrSecretRequired        = errors.New("secret is required")                 // 500
	ErrSecretTooShort        = errors.New("secret too short")                   // 500
	ErrProviderNotConfigured = errors.New("sign-in provider is not configured") // 501
)
