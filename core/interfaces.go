package core

import (
	"context"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORT (Account registry)
// ============================================

// AccountStorage is the durable account registry.
//
// Implementations enforce uniqueness of email, google_id and apple_id with
// database constraints and report a lost race as ErrEmailTaken or
// ErrSubjectTaken, never as a duplicate row. When a create collides on both
// email and subject, ErrEmailTaken is reported.
type AccountStorage interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccountByID(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)

	// LinkSubject fills the provider's subject slot and refreshes the display
	// name, only if the slot is still empty. It returns ErrSubjectTaken when
	// the slot was filled concurrently or the subject belongs to another account.
	LinkSubject(ctx context.Context, id string, p Provider, subject, name string) error
}

// ============================================
// VERIFIER PORT (third-party ID tokens)
// ============================================

// TokenVerifier validates a raw provider ID token.
//
// Every failure is returned as an error wrapping ErrTokenInvalid. EmailVerified
// is reported, not enforced.
type TokenVerifier interface {
	Provider() Provider
	Verify(ctx context.Context, rawToken string) (*IdentityClaim, error)
}

// ============================================
// AUTH HANDLER (for HTTP adapters)
// ============================================

// AuthHandler provides authentication operations for HTTP adapters
type AuthHandler interface {
	SignUp(ctx context.Context, input SignUpInput) (*SessionData, error)
	SignIn(ctx context.Context, input SignInInput) (*SessionData, error)
	SignInWithProvider(ctx context.Context, input SocialSignInInput) (*SessionData, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
	Me(ctx context.Context, accessToken string) (*UserSummary, error)
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(handler AuthHandler, basePath string) error
}
