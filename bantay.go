package bantay

import (
	"context"
	"fmt"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/crypto"
	"github.com/lborres/bantay/pkg/logger"
	"github.com/lborres/bantay/services"
)

// interfaces
type (
	AccountStorage = core.AccountStorage
	TokenVerifier  = core.TokenVerifier
	HTTPAdapter    = core.HTTPAdapter
	AuthHandler    = core.AuthHandler

	PasswordHandler = crypto.PasswordHandler
)

// structs
type (
	Account       = core.Account
	IdentityClaim = core.IdentityClaim
	SessionConfig = core.SessionConfig
	SessionData   = core.SessionData
	UserSummary   = core.UserSummary
	TokenPair     = core.TokenPair

	SignUpInput       = core.SignUpInput
	SignInInput       = core.SignInInput
	SocialSignInInput = core.SocialSignInInput
)

type Provider = core.Provider

const (
	ProviderEmail  = core.ProviderEmail
	ProviderGoogle = core.ProviderGoogle
	ProviderApple  = core.ProviderApple
)

const (
	defaultBasePath  = "/api"
	defaultSecretLen = 32
)

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2            = crypto.NewArgon2
	NewBcrypt            = crypto.NewBcrypt
	DefaultSessionConfig = core.DefaultSessionConfig
)

var (
	ErrTokenInvalid      = core.ErrTokenInvalid
	ErrEmailUnverified   = core.ErrEmailUnverified
	ErrCredentialInvalid = core.ErrCredentialInvalid
	ErrProviderMismatch  = core.ErrProviderMismatch
	ErrSubjectConflict   = core.ErrSubjectConflict
	ErrAccountInactive   = core.ErrAccountInactive
	ErrWrongProvider     = core.ErrWrongProvider
)

var (
	ErrValidation       = core.ErrValidation
	ErrEmailRequired    = core.ErrEmailRequired
	ErrInvalidEmail     = core.ErrInvalidEmail
	ErrPasswordRequired = core.ErrPasswordRequired
	ErrPasswordTooShort = core.ErrPasswordTooShort
	ErrPasswordTooLong  = core.ErrPasswordTooLong
	ErrPasswordMismatch = core.ErrPasswordMismatch
)

var (
	ErrAccountNotFound = core.ErrAccountNotFound
	ErrEmailTaken      = core.ErrEmailTaken
)

var (
	ErrDBAdapterRequired     = core.ErrDBAdapterRequired
	ErrHTTPAdapterRequired   = core.ErrHTTPAdapterRequired
	ErrSecretRequired        = core.ErrSecretRequired
	ErrSecretTooShort        = core.ErrSecretTooShort
	ErrProviderNotConfigured = core.ErrProviderNotConfigured
)

type Config struct {
	// Secret signs session tokens. At least 32 characters.
	Secret   string
	Database AccountStorage
	HTTP     HTTPAdapter

	// Optional
	SessionConfig  *SessionConfig
	PasswordHasher PasswordHandler
	Verifiers      []TokenVerifier
	Logger         *logger.Logger
	BasePath       string
}

// Bantay is a configured authentication service with its routes mounted.
type Bantay struct {
	Auth     *services.AuthService
	Sessions *services.SessionIssuer
	BasePath string
}

func New(config Config) (*Bantay, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if config.Database == nil {
		return nil, ErrDBAdapterRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	// Set Defaults

	sessionConfig := DefaultSessionConfig()
	if config.SessionConfig != nil {
		sessionConfig = *config.SessionConfig
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = NewArgon2()
	}

	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	issuer := services.NewSessionIssuer(config.Secret, sessionConfig)
	auth := services.NewAuthService(config.Database, passwordHasher, issuer, log, config.Verifiers...)

	if err := config.HTTP.RegisterRoutes(auth, basePath); err != nil {
		return nil, err
	}

	return &Bantay{
		Auth:     auth,
		Sessions: issuer,
		BasePath: basePath,
	}, nil
}

// CreateSuperuser seeds a staff account that signs in with a password.
func (b *Bantay) CreateSuperuser(ctx context.Context, email, password, name string) (*Account, error) {
	return b.Auth.CreateSuperuser(ctx, core.SuperuserInput{Email: email, Password: password, Name: name})
}
