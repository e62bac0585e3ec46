package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/crypto"
	"github.com/lborres/bantay/pkg/logger"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything longer
)

type AuthService struct {
	accounts   core.AccountStorage
	hasher     crypto.PasswordHandler
	issuer     *SessionIssuer
	creds      *CredentialAuthenticator
	reconciler *Reconciler
	verifiers  map[core.Provider]core.TokenVerifier
	log        *logger.Logger
	now        func() time.Time
}

// Ensure AuthService implements AuthHandler
var _ core.AuthHandler = (*AuthService)(nil)

// NewAuthService wires the login paths. Social providers without a verifier
// answer core.ErrProviderNotConfigured.
func NewAuthService(
	accounts core.AccountStorage,
	hasher crypto.PasswordHandler,
	issuer *SessionIssuer,
	log *logger.Logger,
	verifiers ...core.TokenVerifier,
) *AuthService {
	if log == nil {
		log = logger.Nop()
	}
	byProvider := make(map[core.Provider]core.TokenVerifier, len(verifiers))
	for _, v := range verifiers {
		byProvider[v.Provider()] = v
	}
	return &AuthService{
		accounts:   accounts,
		hasher:     hasher,
		issuer:     issuer,
		creds:      NewCredentialAuthenticator(accounts, hasher),
		reconciler: NewReconciler(accounts, log),
		verifiers:  byProvider,
		log:        log,
		now:        time.Now,
	}
}

// SignUp registers an email/password account and starts a session for it.
func (s *AuthService) SignUp(ctx context.Context, input core.SignUpInput) (*core.SessionData, error) {
	email, err := validateEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.Password != input.Password2 {
		return nil, core.ErrPasswordMismatch
	}

	account, err := s.createPasswordAccount(ctx, email, input.Password, func(a *core.Account) {
		a.Name = strings.TrimSpace(input.Name)
		a.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
		a.Location = strings.TrimSpace(input.Location)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account registered", "account_id", account.ID, "provider", core.ProviderEmail.String())
	return s.startSession(account)
}

// SignIn authenticates with email and password.
func (s *AuthService) SignIn(ctx context.Context, input core.SignInInput) (*core.SessionData, error) {
	if strings.TrimSpace(input.Email) == "" {
		return nil, core.ErrEmailRequired
	}
	if input.Password == "" {
		return nil, core.ErrPasswordRequired
	}

	account, err := s.creds.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	return s.startSession(account)
}

// SignInWithProvider verifies a Google or Apple ID token and signs in the
// reconciled account. Unverified emails are refused before any registry access.
func (s *AuthService) SignInWithProvider(ctx context.Context, input core.SocialSignInInput) (*core.SessionData, error) {
	if strings.TrimSpace(input.AuthToken) == "" {
		return nil, core.ErrTokenRequired
	}
	verifier, ok := s.verifiers[input.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrProviderNotConfigured, input.Provider)
	}

	claim, err := verifier.Verify(ctx, input.AuthToken)
	if err != nil {
		s.log.Warn("id token rejected", "provider", input.Provider.String(), "error", err)
		if !errors.Is(err, core.ErrTokenInvalid) {
			err = fmt.Errorf("%w: %v", core.ErrTokenInvalid, err)
		}
		return nil, err
	}
	if !claim.EmailVerified {
		return nil, core.ErrEmailUnverified
	}
	if claim.Name == "" {
		claim.Name = strings.TrimSpace(input.Name)
	}

	account, err := s.reconciler.Reconcile(ctx, claim)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, core.ErrAccountInactive
	}
	return s.startSession(account)
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*core.RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, core.ErrRefreshRequired
	}
	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeAccount(ctx, claims.AccountID); err != nil {
		return nil, err
	}
	return s.issuer.IssueAccess(claims.AccountID)
}

// Me returns the summary of the account an access token was issued to.
func (s *AuthService) Me(ctx context.Context, accessToken string) (*core.UserSummary, error) {
	claims, err := s.issuer.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}
	account, err := s.activeAccount(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}
	summary := core.Summarize(account)
	return &summary, nil
}

// CreateSuperuser registers a staff email/password account with every privilege.
func (s *AuthService) CreateSuperuser(ctx context.Context, input core.SuperuserInput) (*core.Account, error) {
	email, err := validateEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	account, err := s.createPasswordAccount(ctx, email, input.Password, func(a *core.Account) {
		a.Name = strings.TrimSpace(input.Name)
		a.IsStaff = true
		a.IsSuperuser = true
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("superuser created", "account_id", account.ID)
	return account, nil
}

func (s *AuthService) createPasswordAccount(ctx context.Context, email, password string, fill func(*core.Account)) (*core.Account, error) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	account := &core.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: &hashed,
		AuthProvider: core.ProviderEmail,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	fill(account)

	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			return nil, core.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// activeAccount loads the subject of a verified session token. A deleted or
// deactivated account invalidates its outstanding tokens.
func (s *AuthService) activeAccount(ctx context.Context, id string) (*core.Account, error) {
	account, err := s.accounts.GetAccountByID(ctx, id)
	if errors.Is(err, core.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: account no longer exists", core.ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if !account.IsActive {
		return nil, core.ErrAccountInactive
	}
	return account, nil
}

func (s *AuthService) startSession(account *core.Account) (*core.SessionData, error) {
	pair, err := s.issuer.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return &core.SessionData{
		UserID:  account.ID,
		User:    core.Summarize(account),
		Access:  pair.Access,
		Refresh: pair.Refresh,
	}, nil
}

func validateEmail(raw string) (string, error) {
	email := core.NormalizeEmail(raw)
	if email == "" {
		return "", core.ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", core.ErrInvalidEmail
	}
	return email, nil
}

func validatePassword(password string) error {
	switch {
	case password == "":
		return core.ErrPasswordRequired
	case len(password) < minPasswordLen:
		return core.ErrPasswordTooShort
	case len(password) > maxPasswordLen:
		return core.ErrPasswordTooLong
	}
	return nil
}
