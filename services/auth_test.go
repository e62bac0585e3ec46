package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/crypto"
)

const (
	googleToken = "google-token"
	appleToken  = "apple-token"
)

type authFixture struct {
	storage *FakeAccountStorage
	google  *FakeVerifier
	apple   *FakeVerifier
	issuer  *SessionIssuer
	service *AuthService
}

func newAuthFixture(googleClaim, appleClaim core.IdentityClaim) *authFixture {
	f := &authFixture{
		storage: NewFakeAccountStorage(),
		google:  NewFakeVerifier(core.ProviderGoogle, googleToken, googleClaim),
		apple:   NewFakeVerifier(core.ProviderApple, appleToken, appleClaim),
		issuer:  NewSessionIssuer(testSecret, core.DefaultSessionConfig()),
	}
	f.service = NewAuthService(f.storage, crypto.NewBcrypt(4), f.issuer, nil, f.google, f.apple)
	return f
}

func verifiedGoogle() core.IdentityClaim {
	return core.IdentityClaim{Subject: "g1", Email: "new@x.com", EmailVerified: true, Name: "New User"}
}

func verifiedApple() core.IdentityClaim {
	return core.IdentityClaim{Subject: "ap1", Email: "relay@privaterelay.appleid.com", EmailVerified: true}
}

func signUpInput(email, password, password2 string) core.SignUpInput {
	return core.SignUpInput{Email: email, Password: password, Password2: password2, Name: "Alice"}
}

// Requirement: first Google login creates a google account and returns a token pair;
// the second login with the same subject returns the same account.
func TestAuthService_GoogleLoginScenario(t *testing.T) {
	// Arrange
	f := newAuthFixture(verifiedGoogle(), verifiedApple())
	ctx := context.Background()

	// Act
	first, err := f.service.SignInWithProvider(ctx, core.SocialSignInInput{Provider: core.ProviderGoogle, AuthToken: googleToken})
	if err != nil {
		t.Fatalf("first SignInWithProvider() error = %v", err)
	}
	second, err := f.service.SignInWithProvider(ctx, core.SocialSignInInput{Provider: core.ProviderGoogle, AuthToken: googleToken})
	if err != nil {
		t.Fatalf("second SignInWithProvider() error = %v", err)
	}

	// Assert
	if first.User.AuthProvider != core.ProviderGoogle {
		t.Errorf("AuthProvider = %v, want google", first.User.AuthProvider)
	}
	if first.User.GoogleID == nil || *first.User.GoogleID != "g1" {
		t.Errorf("GoogleID = %v, want g1", first.User.GoogleID)
	}
	if first.Access == "" || first.Refresh == "" {
		t.Error("session should carry access and refresh tokens")
	}
	if first.UserID != second.UserID {
		t.Errorf("second login returned %s, want %s", second.UserID, first.UserID)
	}
	if f.storage.Len() != 1 {
		t.Errorf("storage has %d accounts, want 1", f.storage.Len())
	}
	claims, err := f.issuer.VerifyAccess(first.Access)
	if err != nil || claims.AccountID != first.UserID {
		t.Errorf("access token should name the account: %+v, %v", claims, err)
	}
}

// Requirement: Apple tokens carry no name; the name sent with the request is used.
func TestAuthService_AppleLoginUsesRequestName(t *testing.T) {
	f := newAuthFixture(verifiedGoogle(), verifiedApple())

	session, err := f.service.SignInWithProvider(context.Background(), core.SocialSignInInput{
		Provider:  core.ProviderApple,
		AuthToken: appleToken,
		Name:      " Jane Appleseed ",
	})

	if err != nil {
		t.Fatalf("SignInWithProvider() error = %v", err)
	}
	if session.User.Name != "Jane Appleseed" {
		t.Errorf("Name = %q, want Jane Appleseed", session.User.Name)
	}
	if session.User.AppleID == nil || *session.User.AppleID != "ap1" {
		t.Errorf("AppleID = %v, want ap1", session.User.AppleID)
	}
}

// Requirement: unverified emails, bad tokens and unconfigured providers never reach the registry.
func TestAuthService_SignInWithProviderRejections(t *testing.T) {
	unverified := verifiedGoogle()
	unverified.EmailVerified = false

	tests := []struct {
		name    string
		claim   core.IdentityClaim
		input   core.SocialSignInInput
		wantErr error
	}{
		{
			name:    "unverified email",
			claim:   unverified,
			input:   core.SocialSignInInput{Provider: core.ProviderGoogle, AuthToken: googleToken},
			wantErr: core.ErrEmailUnverified,
		},
		{
			name:    "invalid token",
			claim:   verifiedGoogle(),
			input:   core.SocialSignInInput{Provider: core.ProviderGoogle, AuthToken: "forged"},
			wantErr: core.ErrTokenInvalid,
		},
		{
			name:    "missing token",
			claim:   verifiedGoogle(),
			input:   core.SocialSignInInput{Provider: core.ProviderGoogle, AuthToken: "  "},
			wantErr: core.ErrTokenRequired,
		},
		{
			name:    "unknown provider",
			claim:   verifiedGoogle(),
			input:   core.SocialSignInInput{Provider: core.ProviderEmail, AuthToken: googleToken},
			wantErr: core.ErrProviderNotConfigured,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			f := newAuthFixture(test.claim, verifiedApple())

			// Act
			session, err := f.service.SignInWithProvider(context.Background(), test.input)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("error = %v, want %v", err, test.wantErr)
			}
			if session != nil {
				t.Error("no session should be issued")
			}
			if f.storage.Len() != 0 || f.storage.Writes() != 0 {
				t.Error("registry should not be touched")
			}
		})
	}
}

func TestAuthService_SocialLoginOnPasswordAccount(t *testing.T) {
	f := newAuthFixture(verifiedGoogle(), verifiedApple())
	ctx := context.Background()
	if _, err := f.service.SignUp(ctx, signUpInput("new@x.com", "SecurePass123!", "SecurePass123!")); err != nil {
		t.Fatal(err)
	}

	_, err := f.service.SignInWithProvider(ctx, core.SocialSignInInput{Provider: core.ProviderGoogle, AuthToken: googleToken})

	if !errors.Is(err, core.ErrProviderMismatch) {
		t.Errorf("error = %v, want ErrProviderMismatch", err)
	}
}

func TestAuthService_InactiveSocialAccount(t *testing.T) {
	f := newAuthFixture(verifiedGoogle(), verifiedApple())
	f.storage.Put(&core.Account{ID: "a1", Email: "new@x.com", AuthProvider: core.ProviderGoogle, GoogleID: strPtr("g1")})

	_, err := f.service.SignInWithProvider(context.Background(), core.SocialSignInInput{Provider: core.ProviderGoogle, AuthToken: googleToken})

	if !errors.Is(err, core.ErrAccountInactive) {
		t.Errorf("error = %v, want ErrAccountInactive", err)
	}
}

// Requirement: SignUp validates input, rejects mismatched confirmations and duplicate emails.
func TestAuthService_SignUp(t *testing.T) {
	tests := []struct {
		name    string
		input   core.SignUpInput
		setup   func(*FakeAccountStorage)
		wantErr error
	}{
		{
			name:  "creates email account",
			input: signUpInput("Alice@Example.com", "SecurePass123!", "SecurePass123!"),
		},
		{
			name:    "password mismatch",
			input:   signUpInput("alice@example.com", "SecurePass123!", "SecurePass124!"),
			wantErr: core.ErrPasswordMismatch,
		},
		{
			name:    "empty email",
			input:   signUpInput("", "SecurePass123!", "SecurePass123!"),
			wantErr: core.ErrEmailRequired,
		},
		{
			name:    "invalid email",
			input:   signUpInput("not-an-email", "SecurePass123!", "SecurePass123!"),
			wantErr: core.ErrInvalidEmail,
		},
		{
			name:    "display name form is not an address",
			input:   signUpInput("Alice <alice@example.com>", "SecurePass123!", "SecurePass123!"),
			wantErr: core.ErrInvalidEmail,
		},
		{
			name:    "empty password",
			input:   signUpInput("alice@example.com", "", ""),
			wantErr: core.ErrPasswordRequired,
		},
		{
			name:    "short password",
			input:   signUpInput("alice@example.com", "short", "short"),
			wantErr: core.ErrPasswordTooShort,
		},
		{
			name:    "long password",
			input:   signUpInput("alice@example.com", strings.Repeat("p", 73), strings.Repeat("p", 73)),
			wantErr: core.ErrPasswordTooLong,
		},
		{
			name:  "duplicate email",
			input: signUpInput("alice@example.com", "SecurePass123!", "SecurePass123!"),
			setup: func(s *FakeAccountStorage) {
				s.Put(&core.Account{ID: "existing", Email: "alice@example.com", AuthProvider: core.ProviderGoogle})
			},
			wantErr: core.ErrEmailTaken,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			f := newAuthFixture(verifiedGoogle(), verifiedApple())
			if test.setup != nil {
				test.setup(f.storage)
			}
			before := f.storage.Len()

			// Act
			session, err := f.service.SignUp(context.Background(), test.input)

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("SignUp() error = %v, want %v", err, test.wantErr)
				}
				if f.storage.Len() != before {
					t.Error("no account should be created")
				}
				return
			}
			if err != nil {
				t.Fatalf("SignUp() error = %v", err)
			}
			if session.User.Email != "alice@example.com" || session.User.AuthProvider != core.ProviderEmail {
				t.Errorf("unexpected user %+v", session.User)
			}
			stored, _ := f.storage.GetAccountByID(context.Background(), session.UserID)
			if stored.PasswordHash == nil || *stored.PasswordHash == test.input.Password {
				t.Error("password should be stored hashed")
			}
			if stored.IsStaff || stored.IsSuperuser || !stored.IsActive {
				t.Errorf("unexpected flags %+v", stored)
			}
		})
	}
}

// Requirement: password login for a Google account fails with a provider mismatch and issues no token.
func TestAuthService_PasswordLoginOnGoogleAccount(t *testing.T) {
	f := newAuthFixture(verifiedGoogle(), verifiedApple())
	ctx := context.Background()
	if _, err := f.service.SignInWithProvider(ctx, core.SocialSignInInput{Provider: core.ProviderGoogle, AuthToken: googleToken}); err != nil {
		t.Fatal(err)
	}

	session, err := f.service.SignIn(ctx, core.SignInInput{Email: "new@x.com", Password: "anything-at-all"})

	if !errors.Is(err, core.ErrProviderMismatch) || !errors.Is(err, core.ErrCredentialInvalid) {
		t.Errorf("error = %v, want ErrProviderMismatch and ErrCredentialInvalid", err)
	}
	if session != nil {
		t.Error("no session should be issued")
	}
}

func TestAuthService_SignIn(t *testing.T) {
	f := newAuthFixture(verifiedGoogle(), verifiedApple())
	ctx := context.Background()
	registered, err := f.service.SignUp(ctx, signUpInput("alice@example.com", "SecurePass123!", "SecurePass123!"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		input   core.SignInInput
		wantErr error
	}{
		{name: "valid", input: core.SignInInput{Email: "ALICE@example.com", Password: "SecurePass123!"}},
		{name: "wrong password", input: core.SignInInput{Email: "alice@example.com", Password: "nope-nope"}, wantErr: core.ErrCredentialInvalid},
		{name: "missing email", input: core.SignInInput{Password: "SecurePass123!"}, wantErr: core.ErrEmailRequired},
		{name: "missing password", input: core.SignInInput{Email: "alice@example.com"}, wantErr: core.ErrPasswordRequired},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			session, err := f.service.SignIn(ctx, test.input)

			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Errorf("SignIn() error = %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SignIn() error = %v", err)
			}
			if session.UserID != registered.UserID {
				t.Errorf("UserID = %s, want %s", session.UserID, registered.UserID)
			}
		})
	}
}

// Requirement: Refresh mints a new access token from a refresh token only.
func TestAuthService_Refresh(t *testing.T) {
	f := newAuthFixture(verifiedGoogle(), verifiedApple())
	ctx := context.Background()
	session, err := f.service.SignUp(ctx, signUpInput("alice@example.com", "SecurePass123!", "SecurePass123!"))
	if err != nil {
		t.Fatal(err)
	}

	result, err := f.service.Refresh(ctx, session.Refresh)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	claims, err := f.issuer.VerifyAccess(result.Access)
	if err != nil || claims.AccountID != session.UserID {
		t.Errorf("refreshed access token invalid: %+v, %v", claims, err)
	}

	if _, err := f.service.Refresh(ctx, session.Access); !errors.Is(err, core.ErrTokenInvalid) {
		t.Errorf("Refresh(access) error = %v, want ErrTokenInvalid", err)
	}
	if _, err := f.service.Refresh(ctx, ""); !errors.Is(err, core.ErrRefreshRequired) {
		t.Errorf("Refresh(\"\") error = %v, want ErrRefreshRequired", err)
	}
}

func TestAuthService_RefreshForDeactivatedAccount(t *testing.T) {
	f := newAuthFixture(verifiedGoogle(), verifiedApple())
	ctx := context.Background()
	pair, _ := f.issuer.Issue("gone")
	f.storage.Put(&core.Account{ID: "inactive", Email: "i@x.com", AuthProvider: core.ProviderEmail})
	inactivePair, _ := f.issuer.Issue("inactive")

	if _, err := f.service.Refresh(ctx, pair.Refresh); !errors.Is(err, core.ErrTokenInvalid) {
		t.Errorf("deleted account: error = %v, want ErrTokenInvalid", err)
	}
	if _, err := f.service.Refresh(ctx, inactivePair.Refresh); !errors.Is(err, core.ErrAccountInactive) {
		t.Errorf("inactive account: error = %v, want ErrAccountInactive", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	f := newAuthFixture(verifiedGoogle(), verifiedApple())
	ctx := context.Background()
	session, err := f.service.SignInWithProvider(ctx, core.SocialSignInInput{Provider: core.ProviderGoogle, AuthToken: googleToken})
	if err != nil {
		t.Fatal(err)
	}

	me, err := f.service.Me(ctx, session.Access)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if me.ID != session.UserID || me.Email != "new@x.com" || me.Name != "New User" {
		t.Errorf("unexpected summary %+v", me)
	}

	if _, err := f.service.Me(ctx, session.Refresh); !errors.Is(err, core.ErrTokenInvalid) {
		t.Errorf("Me(refresh) error = %v, want ErrTokenInvalid", err)
	}
}

func TestAuthService_CreateSuperuser(t *testing.T) {
	f := newAuthFixture(verifiedGoogle(), verifiedApple())
	ctx := context.Background()

	account, err := f.service.CreateSuperuser(ctx, core.SuperuserInput{Email: "root@example.com", Password: "SecurePass123!", Name: "Root"})
	if err != nil {
		t.Fatalf("CreateSuperuser() error = %v", err)
	}
	if !account.IsStaff || !account.IsSuperuser || !account.IsActive || account.AuthProvider != core.ProviderEmail {
		t.Errorf("unexpected superuser %+v", account)
	}

	if _, err := f.service.SignIn(ctx, core.SignInInput{Email: "root@example.com", Password: "SecurePass123!"}); err != nil {
		t.Errorf("superuser should sign in with password: %v", err)
	}

	_, err = f.service.CreateSuperuser(ctx, core.SuperuserInput{Email: "root@example.com", Password: "SecurePass123!"})
	if !errors.Is(err, core.ErrEmailTaken) {
		t.Errorf("second CreateSuperuser() error = %v, want ErrEmailTaken", err)
	}
}
