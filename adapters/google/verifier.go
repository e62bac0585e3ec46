package google

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/logger"
)

const (
	Issuer  = "https://accounts.google.com"
	KeysURL = "https://www.googleapis.com/oauth2/v3/certs"
)

type Config struct {
	ClientID string

	// Issuer and KeysURL default to Google's production endpoints.
	Issuer     string
	KeysURL    string
	HTTPClient *http.Client
	Logger     *logger.Logger
	Now        func() time.Time
}

// Verifier validates Google Sign-In ID tokens.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
	log      *logger.Logger
}

var _ core.TokenVerifier = (*Verifier)(nil)

// NewVerifier builds a verifier whose remote key set lives as long as the
// verifier. Keys are refetched when a token names an unknown kid.
func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("%w: google client id is empty", core.ErrProviderNotConfigured)
	}
	if cfg.Issuer == "" {
		cfg.Issuer = Issuer
	}
	if cfg.KeysURL == "" {
		cfg.KeysURL = KeysURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	ctx := oidc.ClientContext(context.Background(), cfg.HTTPClient)
	keySet := oidc.NewRemoteKeySet(ctx, cfg.KeysURL)

	return &Verifier{
		verifier: oidc.NewVerifier(cfg.Issuer, keySet, &oidc.Config{
			ClientID: cfg.ClientID,
			Now:      cfg.Now,
		}),
		log: cfg.Logger.With("provider", core.ProviderGoogle.String()),
	}, nil
}

func (v *Verifier) Provider() core.Provider {
	return core.ProviderGoogle
}

func (v *Verifier) Verify(ctx context.Context, rawToken string) (*core.IdentityClaim, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, fmt.Errorf("%w: empty token", core.ErrTokenInvalid)
	}

	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		v.log.Warn("google id_token rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", core.ErrTokenInvalid, err)
	}

	var c struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified any    `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("%w: claims: %v", core.ErrTokenInvalid, err)
	}
	if strings.TrimSpace(c.Subject) == "" {
		return nil, fmt.Errorf("%w: missing sub", core.ErrTokenInvalid)
	}

	return &core.IdentityClaim{
		Provider:      core.ProviderGoogle,
		Subject:       c.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified == true || c.EmailVerified == "true",
		Name:          c.Name,
		Picture:       c.Picture,
	}, nil
}
