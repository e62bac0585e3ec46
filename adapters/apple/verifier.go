package apple

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/jwks"
	"github.com/lborres/bantay/pkg/logger"
)

const (
	Issuer  = "https://appleid.apple.com"
	KeysURL = "https://appleid.apple.com/auth/keys"
)

var allowedAlgs = []string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg()}

// KeyResolver looks up a provider signing key by kid. *jwks.KeySet satisfies it.
type KeyResolver interface {
	Key(ctx context.Context, kid string) (any, error)
}

type Config struct {
	BundleID string
	Keys     KeyResolver
	Logger   *logger.Logger
	Now      func() time.Time
}

// Verifier validates Sign in with Apple identity tokens.
type Verifier struct {
	bundleID string
	keys     KeyResolver
	log      *logger.Logger
	now      func() time.Time
}

var _ core.TokenVerifier = (*Verifier)(nil)

func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.BundleID) == "" {
		return nil, fmt.Errorf("%w: apple bundle id is empty", core.ErrProviderNotConfigured)
	}
	if cfg.Keys == nil {
		cfg.Keys = jwks.NewKeySet(KeysURL, jwks.Options{})
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{
		bundleID: cfg.BundleID,
		keys:     cfg.Keys,
		log:      cfg.Logger.With("provider", core.ProviderApple.String()),
		now:      cfg.Now,
	}, nil
}

func (v *Verifier) Provider() core.Provider {
	return core.ProviderApple
}

type claims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	jwt.RegisteredClaims
}

func (v *Verifier) Verify(ctx context.Context, rawToken string) (*core.IdentityClaim, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, fmt.Errorf("%w: empty token", core.ErrTokenInvalid)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(allowedAlgs),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(v.bundleID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)

	var c claims
	_, err := parser.ParseWithClaims(rawToken, &c, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		if errors.Is(err, jwks.ErrFetch) || errors.Is(err, jwks.ErrNoKeys) {
			v.log.Warn("apple signing keys unavailable", "error", err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrTokenInvalid, err)
	}

	if strings.TrimSpace(c.Subject) == "" {
		return nil, fmt.Errorf("%w: missing sub", core.ErrTokenInvalid)
	}

	return &core.IdentityClaim{
		Provider:      core.ProviderApple,
		Subject:       c.Subject,
		Email:         c.Email,
		EmailVerified: parseBool(c.EmailVerified),
	}, nil
}

// Apple has sent email_verified both as a JSON bool and as "true"/"false".
func parseBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(x, "true") || x == "1"
	case float64:
		return x != 0
	default:
		return false
	}
}
