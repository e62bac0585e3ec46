package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lborres/bantay/core"
)

// SessionIssuer mints and verifies HS256 session tokens. It holds no
// per-session state: a token is valid until it expires.
type SessionIssuer struct {
	secret []byte
	config core.SessionConfig
	now    func() time.Time
}

type sessionClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func NewSessionIssuer(secret string, config core.SessionConfig) *SessionIssuer {
	defaults := core.DefaultSessionConfig()
	if config.Issuer == "" {
		config.Issuer = defaults.Issuer
	}
	if config.AccessTTL <= 0 {
		config.AccessTTL = defaults.AccessTTL
	}
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = defaults.RefreshTTL
	}
	return &SessionIssuer{secret: []byte(secret), config: config, now: time.Now}
}

// Issue mints an access/refresh pair for the account.
func (i *SessionIssuer) Issue(accountID string) (*core.TokenPair, error) {
	access, accessExp, err := i.mint(accountID, core.TokenTypeAccess, i.config.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := i.mint(accountID, core.TokenTypeRefresh, i.config.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &core.TokenPair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccess mints a lone access token, as the refresh endpoint does.
func (i *SessionIssuer) IssueAccess(accountID string) (*core.RefreshResult, error) {
	access, exp, err := i.mint(accountID, core.TokenTypeAccess, i.config.AccessTTL)
	if err != nil {
		return nil, err
	}
	return &core.RefreshResult{Access: access, AccessExpiresAt: exp}, nil
}

func (i *SessionIssuer) VerifyAccess(raw string) (*core.SessionClaims, error) {
	return i.verify(raw, core.TokenTypeAccess)
}

func (i *SessionIssuer) VerifyRefresh(raw string) (*core.SessionClaims, error) {
	return i.verify(raw, core.TokenTypeRefresh)
}

func (i *SessionIssuer) mint(accountID, tokenType string, ttl time.Duration) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, errors.New("account id is required")
	}
	now := i.now().UTC().Truncate(time.Second)
	exp := now.Add(ttl)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, exp, nil
}

func (i *SessionIssuer) verify(raw, tokenType string) (*core.SessionClaims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", core.ErrTokenInvalid)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	var c sessionClaims
	if _, err := parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTokenInvalid, err)
	}

	if c.TokenType != tokenType {
		return nil, fmt.Errorf("%w: expected %s token, got %q", core.ErrTokenInvalid, tokenType, c.TokenType)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", core.ErrTokenInvalid)
	}

	return &core.SessionClaims{
		AccountID: c.Subject,
		TokenType: c.TokenType,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
