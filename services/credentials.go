package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/crypto"
)

// CredentialAuthenticator checks email/password logins against the registry.
type CredentialAuthenticator struct {
	accounts core.AccountStorage
	hasher   crypto.PasswordHandler

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialAuthenticator(accounts core.AccountStorage, hasher crypto.PasswordHandler) *CredentialAuthenticator {
	return &CredentialAuthenticator{accounts: accounts, hasher: hasher}
}

// Authenticate returns the account for a correct email/password pair.
//
// Every rejection matches core.ErrCredentialInvalid. An account owned by a
// social provider also matches core.ErrProviderMismatch.
func (c *CredentialAuthenticator) Authenticate(ctx context.Context, email, password string) (*core.Account, error) {
	account, err := c.accounts.GetAccountByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, core.ErrAccountNotFound) {
		// Unknown emails pay for a hash too, so timing does not reveal registration.
		c.burnHash(password)
		return nil, core.ErrCredentialInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if account.AuthProvider != core.ProviderEmail {
		return nil, core.ErrWrongProvider
	}
	if account.PasswordHash == nil || *account.PasswordHash == "" {
		return nil, core.ErrCredentialInvalid
	}

	valid, err := c.hasher.Verify(password, *account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, core.ErrCredentialInvalid
	}

	if !account.IsActive {
		return nil, core.ErrAccountInactive
	}
	return account, nil
}

func (c *CredentialAuthenticator) burnHash(password string) {
	c.dummyOnce.Do(func() {
		c.dummyHash, _ = c.hasher.Hash("bantay-dummy-password")
	})
	if c.dummyHash != "" {
		_, _ = c.hasher.Verify(password, c.dummyHash)
	}
}
