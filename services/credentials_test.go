package services

import (
	"context"
	"errors"
	"testing"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/crypto"
)

// Requirement: only an active email account with the right password authenticates.
func TestCredentialAuthenticator_Authenticate(t *testing.T) {
	hasher := crypto.NewBcrypt(4)
	hash, err := hasher.Hash("SecurePass123!")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		account      *core.Account
		email        string
		password     string
		wantErr      error
		wantMismatch bool
	}{
		{
			name:     "valid credentials",
			account:  &core.Account{ID: "a1", Email: "alice@example.com", AuthProvider: core.ProviderEmail, PasswordHash: &hash, IsActive: true},
			email:    "  Alice@Example.com",
			password: "SecurePass123!",
		},
		{
			name:     "wrong password",
			account:  &core.Account{ID: "a1", Email: "alice@example.com", AuthProvider: core.ProviderEmail, PasswordHash: &hash, IsActive: true},
			email:    "alice@example.com",
			password: "WrongPass123!",
			wantErr:  core.ErrCredentialInvalid,
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "SecurePass123!",
			wantErr:  core.ErrCredentialInvalid,
		},
		{
			name:         "google account",
			account:      &core.Account{ID: "a1", Email: "alice@example.com", AuthProvider: core.ProviderGoogle, GoogleID: strPtr("g1"), IsActive: true},
			email:        "alice@example.com",
			password:     "SecurePass123!",
			wantErr:      core.ErrCredentialInvalid,
			wantMismatch: true,
		},
		{
			name:     "no password hash",
			account:  &core.Account{ID: "a1", Email: "alice@example.com", AuthProvider: core.ProviderEmail, IsActive: true},
			email:    "alice@example.com",
			password: "SecurePass123!",
			wantErr:  core.ErrCredentialInvalid,
		},
		{
			name:     "inactive account",
			account:  &core.Account{ID: "a1", Email: "alice@example.com", AuthProvider: core.ProviderEmail, PasswordHash: &hash},
			email:    "alice@example.com",
			password: "SecurePass123!",
			wantErr:  core.ErrAccountInactive,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeAccountStorage()
			if test.account != nil {
				storage.Put(test.account)
			}
			auth := NewCredentialAuthenticator(storage, hasher)

			// Act
			account, err := auth.Authenticate(context.Background(), test.email, test.password)

			// Assert
			if test.wantErr == nil {
				if err != nil {
					t.Fatalf("Authenticate() error = %v", err)
				}
				if account.ID != "a1" {
					t.Errorf("ID = %s, want a1", account.ID)
				}
				return
			}
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, test.wantErr)
			}
			if !errors.Is(err, core.ErrCredentialInvalid) {
				t.Errorf("every rejection should match ErrCredentialInvalid, got %v", err)
			}
			if errors.Is(err, core.ErrProviderMismatch) != test.wantMismatch {
				t.Errorf("ErrProviderMismatch match = %v, want %v", !test.wantMismatch, test.wantMismatch)
			}
			if account != nil {
				t.Errorf("account = %+v, want nil", account)
			}
		})
	}
}

func TestCredentialAuthenticator_CorruptHashIsServerError(t *testing.T) {
	storage := NewFakeAccountStorage()
	storage.Put(&core.Account{ID: "a1", Email: "a@x.com", AuthProvider: core.ProviderEmail, PasswordHash: strPtr("garbage"), IsActive: true})
	auth := NewCredentialAuthenticator(storage, crypto.NewBcrypt(4))

	_, err := auth.Authenticate(context.Background(), "a@x.com", "SecurePass123!")

	if err == nil || errors.Is(err, core.ErrCredentialInvalid) {
		t.Errorf("error = %v, want an internal verify error", err)
	}
	if !errors.Is(err, crypto.ErrInvalidHashFormat) {
		t.Errorf("error = %v, want ErrInvalidHashFormat in chain", err)
	}
}
