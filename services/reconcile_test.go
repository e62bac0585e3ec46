package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lborres/bantay/core"
)

func googleClaim(email, subject string) *core.IdentityClaim {
	return &core.IdentityClaim{
		Provider:      core.ProviderGoogle,
		Subject:       subject,
		Email:         email,
		EmailVerified: true,
		Name:          "New User",
		Picture:       "https://lh3.googleusercontent.com/a/new",
	}
}

func strPtr(s string) *string { return &s }

// Requirement: first social login creates an account owned by the provider with the subject bound.
func TestReconciler_CreatesAccount(t *testing.T) {
	// Arrange
	storage := NewFakeAccountStorage()
	r := NewReconciler(storage, nil)

	// Act
	account, err := r.Reconcile(context.Background(), googleClaim("New@X.com ", "g1"))

	// Assert
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if account.Email != "new@x.com" {
		t.Errorf("Email = %q, want normalized new@x.com", account.Email)
	}
	if account.AuthProvider != core.ProviderGoogle {
		t.Errorf("AuthProvider = %v, want google", account.AuthProvider)
	}
	if account.GoogleID == nil || *account.GoogleID != "g1" {
		t.Errorf("GoogleID = %v, want g1", account.GoogleID)
	}
	if account.AppleID != nil || account.PasswordHash != nil {
		t.Error("new social account should have no apple id and no password")
	}
	if !account.IsActive || account.PictureURL == "" || account.Name != "New User" {
		t.Errorf("unexpected account %+v", account)
	}
	if storage.Len() != 1 {
		t.Errorf("storage has %d accounts, want 1", storage.Len())
	}
}

// Requirement: reconciliation is idempotent; the same claim twice yields the
// same account and no second write.
func TestReconciler_Idempotent(t *testing.T) {
	for _, provider := range []core.Provider{core.ProviderGoogle, core.ProviderApple} {
		provider := provider
		t.Run(provider.String(), func(t *testing.T) {
			storage := NewFakeAccountStorage()
			r := NewReconciler(storage, nil)
			claim := googleClaim("new@x.com", "sub-1")
			claim.Provider = provider

			first, err := r.Reconcile(context.Background(), claim)
			if err != nil {
				t.Fatalf("first Reconcile() error = %v", err)
			}
			writes := storage.Writes()

			second, err := r.Reconcile(context.Background(), claim)
			if err != nil {
				t.Fatalf("second Reconcile() error = %v", err)
			}

			if first.ID != second.ID {
				t.Errorf("account ids differ: %s vs %s", first.ID, second.ID)
			}
			if storage.Writes() != writes {
				t.Errorf("second reconcile wrote %d times", storage.Writes()-writes)
			}
			if storage.Len() != 1 {
				t.Errorf("storage has %d accounts, want 1", storage.Len())
			}
		})
	}
}

// Requirement: existing accounts are bound, rejected, or returned according to provider and subject.
func TestReconciler_ExistingAccount(t *testing.T) {
	tests := []struct {
		name        string
		existing    core.Account
		claim       *core.IdentityClaim
		wantErr     error
		wantSubject string
		wantName    string
		wantWrites  int
	}{
		{
			name:     "password account is never converted",
			existing: core.Account{ID: "a1", Email: "new@x.com", AuthProvider: core.ProviderEmail, PasswordHash: strPtr("h"), IsActive: true},
			claim:    googleClaim("new@x.com", "g1"),
			wantErr:  core.ErrProviderMismatch,
		},
		{
			name:     "apple account rejects google claim",
			existing: core.Account{ID: "a1", Email: "new@x.com", AuthProvider: core.ProviderApple, AppleID: strPtr("ap1"), IsActive: true},
			claim:    googleClaim("new@x.com", "g1"),
			wantErr:  core.ErrProviderMismatch,
		},
		{
			name:     "different google subject conflicts",
			existing: core.Account{ID: "a1", Email: "new@x.com", AuthProvider: core.ProviderGoogle, GoogleID: strPtr("A"), IsActive: true},
			claim:    googleClaim("new@x.com", "B"),
			wantErr:  core.ErrSubjectConflict,
		},
		{
			name:        "unbound slot is linked and name refreshed",
			existing:    core.Account{ID: "a1", Email: "new@x.com", Name: "Old", AuthProvider: core.ProviderGoogle, IsActive: true},
			claim:       googleClaim("new@x.com", "g1"),
			wantSubject: "g1",
			wantName:    "New User",
			wantWrites:  1,
		},
		{
			name:        "link keeps name when claim has none",
			existing:    core.Account{ID: "a1", Email: "new@x.com", Name: "Old", AuthProvider: core.ProviderGoogle, IsActive: true},
			claim:       &core.IdentityClaim{Provider: core.ProviderGoogle, Subject: "g1", Email: "new@x.com", EmailVerified: true},
			wantSubject: "g1",
			wantName:    "Old",
			wantWrites:  1,
		},
		{
			name:        "same subject returns as is",
			existing:    core.Account{ID: "a1", Email: "new@x.com", Name: "Old", AuthProvider: core.ProviderGoogle, GoogleID: strPtr("g1"), IsActive: true},
			claim:       googleClaim("new@x.com", "g1"),
			wantSubject: "g1",
			wantName:    "Old",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeAccountStorage()
			existing := test.existing
			storage.Put(&existing)
			r := NewReconciler(storage, nil)

			// Act
			account, err := r.Reconcile(context.Background(), test.claim)

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("Reconcile() error = %v, want %v", err, test.wantErr)
				}
				if account != nil {
					t.Errorf("account = %+v, want nil", account)
				}
				stored, _ := storage.GetAccountByID(context.Background(), "a1")
				if stored.AuthProvider != test.existing.AuthProvider || stored.Subject(core.ProviderGoogle) != test.existing.Subject(core.ProviderGoogle) {
					t.Errorf("stored account was mutated: %+v", stored)
				}
				return
			}
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if account.ID != "a1" {
				t.Errorf("ID = %s, want a1", account.ID)
			}
			if got := account.Subject(core.ProviderGoogle); got != test.wantSubject {
				t.Errorf("subject = %q, want %q", got, test.wantSubject)
			}
			if account.Name != test.wantName {
				t.Errorf("Name = %q, want %q", account.Name, test.wantName)
			}
			if storage.Writes() != test.wantWrites {
				t.Errorf("writes = %d, want %d", storage.Writes(), test.wantWrites)
			}
		})
	}
}

// Requirement: losing the email insert race to an identical binding returns the winner.
func TestReconciler_LostCreateRaceReturnsWinner(t *testing.T) {
	// Arrange
	storage := NewFakeAccountStorage()
	winner := core.Account{ID: "winner", Email: "new@x.com", AuthProvider: core.ProviderGoogle, GoogleID: strPtr("g1"), IsActive: true}
	storage.beforeCreate = func() { storage.Put(&winner) }
	r := NewReconciler(storage, nil)

	// Act
	account, err := r.Reconcile(context.Background(), googleClaim("new@x.com", "g1"))

	// Assert
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if account.ID != "winner" {
		t.Errorf("ID = %s, want winner", account.ID)
	}
	if storage.Len() != 1 {
		t.Errorf("storage has %d accounts, want 1", storage.Len())
	}
}

func TestReconciler_LostCreateRaceToOtherSubjectConflicts(t *testing.T) {
	storage := NewFakeAccountStorage()
	winner := core.Account{ID: "winner", Email: "new@x.com", AuthProvider: core.ProviderGoogle, GoogleID: strPtr("other"), IsActive: true}
	storage.beforeCreate = func() { storage.Put(&winner) }
	r := NewReconciler(storage, nil)

	_, err := r.Reconcile(context.Background(), googleClaim("new@x.com", "g1"))

	if !errors.Is(err, core.ErrSubjectConflict) {
		t.Errorf("Reconcile() error = %v, want ErrSubjectConflict", err)
	}
}

// Requirement: a subject already bound under a different email is a conflict, not a second account.
func TestReconciler_SubjectBoundToOtherEmail(t *testing.T) {
	storage := NewFakeAccountStorage()
	storage.Put(&core.Account{ID: "a1", Email: "old@x.com", AuthProvider: core.ProviderGoogle, GoogleID: strPtr("g1"), IsActive: true})
	storage.Put(&core.Account{ID: "a2", Email: "new@x.com", AuthProvider: core.ProviderGoogle, IsActive: true})
	r := NewReconciler(storage, nil)

	t.Run("create", func(t *testing.T) {
		_, err := r.Reconcile(context.Background(), googleClaim("third@x.com", "g1"))
		if !errors.Is(err, core.ErrSubjectConflict) {
			t.Errorf("error = %v, want ErrSubjectConflict", err)
		}
	})
	t.Run("link", func(t *testing.T) {
		_, err := r.Reconcile(context.Background(), googleClaim("new@x.com", "g1"))
		if !errors.Is(err, core.ErrSubjectConflict) {
			t.Errorf("error = %v, want ErrSubjectConflict", err)
		}
	})

	if storage.Len() != 2 {
		t.Errorf("storage has %d accounts, want 2", storage.Len())
	}
}

func TestReconciler_RejectsIncompleteClaims(t *testing.T) {
	tests := []struct {
		name  string
		claim *core.IdentityClaim
	}{
		{name: "nil", claim: nil},
		{name: "no subject", claim: &core.IdentityClaim{Provider: core.ProviderGoogle, Email: "a@x.com"}},
		{name: "no email", claim: &core.IdentityClaim{Provider: core.ProviderApple, Subject: "s"}},
		{name: "email provider", claim: &core.IdentityClaim{Provider: core.ProviderEmail, Subject: "s", Email: "a@x.com"}},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			storage := NewFakeAccountStorage()

			_, err := NewReconciler(storage, nil).Reconcile(context.Background(), test.claim)

			if !errors.Is(err, core.ErrTokenInvalid) {
				t.Errorf("error = %v, want ErrTokenInvalid", err)
			}
			if storage.Len() != 0 {
				t.Error("no account should be created")
			}
		})
	}
}

func TestReconciler_StorageFailure(t *testing.T) {
	storage := NewFakeAccountStorage()
	storage.getErr = errors.New("connection refused")
	r := NewReconciler(storage, nil)
	r.now = func() time.Time { return time.Unix(0, 0) }

	_, err := r.Reconcile(context.Background(), googleClaim("new@x.com", "g1"))

	if err == nil || errors.Is(err, core.ErrSubjectConflict) || errors.Is(err, core.ErrProviderMismatch) {
		t.Errorf("error = %v, want a wrapped storage error", err)
	}
}
