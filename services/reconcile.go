package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/logger"
)

// errRetry marks a lost write race; the caller re-reads and decides again.
var errRetry = errors.New("reconcile: lost race")

// Reconciler maps a verified identity claim onto exactly one local account.
//
// The registry's unique indexes on email and provider subject are the only
// coordination between concurrent reconciles. A lost race is resolved by
// reading the winner once and applying the same rules to it.
type Reconciler struct {
	accounts core.AccountStorage
	log      *logger.Logger
	now      func() time.Time
}

func NewReconciler(accounts core.AccountStorage, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{accounts: accounts, log: log, now: time.Now}
}

// Reconcile returns the account for claim, creating or binding it as needed.
//
// Outcomes, keyed by the account found under the claim's email:
//   - none: a new account owned by claim.Provider with the subject bound
//   - owned by another provider: core.ErrProviderMismatch
//   - bound to another subject: core.ErrSubjectConflict
//   - subject slot empty: the subject is bound and the name refreshed
//   - bound to this subject: returned unchanged, nothing is written
func (r *Reconciler) Reconcile(ctx context.Context, claim *core.IdentityClaim) (*core.Account, error) {
	if claim == nil || !claim.Provider.Social() || claim.Subject == "" {
		return nil, fmt.Errorf("%w: incomplete identity claim", core.ErrTokenInvalid)
	}
	email := core.NormalizeEmail(claim.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: identity claim has no email", core.ErrTokenInvalid)
	}

	for attempt := 0; attempt < 2; attempt++ {
		account, err := r.accounts.GetAccountByEmail(ctx, email)
		if errors.Is(err, core.ErrAccountNotFound) {
			account, err = r.create(ctx, email, claim)
		} else if err == nil {
			account, err = r.bind(ctx, account, claim)
		} else {
			return nil, fmt.Errorf("failed to look up account: %w", err)
		}

		if errors.Is(err, errRetry) {
			r.log.Debug("reconcile lost a race, re-reading", "email", email, "attempt", attempt)
			continue
		}
		return account, err
	}

	// Two lost races in a row leave a subject held by another account.
	return nil, core.ErrSubjectConflict
}

func (r *Reconciler) create(ctx context.Context, email string, claim *core.IdentityClaim) (*core.Account, error) {
	now := r.now().UTC()
	account := &core.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         claim.Name,
		PictureURL:   claim.Picture,
		AuthProvider: claim.Provider,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	account.SetSubject(claim.Provider, claim.Subject)

	err := r.accounts.CreateAccount(ctx, account)
	switch {
	case errors.Is(err, core.ErrEmailTaken):
		return nil, errRetry
	case errors.Is(err, core.ErrSubjectTaken):
		// Same subject already bound under a different email.
		r.log.Warn("provider subject already bound to another account", "provider", claim.Provider.String(), "subject", claim.Subject)
		return nil, core.ErrSubjectConflict
	case err != nil:
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	r.log.Info("account created", "account_id", account.ID, "provider", claim.Provider.String())
	return account, nil
}

func (r *Reconciler) bind(ctx context.Context, account *core.Account, claim *core.IdentityClaim) (*core.Account, error) {
	if account.AuthProvider != claim.Provider {
		return nil, core.ErrProviderMismatch
	}

	switch bound := account.Subject(claim.Provider); {
	case bound == claim.Subject:
		return account, nil
	case bound != "":
		return nil, core.ErrSubjectConflict
	}

	name := claim.Name
	if name == "" {
		name = account.Name
	}
	err := r.accounts.LinkSubject(ctx, account.ID, claim.Provider, claim.Subject, name)
	switch {
	case errors.Is(err, core.ErrSubjectTaken):
		return nil, errRetry
	case err != nil:
		return nil, fmt.Errorf("failed to link subject: %w", err)
	}

	account.SetSubject(claim.Provider, claim.Subject)
	account.Name = name
	account.UpdatedAt = r.now().UTC()
	r.log.Info("provider subject linked", "account_id", account.ID, "provider", claim.Provider.String())
	return account, nil
}
