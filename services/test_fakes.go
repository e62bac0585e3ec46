package services

import (
	"context"
	"errors"
	"sync"

	"github.com/lborres/bantay/core"
)

// FakeAccountStorage is a test-only fake implementing core.AccountStorage.
// It enforces the same uniqueness rules as the SQL adapters and exposes
// error fields and hooks for behavior injection.
type FakeAccountStorage struct {
	mu       sync.RWMutex
	accounts map[string]*core.Account
	subjects map[core.Provider]map[string]string // provider -> subject -> account id

	createErr error
	getErr    error
	linkErr   error

	// beforeCreate runs without the lock held, letting a test land a
	// competing write between the caller's lookup and its insert.
	beforeCreate func()

	creates int
	links   int
}

func NewFakeAccountStorage() *FakeAccountStorage {
	return &FakeAccountStorage{
		accounts: make(map[string]*core.Account),
		subjects: map[core.Provider]map[string]string{
			core.ProviderGoogle: {},
			core.ProviderApple:  {},
		},
	}
}

func (f *FakeAccountStorage) CreateAccount(_ context.Context, a *core.Account) error {
	if f.beforeCreate != nil {
		hook := f.beforeCreate
		f.beforeCreate = nil
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return core.ErrEmailTaken
		}
	}
	for p, index := range f.subjects {
		if s := a.Subject(p); s != "" {
			if _, taken := index[s]; taken {
				return core.ErrSubjectTaken
			}
		}
	}

	stored := *a
	f.accounts[a.ID] = &stored
	for p, index := range f.subjects {
		if s := a.Subject(p); s != "" {
			index[s] = a.ID
		}
	}
	f.creates++
	return nil
}

func (f *FakeAccountStorage) GetAccountByID(_ context.Context, id string) (*core.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if a, ok := f.accounts[id]; ok {
		out := *a
		return &out, nil
	}
	return nil, core.ErrAccountNotFound
}

func (f *FakeAccountStorage) GetAccountByEmail(_ context.Context, email string) (*core.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.accounts {
		if a.Email == email {
			out := *a
			return &out, nil
		}
	}
	return nil, core.ErrAccountNotFound
}

func (f *FakeAccountStorage) LinkSubject(_ context.Context, id string, p core.Provider, subject, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.linkErr != nil {
		return f.linkErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return core.ErrAccountNotFound
	}
	index, ok := f.subjects[p]
	if !ok {
		return errors.New("fake: provider has no subject slot")
	}
	if a.Subject(p) != "" {
		return core.ErrSubjectTaken
	}
	if _, taken := index[subject]; taken {
		return core.ErrSubjectTaken
	}

	a.SetSubject(p, subject)
	if name != "" {
		a.Name = name
	}
	index[subject] = id
	f.links++
	return nil
}

// Put stores an account directly, bypassing uniqueness checks.
func (f *FakeAccountStorage) Put(a *core.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *a
	f.accounts[a.ID] = &stored
	for p, index := range f.subjects {
		if s := a.Subject(p); s != "" {
			index[s] = a.ID
		}
	}
}

func (f *FakeAccountStorage) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.accounts)
}

// Writes counts successful CreateAccount and LinkSubject calls.
func (f *FakeAccountStorage) Writes() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.creates + f.links
}

// FakeVerifier is a test-only core.TokenVerifier returning a canned claim
// for one accepted token.
type FakeVerifier struct {
	provider core.Provider
	token    string
	claim    core.IdentityClaim

	mu    sync.Mutex
	calls int
}

func NewFakeVerifier(p core.Provider, token string, claim core.IdentityClaim) *FakeVerifier {
	claim.Provider = p
	return &FakeVerifier{provider: p, token: token, claim: claim}
}

func (f *FakeVerifier) Provider() core.Provider {
	return f.provider
}

func (f *FakeVerifier) Verify(_ context.Context, raw string) (*core.IdentityClaim, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if raw == "" || raw != f.token {
		return nil, core.ErrTokenInvalid
	}
	out := f.claim
	return &out, nil
}

func (f *FakeVerifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
