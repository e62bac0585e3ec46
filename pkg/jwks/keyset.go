// Package jwks fetches and caches JSON Web Key Sets published by identity
// providers, resolving signing keys by key id.
package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"

	"github.com/lborres/bantay/pkg/cache"
)

var (
	ErrKeyNotFound = errors.New("kid not found in jwks")
	ErrFetch       = errors.New("jwks fetch failed")
	ErrNoKeys      = errors.New("jwks contained no usable keys")
)

const (
	DefaultTTL     = time.Hour
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

type Options struct {
	HTTPClient *http.Client
	TTL        time.Duration
}

// KeySet resolves public keys from a remote JWKS document.
//
// Keys are cached for TTL. A lookup for an unknown or expired kid triggers a
// refetch; concurrent refetches share one HTTP request. A KeySet is safe for
// concurrent use and is meant to live for the whole process.
type KeySet struct {
	url    string
	client *http.Client
	keys   *cache.Memory[string, any]
	group  singleflight.Group
}

func NewKeySet(url string, opts Options) *KeySet {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &KeySet{
		url:    url,
		client: opts.HTTPClient,
		keys:   cache.NewMemory[string, any](cache.Config{TTL: opts.TTL, MaxSize: 64}),
	}
}

// Key returns the *rsa.PublicKey or *ecdsa.PublicKey published under kid.
func (s *KeySet) Key(ctx context.Context, kid string) (any, error) {
	if strings.TrimSpace(kid) == "" {
		return nil, fmt.Errorf("%w: empty kid", ErrKeyNotFound)
	}
	if key, err := s.keys.Get(kid); err == nil {
		return key, nil
	}

	// The request context is not shared with other waiters.
	_, err, _ := s.group.Do("fetch", func() (any, error) {
		return nil, s.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}

	key, err := s.keys.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return key, nil
}

// Stats exposes the underlying cache counters.
func (s *KeySet) Stats() cache.Stats {
	return s.keys.Stats()
}

type rawSet struct {
	Keys []json.RawMessage `json:"keys"`
}

func (s *KeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("%w: %s", ErrFetch, res.Status)
	}

	var set rawSet
	if err := json.NewDecoder(io.LimitReader(res.Body, maxBodyBytes)).Decode(&set); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrFetch, err)
	}

	// Entries with an unsupported kty or a malformed body are skipped.
	loaded := 0
	for _, raw := range set.Keys {
		var k jose.JSONWebKey
		if err := k.UnmarshalJSON(raw); err != nil {
			continue
		}
		if k.KeyID == "" || !k.Valid() || !k.IsPublic() {
			continue
		}
		_ = s.keys.Set(k.KeyID, k.Key)
		loaded++
	}
	if loaded == 0 {
		return ErrNoKeys
	}
	return nil
}
