// Package jwkstest serves a JWKS document from an httptest server and signs
// tokens with the matching private keys.
package jwkstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

type signingKey struct {
	kid    string
	method jwt.SigningMethod
	priv   any
	pub    any
}

type Server struct {
	*httptest.Server

	mu      sync.RWMutex
	keys    []signingKey
	hits    atomic.Int64
	failing atomic.Bool
}

// NewServer starts a JWKS server publishing one RS256 key with kid "rsa-1"
// and one ES256 key with kid "ec-1". It is closed on test cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{}
	s.AddRSAKey(t, "rsa-1")
	s.AddECKey(t, "ec-1")
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve(w http.ResponseWriter, _ *http.Request) {
	s.hits.Add(1)
	if s.failing.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	s.mu.RLock()
	set := jose.JSONWebKeySet{}
	for _, k := range s.keys {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       k.pub,
			KeyID:     k.kid,
			Algorithm: k.method.Alg(),
			Use:       "sig",
		})
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}

func (s *Server) AddRSAKey(t testing.TB, kid string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	s.add(signingKey{kid: kid, method: jwt.SigningMethodRS256, priv: priv, pub: &priv.PublicKey})
}

func (s *Server) AddECKey(t testing.TB, kid string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ec key: %v", err)
	}
	s.add(signingKey{kid: kid, method: jwt.SigningMethodES256, priv: priv, pub: &priv.PublicKey})
}

func (s *Server) add(k signingKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, k)
}

// Hits is the number of JWKS requests served so far.
func (s *Server) Hits() int64 {
	return s.hits.Load()
}

// SetFailing makes the server answer 503 until reset.
func (s *Server) SetFailing(failing bool) {
	s.failing.Store(failing)
}

// Sign signs claims with the key published under kid.
func (s *Server) Sign(t testing.TB, kid string, claims jwt.Claims) string {
	t.Helper()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.kid == kid {
			return sign(t, k.method, kid, k.priv, claims)
		}
	}
	t.Fatalf("jwkstest: no key %q", kid)
	return ""
}

// SignUnpublished signs with a fresh RSA key the server never publishes,
// under the given kid.
func SignUnpublished(t testing.TB, kid string, claims jwt.Claims) string {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return sign(t, jwt.SigningMethodRS256, kid, priv, claims)
}

func sign(t testing.TB, method jwt.SigningMethod, kid string, priv any, claims jwt.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, claims)
	tok.Header["kid"] = kid
	raw, err := tok.SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}
