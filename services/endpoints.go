package services

import (
	"fmt"
	"net/http"

	"github.com/lborres/bantay/core"
)

// Operation ids double as the keys HTTP adapters use to pick a handler.
const (
	OpSignInWithGoogle = "signInWithGoogle"
	OpSignInWithApple  = "signInWithApple"
	OpSignIn           = "signInWithEmailAndPassword"
	OpSignUp           = "signUpWithEmailAndPassword"
	OpRefresh          = "refreshAccessToken"
	OpMe               = "getCurrentUser"
)

// BaseEndpoints returns framework-agnostic endpoint specifications
// for all authentication endpoints, relative to the API base path.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/auth/google/",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID: OpSignInWithGoogle,
				Description: "Sign in with a Google ID token",
				SuccessCode: http.StatusOK,
			},
		},
		{
			Path:   "/auth/apple/",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID: OpSignInWithApple,
				Description: "Sign in with an Apple identity token",
				SuccessCode: http.StatusOK,
			},
		},
		{
			Path:   "/auth/login/",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID: OpSignIn,
				Description: "Sign in a user using email and password",
				SuccessCode: http.StatusOK,
			},
		},
		{
			Path:   "/auth/signup/",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID: OpSignUp,
				Description: "Sign up a user using email and password",
				SuccessCode: http.StatusCreated,
			},
		},
		{
			Path:   "/auth/refresh/",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID: OpRefresh,
				Description: "Exchange a refresh token for a new access token",
				SuccessCode: http.StatusOK,
			},
		},
		{
			Path:      "/auth/me/",
			Method:    http.MethodGet,
			Protected: true,
			Metadata: core.EndpointMetadata{
				OperationID: OpMe,
				Description: "Get the signed-in user's account",
				SuccessCode: http.StatusOK,
			},
		},
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and handles conflict detection for duplicate METHOD:PATH combinations.
type EndpointRegistry struct {
	endpoints map[string]*core.Endpoint
	order     []string
}

// NewEndpointRegistry creates a new registry with all base endpoints pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}
	for _, ep := range BaseEndpoints() {
		ep := ep
		_ = reg.register(&ep)
	}
	return reg
}

func key(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	k := key(ep)
	if _, exists := r.endpoints[k]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}
	r.endpoints[k] = ep
	r.order = append(r.order, k)
	return nil
}

// RegisterPlugin registers additional endpoints. If any of them conflicts
// with a registered endpoint or with another in the same batch, none are
// registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool, len(endpoints))
	for i := range endpoints {
		k := key(&endpoints[i])
		if _, exists := r.endpoints[k]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", endpoints[i].Method, endpoints[i].Path)
		}
		if seen[k] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", endpoints[i].Method, endpoints[i].Path)
		}
		seen[k] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		_ = r.register(&ep)
	}
	return nil
}

// Endpoints returns all registered endpoints in registration order.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.order))
	for _, k := range r.order {
		result = append(result, r.endpoints[k])
	}
	return result
}
