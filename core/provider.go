package core

import (
	"fmt"
	"strings"
)

// Provider identifies the sign-in method an account is bound to.
//
// The set is closed: an account is created under exactly one provider and
// keeps it for life.
type Provider uint8

const (
	ProviderUnknown Provider = iota
	ProviderEmail
	ProviderGoogle
	ProviderApple
)

var providerNames = map[Provider]string{
	ProviderEmail:  "email",
	ProviderGoogle: "google",
	ProviderApple:  "apple",
}

func (p Provider) String() string {
	if name, ok := providerNames[p]; ok {
		return name
	}
	return "unknown"
}

// Social reports whether the provider authenticates through a third-party ID token.
func (p Provider) Social() bool {
	return p == ProviderGoogle || p == ProviderApple
}

// ParseProvider maps the stored text form back to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email":
		return ProviderEmail, nil
	case "google":
		return ProviderGoogle, nil
	case "apple":
		return ProviderApple, nil
	}
	return ProviderUnknown, fmt.Errorf("unknown auth provider %q", s)
}

func (p Provider) MarshalText() ([]byte, error) {
	if _, ok := providerNames[p]; !ok {
		return nil, fmt.Errorf("unknown auth provider %d", p)
	}
	return []byte(p.String()), nil
}

func (p *Provider) UnmarshalText(text []byte) error {
	parsed, err := ParseProvider(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
