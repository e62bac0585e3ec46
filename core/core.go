package core

import "time"

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type SessionConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Issuer:     "bantay",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}
