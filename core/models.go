package core

import "time"

// IdentityClaim is the normalized output of a token verifier.
//
// It lives for one request and is never persisted directly.
type IdentityClaim struct {
	Provider      Provider
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// SessionClaims are the verified contents of an access or refresh token.
type SessionClaims struct {
	AccountID string
	TokenType string
	TokenID   string
	ExpiresAt time.Time
}

// UserSummary is the public account view returned to clients.
type UserSummary struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	PhoneNumber  string   `json:"phone_number,omitempty"`
	Location     string   `json:"location,omitempty"`
	PictureURL   string   `json:"picture,omitempty"`
	AuthProvider Provider `json:"auth_provider"`
	GoogleID     *string  `json:"google_id"`
	AppleID      *string  `json:"apple_id"`
}

// SessionData is what every successful login returns.
type SessionData struct {
	UserID  string      `json:"userId"`
	User    UserSummary `json:"user"`
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
}

// RefreshResult carries a newly minted access token.
type RefreshResult struct {
	Access          string    `json:"access"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
}

func Summarize(a *Account) UserSummary {
	return UserSummary{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Name,
		PhoneNumber:  a.PhoneNumber,
		Location:     a.Location,
		PictureURL:   a.PictureURL,
		AuthProvider: a.AuthProvider,
		GoogleID:     a.GoogleID,
		AppleID:      a.AppleID,
	}
}
