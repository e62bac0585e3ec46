package core

import (
	"strings"
	"time"
)

// Account is the durable identity record.
//
// Email is unique across every provider. AuthProvider is fixed at creation
// and decides which credential path may authenticate the account.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"` // Never expose in JSON
	Name         string    `json:"name"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	Location     string    `json:"location,omitempty"`
	PictureURL   string    `json:"pictureUrl,omitempty"`
	AuthProvider Provider  `json:"authProvider"`
	GoogleID     *string   `json:"googleId,omitempty"`
	AppleID      *string   `json:"appleId,omitempty"`
	IsActive     bool      `json:"isActive"`
	IsStaff      bool      `json:"isStaff"`
	IsSuperuser  bool      `json:"isSuperuser"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Subject returns the subject id bound for the given social provider, or ""
// when none is bound.
func (a *Account) Subject(p Provider) string {
	var s *string
	switch p {
	case ProviderGoogle:
		s = a.GoogleID
	case ProviderApple:
		s = a.AppleID
	}
	if s == nil {
		return ""
	}
	return *s
}

// SetSubject binds a subject id to the provider's slot.
func (a *Account) SetSubject(p Provider, subject string) {
	switch p {
	case ProviderGoogle:
		a.GoogleID = &subject
	case ProviderApple:
		a.AppleID = &subject
	}
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
