package auth

import (
	"time"
)

// TokenSet is the complete credential set held for one account. It is owned
// by the store and overwritten wholesale on every successful exchange or
// refresh, never merged field by field.
//
// IssuedAt is always the local receipt time, stamped by this client, so that
// expiry math stays comparable to the local clock regardless of provider
// clock skew.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// Remaining reports how much of the access token's lifetime is left at the
// given instant.
func (t TokenSet) Remaining(now time.Time) time.Duration {
	return time.Duration(t.ExpiresIn)*time.Second - now.Sub(t.IssuedAt)
}
