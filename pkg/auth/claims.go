package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the decoded payload of an ID token: an open mapping of claim
// names to values (sub, name, given_name, picture, ...).
type Claims map[string]any

// DecodeIDToken decodes the claims of an ID token without verifying its
// signature. The result is informational only: this client never performs key
// discovery or signature checks, so claims must not be used to make trust
// decisions. A malformed or empty token yields nil rather than an error,
// since a working access token is still useful without readable claims.
func DecodeIDToken(idToken string) Claims {
	if idToken == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil
	}
	return Claims(claims)
}
