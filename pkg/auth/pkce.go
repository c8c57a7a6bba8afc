package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// ChallengeMethodS256 is the only code challenge method this client sends.
const ChallengeMethodS256 = "S256"

const defaultStateLength = 12

// NewVerifier returns a fresh PKCE code verifier: 32 bytes from the system
// entropy source, base64url-encoded without padding so it is safe in a query
// parameter.
func NewVerifier() (string, error) {
	return randomToken(32)
}

// ChallengeS256 derives the S256 code challenge for a verifier: the SHA-256
// digest of the verifier's bytes, base64url-encoded without padding.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewState returns a random state value of the given length (characters, not
// bytes). Zero or negative length falls back to the default of 12. The state
// only correlates one login attempt for CSRF protection; at this length it is
// deliberately a convenience value, not a secret like the verifier.
func NewState(length int) (string, error) {
	if length <= 0 {
		length = defaultStateLength
	}
	token, err := randomToken((length*3 + 3) / 4)
	if err != nil {
		return "", err
	}
	return token[:length], nil
}

func randomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
