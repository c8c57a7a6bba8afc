package auth

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestNewVerifier(t *testing.T) {
	t.Run("is URL-safe and long enough", func(t *testing.T) {
		verifier, err := NewVerifier()
		require.NoError(t, err)
		assert.Regexp(t, urlSafe, verifier)
		// 32 bytes of entropy encode to 43 base64url characters.
		assert.Len(t, verifier, 43)
	})

	t.Run("successive verifiers do not collide", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 256; i++ {
			verifier, err := NewVerifier()
			require.NoError(t, err)
			require.False(t, seen[verifier], "verifier collision")
			seen[verifier] = true
		}
	})
}

func TestChallengeS256(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		verifier, err := NewVerifier()
		require.NoError(t, err)
		assert.Equal(t, ChallengeS256(verifier), ChallengeS256(verifier))
	})

	t.Run("never equals the verifier", func(t *testing.T) {
		for i := 0; i < 32; i++ {
			verifier, err := NewVerifier()
			require.NoError(t, err)
			assert.NotEqual(t, verifier, ChallengeS256(verifier))
		}
	})

	t.Run("known digest", func(t *testing.T) {
		// SHA-256("test") base64url without padding.
		assert.Equal(t, "n4bQgYhMfWWaL-qgxVrQFaO_TxsrC4Is0V1sFbDwCgg", ChallengeS256("test"))
	})

	t.Run("output is URL-safe without padding", func(t *testing.T) {
		assert.Regexp(t, urlSafe, ChallengeS256("anything"))
	})
}

func TestNewState(t *testing.T) {
	t.Run("default length", func(t *testing.T) {
		state, err := NewState(0)
		require.NoError(t, err)
		assert.Len(t, state, 12)
		assert.Regexp(t, urlSafe, state)
	})

	t.Run("custom length", func(t *testing.T) {
		state, err := NewState(20)
		require.NoError(t, err)
		assert.Len(t, state, 20)
	})

	t.Run("distinct per attempt", func(t *testing.T) {
		a, err := NewState(0)
		require.NoError(t, err)
		b, err := NewState(0)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}
