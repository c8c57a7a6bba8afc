package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenEndpoint counts refresh calls and answers with a fixed response.
func fakeTokenEndpoint(t *testing.T, response string) (*EndpointClient, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return NewEndpointClient(server.URL, "client-1"), &calls
}

func newFileManager(t *testing.T, endpoint *EndpointClient) *Manager {
	t.Helper()
	store := &FileStore{Path: filepath.Join(t.TempDir(), "tokens.json")}
	return NewManager(store, "alice", endpoint, nil)
}

func TestManager_AccessToken_NoSession(t *testing.T) {
	endpoint, calls := fakeTokenEndpoint(t, `{}`)
	mgr := newFileManager(t, endpoint)

	_, err := mgr.AccessToken(context.Background())
	require.ErrorIs(t, err, ErrNoSession)
	assert.EqualValues(t, 0, calls.Load())
}

func TestManager_AccessToken_ValidCached(t *testing.T) {
	endpoint, calls := fakeTokenEndpoint(t, `{}`)
	mgr := newFileManager(t, endpoint)

	require.NoError(t, mgr.Save(TokenSet{
		AccessToken:  "cached",
		RefreshToken: "rt",
		IssuedAt:     time.Now(),
		ExpiresIn:    3600,
	}))

	token, err := mgr.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", token)
	assert.EqualValues(t, 0, calls.Load())
}

func TestManager_AccessToken_RefreshesStale(t *testing.T) {
	endpoint, calls := fakeTokenEndpoint(t, `{"access_token":"fresh","refresh_token":"rt-new","expires_in":3600}`)
	mgr := newFileManager(t, endpoint)

	require.NoError(t, mgr.Save(TokenSet{
		AccessToken:  "stale",
		RefreshToken: "rt-old",
		IssuedAt:     time.Now().Add(-time.Hour),
		ExpiresIn:    3600,
	}))

	token, err := mgr.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.EqualValues(t, 1, calls.Load())

	// The store ends up holding the whole new set.
	set, ok, err := mgr.Current()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", set.AccessToken)
	assert.Equal(t, "rt-new", set.RefreshToken)
}

func TestManager_AccessToken_RefreshesWithinMargin(t *testing.T) {
	endpoint, calls := fakeTokenEndpoint(t, `{"access_token":"fresh","expires_in":3600}`)
	mgr := newFileManager(t, endpoint)

	// 30 seconds of lifetime left is inside the 60 second safety margin.
	require.NoError(t, mgr.Save(TokenSet{
		AccessToken:  "almost-expired",
		RefreshToken: "rt",
		IssuedAt:     time.Now().Add(-3570 * time.Second),
		ExpiresIn:    3600,
	}))

	token, err := mgr.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.EqualValues(t, 1, calls.Load())
}

func TestManager_AccessToken_StaleWithoutRefreshToken(t *testing.T) {
	endpoint, calls := fakeTokenEndpoint(t, `{}`)
	mgr := newFileManager(t, endpoint)

	require.NoError(t, mgr.Save(TokenSet{
		AccessToken: "stale",
		IssuedAt:    time.Now().Add(-time.Hour),
		ExpiresIn:   3600,
	}))

	_, err := mgr.AccessToken(context.Background())
	require.ErrorIs(t, err, ErrNoSession)
	assert.EqualValues(t, 0, calls.Load())
}

func TestManager_AccessToken_RetainsRefreshTokenOnRotationlessRefresh(t *testing.T) {
	endpoint, _ := fakeTokenEndpoint(t, `{"access_token":"fresh","expires_in":3600}`)
	mgr := newFileManager(t, endpoint)

	require.NoError(t, mgr.Save(TokenSet{
		AccessToken:  "stale",
		RefreshToken: "rt-keep",
		IssuedAt:     time.Now().Add(-time.Hour),
		ExpiresIn:    3600,
	}))

	_, err := mgr.AccessToken(context.Background())
	require.NoError(t, err)

	set, ok, err := mgr.Current()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "rt-keep", set.RefreshToken)
}

func TestManager_AccessToken_RefreshFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()
	mgr := newFileManager(t, NewEndpointClient(server.URL, "client-1"))

	require.NoError(t, mgr.Save(TokenSet{
		AccessToken:  "stale",
		RefreshToken: "rt",
		IssuedAt:     time.Now().Add(-time.Hour),
		ExpiresIn:    3600,
	}))

	_, err := mgr.AccessToken(context.Background())
	require.Error(t, err)
	var endpointErr *TokenEndpointError
	require.True(t, errors.As(err, &endpointErr))

	// A failed refresh leaves the stored set untouched.
	set, ok, err := mgr.Current()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "stale", set.AccessToken)
}

func TestManager_Clear(t *testing.T) {
	endpoint, _ := fakeTokenEndpoint(t, `{}`)
	mgr := newFileManager(t, endpoint)

	require.NoError(t, mgr.Save(TokenSet{AccessToken: "at"}))
	require.NoError(t, mgr.Clear())
	_, ok, err := mgr.Current()
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mgr.Clear())
}
