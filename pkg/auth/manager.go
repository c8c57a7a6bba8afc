package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// refreshMargin is the safety window before expiry within which the access
// token is treated as stale, so a token cannot expire in flight between
// validation and use.
const refreshMargin = 60 * time.Second

// Manager decides whether the cached access token is still usable and
// silently refreshes it when it is not. All store access goes through the
// manager's mutex so that load, refresh, and persist form one atomic step
// with respect to a concurrent logout.
type Manager struct {
	mu       sync.Mutex
	store    Store
	account  string
	endpoint *EndpointClient
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager returns a lifecycle manager for one account's token set.
func NewManager(store Store, account string, endpoint *EndpointClient, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:    store,
		account:  account,
		endpoint: endpoint,
		logger:   logger,
		now:      time.Now,
	}
}

// AccessToken returns a usable access token, refreshing it first when it is
// expired or within the safety margin of expiry. It returns ErrNoSession when
// nothing is persisted or the cached set is stale with no refresh token; in
// neither case is a network call made.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok, err := m.store.Load(m.account)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoSession
	}

	if set.Remaining(m.now()) > refreshMargin {
		return set.AccessToken, nil
	}

	if set.RefreshToken == "" {
		m.logger.Debug("access token stale and no refresh token present")
		return "", ErrNoSession
	}

	refreshed, err := m.endpoint.Refresh(ctx, set.RefreshToken)
	if err != nil {
		return "", err
	}
	// Providers that do not rotate refresh tokens omit the field in the
	// refresh response; keep the old one instead of losing it in the
	// wholesale overwrite.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = set.RefreshToken
	}
	if err := m.store.Save(m.account, refreshed); err != nil {
		return "", err
	}
	m.logger.Debug("access token refreshed",
		zap.Time("issued_at", refreshed.IssuedAt),
		zap.Int("expires_in", refreshed.ExpiresIn))
	return refreshed.AccessToken, nil
}

// Current returns the persisted token set without touching the network.
func (m *Manager) Current() (TokenSet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Load(m.account)
}

// Save replaces the persisted token set.
func (m *Manager) Save(set TokenSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Save(m.account, set)
}

// Clear removes the persisted token set. Removing an absent set is not an
// error.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Delete(m.account)
}
