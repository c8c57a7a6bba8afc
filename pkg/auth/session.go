package auth

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/telekom/authctl/pkg/browser"
)

// DefaultScopes is the scope string requested when none is configured.
const DefaultScopes = "openid profile email offline"

// Config describes the identity provider and client registration used for
// login.
type Config struct {
	// Issuer is the provider's base URL.
	Issuer string
	// ClientID identifies this public client; there is no client secret.
	ClientID string
	// Audience is appended to the authorization request when set.
	Audience string
	// Scopes is the space-delimited scope string; empty means DefaultScopes.
	Scopes string
	// CallbackPort is the fixed loopback port pre-registered with the
	// provider; zero means DefaultCallbackPort.
	CallbackPort int
	// Account is the store key for the persisted token set; empty means the
	// local OS username.
	Account string
}

// Authenticator composes the PKCE generator, redirect capture server, token
// endpoint client, and token lifecycle manager into the login, logout, and
// session query operations exposed to the application. Its exported
// operations never return a Go error; every outcome is folded into a result
// envelope.
type Authenticator struct {
	cfg      Config
	endpoint *EndpointClient
	manager  *Manager
	authURL  string
	logger   *zap.Logger

	// openURL launches the system browser; overridable in tests.
	openURL func(url string) error
}

// New builds an Authenticator. Provider endpoints are resolved through OIDC
// discovery when the issuer advertises them, falling back to the provider's
// fixed /oauth2/auth and /oauth2/token paths otherwise.
func New(ctx context.Context, cfg Config, store Store, logger *zap.Logger) (*Authenticator, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, errors.New("issuer and client-id are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Scopes == "" {
		cfg.Scopes = DefaultScopes
	}
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}
	if cfg.Account == "" {
		cfg.Account = localAccount()
	}

	endpoints := discoverEndpoints(ctx, cfg.Issuer, logger)
	endpointClient := NewEndpointClient(endpoints.TokenURL, cfg.ClientID)

	return &Authenticator{
		cfg:      cfg,
		endpoint: endpointClient,
		manager:  NewManager(store, cfg.Account, endpointClient, logger),
		authURL:  endpoints.AuthURL,
		logger:   logger,
		openURL:  browser.OpenURL,
	}, nil
}

// Manager exposes the token lifecycle manager, for callers that need the
// lower-level error-returning surface.
func (a *Authenticator) Manager() *Manager { return a.manager }

func localAccount() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "default"
}

func discoverEndpoints(ctx context.Context, issuer string, logger *zap.Logger) oauth2.Endpoint {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		logger.Debug("OIDC discovery unavailable, using fixed endpoint paths", zap.Error(err))
		trimmed := strings.TrimRight(issuer, "/")
		return oauth2.Endpoint{
			AuthURL:  trimmed + "/oauth2/auth",
			TokenURL: trimmed + "/oauth2/token",
		}
	}
	return provider.Endpoint()
}

func (a *Authenticator) login(ctx context.Context) (Claims, error) {
	attempt := uuid.NewString()
	log := a.logger.With(zap.String("attempt", attempt))

	verifier, err := NewVerifier()
	if err != nil {
		return nil, err
	}
	challenge := ChallengeS256(verifier)
	state, err := NewState(0)
	if err != nil {
		return nil, err
	}

	server, err := StartCallbackServer(a.cfg.CallbackPort, state, log)
	if err != nil {
		return nil, err
	}
	defer server.Close()

	oauthCfg := oauth2.Config{
		ClientID:    a.cfg.ClientID,
		Endpoint:    oauth2.Endpoint{AuthURL: a.authURL, TokenURL: a.endpoint.TokenURL},
		RedirectURL: server.RedirectURI(),
		Scopes:      strings.Fields(a.cfg.Scopes),
	}
	authOpts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", ChallengeMethodS256),
	}
	if a.cfg.Audience != "" {
		authOpts = append(authOpts, oauth2.SetAuthURLParam("audience", a.cfg.Audience))
	}
	authURL := oauthCfg.AuthCodeURL(state, authOpts...)

	log.Info("opening browser for login", zap.String("redirect_uri", server.RedirectURI()))
	if err := a.openURL(authURL); err != nil {
		// Best effort only; the user can still navigate manually while the
		// callback wait stays in flight.
		log.Warn("failed to open browser, navigate to the URL manually",
			zap.String("url", authURL), zap.Error(err))
	}

	result, err := server.Wait(ctx)
	server.Close()
	if err != nil {
		return nil, err
	}

	set, err := a.endpoint.Exchange(ctx, result.Code, result.RedirectURI, verifier)
	if err != nil {
		return nil, err
	}
	if err := a.manager.Save(set); err != nil {
		return nil, err
	}
	log.Info("login complete", zap.Int("expires_in", set.ExpiresIn), zap.String("scope", set.Scope))
	return DecodeIDToken(set.IDToken), nil
}

func (a *Authenticator) logout() error {
	if err := a.manager.Clear(); err != nil {
		return err
	}
	logoutURL := fmt.Sprintf("%s/logout?client_id=%s", strings.TrimRight(a.cfg.Issuer, "/"), a.cfg.ClientID)
	if err := a.openURL(logoutURL); err != nil {
		// Local logout already succeeded; remote notification stays best
		// effort.
		a.logger.Debug("failed to open provider logout page", zap.Error(err))
	}
	return nil
}

// LoginResult is the envelope returned by Login.
type LoginResult struct {
	OK     bool   `json:"ok"`
	Claims Claims `json:"claims,omitempty"`
	Error  string `json:"error,omitempty"`
}

// AccessTokenResult is the envelope returned by AccessToken. A signed-out
// session yields OK with an empty token, not a failure.
type AccessTokenResult struct {
	OK          bool   `json:"ok"`
	AccessToken string `json:"access_token,omitempty"`
	Error       string `json:"error,omitempty"`
}

// LogoutResult is the envelope returned by Logout.
type LogoutResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SessionResult is the envelope returned by Session.
type SessionResult struct {
	OK          bool   `json:"ok"`
	SignedIn    bool   `json:"signedIn"`
	Claims      Claims `json:"claims,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Login runs the end-to-end PKCE authorization code flow: it opens the
// provider's authorization page in the system browser, waits for the loopback
// redirect, exchanges the code, persists the token set, and returns the
// decoded (unverified) ID token claims.
func (a *Authenticator) Login(ctx context.Context) LoginResult {
	claims, err := a.login(ctx)
	if err != nil {
		return LoginResult{Error: err.Error()}
	}
	return LoginResult{OK: true, Claims: claims}
}

// AccessToken returns a usable access token, refreshing a stale one first.
// With no session it returns an empty token and OK.
func (a *Authenticator) AccessToken(ctx context.Context) AccessTokenResult {
	token, err := a.manager.AccessToken(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return AccessTokenResult{OK: true}
		}
		return AccessTokenResult{Error: err.Error()}
	}
	return AccessTokenResult{OK: true, AccessToken: token}
}

// Logout deletes the persisted token set and notifies the provider's logout
// endpoint through the browser, best effort.
func (a *Authenticator) Logout(_ context.Context) LogoutResult {
	if err := a.logout(); err != nil {
		return LogoutResult{Error: err.Error()}
	}
	return LogoutResult{OK: true}
}

// Session reports whether a user is signed in, with claims and a freshened
// access token when one is available. Refresh failures degrade to an empty
// access token rather than failing the query.
func (a *Authenticator) Session(ctx context.Context) SessionResult {
	set, ok, err := a.manager.Current()
	if err != nil {
		return SessionResult{Error: err.Error()}
	}
	if !ok {
		return SessionResult{OK: true}
	}
	accessToken, err := a.manager.AccessToken(ctx)
	if err != nil {
		accessToken = ""
	}
	return SessionResult{
		OK:          true,
		SignedIn:    true,
		Claims:      DecodeIDToken(set.IDToken),
		AccessToken: accessToken,
	}
}
