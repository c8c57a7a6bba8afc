package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tokenResponse is the provider's JSON token payload. Unknown fields are
// ignored and absent optional fields stay empty.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// EndpointClient performs the two request shapes against the provider's token
// endpoint: authorization code exchange and refresh. Both are public-client
// requests authenticated by client_id alone, without a client secret.
type EndpointClient struct {
	TokenURL string
	ClientID string
	HTTP     *http.Client

	// now is the clock used to stamp IssuedAt; overridable in tests.
	now func() time.Time
}

// NewEndpointClient returns a client for the given token endpoint with a
// 30 second request timeout.
func NewEndpointClient(tokenURL, clientID string) *EndpointClient {
	return &EndpointClient{
		TokenURL: tokenURL,
		ClientID: clientID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
	}
}

// Exchange trades an authorization code for a token set, proving possession
// of the PKCE verifier that produced the code challenge.
func (c *EndpointClient) Exchange(ctx context.Context, code, redirectURI, codeVerifier string) (TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.ClientID)
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", codeVerifier)
	return c.post(ctx, form)
}

// Refresh obtains a fresh token set using a refresh token.
func (c *EndpointClient) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.ClientID)
	return c.post(ctx, form)
}

func (c *EndpointClient) post(ctx context.Context, form url.Values) (TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenSet{}, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return TokenSet{}, &NetworkError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenSet{}, &NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TokenSet{}, &TokenEndpointError{Status: resp.StatusCode, Body: string(body)}
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return TokenSet{}, &TokenEndpointError{Status: resp.StatusCode, Body: string(body)}
	}

	clock := c.now
	if clock == nil {
		clock = time.Now
	}
	return TokenSet{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		IDToken:      payload.IDToken,
		IssuedAt:     clock(),
		ExpiresIn:    payload.ExpiresIn,
		TokenType:    payload.TokenType,
		Scope:        payload.Scope,
	}, nil
}
