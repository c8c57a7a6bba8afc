// Package auth implements the OAuth2 authorization code flow with PKCE for a
// native application: loopback redirect capture, token endpoint exchange and
// refresh, secure token persistence, and silent access token renewal.
package auth
