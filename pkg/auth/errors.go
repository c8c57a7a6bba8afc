package auth

import (
	"errors"
	"fmt"
)

// ErrNoSession indicates that no token set is persisted, or that the cached
// set can no longer be used and cannot be refreshed. It is a normal
// signed-out result, not a failure.
var ErrNoSession = errors.New("no session")

// PortUnavailableError is returned when the callback listener cannot bind its
// fixed port: either another login is already in progress, or an unrelated
// process holds the port.
type PortUnavailableError struct {
	Port int
	Err  error
}

func (e *PortUnavailableError) Error() string {
	return fmt.Sprintf("callback port %d is unavailable: another login may be in progress, or the port is occupied by an unrelated process: %v", e.Port, e.Err)
}

func (e *PortUnavailableError) Unwrap() error { return e.Err }

// ProviderRedirectError carries the error the identity provider delivered on
// the redirect instead of an authorization code.
type ProviderRedirectError struct {
	Code        string
	Description string
}

func (e *ProviderRedirectError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("provider returned error on redirect: %s", e.Code)
	}
	return fmt.Sprintf("provider returned error on redirect: %s: %s", e.Code, e.Description)
}

// TokenEndpointError is a non-2xx response from the provider's token
// endpoint.
type TokenEndpointError struct {
	Status int
	Body   string
}

func (e *TokenEndpointError) Error() string {
	return fmt.Sprintf("token endpoint returned %d: %s", e.Status, e.Body)
}

// NetworkError is a transport-level failure talking to the provider.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("token endpoint request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
