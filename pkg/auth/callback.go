package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// DefaultCallbackPort is the fixed loopback port the redirect URL is
// registered under at the identity provider.
const DefaultCallbackPort = 53180

const callbackPath = "/callback"

// CallbackResult is the successful outcome of one redirect capture.
type CallbackResult struct {
	Code        string
	RedirectURI string
}

// CallbackServer is a short-lived loopback HTTP listener that captures
// exactly one provider redirect. The fixed port doubles as the mutual
// exclusion for "one login at a time": a second concurrent login fails at
// bind time instead of racing the first.
type CallbackServer struct {
	state       string
	redirectURI string
	listener    net.Listener
	server      *http.Server
	logger      *zap.Logger

	deliverOnce sync.Once
	closeOnce   sync.Once
	resultCh    chan CallbackResult
	errCh       chan error
}

// StartCallbackServer binds 127.0.0.1:port and begins serving the callback
// endpoint. A bind failure is reported as *PortUnavailableError. The returned
// server delivers exactly one result or error through Wait; requests arriving
// after that are answered but otherwise inert.
func StartCallbackServer(port int, state string, logger *zap.Logger) (*CallbackServer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, &PortUnavailableError{Port: port, Err: err}
	}

	s := &CallbackServer{
		state:       state,
		redirectURI: fmt.Sprintf("http://127.0.0.1:%d%s", port, callbackPath),
		listener:    listener,
		logger:      logger,
		resultCh:    make(chan CallbackResult, 1),
		errCh:       make(chan error, 1),
	}
	s.server = &http.Server{Handler: http.HandlerFunc(s.handle)}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.fail(err)
		}
	}()

	return s, nil
}

// RedirectURI returns the exact redirect URL registered with the provider.
func (s *CallbackServer) RedirectURI() string { return s.redirectURI }

// Wait blocks until the redirect is captured, the provider reports an error,
// or the context is done.
func (s *CallbackServer) Wait(ctx context.Context) (CallbackResult, error) {
	select {
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	case err := <-s.errCh:
		return CallbackResult{}, err
	case result := <-s.resultCh:
		return result, nil
	}
}

// Close stops the listener, releasing the port for a future login attempt.
// Safe to call more than once.
func (s *CallbackServer) Close() {
	s.closeOnce.Do(func() {
		_ = s.server.Close()
	})
}

func (s *CallbackServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != callbackPath {
		http.NotFound(w, r)
		return
	}
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		redirectErr := &ProviderRedirectError{Code: errCode, Description: query.Get("error_description")}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprintf(w, "<h1>Login error</h1><p>%s: %s</p>", redirectErr.Code, redirectErr.Description)
		s.fail(redirectErr)
		return
	}

	if query.Get("state") != s.state {
		s.logger.Warn("callback received with mismatched state")
		http.Error(w, "invalid state", http.StatusBadRequest)
		s.fail(errors.New("invalid state in callback"))
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		s.fail(errors.New("missing code in callback"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, "<h1>Login successful</h1><p>You can close this window and return to the app.</p>")
	s.deliver(CallbackResult{Code: code, RedirectURI: s.redirectURI})
}

// deliver and fail resolve the pending capture at most once; later calls are
// no-ops so a stray second redirect can never reach the orchestrator twice.
func (s *CallbackServer) deliver(result CallbackResult) {
	s.deliverOnce.Do(func() {
		s.resultCh <- result
	})
}

func (s *CallbackServer) fail(err error) {
	s.deliverOnce.Do(func() {
		s.errCh <- err
	})
}
