package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/imusic/internal/shared"
)

const (
	shutdownTimeout = 5 * time.Second
	defaultAuthWait = 2 * time.Minute
)

// AuthorizerOptions configures a [CodeforcesAuthorizer].
type AuthorizerOptions struct {
	Config shared.CodeforcesConfig
	// Addr is the host:port the callback listener binds to.
	Addr string
	// Open launches the authorize page. Defaults to [shared.OpenBrowser].
	Open shared.BrowserOpener
	// Timeout bounds the wait for a callback. Defaults to two minutes.
	Timeout time.Duration
	Logger  *log.Logger
	// OnURL is called with the authorize URL before it is opened, so callers can show it as a fallback.
	OnURL func(string)
}

// CodeforcesAuthorizer runs the Codeforces authorization page and waits for its redirect.
// It implements session.Authorizer.
type CodeforcesAuthorizer struct {
	oauth   *oauth2.Config
	addr    string
	path    string
	open    shared.BrowserOpener
	timeout time.Duration
	logger  *log.Logger
	onURL   func(string)
}

// NewCodeforcesAuthorizer creates an authorizer from opts.
func NewCodeforcesAuthorizer(opts AuthorizerOptions) *CodeforcesAuthorizer {
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultAuthWait
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	var scopes []string
	if opts.Config.Scope != "" {
		scopes = strings.Fields(opts.Config.Scope)
	}

	path := "/callback"
	if u, err := url.Parse(opts.Config.RedirectURI); err == nil && u.Path != "" {
		path = u.Path
	}

	return &CodeforcesAuthorizer{
		oauth: &oauth2.Config{
			ClientID:    opts.Config.ClientID,
			Endpoint:    oauth2.Endpoint{AuthURL: opts.Config.AuthorizeURL},
			RedirectURL: opts.Config.RedirectURI,
			Scopes:      scopes,
		},
		addr:    opts.Addr,
		path:    path,
		open:    opts.Open,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		onURL:   opts.OnURL,
	}
}

// AuthURL returns the authorize URL for state.
func (a *CodeforcesAuthorizer) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// AwaitCode opens the authorize page and blocks until the redirect delivers a code, ctx ends, or the wait
// times out. The callback listener is always shut down before returning.
func (a *CodeforcesAuthorizer) AwaitCode(ctx context.Context) (string, error) {
	if a.oauth.ClientID == "" || a.oauth.Endpoint.AuthURL == "" {
		return "", fmt.Errorf("%w: codeforces client_id and authorize_url are required", shared.ErrMissingConfig)
	}

	state := shared.GenerateID()
	handler := NewCodeHandler(a.path, state)
	mux := NewCallbackMux(LoggingMiddleware(a.logger))
	mux.Mount(handler)

	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server: %w", err)
	}
	httpServer := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	served := make(chan struct{})
	go func() {
		defer close(served)
		a.logger.Infof("starting callback server at %v", ln.Addr())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("error shutting down callback server", "error", err)
		}
		// Shutdown only closes listeners Serve has already picked up.
		ln.Close()
		<-served
	}()

	authURL := a.AuthURL(state)
	if a.onURL != nil {
		a.onURL(authURL)
	}
	if err := a.open(authURL); err != nil {
		a.logger.Warnf("failed to open browser automatically %v", err)
	}

	timeout := time.NewTimer(a.timeout)
	defer timeout.Stop()

	select {
	case result := <-handler.Result():
		if result.Err != nil {
			return "", result.Err
		}
		return result.Code, nil
	case err := <-serverErrors:
		return "", fmt.Errorf("callback server error: %w", err)
	case <-timeout.C:
		return "", fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, a.timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
