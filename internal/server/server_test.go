package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/imusic/internal/shared"
)

type pathHandler struct {
	path string
	body string
}

func (p pathHandler) Routes() []string { return []string{p.path} }

func (p pathHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(p.body))
}

func TestCallbackMux(t *testing.T) {
	t.Run("get only", func(t *testing.T) {
		mux := NewCallbackMux()
		mux.Mount(pathHandler{path: "/ping", body: "pong"})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("unexpected GET response %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		mux := NewCallbackMux(mark("first"), mark("second"))
		mux.Mount(pathHandler{path: "/"})
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("unexpected middleware order %v", order)
		}
	})

	t.Run("logging middleware keeps status", func(t *testing.T) {
		mux := NewCallbackMux(LoggingMiddleware(shared.DiscardLogger()))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestCodeHandler(t *testing.T) {
	t.Run("valid callback", func(t *testing.T) {
		h := NewCodeHandler("", "s1")
		if h.Routes()[0] != "/callback" {
			t.Errorf("expected default path, got %v", h.Routes())
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=abc", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		result := <-h.Result()
		if result.Err != nil || result.Code != "abc" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("state mismatch keeps waiting", func(t *testing.T) {
		h := NewCodeHandler("/cb", "s1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?state=other&code=forged", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		select {
		case result := <-h.Result():
			t.Fatalf("mismatched state must not end the flow, got %+v", result)
		default:
		}

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?state=s1&code=genuine", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected genuine callback to succeed, got %d %q", rec.Code, rec.Body.String())
		}
		if result := <-h.Result(); result.Err != nil || result.Code != "genuine" {
			t.Errorf("expected genuine code, got %+v", result)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		h := NewCodeHandler("", "s1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&error=access_denied", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-h.Result()
		if result.Err == nil || !strings.Contains(result.Err.Error(), "access_denied") {
			t.Errorf("expected provider error, got %v", result.Err)
		}
	})

	t.Run("second callback rejected", func(t *testing.T) {
		h := NewCodeHandler("", "s1")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=one", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=two", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}

		if result := <-h.Result(); result.Code != "one" {
			t.Errorf("expected first code, got %q", result.Code)
		}
	})
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func testAuthorizer(t *testing.T, open shared.BrowserOpener, timeout time.Duration) (*CodeforcesAuthorizer, string) {
	addr := freeAddr(t)
	return NewCodeforcesAuthorizer(AuthorizerOptions{
		Config: shared.CodeforcesConfig{
			ClientID:     "client",
			AuthorizeURL: "https://codeforces.com/oauth/authorize",
			RedirectURI:  "http://" + addr + "/callback",
			Scope:        "openid",
		},
		Addr:    addr,
		Open:    open,
		Timeout: timeout,
	}), addr
}

func TestCodeforcesAuthorizer(t *testing.T) {
	t.Run("auth url", func(t *testing.T) {
		a, _ := testAuthorizer(t, nil, 0)
		u, err := url.Parse(a.AuthURL("xyz"))
		if err != nil {
			t.Fatalf("invalid url: %v", err)
		}

		q := u.Query()
		if q.Get("response_type") != "code" || q.Get("client_id") != "client" || q.Get("scope") != "openid" || q.Get("state") != "xyz" {
			t.Errorf("unexpected query %v", q)
		}
		if !strings.HasSuffix(q.Get("redirect_uri"), "/callback") {
			t.Errorf("unexpected redirect_uri %q", q.Get("redirect_uri"))
		}
	})

	t.Run("delivers code from redirect", func(t *testing.T) {
		var a *CodeforcesAuthorizer
		var addr string
		open := func(authURL string) error {
			u, _ := url.Parse(authURL)
			state := u.Query().Get("state")
			go func() {
				resp, err := http.Get("http://" + addr + "/callback?code=the-code&state=" + url.QueryEscape(state))
				if err == nil {
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}()
			return nil
		}
		a, addr = testAuthorizer(t, open, 5*time.Second)

		code, err := a.AwaitCode(context.Background())
		if err != nil || code != "the-code" {
			t.Errorf("expected code, got %q %v", code, err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		a, addr := testAuthorizer(t, func(string) error { cancel(); return nil }, 5*time.Second)

		if _, err := a.AwaitCode(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}

		// The listener is released once AwaitCode returns.
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			t.Errorf("expected port to be free: %v", err)
		} else {
			ln.Close()
		}
	})

	t.Run("immediate retry can bind again", func(t *testing.T) {
		addr := freeAddr(t)
		for i := 0; i < 10; i++ {
			ctx, cancel := context.WithCancel(context.Background())
			a := NewCodeforcesAuthorizer(AuthorizerOptions{
				Config: shared.CodeforcesConfig{ClientID: "client", AuthorizeURL: "https://codeforces.com/oauth/authorize"},
				Addr:   addr,
				Open:   func(string) error { cancel(); return nil },
			})

			if _, err := a.AwaitCode(ctx); !errors.Is(err, context.Canceled) {
				t.Fatalf("attempt %d: expected context.Canceled, got %v", i, err)
			}
		}
	})

	t.Run("timeout", func(t *testing.T) {
		a, _ := testAuthorizer(t, func(string) error { return nil }, 50*time.Millisecond)
		if _, err := a.AwaitCode(context.Background()); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("browser failure still waits", func(t *testing.T) {
		var seen string
		a, _ := testAuthorizer(t, func(string) error { return errors.New("no browser") }, 50*time.Millisecond)
		a.onURL = func(u string) { seen = u }

		if _, err := a.AwaitCode(context.Background()); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if seen == "" {
			t.Error("expected OnURL to receive the authorize url")
		}
	})

	t.Run("missing config", func(t *testing.T) {
		a := NewCodeforcesAuthorizer(AuthorizerOptions{Addr: "127.0.0.1:0"})
		if _, err := a.AwaitCode(context.Background()); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}
