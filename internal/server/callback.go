package server

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sync"
)

// CodeResult is the outcome of the authorization redirect: a code or the provider's error.
type CodeResult struct {
	Code string
	Err  error
}

// CodeHandler receives the authorization redirect on a single path.
//
// Requests carrying the wrong state get a 400 and are otherwise ignored, so the flow keeps
// waiting for the genuine redirect. The first request with the right state is final.
type CodeHandler struct {
	path   string
	state  string
	result chan CodeResult

	mu        sync.Mutex
	delivered bool
}

// NewCodeHandler creates a handler serving path that accepts only callbacks carrying state.
func NewCodeHandler(path, state string) *CodeHandler {
	if path == "" {
		path = "/callback"
	}
	return &CodeHandler{
		path:   path,
		state:  state,
		result: make(chan CodeResult, 1),
	}
}

func (h *CodeHandler) Routes() []string {
	return []string{h.path}
}

func (h *CodeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("state") != h.state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	result := resultFrom(query)
	if !h.deliver(result) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if result.Err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, resultPage, "Verification failed", html.EscapeString(result.Err.Error()))
		return
	}
	fmt.Fprintf(w, resultPage, "✓ Codeforces verified", "You can close this window and return to IMusic.")
}

// Result yields exactly one [CodeResult] and is then closed.
func (h *CodeHandler) Result() <-chan CodeResult {
	return h.result
}

func (h *CodeHandler) deliver(result CodeResult) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.delivered {
		return false
	}
	h.delivered = true
	h.result <- result
	close(h.result)
	return true
}

func resultFrom(query url.Values) CodeResult {
	if code := query.Get("code"); code != "" {
		return CodeResult{Code: code}
	}

	reason := query.Get("error")
	if reason == "" {
		reason = "no code in redirect"
	}
	if desc := query.Get("error_description"); desc != "" {
		reason += ": " + desc
	}
	return CodeResult{Err: fmt.Errorf("authorization failed: %s", reason)}
}

const resultPage = `<!DOCTYPE html>
<html>
<head>
    <title>IMusic</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .box { text-align: center; background: white; padding: 2rem;
               border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #667eea; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="box">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>
`
