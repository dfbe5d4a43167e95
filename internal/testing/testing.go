// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// RecordedRequest is one request seen by a [FakeBackend].
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// FakeBackend is an httptest server that answers IMusic endpoints from a table of canned envelopes.
//
// Unregistered paths answer {"success": false, "message": {"error": "not found"}}.
type FakeBackend struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]any
	requests  []RecordedRequest
}

// NewFakeBackend starts a backend; it is closed with the test.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{responses: map[string]any{}}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.Close)
	return fb
}

// Respond registers the JSON value returned for path.
func (fb *FakeBackend) Respond(path string, body any) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.responses[path] = body
}

// Requests returns every request seen so far.
func (fb *FakeBackend) Requests() []RecordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]RecordedRequest, len(fb.requests))
	copy(out, fb.requests)
	return out
}

// Count returns how many requests hit path.
func (fb *FakeBackend) Count(path string) int {
	n := 0
	for _, r := range fb.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (fb *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	rec := RecordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}

	fb.mu.Lock()
	fb.requests = append(fb.requests, rec)
	body, ok := fb.responses[r.URL.Path]
	fb.mu.Unlock()

	if !ok {
		body = map[string]any{"success": false, "message": map[string]string{"error": "not found"}}
	}

	w.Header().Set("Content-Type", "application/json")
	if raw, isRaw := body.(string); isRaw {
		io.WriteString(w, raw)
		return
	}
	json.NewEncoder(w).Encode(body)
}

// OK is the minimal success envelope.
func OK() map[string]any {
	return map[string]any{"success": true}
}

// Fail is a success=false envelope carrying {"error": msg}.
func Fail(msg string) map[string]any {
	return map[string]any{"success": false, "message": map[string]string{"error": msg}}
}

// Songs is a success envelope whose message carries songs.
func Songs(songs ...map[string]string) map[string]any {
	if songs == nil {
		songs = []map[string]string{}
	}
	return map[string]any{"success": true, "message": map[string]any{"songs": songs}}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
