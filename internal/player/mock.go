package player

import (
	"context"
	"sync"

	"github.com/desertthunder/imusic/internal/shared"
)

// Mock is a test double for [Device]. It is safe for concurrent use.
type Mock struct {
	mu        sync.Mutex
	handlers  Handlers
	loaded    string
	playing   bool
	volume    float64
	duration  float64
	loadErr   error
	loadCalls []string
	seekCalls []float64
	gate      chan struct{}
	closed    bool
}

// NewMock creates a mock that reports duration seconds on every successful Load.
func NewMock(duration float64) *Mock {
	return &Mock{duration: duration, volume: 1}
}

func (m *Mock) SetHandlers(h Handlers) {
	m.mu.Lock()
	m.handlers = h
	m.mu.Unlock()
}

func (m *Mock) Load(ctx context.Context, url string) error {
	m.mu.Lock()
	m.loadCalls = append(m.loadCalls, url)
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	if m.loadErr != nil {
		err := m.loadErr
		m.mu.Unlock()
		return err
	}
	m.loaded = url
	m.playing = true
	h, d := m.handlers, m.duration
	m.mu.Unlock()

	if h.OnMetadata != nil && d > 0 {
		h.OnMetadata(d)
	}
	return nil
}

func (m *Mock) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == "" {
		return shared.ErrNothingLoaded
	}
	m.playing = true
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
}

func (m *Mock) Seek(seconds float64) error {
	m.mu.Lock()
	if m.loaded == "" {
		m.mu.Unlock()
		return shared.ErrNothingLoaded
	}
	m.seekCalls = append(m.seekCalls, seconds)
	landed := max(seconds, 0)
	if m.duration > 0 {
		landed = min(landed, m.duration)
	}
	h := m.handlers
	m.mu.Unlock()

	if h.OnPosition != nil {
		h.OnPosition(landed)
	}
	return nil
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	m.volume = clampLevel(level)
	m.mu.Unlock()
}

func (m *Mock) Stop() {
	m.mu.Lock()
	m.loaded = ""
	m.playing = false
	m.mu.Unlock()
}

func (m *Mock) Close() error {
	m.Stop()
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Test helpers

// SetLoadError makes subsequent loads fail with err.
func (m *Mock) SetLoadError(err error) {
	m.mu.Lock()
	m.loadErr = err
	m.mu.Unlock()
}

// Gate makes Load block until the returned function is called.
func (m *Mock) Gate() (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.gate = ch
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.gate = nil
			m.mu.Unlock()
			close(ch)
		})
	}
}

func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

func (m *Mock) SeekCalls() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.seekCalls...)
}

func (m *Mock) Loaded() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *Mock) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// ReportPosition simulates a position update.
func (m *Mock) ReportPosition(seconds float64) {
	m.mu.Lock()
	h := m.handlers
	m.mu.Unlock()
	if h.OnPosition != nil {
		h.OnPosition(seconds)
	}
}

// Finish simulates the loaded track ending.
func (m *Mock) Finish() {
	m.mu.Lock()
	m.playing = false
	h := m.handlers
	m.mu.Unlock()
	if h.OnEnded != nil {
		h.OnEnded()
	}
}
