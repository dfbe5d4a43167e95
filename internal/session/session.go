// Package session owns the active identity: restoring a persisted session at startup,
// password login and logout, and registration gated by a third-party certification.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/notify"
	"github.com/desertthunder/imusic/internal/services"
	"github.com/desertthunder/imusic/internal/shared"
)

// Authenticator is the account side of the backend.
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, username, password string) error
	CreateSongList(ctx context.Context, name string) error
	CertifyCodeforces(ctx context.Context, code string) error
}

// Store persists the session tuple. Save and Clear act on all fields at once.
type Store interface {
	Load(ctx context.Context) (models.Session, error)
	Save(ctx context.Context, s models.Session) error
	Clear(ctx context.Context) error
}

// Authorizer runs the external authorization page and yields its one-shot code.
type Authorizer interface {
	// AwaitCode opens the authorization page and blocks until a code arrives or ctx ends.
	AwaitCode(ctx context.Context) (string, error)
}

// Options configures a [Manager].
type Options struct {
	Auth          Authenticator
	Store         Store
	Authorizer    Authorizer
	FavoritesList string
	Sink          notify.Sink
	Busy          *shared.Busy
	Logger        *log.Logger
}

// Manager is safe for concurrent use.
type Manager struct {
	auth          Authenticator
	store         Store
	authorizer    Authorizer
	favoritesList string
	sink          notify.Sink
	busy          *shared.Busy
	logger        *log.Logger

	mu       sync.Mutex
	identity *models.Identity
	verified bool
	pending  *pendingFlow
	// lastDone closes once the most recent flow's listener is released.
	lastDone <-chan struct{}
	onLogin  []func(models.Identity)
	onLogout []func()
}

type pendingFlow struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager builds a logged-out manager.
func NewManager(opts Options) *Manager {
	if opts.FavoritesList == "" {
		opts.FavoritesList = "favorite"
	}
	if opts.Sink == nil {
		opts.Sink = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Busy == nil {
		opts.Busy = shared.NewBusy(nil)
	}
	return &Manager{
		auth:          opts.Auth,
		store:         opts.Store,
		authorizer:    opts.Authorizer,
		favoritesList: opts.FavoritesList,
		sink:          opts.Sink,
		busy:          opts.Busy,
		logger:        opts.Logger,
	}
}

// OnLogin registers fn to run after a session is established (login or restore).
func (m *Manager) OnLogin(fn func(models.Identity)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogin = append(m.onLogin, fn)
}

// OnLogout registers fn to run after logout.
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

// Identity returns the active user or nil.
func (m *Manager) Identity() *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil
	}
	id := *m.identity
	return &id
}

// Active reports whether a session exists.
func (m *Manager) Active() bool {
	return m.Identity() != nil
}

// ThirdPartyVerified reports whether registration is currently unlocked.
func (m *Manager) ThirdPartyVerified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verified
}

// Restore re-authenticates a persisted session. Any failure clears the store and yields nil.
func (m *Manager) Restore(ctx context.Context) *models.Identity {
	s, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("failed to load persisted session", "error", err)
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("failed to clear persisted session", "error", err)
		}
		return nil
	}
	if !s.Valid() {
		return nil
	}
	defer m.busy.Begin()()

	if err := m.auth.Login(ctx, s.Username, s.Credential); err != nil {
		m.logger.Info("session restore failed", "username", s.Username, "error", err)
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("failed to clear persisted session", "error", err)
		}
		return nil
	}

	m.logger.Info("session restored", "username", s.Username)
	return m.establish(s.Username)
}

// Login authenticates and persists the session.
func (m *Manager) Login(ctx context.Context, username, password string) (*models.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", shared.ErrValidation)
	}
	defer m.busy.Begin()()

	if err := m.auth.Login(ctx, username, password); err != nil {
		return nil, failure(shared.ErrAuthFailed, "login failed", err)
	}

	if err := m.store.Save(ctx, models.Session{Username: username, Credential: password, LoggedIn: true}); err != nil {
		m.logger.Warn("failed to persist session", "username", username, "error", err)
	}

	id := m.establish(username)
	notify.Emit(m.sink, notify.Success, nil, "Welcome back, %s!", username)
	return id, nil
}

func (m *Manager) establish(username string) *models.Identity {
	m.mu.Lock()
	m.identity = &models.Identity{Username: username}
	hooks := append([]func(models.Identity){}, m.onLogin...)
	id := *m.identity
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(id)
	}
	return &id
}

// Logout clears the persisted session and the identity, then runs logout hooks.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear persisted session", "error", err)
	}

	m.mu.Lock()
	m.identity = nil
	hooks := append([]func(){}, m.onLogout...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	notify.Emit(m.sink, notify.Info, nil, "Logged out")
}

// Register creates an account. It requires a prior [Manager.AuthorizeThirdParty].
//
// On success the manager logs in once so the favorites list can be created, then
// resets the certification. The identity is not established: the user logs in afterwards.
func (m *Manager) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if !m.ThirdPartyVerified() {
		return shared.ErrThirdPartyRequired
	}
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", shared.ErrValidation)
	}
	defer m.busy.Begin()()

	if err := m.auth.Register(ctx, username, password); err != nil {
		return failure(shared.ErrAuthFailed, "registration failed", err)
	}

	if err := m.auth.Login(ctx, username, password); err != nil {
		m.logger.Warn("post-registration login failed", "username", username, "error", err)
	} else if err := m.auth.CreateSongList(ctx, m.favoritesList); err != nil {
		m.logger.Warn("failed to create favorites list", "list", m.favoritesList, "error", err)
	}

	m.mu.Lock()
	m.verified = false
	m.mu.Unlock()

	notify.Emit(m.sink, notify.Success, nil, "Registration successful! Please log in with your username and password")
	return nil
}

// AuthorizeThirdParty runs the Codeforces flow and unlocks registration on success.
//
// Only one flow is pending at any time: starting another cancels the previous one
// and waits for its listener to close. Cancelling ctx tears the listener down.
func (m *Manager) AuthorizeThirdParty(ctx context.Context) error {
	if m.authorizer == nil {
		return fmt.Errorf("%w: no authorizer configured", shared.ErrServiceUnavailable)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	flow := &pendingFlow{cancel: cancel, done: make(chan struct{})}
	m.mu.Lock()
	if m.pending != nil {
		m.pending.cancel()
	}
	prev := m.lastDone
	m.pending = flow
	m.lastDone = flow.done
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.pending == flow {
			m.pending = nil
		}
		m.mu.Unlock()
	}()

	// The callback port is fixed, so wait for the previous listener to go away.
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			go func() {
				<-prev
				close(flow.done)
			}()
			return fmt.Errorf("%w: %w", shared.ErrAuthCancelled, ctx.Err())
		}
	}

	code, err := m.authorizer.AwaitCode(ctx)
	close(flow.done)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", shared.ErrAuthCancelled, err)
		}
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	defer m.busy.Begin()()
	if err := m.auth.CertifyCodeforces(ctx, code); err != nil {
		return failure(shared.ErrAuthFailed, "codeforces certification failed", err)
	}

	m.mu.Lock()
	m.verified = true
	m.mu.Unlock()
	m.logger.Info("codeforces certification succeeded")
	return nil
}

// CancelThirdParty abandons the pending flow, if any.
func (m *Manager) CancelThirdParty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		m.pending.cancel()
		m.pending = nil
	}
}

// Pending reports whether a third-party flow is waiting for a code.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// failure classifies err under kind, keeping the server message or a network hint.
func failure(kind error, fallback string, err error) error {
	switch {
	case errors.Is(err, shared.ErrApplication):
		msg := services.ServerMessage(err)
		if msg == "" {
			msg = fallback
		}
		return fmt.Errorf("%w: %s", kind, msg)
	case errors.Is(err, shared.ErrTransport):
		return fmt.Errorf("%w: %w", kind, err)
	default:
		return fmt.Errorf("%w: %s: %w", kind, fallback, err)
	}
}
