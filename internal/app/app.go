// Package app wires the catalog, session, library, and playback components into one client and owns the
// active view.
package app

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/imusic/internal/catalog"
	"github.com/desertthunder/imusic/internal/library"
	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/notify"
	"github.com/desertthunder/imusic/internal/playback"
	"github.com/desertthunder/imusic/internal/player"
	"github.com/desertthunder/imusic/internal/session"
	"github.com/desertthunder/imusic/internal/shared"
)

// View is the list the user is looking at.
type View int

const (
	ViewSearch View = iota
	ViewFavorites
)

func (v View) String() string {
	if v == ViewFavorites {
		return "favorites"
	}
	return "search"
}

// Backend is everything the client needs from the IMusic service.
type Backend interface {
	catalog.Backend
	session.Authenticator
}

// Deps are the external collaborators of an [App].
type Deps struct {
	Backend    Backend
	Store      session.Store
	Authorizer session.Authorizer
	Device     player.Device
	// History is optional.
	History playback.History
	Sink    notify.Sink
	// Busy is shared by every component. One is created when nil.
	Busy          *shared.Busy
	BaseURL       string
	FavoritesList string
	Volume        float64
	Logger        *log.Logger
}

// App is the root coordinator.
type App struct {
	Session   *session.Manager
	Catalog   *catalog.Client
	Favorites *library.Favorites
	Results   *library.SearchResults
	Playback  *playback.Controller
	Busy      *shared.Busy

	logger *log.Logger

	mu   sync.Mutex
	view View

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the components and connects session events to the favorites list.
func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = shared.DiscardLogger()
	}
	if d.Sink == nil {
		d.Sink = notify.Discard
	}
	if d.Busy == nil {
		d.Busy = shared.NewBusy(nil)
	}

	mgr := session.NewManager(session.Options{
		Auth:          d.Backend,
		Store:         d.Store,
		Authorizer:    d.Authorizer,
		FavoritesList: d.FavoritesList,
		Sink:          d.Sink,
		Busy:          d.Busy,
		Logger:        shared.WithLogger(d.Logger, "component", "session"),
	})
	cat := catalog.New(catalog.Options{
		Backend:       d.Backend,
		Identity:      mgr,
		BaseURL:       d.BaseURL,
		FavoritesList: d.FavoritesList,
		Sink:          d.Sink,
		Busy:          d.Busy,
		Logger:        shared.WithLogger(d.Logger, "component", "catalog"),
	})
	favs := library.NewFavorites(cat, d.Sink)
	ctrl := playback.New(playback.Options{
		Device:  d.Device,
		Queue:   favs,
		History: d.History,
		Sink:    d.Sink,
		Volume:  d.Volume,
		Logger:  shared.WithLogger(d.Logger, "component", "playback"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Session:   mgr,
		Catalog:   cat,
		Favorites: favs,
		Results:   library.NewSearchResults(cat),
		Playback:  ctrl,
		Busy:      d.Busy,
		logger:    d.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	mgr.OnLogin(a.handleLogin)
	mgr.OnLogout(a.handleLogout)
	return a
}

// handleLogin refreshes favorites in the background so login returns without waiting on the list.
func (a *App) handleLogin(id models.Identity) {
	a.logger.Debug("session established", "user", id.Username)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Favorites.Refresh(a.ctx)
	}()
}

func (a *App) handleLogout() {
	a.Favorites.Clear()
	a.mu.Lock()
	if a.view == ViewFavorites {
		a.view = ViewSearch
	}
	a.mu.Unlock()
}

// View returns the active view.
func (a *App) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// SetView switches views. Entering favorites with a session refreshes the list before returning.
func (a *App) SetView(ctx context.Context, v View) {
	a.mu.Lock()
	a.view = v
	a.mu.Unlock()

	if v == ViewFavorites && a.Session.Active() {
		a.Favorites.Refresh(ctx)
	}
}

// Start restores a saved session and runs the initial empty search side by side, returning once both finish.
func (a *App) Start(ctx context.Context) *models.Identity {
	var (
		wg sync.WaitGroup
		id *models.Identity
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		id = a.Session.Restore(ctx)
	}()
	go func() {
		defer wg.Done()
		a.Results.Search(ctx, "")
	}()
	wg.Wait()
	return id
}

// Search runs a catalog search and returns the tracks if this search is still the latest.
func (a *App) Search(ctx context.Context, query string) ([]models.Track, bool) {
	return a.Results.Search(ctx, query)
}

// PlayAll starts the first favorite. It does nothing when the list is empty.
func (a *App) PlayAll(ctx context.Context) error {
	queue := a.Favorites.Queue()
	if len(queue) == 0 {
		return nil
	}
	return a.Playback.Play(ctx, queue[0])
}

// Wait blocks until background refreshes started by session events finish.
func (a *App) Wait() {
	a.wg.Wait()
}

// Close abandons background work, cancels a pending third-party flow, and releases the audio device.
func (a *App) Close() error {
	a.cancel()
	a.Session.CancelThirdParty()
	a.wg.Wait()
	return a.Playback.Close()
}
