// Package catalog is the remote catalog client: it searches songs, reads and mutates the
// favorites list, and turns backend records into [models.Track] values.
//
// Failures never escape as panics or fatal errors. Each operation reports its outcome
// through the injected [notify.Sink] and returns an empty result or a classified error.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/notify"
	"github.com/desertthunder/imusic/internal/services"
	"github.com/desertthunder/imusic/internal/shared"
)

// DefaultFavoritesList is the backend song list used for favorites.
const DefaultFavoritesList = "favorite"

// Backend is the subset of [services.IMusicService] the catalog calls.
type Backend interface {
	SearchSongs(ctx context.Context, query string) ([]services.Song, error)
	ListSongList(ctx context.Context, listName string) ([]services.Song, error)
	AddToSongList(ctx context.Context, ref services.SongRef) error
	DeleteFromSongList(ctx context.Context, ref services.SongRef) error
}

// IdentitySource reports the active user, or nil when logged out.
type IdentitySource interface {
	Identity() *models.Identity
}

// Options configures a [Client].
type Options struct {
	Backend       Backend
	Identity      IdentitySource
	BaseURL       string
	FavoritesList string
	Sink          notify.Sink
	Busy          *shared.Busy
	Logger        *log.Logger
}

// Client talks to the catalog on behalf of the UI.
type Client struct {
	backend       Backend
	identity      IdentitySource
	baseURL       string
	favoritesList string
	sink          notify.Sink
	busy          *shared.Busy
	logger        *log.Logger
}

// New builds a client from opts, filling defaults for the optional fields.
func New(opts Options) *Client {
	if opts.FavoritesList == "" {
		opts.FavoritesList = DefaultFavoritesList
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

	return &Client{
		backend:       opts.Backend,
		identity:      opts.Identity,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		favoritesList: opts.FavoritesList,
		sink:          opts.Sink,
		busy:          opts.Busy,
		logger:        opts.Logger,
	}
}

// Busy returns the shared in-flight indicator.
func (c *Client) Busy() *shared.Busy {
	return c.busy
}

func (c *Client) loggedIn() bool {
	return c.identity != nil && c.identity.Identity() != nil
}

// Search returns matching tracks with ids "1".."n". The empty query is sent as is.
//
// Transport failures notify an error; an empty or rejected answer notifies "no results".
func (c *Client) Search(ctx context.Context, query string) []models.Track {
	defer c.busy.Begin()()

	songs, err := c.backend.SearchSongs(ctx, query)
	if err != nil && !errors.Is(err, shared.ErrApplication) {
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Error("search failed", "query", query, "error", err)
		notify.Emit(c.sink, notify.Error, err, "Search failed: network error, please try again")
		return nil
	}

	if len(songs) == 0 {
		notify.Emit(c.sink, notify.Info, err, "No matching songs found")
		return nil
	}

	return c.toTracks(songs, func(i int) string { return fmt.Sprintf("%d", i+1) })
}

// ListFavorites returns the favorites list with ids "fav_0".."fav_<n-1>".
//
// Without a session it returns nothing and makes no request. Failures are logged only.
func (c *Client) ListFavorites(ctx context.Context) []models.Track {
	if !c.loggedIn() {
		return nil
	}
	defer c.busy.Begin()()

	songs, err := c.backend.ListSongList(ctx, c.favoritesList)
	if err != nil {
		c.logger.Warn("failed to fetch favorites", "list", c.favoritesList, "error", err)
		return nil
	}

	return c.toTracks(songs, func(i int) string { return fmt.Sprintf("fav_%d", i) })
}

// AddFavorite adds track to the favorites list. The caller re-fetches the list on success.
func (c *Client) AddFavorite(ctx context.Context, track models.Track) error {
	return c.mutate(ctx, track, "add", c.backend.AddToSongList)
}

// RemoveFavorite removes track from the favorites list. The caller re-fetches the list on success.
func (c *Client) RemoveFavorite(ctx context.Context, track models.Track) error {
	return c.mutate(ctx, track, "remove", c.backend.DeleteFromSongList)
}

func (c *Client) mutate(ctx context.Context, track models.Track, verb string, call func(context.Context, services.SongRef) error) error {
	if !c.loggedIn() {
		notify.Emit(c.sink, notify.Warning, shared.ErrAuthRequired, "Please log in first")
		return shared.ErrAuthRequired
	}
	defer c.busy.Begin()()

	ref := services.SongRef{
		Title:       track.Title,
		AlbumArtist: track.Artist,
		Album:       track.Album,
		ListName:    c.favoritesList,
	}

	err := call(ctx, ref)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shared.ErrApplication):
		msg := services.ServerMessage(err)
		if msg == "" {
			msg = fmt.Sprintf("Failed to %s favorite", verb)
		}
		c.logger.Warn("favorite "+verb+" rejected", "title", track.Title, "error", err)
		notify.Emit(c.sink, notify.Error, err, "%s", msg)
	default:
		c.logger.Error("favorite "+verb+" failed", "title", track.Title, "error", err)
		notify.Emit(c.sink, notify.Error, err, "Network error, please try again later")
	}
	return err
}

func (c *Client) toTracks(songs []services.Song, id func(int) string) []models.Track {
	tracks := make([]models.Track, 0, len(songs))
	for i, s := range songs {
		tracks = append(tracks, models.Track{
			ID:              id(i),
			Title:           s.Title,
			Artist:          s.DisplayArtist(),
			Album:           s.Album,
			DurationSeconds: shared.ParseDuration(s.Duration),
			CoverURL:        ResolveURL(c.baseURL, s.CoverFilePath),
			MediaURL:        ResolveURL(c.baseURL, s.FilePath),
		})
	}
	return tracks
}

// ResolveURL returns path verbatim when it is already an absolute http(s) URL and
// joins it onto base with a single "/" otherwise. An empty path stays empty.
func ResolveURL(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
