package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/notify"
	"github.com/desertthunder/imusic/internal/services"
	"github.com/desertthunder/imusic/internal/shared"
	tu "github.com/desertthunder/imusic/internal/testing"
)

type staticIdentity struct{ id *models.Identity }

func (s *staticIdentity) Identity() *models.Identity { return s.id }

func loggedIn() *staticIdentity  { return &staticIdentity{id: &models.Identity{Username: "alice"}} }
func loggedOut() *staticIdentity { return &staticIdentity{} }

func newTestClient(t *testing.T, identity IdentitySource) (*Client, *tu.FakeBackend, *notify.Recorder) {
	t.Helper()
	backend := tu.NewFakeBackend(t)
	rec := &notify.Recorder{}
	svc := services.NewIMusicService(services.NewAPIService(backend.URL, nil, nil), nil)
	c := New(Options{
		Backend:  svc,
		Identity: identity,
		BaseURL:  "https://cdn.example.com",
		Sink:     rec,
	})
	return c, backend, rec
}

func TestResolveURL(t *testing.T) {
	tc := []struct {
		name string
		base string
		path string
		want string
	}{
		{name: "relative path", base: "https://api.example.com", path: "media/a.mp3", want: "https://api.example.com/media/a.mp3"},
		{name: "leading slash", base: "https://api.example.com/", path: "/media/a.mp3", want: "https://api.example.com/media/a.mp3"},
		{name: "absolute https", base: "https://api.example.com", path: "https://cdn.other.com/a.mp3", want: "https://cdn.other.com/a.mp3"},
		{name: "absolute http", base: "https://api.example.com", path: "http://cdn.other.com/a.mp3", want: "http://cdn.other.com/a.mp3"},
		{name: "empty", base: "https://api.example.com", path: "", want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(tt.base, tt.path); got != tt.want {
				t.Errorf("ResolveURL() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes tracks", func(t *testing.T) {
		c, backend, rec := newTestClient(t, loggedOut())
		backend.Respond("/api/song/search/all", tu.Songs(
			map[string]string{"title": "One", "artist": "Solo", "albumArtist": "Band", "album": "LP", "duration": "3:45", "coverFilePath": "covers/1.jpg", "filePath": "https://media.example.com/1.mp3"},
			map[string]string{"title": "Two", "artist": "Solo", "duration": "bogus", "filePath": "songs/2.mp3"},
		))

		tracks := c.Search(ctx, "band")
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}

		first := tracks[0]
		want := models.Track{
			ID:              "1",
			Title:           "One",
			Artist:          "Band",
			Album:           "LP",
			DurationSeconds: 225,
			CoverURL:        "https://cdn.example.com/covers/1.jpg",
			MediaURL:        "https://media.example.com/1.mp3",
		}
		if first != want {
			t.Errorf("unexpected first track:\n got %+v\nwant %+v", first, want)
		}

		second := tracks[1]
		if second.ID != "2" || second.Artist != "Solo" || second.DurationSeconds != 0 {
			t.Errorf("unexpected second track %+v", second)
		}
		if second.MediaURL != "https://cdn.example.com/songs/2.mp3" {
			t.Errorf("unexpected media url %s", second.MediaURL)
		}

		if len(rec.All()) != 0 {
			t.Errorf("successful search should be silent, got %v", rec.All())
		}
	})

	t.Run("no results notifies info", func(t *testing.T) {
		c, backend, rec := newTestClient(t, loggedOut())
		backend.Respond("/api/song/search/all", tu.Songs())

		if tracks := c.Search(ctx, "nothing"); len(tracks) != 0 {
			t.Errorf("expected empty result, got %v", tracks)
		}
		if n, _ := rec.Last(); n.Level != notify.Info {
			t.Errorf("expected info notification, got %v", n)
		}
	})

	t.Run("rejected search notifies info", func(t *testing.T) {
		c, backend, rec := newTestClient(t, loggedOut())
		backend.Respond("/api/song/search/all", tu.Fail("nope"))

		c.Search(ctx, "x")
		if n, _ := rec.Last(); n.Level != notify.Info {
			t.Errorf("expected info notification, got %v", n)
		}
	})

	t.Run("transport failure notifies error", func(t *testing.T) {
		c, backend, rec := newTestClient(t, loggedOut())
		backend.Respond("/api/song/search/all", "not json")

		if tracks := c.Search(ctx, "x"); tracks != nil {
			t.Errorf("expected nil result, got %v", tracks)
		}
		n, _ := rec.Last()
		if n.Level != notify.Error || !errors.Is(n.Err, shared.ErrTransport) {
			t.Errorf("expected transport error notification, got %+v", n)
		}
	})

	t.Run("holds busy indicator", func(t *testing.T) {
		var edges []bool
		backend := tu.NewFakeBackend(t)
		backend.Respond("/api/song/search/all", tu.Songs())
		c := New(Options{
			Backend: services.NewIMusicService(services.NewAPIService(backend.URL, nil, nil), nil),
			Busy:    shared.NewBusy(func(a bool) { edges = append(edges, a) }),
		})

		c.Search(ctx, "")
		if len(edges) != 2 || !edges[0] || edges[1] {
			t.Errorf("expected busy on then off, got %v", edges)
		}
	})
}

func TestListFavorites(t *testing.T) {
	ctx := context.Background()

	t.Run("logged out makes no request", func(t *testing.T) {
		c, backend, rec := newTestClient(t, loggedOut())

		if tracks := c.ListFavorites(ctx); tracks != nil {
			t.Errorf("expected nil, got %v", tracks)
		}
		if len(backend.Requests()) != 0 {
			t.Error("expected no network call")
		}
		if len(rec.All()) != 0 {
			t.Error("expected no notification")
		}
	})

	t.Run("ids are prefixed", func(t *testing.T) {
		c, backend, _ := newTestClient(t, loggedIn())
		backend.Respond("/api/song/search/insonglist", tu.Songs(
			map[string]string{"title": "A", "artist": "X"},
			map[string]string{"title": "B", "artist": "Y"},
		))

		tracks := c.ListFavorites(ctx)
		if len(tracks) != 2 || tracks[0].ID != "fav_0" || tracks[1].ID != "fav_1" {
			t.Errorf("unexpected favorites %+v", tracks)
		}
		if backend.Requests()[0].Body["listName"] != "favorite" {
			t.Error("expected default favorites list name")
		}
	})

	t.Run("failure is silent", func(t *testing.T) {
		c, backend, rec := newTestClient(t, loggedIn())
		backend.Respond("/api/song/search/insonglist", tu.Fail("server down"))

		if tracks := c.ListFavorites(ctx); len(tracks) != 0 {
			t.Errorf("expected empty, got %v", tracks)
		}
		if len(rec.All()) != 0 {
			t.Errorf("expected no notification, got %v", rec.All())
		}
	})
}

func TestMutateFavorites(t *testing.T) {
	ctx := context.Background()
	track := models.Track{ID: "1", Title: "Song", Artist: "Band", Album: "LP"}

	t.Run("logged out warns without network", func(t *testing.T) {
		c, backend, rec := newTestClient(t, loggedOut())

		for _, op := range []func(context.Context, models.Track) error{c.AddFavorite, c.RemoveFavorite} {
			if err := op(ctx, track); !errors.Is(err, shared.ErrAuthRequired) {
				t.Errorf("expected ErrAuthRequired, got %v", err)
			}
		}
		if len(backend.Requests()) != 0 {
			t.Error("expected no network call")
		}
		for _, n := range rec.All() {
			if n.Level != notify.Warning || !errors.Is(n.Err, shared.ErrAuthRequired) {
				t.Errorf("expected auth-required warning, got %+v", n)
			}
		}
	})

	t.Run("add sends song reference", func(t *testing.T) {
		c, backend, rec := newTestClient(t, loggedIn())
		backend.Respond("/api/song/add/tosonglist", tu.OK())

		if err := c.AddFavorite(ctx, track); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		body := backend.Requests()[0].Body
		if body["title"] != "Song" || body["albumArtist"] != "Band" || body["album"] != "LP" || body["listName"] != "favorite" {
			t.Errorf("unexpected body %v", body)
		}
		if len(rec.All()) != 0 {
			t.Error("client leaves success notification to the caller")
		}
	})

	t.Run("rejection surfaces server message", func(t *testing.T) {
		c, backend, rec := newTestClient(t, loggedIn())
		backend.Respond("/api/song/delete/fromsonglist", tu.Fail("song not in list"))

		err := c.RemoveFavorite(ctx, track)
		if !errors.Is(err, shared.ErrApplication) {
			t.Fatalf("expected ErrApplication, got %v", err)
		}
		n, _ := rec.Last()
		if n.Level != notify.Error || n.Message != "song not in list" {
			t.Errorf("unexpected notification %+v", n)
		}
	})

	t.Run("rejection without message uses fallback", func(t *testing.T) {
		c, backend, rec := newTestClient(t, loggedIn())
		backend.Respond("/api/song/add/tosonglist", map[string]any{"success": false})

		c.AddFavorite(ctx, track)
		n, _ := rec.Last()
		if n.Message != "Failed to add favorite" {
			t.Errorf("unexpected fallback message %q", n.Message)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		c, backend, rec := newTestClient(t, loggedIn())
		backend.Respond("/api/song/add/tosonglist", "garbage")

		err := c.AddFavorite(ctx, track)
		if !errors.Is(err, shared.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		if n, _ := rec.Last(); n.Level != notify.Error {
			t.Errorf("expected error notification, got %+v", n)
		}
	})
}
