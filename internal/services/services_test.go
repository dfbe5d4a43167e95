package services

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/imusic/internal/shared"
	tu "github.com/desertthunder/imusic/internal/testing"
)

func newTestService(t *testing.T) (*IMusicService, *tu.FakeBackend) {
	t.Helper()
	backend := tu.NewFakeBackend(t)
	return NewIMusicService(NewAPIService(backend.URL, nil, nil), nil), backend
}

func TestEnvelope(t *testing.T) {
	t.Run("ErrorText", func(t *testing.T) {
		tc := []struct {
			name    string
			message string
			want    string
		}{
			{name: "string message", message: `"bad password"`, want: "bad password"},
			{name: "object message", message: `{"error":"user exists"}`, want: "user exists"},
			{name: "empty", message: ``, want: ""},
			{name: "unrelated object", message: `{"songs":[]}`, want: ""},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				env := Envelope{Message: []byte(tt.message)}
				if got := env.ErrorText(); got != tt.want {
					t.Errorf("ErrorText() = %q, want %q", got, tt.want)
				}
			})
		}
	})

	t.Run("Songs", func(t *testing.T) {
		if _, ok := (Envelope{Message: []byte(`"hi"`)}).Songs(); ok {
			t.Error("string message carries no songs")
		}
		if _, ok := (Envelope{Message: []byte(`{}`)}).Songs(); ok {
			t.Error("missing songs key should report !ok")
		}
		songs, ok := (Envelope{Message: []byte(`{"songs":[{"title":"a"}]}`)}).Songs()
		if !ok || len(songs) != 1 || songs[0].Title != "a" {
			t.Errorf("unexpected songs %+v ok=%v", songs, ok)
		}
	})
}

func TestSong(t *testing.T) {
	if (Song{Artist: "a", AlbumArtist: "b"}).DisplayArtist() != "b" {
		t.Error("album artist takes precedence")
	}
	if (Song{Artist: "a"}).DisplayArtist() != "a" {
		t.Error("falls back to artist")
	}
}

func TestIMusicService(t *testing.T) {
	ctx := context.Background()

	t.Run("Login", func(t *testing.T) {
		t.Run("success", func(t *testing.T) {
			svc, backend := newTestService(t)
			backend.Respond(pathLogin, tu.OK())

			if err := svc.Login(ctx, "alice", "secret"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			req := backend.Requests()[0]
			if req.Body["username"] != "alice" || req.Body["password"] != "secret" {
				t.Errorf("unexpected login body %v", req.Body)
			}
		})

		t.Run("rejected with server message", func(t *testing.T) {
			svc, backend := newTestService(t)
			backend.Respond(pathLogin, tu.Fail("wrong password"))

			err := svc.Login(ctx, "alice", "nope")
			if !errors.Is(err, shared.ErrApplication) {
				t.Fatalf("expected ErrApplication, got %v", err)
			}
			if ServerMessage(err) != "wrong password" {
				t.Errorf("expected server message, got %q", ServerMessage(err))
			}
		})

		t.Run("undecodable response is a transport failure", func(t *testing.T) {
			svc, backend := newTestService(t)
			backend.Respond(pathLogin, "<html>bad gateway</html>")

			err := svc.Login(ctx, "alice", "secret")
			if !errors.Is(err, shared.ErrTransport) {
				t.Errorf("expected ErrTransport, got %v", err)
			}
		})
	})

	t.Run("SearchSongs sends query as title and album artist", func(t *testing.T) {
		svc, backend := newTestService(t)
		backend.Respond(pathSearchAll, tu.Songs(map[string]string{"title": "Song", "albumArtist": "Band", "duration": "3:00"}))

		songs, err := svc.SearchSongs(ctx, "band")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 1 || songs[0].AlbumArtist != "Band" {
			t.Errorf("unexpected songs %+v", songs)
		}

		body := backend.Requests()[0].Body
		if body["title"] != "band" || body["albumArtist"] != "band" {
			t.Errorf("unexpected search body %v", body)
		}
	})

	t.Run("SearchSongs with empty query", func(t *testing.T) {
		svc, backend := newTestService(t)
		backend.Respond(pathSearchAll, tu.Songs())

		songs, err := svc.SearchSongs(ctx, "")
		if err != nil || len(songs) != 0 {
			t.Errorf("expected empty result, got %v %v", songs, err)
		}
		if backend.Requests()[0].Body["title"] != "" {
			t.Error("empty query must be sent verbatim")
		}
	})

	t.Run("ListSongList", func(t *testing.T) {
		svc, backend := newTestService(t)
		backend.Respond(pathSearchInList, map[string]any{"success": true, "message": map[string]any{}})

		songs, err := svc.ListSongList(ctx, "favorite")
		if err != nil || songs != nil {
			t.Errorf("missing song array yields no songs, got %v %v", songs, err)
		}
		if backend.Requests()[0].Body["listName"] != "favorite" {
			t.Error("expected list name in body")
		}
	})

	t.Run("AddToSongList and DeleteFromSongList", func(t *testing.T) {
		svc, backend := newTestService(t)
		backend.Respond(pathAddToList, tu.OK())
		backend.Respond(pathDeleteInList, tu.Fail("not in list"))

		ref := SongRef{Title: "Song", AlbumArtist: "Band", Album: "LP", ListName: "favorite"}
		if err := svc.AddToSongList(ctx, ref); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if err := svc.DeleteFromSongList(ctx, ref); ServerMessage(err) != "not in list" {
			t.Errorf("expected delete rejection, got %v", err)
		}

		body := backend.Requests()[0].Body
		if body["title"] != "Song" || body["albumArtist"] != "Band" || body["album"] != "LP" || body["listName"] != "favorite" {
			t.Errorf("unexpected song ref body %v", body)
		}
	})

	t.Run("CertifyCodeforces escapes the code", func(t *testing.T) {
		svc, backend := newTestService(t)
		backend.Respond(pathCertify, tu.OK())

		if err := svc.CertifyCodeforces(ctx, "a b&c"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		req := backend.Requests()[0]
		if req.Method != "GET" || req.Query != "code=a+b%26c" {
			t.Errorf("unexpected certification request %+v", req)
		}
	})

	t.Run("Register and CreateSongList", func(t *testing.T) {
		svc, backend := newTestService(t)
		backend.Respond(pathRegister, tu.OK())
		backend.Respond(pathCreateList, tu.OK())

		if err := svc.Register(ctx, "bob", "pw"); err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if err := svc.CreateSongList(ctx, "favorite"); err != nil {
			t.Fatalf("create list failed: %v", err)
		}
		if backend.Requests()[1].Body["listName"] != "favorite" {
			t.Error("expected list name")
		}
	})
}
