package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// Every connection to :memory: is a fresh database.
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		store := NewLocalStorage(setupTestDB(t))

		if err := store.Set(ctx, "theme", "dark"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		value, ok, err := store.Get(ctx, "theme")
		if err != nil || !ok || value != "dark" {
			t.Errorf("unexpected get result %q %v %v", value, ok, err)
		}
	})

	t.Run("Set overwrites", func(t *testing.T) {
		store := NewLocalStorage(setupTestDB(t))
		store.Set(ctx, "k", "one")
		store.Set(ctx, "k", "two")

		value, _, _ := store.Get(ctx, "k")
		if value != "two" {
			t.Errorf("expected overwrite, got %q", value)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		store := NewLocalStorage(setupTestDB(t))

		_, ok, err := store.Get(ctx, "missing")
		if err != nil || ok {
			t.Errorf("expected miss without error, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("Remove and Keys", func(t *testing.T) {
		store := NewLocalStorage(setupTestDB(t))
		store.Set(ctx, "b", "2")
		store.Set(ctx, "a", "1")

		if err := store.Remove(ctx, "b"); err != nil {
			t.Fatalf("failed to remove: %v", err)
		}
		if err := store.Remove(ctx, "never-set"); err != nil {
			t.Errorf("removing a missing key should succeed: %v", err)
		}

		keys, err := store.Keys(ctx)
		if err != nil || len(keys) != 1 || keys[0] != "a" {
			t.Errorf("unexpected keys %v %v", keys, err)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionRepository(db)
		want := models.Session{Username: "alice", Credential: "pw", LoggedIn: true}

		if err := repo.Save(ctx, want); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}

		raw, _, _ := NewLocalStorage(db).Get(ctx, KeyIsLoggedIn)
		if raw != "true" {
			t.Errorf("expected isLoggedIn stored as 'true', got %q", raw)
		}
	})

	t.Run("Load empty", func(t *testing.T) {
		got, err := NewSessionRepository(setupTestDB(t)).Load(ctx)
		if err != nil || got.Valid() {
			t.Errorf("expected empty session, got %+v %v", got, err)
		}
	})

	t.Run("Clear removes every field", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionRepository(db)
		repo.Save(ctx, models.Session{Username: "alice", Credential: "pw", LoggedIn: true})

		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}

		keys, _ := NewLocalStorage(db).Keys(ctx)
		if len(keys) != 0 {
			t.Errorf("expected no keys left, got %v", keys)
		}
	})

	t.Run("Save is atomic", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionRepository(db)
		repo.Save(ctx, models.Session{Username: "alice", Credential: "pw", LoggedIn: true})

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if err := repo.Save(cancelled, models.Session{Username: "bob", Credential: "x", LoggedIn: true}); err == nil {
			t.Fatal("expected save with cancelled context to fail")
		}

		got, _ := repo.Load(ctx)
		if got.Username != "alice" || got.Credential != "pw" {
			t.Errorf("a failed save must not leave partial state, got %+v", got)
		}
	})
}

func TestHistoryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Record and Recent", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))

		for _, title := range []string{"first", "second", "third"} {
			if err := repo.Record(ctx, models.Track{Title: title, Artist: "Band"}); err != nil {
				t.Fatalf("failed to record: %v", err)
			}
		}

		recent, err := repo.Recent(ctx, 2)
		if err != nil {
			t.Fatalf("failed to query: %v", err)
		}
		if len(recent) != 2 || recent[0].Title != "third" || recent[1].Title != "second" {
			t.Errorf("expected newest first, got %+v", recent)
		}
		if recent[0].ID == "" || recent[0].PlayedAt.IsZero() {
			t.Error("expected id and timestamp to be set")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		repo.Record(ctx, models.Track{Title: "a"})
		repo.Record(ctx, models.Track{Title: "b"})

		n, err := repo.Clear(ctx)
		if err != nil || n != 2 {
			t.Errorf("expected 2 removed, got %d %v", n, err)
		}

		recent, _ := repo.Recent(ctx, 0)
		if len(recent) != 0 {
			t.Errorf("expected empty history, got %v", recent)
		}
	})
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	sentinel := errors.New("abort")

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := setItem(ctx, tx, "k", "v"); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}

	if _, ok, _ := NewLocalStorage(db).Get(ctx, "k"); ok {
		t.Error("rolled back write must not persist")
	}
}
