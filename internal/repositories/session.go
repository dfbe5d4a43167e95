package repositories

import (
	"context"
	"database/sql"

	"github.com/desertthunder/imusic/internal/models"
)

// Storage keys for the persisted session.
const (
	KeyUsername   = "username"
	KeyPassword   = "password"
	KeyIsLoggedIn = "isLoggedIn"
)

// SessionRepository stores the login tuple in local_storage. It implements session.Store.
//
// The credential is kept in plain text, so the database file should be readable by its owner only.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Load reads all three keys. Missing keys yield zero values.
func (r *SessionRepository) Load(ctx context.Context) (models.Session, error) {
	var s models.Session
	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		username, _, err := getItem(ctx, tx, KeyUsername)
		if err != nil {
			return err
		}
		password, _, err := getItem(ctx, tx, KeyPassword)
		if err != nil {
			return err
		}
		loggedIn, _, err := getItem(ctx, tx, KeyIsLoggedIn)
		if err != nil {
			return err
		}
		s = models.Session{Username: username, Credential: password, LoggedIn: loggedIn == "true"}
		return nil
	})
	return s, err
}

// Save writes all three keys in one transaction.
func (r *SessionRepository) Save(ctx context.Context, s models.Session) error {
	loggedIn := "false"
	if s.LoggedIn {
		loggedIn = "true"
	}
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, kv := range [][2]string{{KeyUsername, s.Username}, {KeyPassword, s.Credential}, {KeyIsLoggedIn, loggedIn}} {
			if err := setItem(ctx, tx, kv[0], kv[1]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear removes all three keys in one transaction.
func (r *SessionRepository) Clear(ctx context.Context) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, k := range []string{KeyUsername, KeyPassword, KeyIsLoggedIn} {
			if err := removeItem(ctx, tx, k); err != nil {
				return err
			}
		}
		return nil
	})
}
