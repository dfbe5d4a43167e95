package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/shared"
)

// HistoryRepository records tracks as they start playing.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new [HistoryRepository] with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record appends track to the history.
func (r *HistoryRepository) Record(ctx context.Context, track models.Track) error {
	query := `
		INSERT INTO play_history (id, title, artist, album, media_url, played_at) VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, shared.GenerateID(), track.Title, track.Artist, track.Album, track.MediaURL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert play record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]models.PlayRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, title, artist, album, media_url, played_at
		FROM play_history
		ORDER BY played_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query play history: %w", err)
	}
	defer rows.Close()

	var records []models.PlayRecord
	for rows.Next() {
		var rec models.PlayRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Artist, &rec.Album, &rec.MediaURL, &rec.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan play record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all history and returns how many records were removed.
func (r *HistoryRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM play_history")
	if err != nil {
		return 0, fmt.Errorf("failed to clear play history: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
