package models

import (
	"time"
)

// Track is a single song as known to the catalog.
//
// Tracks are values: once built from a catalog response they are never mutated.
// ID is positional within the list that produced the track and is not stable across fetches.
type Track struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	Album           string `json:"album"`
	DurationSeconds int    `json:"duration_seconds"`
	CoverURL        string `json:"cover_url"`
	MediaURL        string `json:"media_url"`
}

// SameSong reports whether t and o share title and artist, the favorites uniqueness key.
func (t Track) SameSong(o Track) bool {
	return t.Key() == o.Key()
}

// Key returns the title and artist joined by a unit separator. Tracks with equal keys are the same song.
func (t Track) Key() string {
	return t.Title + "\x1f" + t.Artist
}

// Identity is the active user.
type Identity struct {
	Username string `json:"username"`
}

// Session is the durable login tuple. Its fields are written and cleared together.
type Session struct {
	Username   string
	Credential string
	LoggedIn   bool
}

// Valid reports whether the session is complete enough to be restored.
func (s Session) Valid() bool {
	return s.LoggedIn && s.Username != "" && s.Credential != ""
}

// PlaybackState is a snapshot of the playback controller.
type PlaybackState struct {
	Current         *Track  `json:"current,omitempty"`
	IsPlaying       bool    `json:"is_playing"`
	PositionSeconds float64 `json:"position_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	Volume          float64 `json:"volume"`
}

// Loaded reports whether a track is loaded.
func (s PlaybackState) Loaded() bool {
	return s.Current != nil
}

// Progress returns position/duration in [0,1], or 0 when the duration is unknown.
func (s PlaybackState) Progress() float64 {
	if s.DurationSeconds <= 0 {
		return 0
	}
	return min(max(s.PositionSeconds/s.DurationSeconds, 0), 1)
}

// PlayRecord is a track the user started playing.
type PlayRecord struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album"`
	MediaURL string    `json:"media_url"`
	PlayedAt time.Time `json:"played_at"`
}
