package player

import "context"

// Handlers receive device events. Any field may be nil.
//
// Handlers are never invoked while the device or speaker lock is held, so they may call back into the device.
type Handlers struct {
	// OnPosition reports the playback position in seconds.
	OnPosition func(seconds float64)
	// OnMetadata reports the decoded duration in seconds once a track is loaded.
	OnMetadata func(durationSeconds float64)
	// OnEnded fires when the loaded track plays to completion.
	OnEnded func()
}

// Device is an audio output.
type Device interface {
	// Load fetches url, replaces whatever was loaded, and starts playback.
	Load(ctx context.Context, url string) error
	// Play resumes a paused track.
	Play() error
	// Pause halts output without unloading.
	Pause()
	// Seek moves to seconds from the start.
	Seek(seconds float64) error
	// SetVolume sets output level in [0, 1].
	SetVolume(level float64)
	// Stop unloads the current track.
	Stop()
	// SetHandlers replaces the event handlers.
	SetHandlers(h Handlers)
	Close() error
}

// Verify implementations at compile time.
var (
	_ Device = (*BeepDevice)(nil)
	_ Device = (*Mock)(nil)
)
