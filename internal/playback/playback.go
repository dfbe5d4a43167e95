// Package playback drives a [player.Device] from user intent.
//
// A [Controller] is either empty or has a current track, which is playing or paused. Next and Previous walk
// the favorites queue circularly, and a track that ends advances to the next favorite even when it was
// started from search results.
package playback

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/notify"
	"github.com/desertthunder/imusic/internal/player"
	"github.com/desertthunder/imusic/internal/shared"
)

// Queue supplies the tracks Next and Previous move through.
type Queue interface {
	Queue() []models.Track
}

// History records tracks as they start.
type History interface {
	Record(ctx context.Context, track models.Track) error
}

// Options configures a [Controller].
type Options struct {
	Device player.Device
	Queue  Queue
	// History is optional.
	History History
	Sink    notify.Sink
	// Volume is the initial level in [0, 1].
	Volume float64
	Logger *log.Logger
}

// Controller is safe for concurrent use. Device calls are never made while its lock is held.
type Controller struct {
	mu      sync.Mutex
	device  player.Device
	queue   Queue
	history History
	sink    notify.Sink
	logger  *log.Logger

	state models.PlaybackState
	gen   uint64

	base   context.Context
	cancel context.CancelFunc
}

// New creates a controller and takes over the device's handlers.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	base, cancel := context.WithCancel(context.Background())
	c := &Controller{
		device:  opts.Device,
		queue:   opts.Queue,
		history: opts.History,
		sink:    opts.Sink,
		logger:  opts.Logger,
		state:   models.PlaybackState{Volume: clamp(opts.Volume)},
		base:    base,
		cancel:  cancel,
	}

	c.device.SetVolume(c.state.Volume)
	c.device.SetHandlers(player.Handlers{
		OnPosition: c.onPosition,
		OnMetadata: c.onMetadata,
		OnEnded:    c.onEnded,
	})
	return c
}

// State returns a snapshot.
func (c *Controller) State() models.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() models.PlaybackState {
	s := c.state
	if s.Current != nil {
		t := *s.Current
		s.Current = &t
	}
	return s
}

// Play makes track current and starts it from zero. The track's catalog duration is shown until the device
// reports the decoded one.
//
// If the device cannot load the media the controller keeps the track paused, emits an error notification,
// and returns the error.
func (c *Controller) Play(ctx context.Context, track models.Track) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	t := track
	c.state = models.PlaybackState{
		Current:         &t,
		IsPlaying:       true,
		DurationSeconds: float64(track.DurationSeconds),
		Volume:          c.state.Volume,
	}
	c.mu.Unlock()

	var err error
	if track.MediaURL == "" {
		err = shared.ErrTrackNotFound
	} else {
		err = c.device.Load(ctx, track.MediaURL)
	}

	if errors.Is(err, player.ErrSuperseded) {
		return nil
	}
	if err != nil {
		c.mu.Lock()
		current := gen == c.gen
		if current {
			c.state.IsPlaying = false
		}
		c.mu.Unlock()
		if !current {
			return nil
		}

		c.logger.Error("failed to load track", "title", track.Title, "url", track.MediaURL, "error", err)
		notify.Emit(c.sink, notify.Error, err, "Unable to play %s", track.Title)
		return err
	}

	if c.history != nil {
		if herr := c.history.Record(ctx, track); herr != nil {
			c.logger.Warn("failed to record play history", "error", herr)
		}
	}
	return nil
}

// TogglePlayPause flips between playing and paused. It does nothing when no track is loaded.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	if c.state.Current == nil {
		c.mu.Unlock()
		return
	}
	playing := !c.state.IsPlaying
	c.mu.Unlock()

	if playing {
		if err := c.device.Play(); err != nil {
			c.logger.Warn("failed to resume playback", "error", err)
			return
		}
	} else {
		c.device.Pause()
	}

	c.mu.Lock()
	if c.state.Current != nil {
		c.state.IsPlaying = playing
	}
	c.mu.Unlock()
}

// Next plays the favorite after the current track, wrapping to the start.
// A current track that is not in the queue is followed by the first favorite.
func (c *Controller) Next(ctx context.Context) error {
	return c.step(ctx, NextIndex)
}

// Previous plays the favorite before the current track, wrapping to the end.
// A current track that is not in the queue is preceded by the last favorite.
func (c *Controller) Previous(ctx context.Context) error {
	return c.step(ctx, PreviousIndex)
}

func (c *Controller) step(ctx context.Context, pick func([]models.Track, string) int) error {
	queue := c.queue.Queue()
	if len(queue) == 0 {
		return nil
	}

	c.mu.Lock()
	var id string
	if c.state.Current != nil {
		id = c.state.Current.ID
	}
	c.mu.Unlock()

	return c.Play(ctx, queue[pick(queue, id)])
}

// NextIndex returns the index after currentID in queue, circularly. queue must not be empty.
func NextIndex(queue []models.Track, currentID string) int {
	i := indexOf(queue, currentID)
	return (i + 1) % len(queue)
}

// PreviousIndex returns the index before currentID in queue, circularly. queue must not be empty.
func PreviousIndex(queue []models.Track, currentID string) int {
	i := indexOf(queue, currentID)
	if i <= 0 {
		return len(queue) - 1
	}
	return i - 1
}

func indexOf(queue []models.Track, id string) int {
	if id == "" {
		return -1
	}
	for i, t := range queue {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Seek moves the position to seconds. It does nothing when no track is loaded.
//
// The requested value is recorded as is; the device clamps it and its position report
// replaces it with where playback actually landed.
func (c *Controller) Seek(seconds float64) {
	c.mu.Lock()
	if c.state.Current == nil {
		c.mu.Unlock()
		return
	}
	c.state.PositionSeconds = seconds
	c.mu.Unlock()

	if err := c.device.Seek(seconds); err != nil {
		c.logger.Warn("seek failed", "seconds", seconds, "error", err)
	}
}

// SetVolume sets the level, clamped to [0, 1]. Valid with or without a track.
func (c *Controller) SetVolume(level float64) {
	level = clamp(level)
	c.mu.Lock()
	c.state.Volume = level
	c.mu.Unlock()
	c.device.SetVolume(level)
}

// Stop unloads the current track.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.gen++
	c.state = models.PlaybackState{Volume: c.state.Volume}
	c.mu.Unlock()
	c.device.Stop()
}

// Close stops playback and releases the device. Tracks that end afterwards no longer advance the queue.
func (c *Controller) Close() error {
	c.cancel()
	c.Stop()
	return c.device.Close()
}

func (c *Controller) onPosition(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Current != nil {
		c.state.PositionSeconds = seconds
	}
}

func (c *Controller) onMetadata(duration float64) {
	if duration <= 0 || math.IsInf(duration, 0) || math.IsNaN(duration) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Current != nil {
		c.state.DurationSeconds = duration
	}
}

func (c *Controller) onEnded() {
	if c.base.Err() != nil {
		return
	}
	c.mu.Lock()
	c.state.IsPlaying = false
	c.mu.Unlock()

	if err := c.Next(c.base); err != nil {
		c.logger.Warn("failed to advance after track ended", "error", err)
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(v, 1))
}
