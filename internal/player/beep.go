package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"github.com/desertthunder/imusic/internal/shared"
)

// ErrSuperseded is returned by Load when a later Load or Stop replaced it before it finished.
var ErrSuperseded = errors.New("load superseded")

const defaultPositionInterval = 250 * time.Millisecond

var (
	speakerMu    sync.Mutex
	speakerReady bool
	speakerRate  beep.SampleRate
)

// initSpeaker initializes the process-wide speaker on first use and returns its sample rate.
func initSpeaker(sr beep.SampleRate) (beep.SampleRate, error) {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if speakerReady {
		return speakerRate, nil
	}
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return 0, fmt.Errorf("failed to initialize speaker: %w", err)
	}
	speakerReady, speakerRate = true, sr
	return sr, nil
}

// BeepOptions configures a [BeepDevice].
type BeepOptions struct {
	Client *http.Client
	// MaxBytes caps a single download. Zero means no limit.
	MaxBytes int64
	// Volume is the initial level in [0, 1].
	Volume float64
	// Interval is how often position is reported. Defaults to 250ms.
	Interval time.Duration
	Logger   *log.Logger
}

// BeepDevice plays tracks through the system speaker.
type BeepDevice struct {
	mu       sync.Mutex
	client   *http.Client
	maxBytes int64
	interval time.Duration
	logger   *log.Logger
	handlers Handlers

	gen      uint64
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64
	ended    bool
	stopTick chan struct{}
}

// NewBeepDevice creates a device. Nothing touches the audio hardware until the first Load.
func NewBeepDevice(opts BeepOptions) *BeepDevice {
	if opts.Client == nil {
		opts.Client = NewMediaClient()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultPositionInterval
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &BeepDevice{
		client:   opts.Client,
		maxBytes: opts.MaxBytes,
		interval: opts.Interval,
		logger:   opts.Logger,
		level:    clampLevel(opts.Volume),
	}
}

// SetHandlers replaces the event handlers.
func (d *BeepDevice) SetHandlers(h Handlers) {
	d.mu.Lock()
	d.handlers = h
	d.mu.Unlock()
}

// Load downloads and decodes url, then starts it from the beginning.
func (d *BeepDevice) Load(ctx context.Context, url string) error {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.unloadLocked()
	d.mu.Unlock()

	stream, contentType, err := fetch(ctx, d.client, url, d.maxBytes)
	if err != nil {
		return err
	}

	streamer, format, err := decode(stream, formatFor(url, contentType))
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}

	rate, err := initSpeaker(format.SampleRate)
	if err != nil {
		streamer.Close()
		return err
	}

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		streamer.Close()
		return ErrSuperseded
	}

	var out beep.Streamer = streamer
	if format.SampleRate != rate {
		out = beep.Resample(4, format.SampleRate, rate, streamer)
	}
	d.streamer = streamer
	d.format = format
	d.ctrl = &beep.Ctrl{Streamer: out}
	d.volume = &effects.Volume{Streamer: d.ctrl, Base: 2, Volume: levelToVolume(d.level), Silent: d.level <= 0}
	d.ended = false
	d.stopTick = make(chan struct{})
	stop := d.stopTick
	duration := format.SampleRate.D(streamer.Len()).Seconds()
	h := d.handlers
	d.playLocked(gen)
	d.mu.Unlock()

	d.logger.Debug("track loaded", "url", url, "rate", format.SampleRate, "duration", duration)
	if h.OnMetadata != nil {
		h.OnMetadata(duration)
	}
	go d.monitor(gen, stop)
	return nil
}

// playLocked queues the current chain on the speaker. The end callback runs under the speaker lock,
// so it hands off to a goroutine.
func (d *BeepDevice) playLocked(gen uint64) {
	speaker.Play(beep.Seq(d.volume, beep.Callback(func() {
		go d.finished(gen)
	})))
}

func (d *BeepDevice) finished(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.streamer == nil {
		d.mu.Unlock()
		return
	}
	d.ended = true
	h := d.handlers
	d.mu.Unlock()

	if h.OnEnded != nil {
		h.OnEnded()
	}
}

func (d *BeepDevice) monitor(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.mu.Lock()
			if gen != d.gen || d.streamer == nil {
				d.mu.Unlock()
				return
			}
			speaker.Lock()
			pos := d.format.SampleRate.D(d.streamer.Position()).Seconds()
			paused := d.ctrl.Paused
			speaker.Unlock()
			h := d.handlers
			d.mu.Unlock()

			if !paused && h.OnPosition != nil {
				h.OnPosition(pos)
			}
		}
	}
}

// Play resumes output. A track that already ended restarts from the beginning.
func (d *BeepDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return shared.ErrNothingLoaded
	}

	if d.ended {
		speaker.Lock()
		err := d.streamer.Seek(0)
		d.ctrl.Paused = false
		speaker.Unlock()
		if err != nil {
			return fmt.Errorf("failed to rewind: %w", err)
		}
		d.ended = false
		d.playLocked(d.gen)
		return nil
	}

	speaker.Lock()
	d.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause halts output. It is a no-op when nothing is loaded.
func (d *BeepDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl == nil {
		return
	}
	speaker.Lock()
	d.ctrl.Paused = true
	speaker.Unlock()
}

// Seek moves to seconds, clamped to the track.
func (d *BeepDevice) Seek(seconds float64) error {
	d.mu.Lock()
	if d.streamer == nil {
		d.mu.Unlock()
		return shared.ErrNothingLoaded
	}

	speaker.Lock()
	n := d.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	n = max(0, min(n, d.streamer.Len()-1))
	err := d.streamer.Seek(n)
	pos := d.format.SampleRate.D(d.streamer.Position()).Seconds()
	speaker.Unlock()
	h := d.handlers
	d.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	if h.OnPosition != nil {
		h.OnPosition(pos)
	}
	return nil
}

// SetVolume sets the output level, clamped to [0, 1].
func (d *BeepDevice) SetVolume(level float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.level = clampLevel(level)
	if d.volume == nil {
		return
	}
	speaker.Lock()
	d.volume.Volume = levelToVolume(d.level)
	d.volume.Silent = d.level <= 0
	speaker.Unlock()
}

// Stop unloads the current track and cancels any Load in flight.
func (d *BeepDevice) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.unloadLocked()
}

// Close stops playback.
func (d *BeepDevice) Close() error {
	d.Stop()
	return nil
}

func (d *BeepDevice) unloadLocked() {
	if d.stopTick != nil {
		close(d.stopTick)
		d.stopTick = nil
	}
	if d.ctrl != nil {
		speaker.Clear()
		d.ctrl = nil
	}
	if d.streamer != nil {
		d.streamer.Close()
		d.streamer = nil
	}
	d.volume = nil
	d.ended = false
}

// Codec names returned by formatFor.
const (
	codecMP3  = "mp3"
	codecFLAC = "flac"
	codecWAV  = "wav"
)

// formatFor picks a codec from the URL extension, falling back to the Content-Type and finally mp3.
func formatFor(rawURL, contentType string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".flac":
		return codecFLAC
	case ".wav", ".wave":
		return codecWAV
	case ".mp3":
		return codecMP3
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "flac"):
		return codecFLAC
	case strings.Contains(ct, "wav"):
		return codecWAV
	default:
		return codecMP3
	}
}

func decode(rc io.ReadCloser, codec string) (beep.StreamSeekCloser, beep.Format, error) {
	switch codec {
	case codecFLAC:
		return flac.Decode(rc)
	case codecWAV:
		return wav.Decode(rc)
	default:
		return mp3.Decode(rc)
	}
}

func clampLevel(level float64) float64 {
	return max(0, min(level, 1))
}

// levelToVolume converts a 0.0-1.0 level to beep's base-2 Volume.
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (essentially silent)
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
