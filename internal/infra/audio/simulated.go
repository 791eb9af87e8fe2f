package audio

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19player/internal/app/playback"
)

// ErrHandleUnloaded is returned by commands on an unloaded handle.
var ErrHandleUnloaded = errors.New("handle unloaded")

// SimulatedConfig represents the configuration for SimulatedEngine.
type SimulatedConfig struct {
	Speed             float64 `mapstructure:"speed" default:"1" validate:"gt=0"`
	DefaultDurationMs int64   `mapstructure:"default_duration_ms" default:"180000" validate:"gt=0"`
	StatusIntervalMs  int     `mapstructure:"status_interval_ms" default:"250" validate:"gte=1"`
	OpenDelayMs       int     `mapstructure:"open_delay_ms" validate:"gte=0"`
}

// SimulatedEngine plays nothing. It tracks position against the wall clock and
// reports status like a real engine would.
//
// The stream URI query may carry duration_ms, error=open, error=play and fail_at_ms
// to shape what a track does.
type SimulatedEngine struct {
	config SimulatedConfig
	now    func() time.Time
}

// NewSimulatedEngine creates a simulated engine.
func NewSimulatedEngine(config SimulatedConfig) *SimulatedEngine {
	return &SimulatedEngine{
		config: config,
		now:    func() time.Time { return toWallTime(time.Now()) },
	}
}

// Open creates a handle for uri. No data is read.
func (e *SimulatedEngine) Open(ctx context.Context, uri string, opts playback.OpenOptions) (playback.Handle, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid stream uri %q", uri)
	}
	q := u.Query()
	if q.Get("error") == "open" {
		return nil, errors.Newf("simulated open failure: %s", uri)
	}

	if e.config.OpenDelayMs > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(e.config.OpenDelayMs) * time.Millisecond):
		}
	}

	durationMs := e.config.DefaultDurationMs
	if v, err := strconv.ParseInt(q.Get("duration_ms"), 10, 64); err == nil && v > 0 {
		durationMs = v
	}
	failAtMs, _ := strconv.ParseInt(q.Get("fail_at_ms"), 10, 64)

	runCtx, cancel := context.WithCancel(context.Background())
	h := &simHandle{
		engine:     e,
		uri:        uri,
		onStatus:   opts.OnStatus,
		durationMs: durationMs,
		volume:     opts.Volume,
		failPlay:   q.Get("error") == "play",
		failAtMs:   failAtMs,
		cancel:     cancel,
	}
	go h.run(runCtx, time.Duration(e.config.StatusIntervalMs)*time.Millisecond)

	zlog.Debug().Msgf("audio: simulated open: uri=%s duration_ms=%d", uri, durationMs)
	return h, nil
}

type simHandle struct {
	engine   *SimulatedEngine
	uri      string
	onStatus playback.StatusFunc

	mu         sync.Mutex
	durationMs int64
	baseMs     int64     // position at the last resume, pause or seek
	resumedAt  time.Time // wall time of the last resume
	playing    bool
	unloaded   bool
	failed     bool
	volume     float64
	failPlay   bool
	failAtMs   int64
	cancel     context.CancelFunc
}

func (h *simHandle) Play(ctx context.Context) (playback.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return playback.Status{}, ErrHandleUnloaded
	}
	if h.failPlay {
		return playback.Status{}, errors.Newf("simulated play failure: %s", h.uri)
	}
	if !h.playing {
		if h.baseMs >= h.durationMs {
			h.baseMs = 0
		}
		h.playing = true
		h.resumedAt = h.engine.now()
	}
	return h.statusLocked(), nil
}

func (h *simHandle) Pause(ctx context.Context) (playback.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return playback.Status{}, ErrHandleUnloaded
	}
	if h.playing {
		h.baseMs = h.positionLocked()
		h.playing = false
	}
	return h.statusLocked(), nil
}

func (h *simHandle) Seek(ctx context.Context, positionMs int64) (playback.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return playback.Status{}, ErrHandleUnloaded
	}
	h.baseMs = max(0, min(positionMs, h.durationMs))
	h.resumedAt = h.engine.now()
	return h.statusLocked(), nil
}

func (h *simHandle) SetVolume(ctx context.Context, volume float64) (playback.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return playback.Status{}, ErrHandleUnloaded
	}
	h.volume = volume
	return h.statusLocked(), nil
}

func (h *simHandle) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return nil
	}
	h.unloaded = true
	h.playing = false
	h.cancel()
	return nil
}

// run reports status every interval until the handle is unloaded.
func (h *simHandle) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if st, ok := h.poll(); ok && h.onStatus != nil {
				h.onStatus(st)
			}
		}
	}
}

// poll returns the status to report, if any. It is where a playing track
// reaches its end or its simulated failure point.
func (h *simHandle) poll() (playback.Status, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded || h.failed || !h.playing {
		return playback.Status{}, false
	}

	pos := h.positionLocked()
	if h.failAtMs > 0 && pos >= h.failAtMs {
		h.failed = true
		h.playing = false
		return playback.Status{Error: "simulated transport failure"}, true
	}
	if pos >= h.durationMs {
		h.baseMs = h.durationMs
		h.playing = false
		st := h.statusLocked()
		st.DidJustFinish = true
		return st, true
	}
	return h.statusLocked(), true
}

func (h *simHandle) positionLocked() int64 {
	if !h.playing {
		return h.baseMs
	}
	elapsed := h.engine.now().Sub(h.resumedAt)
	pos := h.baseMs + int64(float64(elapsed.Milliseconds())*h.engine.config.Speed)
	return min(pos, h.durationMs)
}

func (h *simHandle) statusLocked() playback.Status {
	return playback.Status{
		IsLoaded:   !h.unloaded,
		IsPlaying:  h.playing,
		PositionMs: h.positionLocked(),
		DurationMs: h.durationMs,
	}
}

// toWallTime returns the time with monotonic clock stripped.
// Differences are then computed on the wall clock.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}

func init() {
	Register("simulated", "Wall-clock engine without audio output", func(settings map[string]any) (playback.Engine, error) {
		var config SimulatedConfig
		if err := decodeSettings(settings, &config); err != nil {
			return nil, err
		}
		return NewSimulatedEngine(config), nil
	})
}
