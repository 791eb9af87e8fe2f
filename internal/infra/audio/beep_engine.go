//go:build (linux && cgo) || windows || darwin

package audio

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19player/internal/app/playback"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// BeepConfig represents the configuration for BeepEngine.
type BeepConfig struct {
	SampleRate       int   `mapstructure:"sample_rate" default:"44100" validate:"gte=8000"`
	BufferMs         int   `mapstructure:"buffer_ms" default:"100" validate:"gt=0"`
	ResampleQuality  int   `mapstructure:"resample_quality" default:"4" validate:"gte=1,lte=64"`
	FetchTimeoutSec  int   `mapstructure:"fetch_timeout_sec" default:"30" validate:"gt=0"`
	MaxBytes         int64 `mapstructure:"max_bytes" validate:"gte=0"`
	StatusIntervalMs int   `mapstructure:"status_interval_ms" default:"250" validate:"gte=10"`
}

// BeepEngine plays audio through the system speaker.
// Streams are fetched into memory, decoded and mixed by the beep speaker.
type BeepEngine struct {
	config     BeepConfig
	fetcher    *Fetcher
	sampleRate beep.SampleRate

	initOnce sync.Once
	initErr  error
}

// NewBeepEngine creates a beep engine. The speaker is initialized on first Open.
func NewBeepEngine(config BeepConfig) *BeepEngine {
	return &BeepEngine{
		config:     config,
		fetcher:    NewFetcher(time.Duration(config.FetchTimeoutSec)*time.Second, config.MaxBytes),
		sampleRate: beep.SampleRate(config.SampleRate),
	}
}

func (e *BeepEngine) initSpeaker() error {
	e.initOnce.Do(func() {
		buffer := e.sampleRate.N(time.Duration(e.config.BufferMs) * time.Millisecond)
		if err := speaker.Init(e.sampleRate, buffer); err != nil {
			e.initErr = errors.Wrap(err, "failed to initialize speaker")
			return
		}
		zlog.Info().Msgf("audio: speaker initialized: sample_rate=%d buffer=%d", e.sampleRate, buffer)
	})
	return e.initErr
}

// Open fetches and decodes uri and attaches it to the speaker paused.
func (e *BeepEngine) Open(ctx context.Context, uri string, opts playback.OpenOptions) (playback.Handle, error) {
	data, hint, err := e.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	source, format, err := Decode(data, hint)
	if err != nil {
		return nil, err
	}

	if err := e.initSpeaker(); err != nil {
		source.Close()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		source.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	h := &beepHandle{
		uri:      uri,
		onStatus: opts.OnStatus,
		stream:   newStream(source, format, e.sampleRate, e.config.ResampleQuality, opts.Volume),
		cancel:   cancel,
	}
	h.attach()
	go h.run(runCtx, time.Duration(e.config.StatusIntervalMs)*time.Millisecond)

	zlog.Debug().Msgf("audio: opened: uri=%s sample_rate=%d duration_ms=%d", uri, format.SampleRate, h.stream.durationMs())
	return h, nil
}

type beepHandle struct {
	uri      string
	onStatus playback.StatusFunc

	// Lock order: mu, then speaker.Lock.
	mu       sync.Mutex
	stream   *stream
	ended    bool // the chain reached its end and left the mixer
	failed   bool
	unloaded bool
	cancel   context.CancelFunc
}

// attach hands the chain to the mixer. The callback runs with the speaker
// lock held, so the end of stream is handled on another goroutine.
func (h *beepHandle) attach() {
	speaker.Play(beep.Seq(h.stream.out, beep.Callback(func() {
		go h.finished()
	})))
}

func (h *beepHandle) finished() {
	h.mu.Lock()
	if h.unloaded {
		h.mu.Unlock()
		return
	}
	h.ended = true
	speaker.Lock()
	h.stream.setPaused(true)
	speaker.Unlock()
	st := h.statusLocked()
	h.mu.Unlock()

	st.DidJustFinish = true
	if h.onStatus != nil {
		h.onStatus(st)
	}
}

func (h *beepHandle) Play(ctx context.Context) (playback.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return playback.Status{}, ErrHandleUnloaded
	}
	if h.ended {
		speaker.Lock()
		err := h.stream.seekMs(0)
		speaker.Unlock()
		if err != nil {
			return playback.Status{}, err
		}
		h.ended = false
		h.attach()
	}

	speaker.Lock()
	h.stream.setPaused(false)
	speaker.Unlock()
	return h.statusLocked(), nil
}

func (h *beepHandle) Pause(ctx context.Context) (playback.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return playback.Status{}, ErrHandleUnloaded
	}
	speaker.Lock()
	h.stream.setPaused(true)
	speaker.Unlock()
	return h.statusLocked(), nil
}

func (h *beepHandle) Seek(ctx context.Context, positionMs int64) (playback.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return playback.Status{}, ErrHandleUnloaded
	}
	speaker.Lock()
	err := h.stream.seekMs(positionMs)
	speaker.Unlock()
	if err != nil {
		return playback.Status{}, err
	}
	if h.ended && positionMs < h.stream.durationMs() {
		h.ended = false
		h.attach()
	}
	return h.statusLocked(), nil
}

func (h *beepHandle) SetVolume(ctx context.Context, volume float64) (playback.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return playback.Status{}, ErrHandleUnloaded
	}
	speaker.Lock()
	h.stream.setVolume(volume)
	speaker.Unlock()
	return h.statusLocked(), nil
}

func (h *beepHandle) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return nil
	}
	h.unloaded = true
	h.cancel()

	speaker.Lock()
	err := h.stream.detach()
	speaker.Unlock()
	if err != nil {
		return errors.Wrap(err, "failed to close stream")
	}
	return nil
}

// run reports status every interval while the stream is audible.
func (h *beepHandle) run(ctx context.Context, interval time.Duration) {
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

func (h *beepHandle) poll() (playback.Status, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded || h.ended || h.failed {
		return playback.Status{}, false
	}
	st := h.statusLocked()
	if st.Error != "" {
		h.failed = true
		return st, true
	}
	return st, st.IsPlaying
}

func (h *beepHandle) statusLocked() playback.Status {
	speaker.Lock()
	defer speaker.Unlock()

	st := playback.Status{
		IsLoaded:   !h.unloaded,
		IsPlaying:  !h.ended && !h.stream.paused(),
		PositionMs: h.stream.positionMs(),
		DurationMs: h.stream.durationMs(),
	}
	if err := h.stream.err(); err != nil {
		st.IsPlaying = false
		st.Error = err.Error()
	}
	return st
}

func init() {
	Register("beep", "Speaker output via gopxl/beep (mp3, wav)", func(settings map[string]any) (playback.Engine, error) {
		var config BeepConfig
		if err := decodeSettings(settings, &config); err != nil {
			return nil, err
		}
		return NewBeepEngine(config), nil
	})
}
