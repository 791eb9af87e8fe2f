package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19player/internal/app/queue"
	"github.com/osa030/19player/internal/domain/track"
)

const (
	DefaultRestartThreshold = 3 * time.Second
	DefaultHistoryLimit     = 100
	defaultEventBuffer      = 32
)

// Config holds controller configuration.
type Config struct {
	RestartThreshold time.Duration // Previous restarts the track past this position
	HistoryLimit     int           // Max entries kept in Session.PlayHistory
	InitialVolume    float64
	InitialMuted     bool
	RepeatMode       queue.RepeatMode
	Shuffle          bool
	EventBuffer      int
}

// Publisher receives a snapshot after every mutation.
type Publisher interface {
	Publish(Session)
}

// loadRequest carries what a load needs once the lock is released.
type loadRequest struct {
	generation uint64
	prev       Handle
	track      track.Track
	volume     float64
}

// Controller owns the single audio resource and the playback session.
//
// Every command is safe to call from any goroutine. Engine calls are made without
// holding the lock; a generation counter discards completions and status updates
// that belong to a load superseded in the meantime.
type Controller struct {
	mu sync.Mutex

	engine    Engine
	queue     *queue.Queue
	publisher Publisher
	config    Config

	session            Session
	handle             Handle // nil until a load completes
	generation         uint64
	autoAdvancePending bool

	eventCh chan Event
	closed  bool
}

// NewController creates a controller around engine and q. publisher may be nil.
func NewController(engine Engine, q *queue.Queue, publisher Publisher, config Config) *Controller {
	if config.RestartThreshold <= 0 {
		config.RestartThreshold = DefaultRestartThreshold
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultHistoryLimit
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaultEventBuffer
	}

	c := &Controller{
		engine:    engine,
		queue:     q,
		publisher: publisher,
		config:    config,
		session: Session{
			State:      StateIdle,
			Volume:     clampVolume(config.InitialVolume),
			IsMuted:    config.InitialMuted,
			RepeatMode: config.RepeatMode,
			IsShuffled: config.Shuffle,
		},
		eventCh: make(chan Event, config.EventBuffer),
	}
	if config.Shuffle {
		q.ToggleShuffle(true)
	}
	return c
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Session returns a snapshot of the current session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// Queue returns the queue driven by the controller.
func (c *Controller) Queue() *queue.Queue {
	return c.queue
}

// SetQueue replaces the queue. Playback is not started or interrupted.
func (c *Controller) SetQueue(tracks []track.Track, startIndex int) {
	c.mu.Lock()
	c.setQueueLocked(tracks, startIndex)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// PlayQueue replaces the queue and starts playing the entry at startIndex.
func (c *Controller) PlayQueue(ctx context.Context, tracks []track.Track, startIndex int) {
	c.mu.Lock()
	c.setQueueLocked(tracks, startIndex)
	t, ok := c.queue.Current()
	if !ok {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
		return
	}
	req := c.beginLoadLocked(t)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	c.load(ctx, req)
}

// LoadAndPlay unloads whatever is loaded and plays t.
// The queue cursor is moved to t; a track that is not queued is inserted after the cursor.
func (c *Controller) LoadAndPlay(ctx context.Context, t track.Track) {
	c.mu.Lock()
	c.moveCursorToLocked(t)
	req := c.beginLoadLocked(t)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	c.load(ctx, req)
}

// Resume resumes a paused track. No-op when nothing is loaded.
func (c *Controller) Resume(ctx context.Context) {
	c.transport(ctx, "resume", StatePlaying, func(h Handle) (Status, error) { return h.Play(ctx) })
}

// Pause pauses the loaded track. No-op when nothing is loaded.
func (c *Controller) Pause(ctx context.Context) {
	c.transport(ctx, "pause", StatePaused, func(h Handle) (Status, error) { return h.Pause(ctx) })
}

// TogglePlayback pauses when playing and resumes otherwise.
func (c *Controller) TogglePlayback(ctx context.Context) {
	c.mu.Lock()
	playing := c.session.State == StatePlaying
	c.mu.Unlock()

	if playing {
		c.Pause(ctx)
		return
	}
	c.Resume(ctx)
}

// Seek moves the playback position. The position is clamped to the track duration
// and the stored value comes from the engine acknowledgment.
func (c *Controller) Seek(ctx context.Context, positionMs int64) {
	c.mu.Lock()
	h := c.handle
	if h == nil || c.session.State == StateLoading {
		c.mu.Unlock()
		return
	}
	clamped := max(0, positionMs)
	if d := c.session.DurationMs; d > 0 && clamped > d {
		clamped = d
	}
	if clamped != positionMs {
		zlog.Debug().Msgf("playback: %v", c.invalidCommandLocked("seek", errors.Newf("position %dms clamped to %dms", positionMs, clamped)))
	}
	gen := c.generation
	c.mu.Unlock()

	st, err := h.Seek(ctx, clamped)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.failHandleLocked(ctx, "seek", err)
		return
	}
	c.applyProgressLocked(st)
	c.session.IsBuffering = st.IsBuffering
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// SetVolume sets the volume, clamped to [0, 1].
func (c *Controller) SetVolume(ctx context.Context, volume float64) {
	clamped := clampVolume(volume)

	c.mu.Lock()
	if clamped != volume {
		zlog.Debug().Msgf("playback: %v", c.invalidCommandLocked("set_volume", errors.Newf("volume %v clamped to %v", volume, clamped)))
	}
	c.session.Volume = clamped
	c.applyVolume(ctx)
}

// SetMuted mutes or unmutes without touching the stored volume.
func (c *Controller) SetMuted(ctx context.Context, muted bool) {
	c.mu.Lock()
	c.session.IsMuted = muted
	c.applyVolume(ctx)
}

// ToggleMute flips the muted flag.
func (c *Controller) ToggleMute(ctx context.Context) {
	c.mu.Lock()
	c.session.IsMuted = !c.session.IsMuted
	c.applyVolume(ctx)
}

// Next advances to the next track according to the repeat mode.
// Under RepeatOne the current track is reloaded from the start. At the end of the
// queue playback stops and the session goes idle, keeping the queue and current track.
func (c *Controller) Next(ctx context.Context) {
	c.mu.Lock()
	c.nextLocked(ctx)
}

// nextLocked advances the queue and loads the new entry.
// Must be called with lock held; releases it.
func (c *Controller) nextLocked(ctx context.Context) {
	mode := c.session.RepeatMode
	if mode == queue.RepeatOne && c.session.CurrentTrack != nil {
		req := c.beginLoadLocked(*c.session.CurrentTrack)
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.publish(snap)
		c.load(ctx, req)
		return
	}

	next, ok := c.queue.Advance(mode)
	if !ok {
		zlog.Debug().Msgf("playback: %s, stopping", KindEmptyQueueAdvance)
		prev := c.stopLocked()
		c.sendEventLocked(Event{Type: EventQueueEnded, Track: c.session.CurrentTrack, State: c.session.State})
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.publish(snap)
		c.unload(ctx, prev, 0)
		return
	}

	c.playIndexLocked(ctx, next)
}

// Previous restarts the current track when it has played past the restart threshold,
// otherwise moves to the previous track. Without a previous track it restarts.
func (c *Controller) Previous(ctx context.Context) {
	c.mu.Lock()

	if c.session.PositionMs > c.config.RestartThreshold.Milliseconds() {
		c.mu.Unlock()
		c.restart(ctx)
		return
	}

	prev, ok := c.queue.Retreat(c.session.RepeatMode)
	if !ok {
		c.mu.Unlock()
		c.restart(ctx)
		return
	}

	c.playIndexLocked(ctx, prev)
}

// PlayIndex moves the cursor to index and plays that entry.
func (c *Controller) PlayIndex(ctx context.Context, index int) {
	c.mu.Lock()
	if _, ok := c.queue.At(index); !ok {
		zlog.Warn().Msgf("playback: %v", c.invalidCommandLocked("play_index", errors.Newf("index %d out of range", index)))
		c.mu.Unlock()
		return
	}
	c.playIndexLocked(ctx, index)
}

// ToggleRepeat cycles Off -> All -> One -> Off and returns the new mode.
func (c *Controller) ToggleRepeat() queue.RepeatMode {
	c.mu.Lock()
	mode := c.session.RepeatMode.Next()
	c.setRepeatModeLocked(mode)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	return mode
}

// SetRepeatMode sets the repeat mode.
func (c *Controller) SetRepeatMode(mode queue.RepeatMode) {
	c.mu.Lock()
	c.setRepeatModeLocked(mode)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// ToggleShuffle flips shuffle and returns the new flag. The loaded track keeps playing;
// only the upcoming order changes.
func (c *Controller) ToggleShuffle() bool {
	c.mu.Lock()
	on := !c.session.IsShuffled
	c.setShuffleLocked(on)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	return on
}

// SetShuffle enables or disables shuffle.
func (c *Controller) SetShuffle(on bool) {
	c.mu.Lock()
	c.setShuffleLocked(on)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// InsertNext queues t right after the current track.
func (c *Controller) InsertNext(t track.Track) {
	c.mu.Lock()
	c.queue.InsertNext(t)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// Append queues t at the end.
func (c *Controller) Append(t track.Track) {
	c.mu.Lock()
	c.queue.Append(t)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// RemoveAt removes the queue entry at index. Removing the current entry unloads it;
// if playback was running the entry that takes its slot is played, otherwise the
// session goes idle.
func (c *Controller) RemoveAt(ctx context.Context, index int) {
	c.mu.Lock()

	cursor := c.queue.Cursor()
	if err := c.queue.RemoveAt(index); err != nil {
		zlog.Warn().Msgf("playback: %v", c.invalidCommandLocked("remove", err))
		c.mu.Unlock()
		return
	}

	if index != cursor {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
		return
	}

	state := c.session.State
	if t, ok := c.queue.Current(); ok && (state == StatePlaying || state == StateLoading) {
		req := c.beginLoadLocked(t)
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.publish(snap)
		c.load(ctx, req)
		return
	}

	prev := c.stopLocked()
	c.session.CurrentTrack = nil
	c.session.PositionMs = 0
	c.session.DurationMs = 0
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	c.unload(ctx, prev, 0)
}

// Stop unloads the current resource and goes idle. Queue and current track are kept.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	prev := c.stopLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	c.unload(ctx, prev, 0)
}

// Reset stops playback, clears the queue and starts a fresh session.
// Volume, mute, repeat and shuffle settings survive.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	prev := c.stopLocked()
	c.queue.Clear()
	c.queue.ToggleShuffle(c.session.IsShuffled)
	c.session = Session{
		Revision:   c.session.Revision,
		State:      StateIdle,
		Volume:     c.session.Volume,
		IsMuted:    c.session.IsMuted,
		RepeatMode: c.session.RepeatMode,
		IsShuffled: c.session.IsShuffled,
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	c.unload(ctx, prev, 0)
}

// Tick consumes a pending auto-advance and performs it. It returns true if
// an advance happened. Drivers call it from their own loop, never from an engine callback.
func (c *Controller) Tick(ctx context.Context) bool {
	c.mu.Lock()
	if !c.autoAdvancePending {
		c.mu.Unlock()
		return false
	}
	c.autoAdvancePending = false

	zlog.Debug().Msg("playback: auto-advancing after natural finish")
	c.nextLocked(ctx)
	return true
}

// Run pumps Tick every interval until ctx is done.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Close stops playback and closes the event channel.
func (c *Controller) Close() {
	c.Stop(context.Background())

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
}

// load opens req.track on the engine and starts playback.
// Must be called without the lock held.
func (c *Controller) load(ctx context.Context, req loadRequest) {
	c.unload(ctx, req.prev, req.track.ID)

	gen := req.generation
	h, err := c.engine.Open(ctx, req.track.StreamURI, OpenOptions{
		Volume:   req.volume,
		OnStatus: func(st Status) { c.handleStatus(gen, st) },
	})
	if err != nil {
		c.failLoad(gen, newError(KindLoadFailure, "open", req.track.ID, err))
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		zlog.Debug().Msgf("playback: discarding superseded load: track=%d", req.track.ID)
		c.unload(ctx, h, req.track.ID)
		return
	}
	c.handle = h
	volume := c.session.EffectiveVolume()
	c.mu.Unlock()

	// Volume or mute may have changed while Open was in flight.
	if volume != req.volume {
		if _, err := h.SetVolume(ctx, volume); err != nil {
			c.mu.Lock()
			if gen != c.generation {
				c.mu.Unlock()
				return
			}
			c.failHandleLocked(ctx, "set_volume", err)
			return
		}
	}

	st, err := h.Play(ctx)

	c.mu.Lock()
	if gen != c.generation {
		// The newer load took over h and unloads it.
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.handle = nil
		c.generation++
		c.failLocked(newError(KindLoadFailure, "play", req.track.ID, err))
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.publish(snap)
		c.unload(ctx, h, req.track.ID)
		return
	}

	c.session.State = StatePlaying
	c.session.IsBuffering = st.IsBuffering
	c.applyProgressLocked(st)
	c.session.pushHistory(req.track.ID, c.config.HistoryLimit)
	c.sendEventLocked(Event{Type: EventTrackStarted, Track: c.session.CurrentTrack, State: c.session.State})
	snap := c.snapshotLocked()
	c.mu.Unlock()

	zlog.Debug().Msgf("playback: track started: id=%d title=%s", req.track.ID, req.track.Title)
	c.publish(snap)
}

// handleStatus is the single ingestion point for engine status updates.
func (c *Controller) handleStatus(gen uint64, st Status) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}

	if st.Error != "" {
		var trackID int64
		if c.session.CurrentTrack != nil {
			trackID = c.session.CurrentTrack.ID
		}
		h := c.handle
		c.handle = nil
		c.generation++
		c.failLocked(newError(KindTransportFailure, "status", trackID, errors.New(st.Error)))
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.publish(snap)
		c.unload(context.Background(), h, trackID)
		return
	}

	if !st.IsLoaded {
		c.mu.Unlock()
		return
	}

	c.applyProgressLocked(st)
	c.session.IsBuffering = st.IsBuffering

	switch c.session.State {
	case StatePlaying, StatePaused:
		switch {
		case st.DidJustFinish:
			c.session.PositionMs = c.session.DurationMs
			if !c.autoAdvancePending {
				c.autoAdvancePending = true
				c.sendEventLocked(Event{Type: EventTrackEnded, Track: c.session.CurrentTrack, State: c.session.State})
			}
		case st.IsPlaying:
			c.session.State = StatePlaying
		case !st.IsBuffering:
			c.session.State = StatePaused
		}
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// transport forwards a play/pause command and applies the acknowledged state.
func (c *Controller) transport(ctx context.Context, op string, target State, call func(Handle) (Status, error)) {
	c.mu.Lock()
	h := c.handle
	if h == nil || c.session.State == StateLoading {
		c.mu.Unlock()
		return
	}
	gen := c.generation
	c.mu.Unlock()

	st, err := call(h)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.failHandleLocked(ctx, op, err)
		return
	}
	c.session.State = target
	c.session.IsBuffering = st.IsBuffering
	c.applyProgressLocked(st)
	c.sendEventLocked(Event{Type: EventStateChanged, Track: c.session.CurrentTrack, State: c.session.State})
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// applyVolume publishes the volume/mute change and forwards it to the engine.
// Must be called with lock held; releases it.
func (c *Controller) applyVolume(ctx context.Context) {
	h := c.handle
	volume := c.session.EffectiveVolume()
	gen := c.generation
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	if h == nil {
		return
	}

	if _, err := h.SetVolume(ctx, volume); err != nil {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		c.failHandleLocked(ctx, "set_volume", err)
	}
}

// restart plays the current track from the beginning without changing the cursor.
func (c *Controller) restart(ctx context.Context) {
	c.mu.Lock()
	if c.handle != nil && c.session.State != StateLoading {
		c.mu.Unlock()
		c.Seek(ctx, 0)
		return
	}

	var t track.Track
	switch {
	case c.session.CurrentTrack != nil:
		t = *c.session.CurrentTrack
	default:
		cur, ok := c.queue.Current()
		if !ok {
			c.mu.Unlock()
			return
		}
		t = cur
	}
	req := c.beginLoadLocked(t)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	c.load(ctx, req)
}

// playIndexLocked moves the cursor and loads the entry.
// Must be called with lock held; releases it.
func (c *Controller) playIndexLocked(ctx context.Context, index int) {
	if err := c.queue.SetCursor(index); err != nil {
		zlog.Warn().Msgf("playback: %v", err)
		c.mu.Unlock()
		return
	}
	t, _ := c.queue.At(index)
	req := c.beginLoadLocked(t)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	c.load(ctx, req)
}

// beginLoadLocked supersedes any loaded or in-flight resource and enters Loading.
// Must be called with lock held.
func (c *Controller) beginLoadLocked(t track.Track) loadRequest {
	c.generation++
	c.autoAdvancePending = false

	prev := c.handle
	c.handle = nil

	c.session.State = StateLoading
	c.session.CurrentTrack = &t
	c.session.PositionMs = 0
	c.session.DurationMs = t.DurationHintMs
	c.session.IsBuffering = false
	c.session.ErrorDetail = ""
	c.sendEventLocked(Event{Type: EventStateChanged, Track: c.session.CurrentTrack, State: c.session.State})

	return loadRequest{
		generation: c.generation,
		prev:       prev,
		track:      t,
		volume:     c.session.EffectiveVolume(),
	}
}

// stopLocked drops the handle and goes idle. The caller unloads the returned handle.
// Must be called with lock held.
func (c *Controller) stopLocked() Handle {
	prev := c.handle
	c.handle = nil
	c.generation++
	c.autoAdvancePending = false

	c.session.State = StateIdle
	c.session.IsBuffering = false
	c.session.ErrorDetail = ""
	c.sendEventLocked(Event{Type: EventStateChanged, Track: c.session.CurrentTrack, State: c.session.State})
	return prev
}

// failLoad records a load failure unless the load was superseded.
func (c *Controller) failLoad(gen uint64, err *Error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		zlog.Debug().Msgf("playback: ignoring failure of superseded load: %v", err)
		return
	}
	c.generation++
	c.failLocked(err)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// failHandleLocked turns a failed command on the loaded handle into a transport failure.
// Must be called with lock held; releases it.
func (c *Controller) failHandleLocked(ctx context.Context, op string, err error) {
	var trackID int64
	if c.session.CurrentTrack != nil {
		trackID = c.session.CurrentTrack.ID
	}
	h := c.handle
	c.handle = nil
	c.generation++
	c.failLocked(newError(KindTransportFailure, op, trackID, err))
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	c.unload(ctx, h, trackID)
}

// failLocked moves the session into the error state.
// Must be called with lock held.
func (c *Controller) failLocked(err *Error) {
	zlog.Error().Err(err).Msg("playback: engine failure")

	c.autoAdvancePending = false
	c.session.State = StateError
	c.session.ErrorDetail = err.Error()
	c.session.CurrentTrack = nil
	c.session.PositionMs = 0
	c.session.IsBuffering = false
	c.sendEventLocked(Event{Type: EventError, State: c.session.State, Err: err})
}

// unload releases h best-effort. Failures are logged and never block the caller's next step.
func (c *Controller) unload(ctx context.Context, h Handle, trackID int64) {
	if h == nil {
		return
	}
	if err := h.Unload(context.WithoutCancel(ctx)); err != nil {
		zlog.Warn().Msgf("playback: failed to unload previous resource: track=%d error=%v", trackID, err)
	}
}

// moveCursorToLocked points the cursor at t, inserting it after the cursor if it is not queued.
// Must be called with lock held.
func (c *Controller) moveCursorToLocked(t track.Track) {
	if cur, ok := c.queue.Current(); ok && cur.ID == t.ID {
		return
	}
	if i := c.queue.Locate(t.ID); i >= 0 {
		_ = c.queue.SetCursor(i)
		return
	}

	c.queue.InsertNext(t)
	if c.queue.Len() > 1 {
		_ = c.queue.SetCursor(c.queue.Cursor() + 1)
	}
}

func (c *Controller) setQueueLocked(tracks []track.Track, startIndex int) {
	c.queue.SetQueue(tracks, startIndex)
	if c.session.IsShuffled {
		c.queue.ToggleShuffle(true)
	}
}

func (c *Controller) setRepeatModeLocked(mode queue.RepeatMode) {
	c.session.RepeatMode = mode
	c.sendEventLocked(Event{Type: EventModeChanged, Track: c.session.CurrentTrack, State: c.session.State})
}

func (c *Controller) setShuffleLocked(on bool) {
	c.queue.ToggleShuffle(on)
	c.session.IsShuffled = on
	c.sendEventLocked(Event{Type: EventModeChanged, Track: c.session.CurrentTrack, State: c.session.State})
}

func (c *Controller) applyProgressLocked(st Status) {
	if st.DurationMs > 0 {
		c.session.DurationMs = st.DurationMs
	}
	c.session.PositionMs = max(0, st.PositionMs)
}

func (c *Controller) invalidCommandLocked(op string, err error) *Error {
	var trackID int64
	if c.session.CurrentTrack != nil {
		trackID = c.session.CurrentTrack.ID
	}
	return newError(KindInvalidCommand, op, trackID, err)
}

// snapshotLocked bumps the revision and returns a copy for publishing.
// Must be called with lock held.
func (c *Controller) snapshotLocked() Session {
	c.session.Revision++
	c.session.QueueCursor = c.queue.Cursor()
	c.session.QueueLength = c.queue.Len()
	return c.session.Clone()
}

func (c *Controller) publish(s Session) {
	if c.publisher != nil {
		c.publisher.Publish(s)
	}
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	if e.Track != nil {
		t := *e.Track
		e.Track = &t
	}
	select {
	case c.eventCh <- e:
	default:
		// Channel full, drop event
	}
}
