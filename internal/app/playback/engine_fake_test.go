package playback

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

const fakeDurationMs = 180000

// fakeEngine records every opened handle. Opens for a URI can be held back with gate
// and failed with failOpen, failPlay or failVolume.
type fakeEngine struct {
	mu       sync.Mutex
	handles  []*fakeHandle
	gates    map[string]chan struct{}
	openErrs map[string]error
	playErrs map[string]error
	volErrs  map[string]error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		gates:    make(map[string]chan struct{}),
		openErrs: make(map[string]error),
		playErrs: make(map[string]error),
		volErrs:  make(map[string]error),
	}
}

func (e *fakeEngine) gate(uri string) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan struct{})
	e.gates[uri] = ch
	return ch
}

func (e *fakeEngine) failOpen(uri string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openErrs[uri] = err
}

func (e *fakeEngine) failPlay(uri string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playErrs[uri] = err
}

func (e *fakeEngine) failVolume(uri string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volErrs[uri] = err
}

func (e *fakeEngine) Open(ctx context.Context, uri string, opts OpenOptions) (Handle, error) {
	e.mu.Lock()
	gate := e.gates[uri]
	delete(e.gates, uri)
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.openErrs[uri]; err != nil {
		return nil, err
	}
	h := &fakeHandle{
		uri:        uri,
		onStatus:   opts.OnStatus,
		volume:     opts.Volume,
		durationMs: fakeDurationMs,
		playErr:    e.playErrs[uri],
		volumeErr:  e.volErrs[uri],
	}
	e.handles = append(e.handles, h)
	return h, nil
}

func (e *fakeEngine) opened() []*fakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]*fakeHandle, len(e.handles))
	copy(result, e.handles)
	return result
}

func (e *fakeEngine) last() *fakeHandle {
	hs := e.opened()
	if len(hs) == 0 {
		return nil
	}
	return hs[len(hs)-1]
}

type fakeHandle struct {
	mu         sync.Mutex
	uri        string
	onStatus   StatusFunc
	playing    bool
	positionMs int64
	durationMs int64
	volume     float64
	seeks      []int64
	unloads    int

	playErr   error
	seekErr   error
	volumeErr error
	unloadErr error
}

func (h *fakeHandle) statusLocked() Status {
	return Status{
		IsLoaded:   h.unloads == 0,
		IsPlaying:  h.playing,
		PositionMs: h.positionMs,
		DurationMs: h.durationMs,
	}
}

func (h *fakeHandle) Play(ctx context.Context) (Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.playErr != nil {
		return Status{}, h.playErr
	}
	if h.unloads > 0 {
		return Status{}, errors.New("handle unloaded")
	}
	h.playing = true
	return h.statusLocked(), nil
}

func (h *fakeHandle) Pause(ctx context.Context) (Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
	return h.statusLocked(), nil
}

// Seek rounds down to 100ms, the way a device might.
func (h *fakeHandle) Seek(ctx context.Context, positionMs int64) (Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seekErr != nil {
		return Status{}, h.seekErr
	}
	h.seeks = append(h.seeks, positionMs)
	h.positionMs = positionMs / 100 * 100
	return h.statusLocked(), nil
}

func (h *fakeHandle) SetVolume(ctx context.Context, volume float64) (Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.volumeErr != nil {
		return Status{}, h.volumeErr
	}
	h.volume = volume
	return h.statusLocked(), nil
}

func (h *fakeHandle) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unloads++
	h.playing = false
	return h.unloadErr
}

func (h *fakeHandle) unloadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unloads
}

func (h *fakeHandle) currentVolume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (h *fakeHandle) seekCalls() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]int64, len(h.seeks))
	copy(result, h.seeks)
	return result
}

// emit pushes a status update through the callback the controller registered.
func (h *fakeHandle) emit(st Status) {
	h.onStatus(st)
}

// recorder collects published snapshots.
type recorder struct {
	mu        sync.Mutex
	snapshots []Session
}

func (r *recorder) Publish(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]State, len(r.snapshots))
	for i, s := range r.snapshots {
		result[i] = s.State
	}
	return result
}
