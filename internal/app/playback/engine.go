package playback

import "context"

// Status is a point-in-time report from the audio engine.
type Status struct {
	IsLoaded      bool
	IsPlaying     bool
	IsBuffering   bool
	PositionMs    int64
	DurationMs    int64
	DidJustFinish bool   // Reached the end naturally, not a manual stop
	Error         string // Non-empty when playback broke mid-stream
}

// StatusFunc receives asynchronous status updates for one loaded resource.
// Engines must not hold internal locks while calling it.
type StatusFunc func(Status)

// OpenOptions configures a newly opened resource.
type OpenOptions struct {
	Volume   float64
	OnStatus StatusFunc
}

// Engine opens audio resources. The controller is its only caller.
type Engine interface {
	// Open loads the stream at uri. The returned handle is paused at position 0.
	Open(ctx context.Context, uri string, opts OpenOptions) (Handle, error)
}

// Handle is a single loaded audio resource.
type Handle interface {
	Play(ctx context.Context) (Status, error)
	Pause(ctx context.Context) (Status, error)
	Seek(ctx context.Context, positionMs int64) (Status, error)
	SetVolume(ctx context.Context, volume float64) (Status, error)
	// Unload releases the resource. It is best-effort and safe to call more than once.
	Unload(ctx context.Context) error
}
