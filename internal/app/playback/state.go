// Package playback provides the playback controller that drives a single-stream audio engine.
package playback

// State represents the top-level playback state.
// Buffering is reported separately as a flag on the session.
type State int

const (
	StateIdle    State = iota // Nothing loaded, or the queue ran out
	StateLoading              // A load is in flight
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
	StateError                // The last load or playback failed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsActive returns true for states in which a track is loaded or being loaded.
func (s State) IsActive() bool {
	return s == StateLoading || s == StatePlaying || s == StatePaused
}
