package playback

import "github.com/osa030/19player/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted EventType = iota // Track confirmed playing by the engine
	EventTrackEnded                    // Track finished naturally
	EventStateChanged                  // Playback state changed (load/pause/resume/stop)
	EventModeChanged                   // Repeat or shuffle mode changed
	EventQueueEnded                    // Next found no further track
	EventError                         // Load or transport failure
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventStateChanged:
		return "state_changed"
	case EventModeChanged:
		return "mode_changed"
	case EventQueueEnded:
		return "queue_ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type  EventType
	Track *track.Track // Current track (nil for some events)
	State State        // Playback state when the event was emitted
	Err   error        // Set for EventError
}
