// Package state provides the playback session store.
package state

import (
	"github.com/osa030/19player/internal/app/playback"
)

// Change is a set of flags describing what differs between two snapshots.
type Change uint8

const (
	ChangeTrack    Change = 1 << iota // Current track replaced or cleared
	ChangeState                       // Lifecycle state or buffering overlay
	ChangeProgress                    // Position or duration
	ChangeSettings                    // Volume, mute, repeat or shuffle
	ChangeQueue                       // Cursor or queue length
	ChangeError                       // Error detail
)

// Has reports whether all flags in o are set.
func (c Change) Has(o Change) bool {
	return c&o == o
}

// String returns the string representation of the change set.
func (c Change) String() string {
	if c == 0 {
		return "none"
	}
	names := []struct {
		flag Change
		name string
	}{
		{ChangeTrack, "track"},
		{ChangeState, "state"},
		{ChangeProgress, "progress"},
		{ChangeSettings, "settings"},
		{ChangeQueue, "queue"},
		{ChangeError, "error"},
	}
	s := ""
	for _, n := range names {
		if c.Has(n.flag) {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	return s
}

// Diff returns the changes between prev and next.
func Diff(prev, next playback.Session) Change {
	var c Change
	if trackID(prev) != trackID(next) {
		c |= ChangeTrack
	}
	if prev.State != next.State || prev.IsBuffering != next.IsBuffering {
		c |= ChangeState
	}
	if prev.PositionMs != next.PositionMs || prev.DurationMs != next.DurationMs {
		c |= ChangeProgress
	}
	if prev.Volume != next.Volume || prev.IsMuted != next.IsMuted ||
		prev.RepeatMode != next.RepeatMode || prev.IsShuffled != next.IsShuffled {
		c |= ChangeSettings
	}
	if prev.QueueCursor != next.QueueCursor || prev.QueueLength != next.QueueLength {
		c |= ChangeQueue
	}
	if prev.ErrorDetail != next.ErrorDetail {
		c |= ChangeError
	}
	return c
}

// Subscriber is called with every accepted snapshot and what changed since the previous one.
type Subscriber func(session playback.Session, change Change)

func trackID(s playback.Session) int64 {
	if s.CurrentTrack == nil {
		return 0
	}
	return s.CurrentTrack.ID
}
