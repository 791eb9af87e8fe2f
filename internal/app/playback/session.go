package playback

import (
	"slices"

	"github.com/osa030/19player/internal/app/queue"
	"github.com/osa030/19player/internal/domain/track"
)

// Session is a snapshot of the live playback state. It is never persisted.
type Session struct {
	Revision uint64 // Increases with every published mutation

	CurrentTrack *track.Track
	State        State
	IsBuffering  bool
	PositionMs   int64
	DurationMs   int64
	Volume       float64
	IsMuted      bool
	RepeatMode   queue.RepeatMode
	IsShuffled   bool
	ErrorDetail  string  // Non-empty iff State == StateError
	PlayHistory  []int64 // Track IDs, most recent first

	QueueCursor int
	QueueLength int
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	c := s
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		c.CurrentTrack = &t
	}
	c.PlayHistory = slices.Clone(s.PlayHistory)
	return c
}

// EffectiveVolume returns the volume the engine should use, 0 while muted.
func (s Session) EffectiveVolume() float64 {
	if s.IsMuted {
		return 0
	}
	return s.Volume
}

// pushHistory prepends id and evicts the oldest entries beyond limit.
func (s *Session) pushHistory(id int64, limit int) {
	s.PlayHistory = slices.Insert(s.PlayHistory, 0, id)
	if len(s.PlayHistory) > limit {
		s.PlayHistory = s.PlayHistory[:limit]
	}
}

func clampVolume(v float64) float64 {
	return max(0, min(v, 1))
}
