// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/osa030/19player/internal/domain/track"
)

// Playlist represents a named, ordered list of tracks.
type Playlist struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name" validate:"required"`
	Description string        `yaml:"description"`
	StartIndex  int           `yaml:"start_index" validate:"gte=0"`
	Tracks      []track.Track `yaml:"tracks" validate:"dive"`
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []int64 {
	ids := make([]int64, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDuration returns the sum of the duration hints of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.DurationHint()
	}
	return total
}
