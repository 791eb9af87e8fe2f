// Package track provides the Track domain entity.
package track

import "time"

// Track represents a playable catalog entry.
// Tracks are supplied by upstream catalog services and never mutated by the player.
type Track struct {
	ID             int64  `yaml:"id" validate:"required"`
	Title          string `yaml:"title"`
	ArtistName     string `yaml:"artist"`
	StreamURI      string `yaml:"stream_uri"`
	CoverURI       string `yaml:"cover_uri"`
	DurationHintMs int64  `yaml:"duration_ms" validate:"gte=0"`
}

// DurationHint returns the catalog duration as a time.Duration.
func (t Track) DurationHint() time.Duration {
	return time.Duration(t.DurationHintMs) * time.Millisecond
}

// IsPlayable reports whether the track carries a stream URI.
func (t Track) IsPlayable() bool {
	return t.StreamURI != ""
}

// DisplayName returns "artist - title", or just the title when the artist is unknown.
func (t Track) DisplayName() string {
	if t.ArtistName == "" {
		return t.Title
	}
	return t.ArtistName + " - " + t.Title
}
