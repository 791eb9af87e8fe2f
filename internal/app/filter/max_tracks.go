package filter

import (
	"context"

	"github.com/osa030/19player/internal/domain/track"
)

// MaxTracksConfig represents the configuration for MaxTracksFilter.
type MaxTracksConfig struct {
	Max int `yaml:"max" mapstructure:"max" default:"500" validate:"gte=1"`
}

// MaxTracksFilter caps how many tracks are admitted.
type MaxTracksFilter struct {
	max int
}

func (f *MaxTracksFilter) Name() string {
	return "max_tracks_filter"
}

func (f *MaxTracksFilter) Description() string {
	return "Rejects tracks once the admitted count reaches the limit"
}

func (f *MaxTracksFilter) ReturnCodes() []string {
	return []string{"max_tracks_exceeded"}
}

func (f *MaxTracksFilter) ValidateConfig(settings map[string]any) error {
	var config MaxTracksConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.max = config.Max
	return nil
}

func (f *MaxTracksFilter) Check(ctx context.Context, t track.Track, admitted []track.Track) Result {
	if f.max > 0 && len(admitted) >= f.max {
		return Reject("max_tracks_exceeded")
	}
	return Accept()
}

func init() {
	Register("max_tracks_filter", func() Filter {
		return &MaxTracksFilter{}
	})
}
