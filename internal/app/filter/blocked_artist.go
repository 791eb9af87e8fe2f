package filter

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/osa030/19player/internal/domain/track"
)

// BlockedArtistConfig represents the configuration for BlockedArtistFilter.
type BlockedArtistConfig struct {
	Artists []string `yaml:"artists" mapstructure:"artists" validate:"dive,required"`
}

// BlockedArtistFilter rejects tracks by artists on a block list.
type BlockedArtistFilter struct {
	artists []string
}

func (f *BlockedArtistFilter) Name() string {
	return "blocked_artist_filter"
}

func (f *BlockedArtistFilter) Description() string {
	return "Rejects tracks by blocked artists"
}

func (f *BlockedArtistFilter) ReturnCodes() []string {
	return []string{"blocked_artist"}
}

func (f *BlockedArtistFilter) ValidateConfig(settings map[string]any) error {
	var config BlockedArtistConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.artists = lo.Map(config.Artists, func(a string, _ int) string {
		return strings.ToLower(strings.TrimSpace(a))
	})
	return nil
}

func (f *BlockedArtistFilter) Check(ctx context.Context, t track.Track, admitted []track.Track) Result {
	if lo.Contains(f.artists, strings.ToLower(strings.TrimSpace(t.ArtistName))) {
		return Reject("blocked_artist")
	}
	return Accept()
}

func init() {
	Register("blocked_artist_filter", func() Filter {
		return &BlockedArtistFilter{}
	})
}
