package filter

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/osa030/19player/internal/domain/track"
)

// TotalDurationConfig represents the configuration for TotalDurationFilter.
type TotalDurationConfig struct {
	MaxMinutes float64 `yaml:"max_minutes" mapstructure:"max_minutes" validate:"gt=0"`
}

// TotalDurationFilter rejects tracks that would start at or after the time budget.
// A track that starts before the deadline is admitted even if it ends after it,
// which keeps playback free of gaps.
type TotalDurationFilter struct {
	budget time.Duration
}

func (f *TotalDurationFilter) Name() string {
	return "total_duration_filter"
}

func (f *TotalDurationFilter) Description() string {
	return "Rejects tracks that would start after the total playback time budget"
}

func (f *TotalDurationFilter) ReturnCodes() []string {
	return []string{"time_limit_exceeded"}
}

func (f *TotalDurationFilter) ValidateConfig(settings map[string]any) error {
	var config TotalDurationConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.budget = time.Duration(config.MaxMinutes * float64(time.Minute))
	return nil
}

func (f *TotalDurationFilter) Check(ctx context.Context, t track.Track, admitted []track.Track) Result {
	if f.budget <= 0 {
		return Accept()
	}
	start := lo.SumBy(admitted, func(a track.Track) time.Duration { return a.DurationHint() })
	if start >= f.budget {
		return Reject("time_limit_exceeded")
	}
	return Accept()
}

func init() {
	Register("total_duration_filter", func() Filter {
		return &TotalDurationFilter{}
	})
}
