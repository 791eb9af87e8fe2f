package filter

import (
	"context"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"github.com/osa030/19player/internal/domain/track"
)

// StreamSchemeConfig represents the configuration for StreamSchemeFilter.
type StreamSchemeConfig struct {
	Schemes []string `yaml:"schemes" mapstructure:"schemes" default:"[\"http\",\"https\",\"file\"]" validate:"min=1,dive,required"`
}

// StreamSchemeFilter checks that the track has a stream URI the engines can open.
type StreamSchemeFilter struct {
	schemes []string
}

// NewStreamSchemeFilter creates a filter accepting the given URI schemes.
func NewStreamSchemeFilter(schemes ...string) *StreamSchemeFilter {
	return &StreamSchemeFilter{schemes: lo.Map(schemes, func(s string, _ int) string { return strings.ToLower(s) })}
}

func (f *StreamSchemeFilter) Name() string {
	return "stream_scheme_filter"
}

func (f *StreamSchemeFilter) Description() string {
	return "Checks that the track has a stream URI with a supported scheme"
}

func (f *StreamSchemeFilter) ReturnCodes() []string {
	return []string{"unplayable", "unsupported_scheme"}
}

func (f *StreamSchemeFilter) ValidateConfig(settings map[string]any) error {
	var config StreamSchemeConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	*f = *NewStreamSchemeFilter(config.Schemes...)
	return nil
}

func (f *StreamSchemeFilter) Check(ctx context.Context, t track.Track, admitted []track.Track) Result {
	if !t.IsPlayable() {
		return Reject("unplayable")
	}
	if len(f.schemes) == 0 {
		return Accept()
	}

	u, err := url.Parse(t.StreamURI)
	if err != nil {
		return Reject("unplayable")
	}
	// Bare paths are local files
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "file"
	}
	if !lo.Contains(f.schemes, scheme) {
		return Reject("unsupported_scheme")
	}
	return Accept()
}

func init() {
	Register("stream_scheme_filter", func() Filter {
		return NewStreamSchemeFilter("http", "https", "file")
	})
}
