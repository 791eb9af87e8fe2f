package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19player/internal/domain/track"
)

// Spec names a filter and its settings, as read from configuration.
type Spec struct {
	Name     string
	Settings map[string]any
}

// Rejection records a track a chain refused and why.
type Rejection struct {
	Track  track.Track
	Filter string
	Code   string
}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Build creates a chain from specs, in order.
func Build(specs []Spec) (*Chain, error) {
	c := NewChain()
	for _, s := range specs {
		f, err := New(s.Name, s.Settings)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build filter chain")
		}
		c.Add(f)
	}
	return c, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
func (c *Chain) Execute(ctx context.Context, t track.Track, admitted []track.Track) (Result, string) {
	for _, f := range c.filters {
		result := f.Check(ctx, t, admitted)
		if !result.Accepted {
			return result, f.Name()
		}
	}
	return Accept(), ""
}

// Apply runs the chain over tracks in order. Each track is checked against the tracks
// admitted before it.
func (c *Chain) Apply(ctx context.Context, tracks []track.Track) ([]track.Track, []Rejection) {
	admitted := make([]track.Track, 0, len(tracks))
	var rejected []Rejection

	for _, t := range tracks {
		result, name := c.Execute(ctx, t, admitted)
		if !result.Accepted {
			zlog.Debug().Msgf("filter: track rejected: track_id=%d title=%s filter=%s reason=%s", t.ID, t.Title, name, result.Code)
			rejected = append(rejected, Rejection{Track: t, Filter: name, Code: result.Code})
			continue
		}
		admitted = append(admitted, t)
	}
	return admitted, rejected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
