package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "beep")
	assert.Contains(t, names, "simulated")
	assert.IsIncreasing(t, names)
	assert.NotEmpty(t, Describe("simulated"))
}

func TestNew_Simulated(t *testing.T) {
	e, err := New("simulated", map[string]any{"speed": "2", "status_interval_ms": 50})
	require.NoError(t, err)

	sim, ok := e.(*SimulatedEngine)
	require.True(t, ok)
	assert.InDelta(t, 2.0, sim.config.Speed, 1e-9)
	assert.Equal(t, 50, sim.config.StatusIntervalMs)
	assert.Equal(t, int64(180000), sim.config.DefaultDurationMs)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name     string
		engine   string
		settings map[string]any
	}{
		{"unknown engine", "cassette", nil},
		{"unknown setting", "simulated", map[string]any{"sped": 2}},
		{"invalid setting", "simulated", map[string]any{"speed": -1}},
		{"bad type", "simulated", map[string]any{"speed": "fast"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.engine, tt.settings)
			assert.Error(t, err)
		})
	}

	_, err := New("cassette", nil)
	assert.ErrorIs(t, err, ErrUnknownEngine)
}
