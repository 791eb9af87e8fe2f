package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(t *testing.T) *stream {
	t.Helper()

	source, format, err := Decode(silentWAV(t), ".wav")
	require.NoError(t, err)
	s := newStream(source, format, format.SampleRate, 4, 1)
	t.Cleanup(func() { s.detach() })
	return s
}

func TestStream_StartsPaused(t *testing.T) {
	s := newTestStream(t)

	assert.True(t, s.paused())
	assert.Equal(t, int64(0), s.positionMs())
	assert.Equal(t, int64(1000), s.durationMs())

	// A paused chain streams silence without consuming the source.
	buf := make([][2]float64, 800)
	n, ok := s.out.Stream(buf)
	assert.Equal(t, 800, n)
	assert.True(t, ok)
	assert.Equal(t, int64(0), s.positionMs())
}

func TestStream_PlayAdvances(t *testing.T) {
	s := newTestStream(t)
	s.setPaused(false)

	buf := make([][2]float64, 800)
	n, ok := s.out.Stream(buf)
	assert.Equal(t, 800, n)
	assert.True(t, ok)
	assert.Equal(t, int64(100), s.positionMs())
}

func TestStream_SeekClamps(t *testing.T) {
	s := newTestStream(t)

	require.NoError(t, s.seekMs(500))
	assert.Equal(t, int64(500), s.positionMs())

	require.NoError(t, s.seekMs(5000))
	assert.Equal(t, int64(1000), s.positionMs())

	require.NoError(t, s.seekMs(-10))
	assert.Equal(t, int64(0), s.positionMs())
}

func TestStream_DetachEndsChain(t *testing.T) {
	source, format, err := Decode(silentWAV(t), ".wav")
	require.NoError(t, err)
	s := newStream(source, format, format.SampleRate, 4, 1)
	s.setPaused(false)

	require.NoError(t, s.detach())
	assert.True(t, s.paused())

	_, ok := s.ctrl.Stream(make([][2]float64, 10))
	assert.False(t, ok)
}

func TestVolumeGain(t *testing.T) {
	tests := []struct {
		volume     float64
		wantSilent bool
		wantGain   float64
	}{
		{0, true, 0},
		{-1, true, 0},
		{1, false, 0},
		{2, false, 0},
		{0.5, false, -1},
		{0.25, false, -2},
	}
	for _, tt := range tests {
		silent, gain := volumeGain(tt.volume)
		assert.Equal(t, tt.wantSilent, silent, "volume %v", tt.volume)
		assert.InDelta(t, tt.wantGain, gain, 1e-9, "volume %v", tt.volume)
	}

	_, gain := volumeGain(0.8)
	assert.InDelta(t, math.Log2(0.8), gain, 1e-9)
}

func TestStream_SetVolume(t *testing.T) {
	s := newTestStream(t)

	s.setVolume(0)
	assert.True(t, s.volume.Silent)

	s.setVolume(0.5)
	assert.False(t, s.volume.Silent)
	assert.InDelta(t, -1, s.volume.Volume, 1e-9)
}
