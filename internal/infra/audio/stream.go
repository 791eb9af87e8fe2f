package audio

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// stream is the decode -> pause -> volume -> resample chain for one loaded track.
// Callers serialize access; the beep engine does so with speaker.Lock.
type stream struct {
	source beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	volume *effects.Volume
	out    beep.Streamer
}

func newStream(source beep.StreamSeekCloser, format beep.Format, target beep.SampleRate, quality int, volume float64) *stream {
	s := &stream{
		source: source,
		format: format,
		ctrl:   &beep.Ctrl{Streamer: source, Paused: true},
	}
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 2}
	s.setVolume(volume)

	s.out = s.volume
	if format.SampleRate != target {
		s.out = beep.Resample(quality, format.SampleRate, target, s.volume)
	}
	return s
}

// setVolume maps a linear [0, 1] volume onto the exponential gain of effects.Volume.
func (s *stream) setVolume(v float64) {
	silent, gain := volumeGain(v)
	s.volume.Silent = silent
	s.volume.Volume = gain
}

func volumeGain(v float64) (silent bool, gain float64) {
	if v <= 0 {
		return true, 0
	}
	return false, math.Log2(min(v, 1))
}

func (s *stream) setPaused(paused bool) {
	s.ctrl.Paused = paused
}

func (s *stream) paused() bool {
	return s.ctrl.Paused
}

func (s *stream) positionMs() int64 {
	return s.format.SampleRate.D(s.source.Position()).Milliseconds()
}

func (s *stream) durationMs() int64 {
	return s.format.SampleRate.D(s.source.Len()).Milliseconds()
}

func (s *stream) seekMs(ms int64) error {
	n := s.format.SampleRate.N(time.Duration(ms) * time.Millisecond)
	n = max(0, min(n, s.source.Len()))
	if err := s.source.Seek(n); err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	return nil
}

func (s *stream) err() error {
	return s.source.Err()
}

// detach silences the chain and releases the decoder.
func (s *stream) detach() error {
	s.ctrl.Paused = true
	s.ctrl.Streamer = nil
	return s.source.Close()
}
