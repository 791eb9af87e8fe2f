// Package settings persists the user's playback preferences between runs.
package settings

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/osa030/19player/internal/app/playback"
	"github.com/osa030/19player/internal/app/queue"
	"github.com/osa030/19player/internal/app/session/state"
)

// Settings holds the preferences that survive a restart.
// The playback session itself is never persisted.
type Settings struct {
	Volume  float64 `yaml:"volume" validate:"gte=0,lte=1"`
	Muted   bool    `yaml:"muted"`
	Repeat  string  `yaml:"repeat" validate:"oneof=off all one"`
	Shuffle bool    `yaml:"shuffle"`
}

// FromConfig returns the settings implied by a controller configuration.
func FromConfig(cfg playback.Config) Settings {
	return Settings{
		Volume:  cfg.InitialVolume,
		Muted:   cfg.InitialMuted,
		Repeat:  cfg.RepeatMode.String(),
		Shuffle: cfg.Shuffle,
	}
}

// FromSession extracts the persisted fields of a session snapshot.
func FromSession(s playback.Session) Settings {
	return Settings{
		Volume:  s.Volume,
		Muted:   s.IsMuted,
		Repeat:  s.RepeatMode.String(),
		Shuffle: s.IsShuffled,
	}
}

// Apply copies s onto the initial values of cfg.
func (s Settings) Apply(cfg *playback.Config) error {
	mode, err := queue.ParseRepeatMode(s.Repeat)
	if err != nil {
		return err
	}
	cfg.InitialVolume = s.Volume
	cfg.InitialMuted = s.Muted
	cfg.RepeatMode = mode
	cfg.Shuffle = s.Shuffle
	return nil
}

// Load reads settings from path on top of fallback.
// A missing file is not an error; fallback is returned with found set to false.
func Load(path string, fallback Settings) (s Settings, found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fallback, false, nil
	}
	if err != nil {
		return fallback, false, errors.Wrap(err, "failed to read settings file")
	}

	s = fallback
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fallback, false, errors.Wrap(err, "failed to parse settings file")
	}
	if err := validator.New().Struct(s); err != nil {
		return fallback, false, errors.Wrap(err, "settings validation failed")
	}
	return s, true, nil
}

// Save writes s to path, replacing the previous file atomically.
func Save(path string, s Settings) error {
	if err := validator.New().Struct(s); err != nil {
		return errors.Wrap(err, "settings validation failed")
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to marshal settings")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create settings directory: %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write settings")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write settings")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "failed to replace settings file")
	}
	return nil
}

// Persister saves settings whenever a published session changes them.
type Persister struct {
	path string

	mu       sync.Mutex
	last     Settings
	revision uint64
}

// NewPersister creates a persister. current is what is already on disk.
func NewPersister(path string, current Settings) *Persister {
	return &Persister{path: path, last: current}
}

// Handle is a state.Subscriber.
// Snapshots older than one already handled are ignored.
func (p *Persister) Handle(session playback.Session, change state.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if session.Revision < p.revision {
		zlog.Debug().Msgf("settings: ignoring stale snapshot: revision=%d last=%d", session.Revision, p.revision)
		return
	}
	p.revision = session.Revision

	if !change.Has(state.ChangeSettings) {
		return
	}
	s := FromSession(session)
	if s == p.last {
		return
	}
	if err := Save(p.path, s); err != nil {
		zlog.Error().Err(err).Msgf("settings: failed to save: path=%s", p.path)
		return
	}
	p.last = s
	zlog.Debug().Msgf("settings: saved: volume=%.2f muted=%t repeat=%s shuffle=%t", s.Volume, s.Muted, s.Repeat, s.Shuffle)
}
