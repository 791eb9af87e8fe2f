// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/19player/internal/app/filter"
	"github.com/osa030/19player/internal/app/playback"
	"github.com/osa030/19player/internal/app/queue"
)

// Config represents the application configuration.
type Config struct {
	Playback PlaybackConfig          `yaml:"playback"`
	Engine   EngineConfig            `yaml:"engine"`
	Log      LogConfig               `yaml:"log"`
	Settings SettingsConfig          `yaml:"settings"`
	Hooks    HooksConfig             `yaml:"hooks"`
	Filters  map[string]FilterConfig `yaml:"filters"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	RestartThresholdMs int     `yaml:"restart_threshold_ms" default:"3000" validate:"gte=0,lte=60000"`
	HistoryLimit       int     `yaml:"history_limit" default:"100" validate:"gte=1,lte=10000"`
	TickIntervalMs     int     `yaml:"tick_interval_ms" default:"250" validate:"gte=10,lte=5000"`
	DefaultVolume      float64 `yaml:"default_volume" default:"0.8" validate:"gte=0,lte=1"`
	DefaultRepeat      string  `yaml:"default_repeat" default:"off" validate:"oneof=off all one"`
	DefaultShuffle     bool    `yaml:"default_shuffle"`
	EventBuffer        int     `yaml:"event_buffer" default:"32" validate:"gte=1"`
}

// EngineConfig selects the audio engine.
type EngineConfig struct {
	Name     string         `yaml:"name" default:"beep" validate:"required"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stderr"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File   string `yaml:"file"`
}

// SettingsConfig locates the persisted user settings.
type SettingsConfig struct {
	Path string `yaml:"path" default:".19player/settings.yaml"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted      []string `yaml:"on_started"`
	OnStopped      []string `yaml:"on_stopped"`
	OnTrackStarted []string `yaml:"on_track_started"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.overrideFromEnv()
	// Defaults on an empty struct cannot fail
	_ = defaults.Set(&cfg)
	return &cfg
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("PLAYER_ENGINE"); v != "" {
		c.Engine.Name = v
	}
	if v := os.Getenv("PLAYER_SETTINGS_PATH"); v != "" {
		c.Settings.Path = v
	}
	if v := os.Getenv("PLAYER_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	for name, f := range c.Filters {
		if !f.Enabled {
			continue
		}
		if _, err := filter.New(name, f.Settings); err != nil {
			return errors.Wrapf(err, "filter %s", name)
		}
	}
	return nil
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// FilterSpecs returns the enabled filters sorted by name.
func (c *Config) FilterSpecs() []filter.Spec {
	names := make([]string, 0, len(c.Filters))
	for name, f := range c.Filters {
		if f.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	specs := make([]filter.Spec, len(names))
	for i, name := range names {
		specs[i] = filter.Spec{Name: name, Settings: c.Filters[name].Settings}
	}
	return specs
}

// ControllerConfig converts the playback section into controller configuration.
func (c *Config) ControllerConfig() (playback.Config, error) {
	mode, err := queue.ParseRepeatMode(c.Playback.DefaultRepeat)
	if err != nil {
		return playback.Config{}, errors.Wrap(err, "invalid default_repeat")
	}
	return playback.Config{
		RestartThreshold: time.Duration(c.Playback.RestartThresholdMs) * time.Millisecond,
		HistoryLimit:     c.Playback.HistoryLimit,
		InitialVolume:    c.Playback.DefaultVolume,
		RepeatMode:       mode,
		Shuffle:          c.Playback.DefaultShuffle,
		EventBuffer:      c.Playback.EventBuffer,
	}, nil
}

// TickInterval returns how often the controller driver polls for auto-advance.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Playback.TickIntervalMs) * time.Millisecond
}
