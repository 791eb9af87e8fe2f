// Package main provides the player entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19player/internal/app/filter"
	"github.com/osa030/19player/internal/app/playback"
	"github.com/osa030/19player/internal/app/queue"
	"github.com/osa030/19player/internal/app/session/state"
	"github.com/osa030/19player/internal/domain/track"
	"github.com/osa030/19player/internal/infra/audio"
	"github.com/osa030/19player/internal/infra/config"
	"github.com/osa030/19player/internal/infra/library"
	"github.com/osa030/19player/internal/infra/logger"
	"github.com/osa030/19player/internal/infra/settings"
)

var (
	app        = kingpin.New("19player", "19player audio player")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()
	engineName = app.Flag("engine", "Audio engine (overrides config)").String()

	// play command (default)
	playCmd   = app.Command("play", "Play a playlist file or a directory of audio files (default)").Default()
	playPath  = playCmd.Arg("playlist", "Playlist YAML file or directory").Default(".").String()
	exitOnEnd = playCmd.Flag("exit-on-end", "Exit when the queue runs out").Bool()

	listEnginesCmd = app.Command("list-engines", "List available audio engines and exit")
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case listEnginesCmd.FullCommand():
		printEngines()
		return
	case listFiltersCmd.FullCommand():
		printFilters()
		return
	}

	closer, err := logger.Init(loggerConfig(config.LogConfig{Output: "stderr", Level: "info"}))
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Re-initialize with the configured output unless flags decided it
	if !*verbose && *logfile == "" {
		closer.Close()
		closer, err = logger.Init(loggerConfig(cfg.Log))
		if err != nil {
			panic(fmt.Sprintf("Failed to initialize logger: %v", err))
		}
	}
	defer closer.Close()

	if *engineName != "" {
		cfg.Engine.Name = *engineName
	}

	if err := run(cfg, *playPath); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

func loggerConfig(c config.LogConfig) logger.Config {
	lc := logger.Config{Output: c.Output, Level: c.Level, File: c.File}
	if *verbose {
		lc.Level = "debug"
	}
	if *logfile != "" {
		lc.Output = *logfile
		lc.File = *logfile
	}
	return lc
}

// loadConfig loads path, falling back to defaults when the default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		zlog.Warn().Msgf("Config file not found, using defaults: path=%s", path)
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	zlog.Info().Msgf("Loading config from %s", path)
	return config.Load(path)
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	controllerCfg, err := cfg.ControllerConfig()
	if err != nil {
		return errors.Wrap(err, "invalid playback config")
	}

	saved, found, err := settings.Load(cfg.Settings.Path, settings.FromConfig(controllerCfg))
	if err != nil {
		zlog.Warn().Err(err).Msgf("Ignoring settings file: path=%s", cfg.Settings.Path)
	} else if found {
		if err := saved.Apply(&controllerCfg); err != nil {
			return errors.Wrap(err, "invalid settings")
		}
		zlog.Info().Msgf("Settings restored: path=%s", cfg.Settings.Path)
	}

	chain, err := filter.Build(cfg.FilterSpecs())
	if err != nil {
		return err
	}
	pl, rejected, err := library.NewLoader(chain, audio.SupportedFormats()).Load(ctx, path)
	for _, r := range rejected {
		zlog.Warn().Msgf("Track rejected: title=%s filter=%s code=%s", r.Track.Title, r.Filter, r.Code)
	}
	if err != nil {
		return err
	}

	engine, err := audio.New(cfg.Engine.Name, cfg.Engine.Settings)
	if err != nil {
		return err
	}
	zlog.Info().Msgf("Audio engine ready: name=%s", cfg.Engine.Name)

	executeHooks(cfg.Hooks.OnStarted, "on_started", nil)
	defer executeHooks(cfg.Hooks.OnStopped, "on_stopped", nil)

	store := state.NewStore(playback.Session{})
	defer store.Close()

	ctrl := playback.NewController(engine, queue.New(), store, controllerCfg)
	defer ctrl.Close()

	persister := settings.NewPersister(cfg.Settings.Path, settings.FromConfig(controllerCfg))
	store.Subscribe(persister.Handle)

	con := newConsole(ctrl, os.Stdout)
	store.Subscribe(con.render)

	ended := make(chan struct{}, 1)
	go watchEvents(ctrl.Events(), cfg.Hooks.OnTrackStarted, ended)

	go ctrl.Run(ctx, cfg.TickInterval())

	fmt.Printf("Playlist: %s (%d tracks). Type h for help.\n", pl.Name, len(pl.Tracks))
	ctrl.PlayQueue(ctx, pl.Tracks, pl.StartIndex)

	quit := make(chan struct{})
	go func() {
		con.loop(ctx, os.Stdin)
		close(quit)
	}()

	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msg("Received shutdown signal...")
			return nil
		case <-quit:
			return nil
		case <-ended:
			if *exitOnEnd {
				zlog.Info().Msg("Queue ended, shutting down...")
				return nil
			}
		}
	}
}

// watchEvents runs track hooks and reports the end of the queue.
func watchEvents(events <-chan playback.Event, trackHooks []string, ended chan<- struct{}) {
	for e := range events {
		switch e.Type {
		case playback.EventTrackStarted:
			if e.Track != nil {
				executeHooks(trackHooks, "on_track_started", trackEnv(*e.Track))
			}
		case playback.EventQueueEnded:
			select {
			case ended <- struct{}{}:
			default:
			}
		case playback.EventError:
			zlog.Warn().Msgf("Playback error: %v", e.Err)
		}
	}
}

func trackEnv(t track.Track) []string {
	return []string{
		fmt.Sprintf("TRACK_ID=%d", t.ID),
		"TRACK_TITLE=" + t.Title,
		"TRACK_ARTIST=" + t.ArtistName,
		"TRACK_URI=" + t.StreamURI,
		fmt.Sprintf("TRACK_DURATION_MS=%d", t.DurationHintMs),
	}
}

// printEngines prints available audio engines.
func printEngines() {
	fmt.Println("Available Engines:")
	for _, name := range audio.Names() {
		fmt.Printf("  %-30s - %s\n", name, audio.Describe(name))
	}
	if !audio.AudioAvailable {
		fmt.Println("\nThis build has no speaker output (built without cgo).")
	}
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	registry := filter.GetRegistered()
	for _, name := range filter.Names() {
		f := registry[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// executeHooks runs a list of shell commands. env is appended to the process environment.
func executeHooks(hooks []string, stage string, env []string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Debug().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Env = append(os.Environ(), env...)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
