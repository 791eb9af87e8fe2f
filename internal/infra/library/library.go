// Package library loads playlists from disk and runs them through the admission filters.
package library

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/osa030/19player/internal/app/filter"
	"github.com/osa030/19player/internal/domain/playlist"
	"github.com/osa030/19player/internal/domain/track"
)

var (
	ErrEmptyPlaylist  = errors.New("playlist has no playable tracks")
	ErrDuplicateTrack = errors.New("duplicate track id in playlist file")
)

// Loader reads playlists. A nil chain admits every track.
type Loader struct {
	chain      *filter.Chain
	extensions []string
}

// NewLoader creates a loader. extensions lists the audio file extensions
// picked up when a directory is scanned, e.g. ".mp3".
func NewLoader(chain *filter.Chain, extensions []string) *Loader {
	return &Loader{
		chain: chain,
		extensions: lo.Map(extensions, func(e string, _ int) string {
			return strings.ToLower(e)
		}),
	}
}

// Load reads path, which is either a playlist YAML file or a directory of audio files,
// and returns the admitted playlist along with the tracks the filters rejected.
func (l *Loader) Load(ctx context.Context, path string) (*playlist.Playlist, []filter.Rejection, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open playlist")
	}

	var p *playlist.Playlist
	if info.IsDir() {
		p, err = l.scanDir(path)
	} else {
		p, err = readFile(path)
	}
	if err != nil {
		return nil, nil, err
	}

	var rejected []filter.Rejection
	if l.chain != nil {
		before := p.Tracks[:min(p.StartIndex, len(p.Tracks))]
		p.Tracks, rejected = l.chain.Apply(ctx, p.Tracks)

		// Keep the start on the same track, or the first admitted after it.
		admitted := lo.SliceToMap(p.Tracks, func(t track.Track) (int64, bool) { return t.ID, true })
		idx := lo.CountBy(before, func(t track.Track) bool { return admitted[t.ID] })
		p.StartIndex = min(idx, max(len(p.Tracks)-1, 0))
	}

	if len(p.Tracks) == 0 {
		return nil, rejected, errors.Wrapf(ErrEmptyPlaylist, "%s", path)
	}
	zlog.Info().Msgf("library: playlist loaded: name=%s tracks=%d rejected=%d", p.Name, len(p.Tracks), len(rejected))
	return p, rejected, nil
}

// readFile parses a playlist YAML file. Relative stream URIs are resolved
// against the directory of the file.
func readFile(path string) (*playlist.Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read playlist file")
	}

	var p playlist.Playlist
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "failed to parse playlist file")
	}
	if err := validator.New().Struct(&p); err != nil {
		return nil, errors.Wrap(err, "playlist validation failed")
	}
	if p.StartIndex > 0 && p.StartIndex >= len(p.Tracks) {
		return nil, errors.Newf("start_index %d out of range for %d tracks", p.StartIndex, len(p.Tracks))
	}

	seen := make(map[int64]bool, len(p.Tracks))
	for _, t := range p.Tracks {
		if seen[t.ID] {
			return nil, errors.Wrapf(ErrDuplicateTrack, "id %d", t.ID)
		}
		seen[t.ID] = true
	}

	base := filepath.Dir(path)
	for i := range p.Tracks {
		p.Tracks[i].StreamURI = resolveURI(base, p.Tracks[i].StreamURI)
	}
	if p.ID == "" {
		p.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &p, nil
}

// scanDir builds a playlist from the audio files directly inside dir, sorted by name.
func (l *Loader) scanDir(dir string) (*playlist.Playlist, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read directory")
	}

	files := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return !e.IsDir() && lo.Contains(l.extensions, strings.ToLower(filepath.Ext(e.Name())))
	})
	names := lo.Map(files, func(e os.DirEntry, _ int) string { return e.Name() })
	sort.Strings(names)

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve directory")
	}

	tracks := make([]track.Track, 0, len(names))
	for i, name := range names {
		tracks = append(tracks, track.Track{
			ID:        int64(i + 1),
			Title:     strings.TrimSuffix(name, filepath.Ext(name)),
			StreamURI: filepath.Join(abs, name),
		})
	}

	return &playlist.Playlist{
		ID:     filepath.Base(abs),
		Name:   filepath.Base(abs),
		Tracks: tracks,
	}, nil
}

func resolveURI(base, uri string) string {
	if uri == "" || strings.Contains(uri, "://") || filepath.IsAbs(uri) {
		return uri
	}
	return filepath.Join(base, uri)
}
