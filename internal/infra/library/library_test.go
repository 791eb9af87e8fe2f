package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19player/internal/app/filter"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

const mixtape = `
name: Mixtape
start_index: 2
tracks:
  - id: 1
    title: Intro
    stream_uri: songs/intro.mp3
    duration_ms: 30000
  - id: 2
    title: Radio
    artist: Band
    stream_uri: https://example.com/radio.mp3
    duration_ms: 200000
  - id: 3
    title: Live
    stream_uri: rtsp://example.com/live
  - id: 4
    title: Outro
    stream_uri: /music/outro.wav
    duration_ms: 60000
`

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixtape.yaml")
	writeFile(t, path, mixtape)

	p, rejected, err := NewLoader(nil, nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, rejected)

	assert.Equal(t, "mixtape", p.ID)
	assert.Equal(t, "Mixtape", p.Name)
	assert.Equal(t, 2, p.StartIndex)
	assert.Equal(t, []int64{1, 2, 3, 4}, p.TrackIDs())
	assert.Equal(t, filepath.Join(dir, "songs", "intro.mp3"), p.Tracks[0].StreamURI)
	assert.Equal(t, "https://example.com/radio.mp3", p.Tracks[1].StreamURI)
	assert.Equal(t, "/music/outro.wav", p.Tracks[3].StreamURI)
	assert.Equal(t, "Band", p.Tracks[1].ArtistName)
}

func TestLoad_FiltersKeepStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixtape.yaml")
	writeFile(t, path, mixtape)

	chain, err := filter.Build([]filter.Spec{{Name: "stream_scheme_filter"}})
	require.NoError(t, err)

	p, rejected, err := NewLoader(chain, nil).Load(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, rejected, 1)
	assert.Equal(t, int64(3), rejected[0].Track.ID)
	assert.Equal(t, "stream_scheme_filter", rejected[0].Filter)

	// Track 3 was the start; the first admitted track after it takes over.
	assert.Equal(t, []int64{1, 2, 4}, p.TrackIDs())
	assert.Equal(t, 2, p.StartIndex)
}

func TestLoad_AllRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixtape.yaml")
	writeFile(t, path, mixtape)

	chain, err := filter.Build([]filter.Spec{{Name: "stream_scheme_filter", Settings: map[string]any{"schemes": []string{"ftp"}}}})
	require.NoError(t, err)

	_, rejected, err := NewLoader(chain, nil).Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrEmptyPlaylist)
	assert.Len(t, rejected, 4)
}

func TestLoad_InvalidFiles(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "name: [x"},
		{"missing name", "tracks:\n  - id: 1\n"},
		{"missing track id", "name: x\ntracks:\n  - title: t\n"},
		{"start out of range", "name: x\nstart_index: 3\ntracks:\n  - id: 1\n"},
		{"duplicate id", "name: x\ntracks:\n  - id: 1\n  - id: 1\n"},
		{"empty", "name: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "p.yaml")
			writeFile(t, path, tt.data)

			_, _, err := NewLoader(nil, nil).Load(context.Background(), path)
			assert.Error(t, err)
		})
	}

	_, _, err := NewLoader(nil, nil).Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Directory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "album")
	writeFile(t, filepath.Join(dir, "02 b.MP3"), "x")
	writeFile(t, filepath.Join(dir, "01 a.wav"), "x")
	writeFile(t, filepath.Join(dir, "cover.jpg"), "x")
	writeFile(t, filepath.Join(dir, "sub", "03 c.mp3"), "x")

	p, _, err := NewLoader(nil, []string{".mp3", ".wav"}).Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "album", p.Name)
	require.Len(t, p.Tracks, 2)
	assert.Equal(t, "01 a", p.Tracks[0].Title)
	assert.Equal(t, "02 b", p.Tracks[1].Title)
	assert.Equal(t, []int64{1, 2}, p.TrackIDs())
	assert.Equal(t, filepath.Join(dir, "01 a.wav"), p.Tracks[0].StreamURI)
}

func TestResolveURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"", ""},
		{"a.mp3", "/base/a.mp3"},
		{"../a.mp3", "/a.mp3"},
		{"/abs/a.mp3", "/abs/a.mp3"},
		{"file:///abs/a.mp3", "file:///abs/a.mp3"},
		{"http://host/a.mp3", "http://host/a.mp3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveURI("/base", tt.uri), tt.uri)
	}
}
