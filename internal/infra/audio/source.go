// Package audio provides the audio engines the playback controller drives.
package audio

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBytes     = 200 << 20
)

var (
	ErrStreamTooLarge     = errors.New("stream exceeds size limit")
	ErrUnsupportedScheme  = errors.New("unsupported stream uri scheme")
	ErrUnexpectedResponse = errors.New("unexpected http response")
)

// Fetcher reads a whole stream into memory so decoders can seek in it.
type Fetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewFetcher creates a fetcher with the given timeout and size limit.
// Zero values select the defaults.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Fetcher{
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: maxBytes,
	}
}

// Fetch returns the bytes behind uri and a format hint such as ".mp3".
// http(s) URIs are downloaded, file URIs and bare paths are read from disk.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", errors.Wrapf(err, "invalid stream uri %q", uri)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchHTTP(ctx, uri, u)
	case "file":
		return f.readFile(u.Path)
	case "":
		return f.readFile(uri)
	default:
		return nil, "", errors.Wrapf(ErrUnsupportedScheme, "%q", u.Scheme)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, uri string, u *url.URL) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create request")
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to fetch stream")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", errors.Wrapf(ErrUnexpectedResponse, "status %d", resp.StatusCode)
	}

	data, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, "", err
	}

	hint := strings.ToLower(path.Ext(u.Path))
	if !isSupportedExt(hint) {
		hint = extFromContentType(resp.Header.Get("Content-Type"))
	}
	return data, hint, nil
}

func (f *Fetcher) readFile(p string) ([]byte, string, error) {
	file, err := os.Open(p)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to open stream file")
	}
	defer file.Close()

	data, err := f.readLimited(file)
	if err != nil {
		return nil, "", err
	}
	return data, strings.ToLower(filepath.Ext(p)), nil
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	limit := f.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read stream")
	}
	if int64(len(data)) > limit {
		return nil, errors.Wrapf(ErrStreamTooLarge, "limit %d bytes", limit)
	}
	return data, nil
}

func extFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3":
		return ".mp3"
	case "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return ".wav"
	default:
		return ""
	}
}
