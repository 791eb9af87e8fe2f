package audio

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/samber/lo"
)

// ErrUnsupportedFormat is returned for data that is neither MP3 nor WAV.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// SupportedFormats returns list of supported audio formats
func SupportedFormats() []string {
	return []string{".mp3", ".wav"}
}

func isSupportedExt(ext string) bool {
	return lo.Contains(SupportedFormats(), ext)
}

// Decode decodes in-memory audio. hint is a file extension; when it is empty or
// unknown the format is sniffed from the data.
func Decode(data []byte, hint string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := hint
	if !isSupportedExt(ext) {
		ext = sniff(data)
	}

	switch ext {
	case ".mp3":
		s, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
		if err != nil {
			return nil, beep.Format{}, errors.Wrap(err, "failed to decode mp3")
		}
		return s, format, nil
	case ".wav":
		s, format, err := wav.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, beep.Format{}, errors.Wrap(err, "failed to decode wav")
		}
		return s, format, nil
	default:
		return nil, beep.Format{}, errors.Wrapf(ErrUnsupportedFormat, "hint %q", hint)
	}
}

// sniff guesses the container from magic bytes.
func sniff(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return ".wav"
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return ".mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG frame sync
		return ".mp3"
	default:
		return ""
	}
}

// nopCloser keeps the reader seekable, which io.NopCloser would hide.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
