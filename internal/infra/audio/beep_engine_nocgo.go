//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/19player/internal/app/playback"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Speaker output requires cgo on linux.
const AudioAvailable = false

// ErrAudioUnavailable is returned when the beep engine is requested in a build without audio.
var ErrAudioUnavailable = errors.New("audio output is not available in this build")

func init() {
	Register("beep", "Speaker output via gopxl/beep (unavailable: built without cgo)", func(settings map[string]any) (playback.Engine, error) {
		return nil, ErrAudioUnavailable
	})
}
