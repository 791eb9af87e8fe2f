package playback

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorKind classifies controller-level failures.
type ErrorKind int

const (
	KindLoadFailure       ErrorKind = iota // Engine could not open/decode the stream
	KindTransportFailure                   // Engine failed after the stream was loaded
	KindInvalidCommand                     // Out-of-range argument, clamped rather than rejected
	KindEmptyQueueAdvance                  // No further track; a transition to idle, not a failure
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindLoadFailure:
		return "load failure"
	case KindTransportFailure:
		return "transport failure"
	case KindInvalidCommand:
		return "invalid command"
	case KindEmptyQueueAdvance:
		return "empty queue advance"
	default:
		return "unknown"
	}
}

// Error wraps an engine error with the operation and track it happened on.
type Error struct {
	Kind    ErrorKind
	Op      string
	TrackID int64
	Err     error
}

func (e *Error) Error() string {
	if e.TrackID != 0 {
		return fmt.Sprintf("%s: %s track %d: %v", e.Kind, e.Op, e.TrackID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op string, trackID int64, err error) *Error {
	return &Error{Kind: kind, Op: op, TrackID: trackID, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}
