// Package queue provides the playback queue: play order, cursor, shuffle and repeat policy.
package queue

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/osa030/19player/internal/domain/track"
)

// ErrIndexOutOfRange is returned when an index does not address a queue entry.
var ErrIndexOutOfRange = errors.New("queue index out of range")

// entry is a queued track plus a key unique within the queue, so the same
// track queued twice can still be told apart across shuffle toggles.
type entry struct {
	key   uint64
	track track.Track
}

// Option configures a Queue.
type Option func(*Queue)

// WithRand sets the source of uniform integers in [0, n) used for shuffling.
func WithRand(intn func(n int) int) Option {
	return func(q *Queue) {
		q.intn = intn
	}
}

// Queue is an ordered collection of tracks with a cursor.
// The cursor is -1 iff the queue is empty, otherwise it is a valid index into the play order.
type Queue struct {
	mu sync.RWMutex

	order    []entry // current play order (shuffled or not)
	original []entry // insertion order
	cursor   int
	shuffled bool

	nextKey uint64
	intn    func(n int) int
}

// New creates an empty queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		cursor: -1,
		intn:   rand.IntN,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// SetQueue replaces the queue contents with a copy of tracks and places the cursor
// at startIndex, clamped to the valid range. The shuffle flag is reset.
func (q *Queue) SetQueue(tracks []track.Track, startIndex int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.order = make([]entry, len(tracks))
	for i, t := range tracks {
		q.order[i] = q.newEntryLocked(t)
	}
	q.original = slices.Clone(q.order)
	q.shuffled = false

	if len(q.order) == 0 {
		q.cursor = -1
		return
	}
	q.cursor = max(0, min(startIndex, len(q.order)-1))
}

// Clear removes all tracks.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.order = nil
	q.original = nil
	q.cursor = -1
	q.shuffled = false
}

// InsertNext inserts t right after the cursor without moving it.
// On an empty queue the track becomes the current entry.
func (q *Queue) InsertNext(t track.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.newEntryLocked(t)
	if len(q.order) == 0 {
		q.order = []entry{e}
		q.original = []entry{e}
		q.cursor = 0
		return
	}

	current := q.order[q.cursor]
	q.order = slices.Insert(q.order, q.cursor+1, e)

	pos := q.originalIndexLocked(current.key)
	q.original = slices.Insert(q.original, pos+1, e)
}

// Append adds t to the end of the queue.
func (q *Queue) Append(t track.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.newEntryLocked(t)
	q.order = append(q.order, e)
	q.original = append(q.original, e)
	if q.cursor < 0 {
		q.cursor = 0
	}
}

// RemoveAt removes the entry at index.
// Removing an entry before the cursor shifts the cursor so it keeps pointing at the same track.
// Removing the current entry leaves the cursor on the same slot (clamped), the caller
// decides what to play next.
func (q *Queue) RemoveAt(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.order) {
		return errors.Wrapf(ErrIndexOutOfRange, "remove index %d (len %d)", index, len(q.order))
	}

	removed := q.order[index]
	q.order = slices.Delete(q.order, index, index+1)
	if pos := q.originalIndexLocked(removed.key); pos >= 0 {
		q.original = slices.Delete(q.original, pos, pos+1)
	}

	switch {
	case len(q.order) == 0:
		q.cursor = -1
	case index < q.cursor:
		q.cursor--
	case q.cursor >= len(q.order):
		q.cursor = len(q.order) - 1
	}
	return nil
}

// Advance returns the cursor value that follows the current one under mode,
// without moving the cursor. ok is false at the end of the queue.
func (q *Queue) Advance(mode RepeatMode) (next int, ok bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.order) == 0 {
		return -1, false
	}
	switch {
	case mode == RepeatOne:
		return q.cursor, true
	case q.cursor < len(q.order)-1:
		return q.cursor + 1, true
	case mode == RepeatAll:
		return 0, true
	default:
		return -1, false
	}
}

// Retreat returns the cursor value that precedes the current one under mode,
// without moving the cursor. ok is false at the start of the queue.
func (q *Queue) Retreat(mode RepeatMode) (prev int, ok bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.order) == 0 {
		return -1, false
	}
	switch {
	case q.cursor > 0:
		return q.cursor - 1, true
	case mode == RepeatAll:
		return len(q.order) - 1, true
	default:
		return -1, false
	}
}

// ToggleShuffle switches shuffle on or off and returns the new cursor.
//
// Enabling shuffles every entry except the current one and puts the current entry
// first, so the cursor becomes 0. Disabling restores insertion order and relocates the
// cursor to the entry that was current.
func (q *Queue) ToggleShuffle(on bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.shuffled = on
	if len(q.order) == 0 {
		return q.cursor
	}

	current := q.order[q.cursor]
	if on {
		rest := make([]entry, 0, len(q.order)-1)
		rest = append(rest, q.order[:q.cursor]...)
		rest = append(rest, q.order[q.cursor+1:]...)
		q.fisherYatesLocked(rest)

		q.order = append([]entry{current}, rest...)
		q.cursor = 0
		return q.cursor
	}

	q.order = slices.Clone(q.original)
	q.cursor = max(0, q.originalIndexLocked(current.key))
	return q.cursor
}

// SetCursor moves the cursor to index.
func (q *Queue) SetCursor(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.order) {
		return errors.Wrapf(ErrIndexOutOfRange, "cursor %d (len %d)", index, len(q.order))
	}
	q.cursor = index
	return nil
}

// At returns the track at index in play order.
func (q *Queue) At(index int) (track.Track, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if index < 0 || index >= len(q.order) {
		return track.Track{}, false
	}
	return q.order[index].track, true
}

// Current returns the track under the cursor.
func (q *Queue) Current() (track.Track, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.cursor < 0 {
		return track.Track{}, false
	}
	return q.order[q.cursor].track, true
}

// Locate returns the index of the first entry with the given track id, searching
// from the cursor to the end and then from the start. It returns -1 if none matches.
func (q *Queue) Locate(id int64) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.order) == 0 {
		return -1
	}
	matches := func(e entry) bool { return e.track.ID == id }
	if _, i, ok := lo.FindIndexOf(q.order[q.cursor:], matches); ok {
		return q.cursor + i
	}
	if _, i, ok := lo.FindIndexOf(q.order[:q.cursor], matches); ok {
		return i
	}
	return -1
}

// Cursor returns the current cursor, -1 when empty.
func (q *Queue) Cursor() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.cursor
}

// Len returns the number of entries.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.order)
}

// IsEmpty returns true if the queue holds no entries.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// IsShuffled returns true if shuffle is enabled.
func (q *Queue) IsShuffled() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.shuffled
}

// Tracks returns a copy of the tracks in play order.
func (q *Queue) Tracks() []track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return lo.Map(q.order, func(e entry, _ int) track.Track { return e.track })
}

// OriginalTracks returns a copy of the tracks in insertion order.
func (q *Queue) OriginalTracks() []track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return lo.Map(q.original, func(e entry, _ int) track.Track { return e.track })
}

// TotalDuration returns the sum of the duration hints of all entries.
func (q *Queue) TotalDuration() time.Duration {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return lo.SumBy(q.order, func(e entry) time.Duration { return e.track.DurationHint() })
}

// fisherYatesLocked shuffles s in place.
// Must be called with lock held.
func (q *Queue) fisherYatesLocked(s []entry) {
	for i := len(s) - 1; i >= 1; i-- {
		j := q.intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func (q *Queue) originalIndexLocked(key uint64) int {
	return slices.IndexFunc(q.original, func(e entry) bool { return e.key == key })
}

func (q *Queue) newEntryLocked(t track.Track) entry {
	q.nextKey++
	return entry{key: q.nextKey, track: t}
}
