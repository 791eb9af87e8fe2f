package queue

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19player/internal/domain/track"
)

func tracks(ids ...int64) []track.Track {
	result := make([]track.Track, len(ids))
	for i, id := range ids {
		result[i] = track.Track{ID: id, StreamURI: fmt.Sprintf("mem://%d", id)}
	}
	return result
}

func ids(ts []track.Track) []int64 {
	result := make([]int64, len(ts))
	for i, t := range ts {
		result[i] = t.ID
	}
	return result
}

func assertCursorInvariant(t *testing.T, q *Queue) {
	t.Helper()
	if q.Len() == 0 {
		assert.Equal(t, -1, q.Cursor(), "cursor must be -1 on empty queue")
		return
	}
	assert.GreaterOrEqual(t, q.Cursor(), 0)
	assert.Less(t, q.Cursor(), q.Len())
}

func TestQueue_SetQueue(t *testing.T) {
	tests := []struct {
		name       string
		tracks     []track.Track
		startIndex int
		wantCursor int
	}{
		{name: "empty", tracks: nil, startIndex: 0, wantCursor: -1},
		{name: "start at zero", tracks: tracks(1, 2, 3), startIndex: 0, wantCursor: 0},
		{name: "start in middle", tracks: tracks(1, 2, 3), startIndex: 1, wantCursor: 1},
		{name: "start clamped high", tracks: tracks(1, 2, 3), startIndex: 10, wantCursor: 2},
		{name: "start clamped low", tracks: tracks(1, 2, 3), startIndex: -4, wantCursor: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			q.SetQueue(tt.tracks, tt.startIndex)
			assert.Equal(t, tt.wantCursor, q.Cursor())
			assert.Equal(t, len(tt.tracks), q.Len())
			assertCursorInvariant(t, q)
		})
	}
}

func TestQueue_SetQueue_DefensiveCopy(t *testing.T) {
	in := tracks(1, 2, 3)
	q := New()
	q.SetQueue(in, 0)

	in[0].ID = 99
	got, ok := q.At(0)
	require.True(t, ok)
	assert.Equal(t, int64(1), got.ID)
}

func TestQueue_InsertNext(t *testing.T) {
	q := New()
	q.SetQueue(tracks(1, 2, 3), 1)

	q.InsertNext(track.Track{ID: 9})

	assert.Equal(t, []int64{1, 2, 9, 3}, ids(q.Tracks()))
	assert.Equal(t, 1, q.Cursor())
}

func TestQueue_InsertNext_EmptyBecomesCurrent(t *testing.T) {
	q := New()
	q.InsertNext(track.Track{ID: 9})

	assert.Equal(t, 0, q.Cursor())
	cur, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, int64(9), cur.ID)
}

func TestQueue_Append(t *testing.T) {
	q := New()
	q.Append(track.Track{ID: 1})
	assert.Equal(t, 0, q.Cursor())

	q.Append(track.Track{ID: 2})
	assert.Equal(t, []int64{1, 2}, ids(q.Tracks()))
	assert.Equal(t, 0, q.Cursor())
}

func TestQueue_RemoveAt(t *testing.T) {
	tests := []struct {
		name       string
		cursor     int
		remove     int
		wantIDs    []int64
		wantCursor int
		wantErr    bool
	}{
		{name: "before cursor shifts cursor", cursor: 2, remove: 0, wantIDs: []int64{2, 3, 4}, wantCursor: 1},
		{name: "after cursor keeps cursor", cursor: 1, remove: 3, wantIDs: []int64{1, 2, 3}, wantCursor: 1},
		{name: "current keeps slot", cursor: 1, remove: 1, wantIDs: []int64{1, 3, 4}, wantCursor: 1},
		{name: "current at end clamps", cursor: 3, remove: 3, wantIDs: []int64{1, 2, 3}, wantCursor: 2},
		{name: "negative index", cursor: 0, remove: -1, wantIDs: []int64{1, 2, 3, 4}, wantCursor: 0, wantErr: true},
		{name: "index past end", cursor: 0, remove: 4, wantIDs: []int64{1, 2, 3, 4}, wantCursor: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			q.SetQueue(tracks(1, 2, 3, 4), tt.cursor)

			err := q.RemoveAt(tt.remove)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIndexOutOfRange)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantIDs, ids(q.Tracks()))
			assert.Equal(t, tt.wantCursor, q.Cursor())
		})
	}
}

func TestQueue_RemoveAt_LastEntry(t *testing.T) {
	q := New()
	q.SetQueue(tracks(1), 0)

	require.NoError(t, q.RemoveAt(0))
	assert.Equal(t, -1, q.Cursor())
	assert.True(t, q.IsEmpty())
}

func TestQueue_Advance(t *testing.T) {
	tests := []struct {
		name   string
		cursor int
		mode   RepeatMode
		want   int
		wantOK bool
	}{
		{name: "off middle", cursor: 0, mode: RepeatOff, want: 1, wantOK: true},
		{name: "off last", cursor: 2, mode: RepeatOff, want: -1, wantOK: false},
		{name: "all last wraps", cursor: 2, mode: RepeatAll, want: 0, wantOK: true},
		{name: "all middle", cursor: 1, mode: RepeatAll, want: 2, wantOK: true},
		{name: "one stays", cursor: 1, mode: RepeatOne, want: 1, wantOK: true},
		{name: "one at last stays", cursor: 2, mode: RepeatOne, want: 2, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			q.SetQueue(tracks(1, 2, 3), tt.cursor)

			got, ok := q.Advance(tt.mode)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.cursor, q.Cursor(), "advance must not move the cursor")
		})
	}
}

func TestQueue_Retreat(t *testing.T) {
	tests := []struct {
		name   string
		cursor int
		mode   RepeatMode
		want   int
		wantOK bool
	}{
		{name: "off middle", cursor: 1, mode: RepeatOff, want: 0, wantOK: true},
		{name: "off first", cursor: 0, mode: RepeatOff, wantOK: false},
		{name: "all first wraps", cursor: 0, mode: RepeatAll, want: 2, wantOK: true},
		{name: "one first", cursor: 0, mode: RepeatOne, wantOK: false},
		{name: "one middle", cursor: 2, mode: RepeatOne, want: 1, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			q.SetQueue(tracks(1, 2, 3), tt.cursor)

			got, ok := q.Retreat(tt.mode)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.cursor, q.Cursor())
		})
	}
}

func TestQueue_AdvanceRetreat_Empty(t *testing.T) {
	q := New()
	for _, mode := range []RepeatMode{RepeatOff, RepeatAll, RepeatOne} {
		_, ok := q.Advance(mode)
		assert.False(t, ok)
		_, ok = q.Retreat(mode)
		assert.False(t, ok)
	}
}

func TestQueue_ToggleShuffle_Deterministic(t *testing.T) {
	// Always picking j=0 makes the Fisher-Yates passes predictable:
	// rest [1 3 4] -> i=2 swap(2,0) -> [4 3 1] -> i=1 swap(1,0) -> [3 4 1]
	q := New(WithRand(func(int) int { return 0 }))
	q.SetQueue(tracks(1, 2, 3, 4), 1)

	cursor := q.ToggleShuffle(true)

	assert.Equal(t, 0, cursor)
	assert.Equal(t, []int64{2, 3, 4, 1}, ids(q.Tracks()))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(q.OriginalTracks()))
	assert.True(t, q.IsShuffled())
}

func TestQueue_ToggleShuffle_Reversible(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for start := 0; start < 6; start++ {
		q := New(WithRand(r.IntN))
		q.SetQueue(tracks(1, 2, 3, 4, 5, 6), start)
		before := ids(q.OriginalTracks())
		current, _ := q.Current()

		q.ToggleShuffle(true)
		shuffledCurrent, _ := q.Current()
		assert.Equal(t, current.ID, shuffledCurrent.ID, "current track must stay current when enabling")
		assert.ElementsMatch(t, before, ids(q.Tracks()))

		cursor := q.ToggleShuffle(false)
		restored, _ := q.Current()
		assert.Equal(t, before, ids(q.Tracks()))
		assert.Equal(t, start, cursor)
		assert.Equal(t, current.ID, restored.ID, "current track must stay current when disabling")
		assert.False(t, q.IsShuffled())
	}
}

func TestQueue_ToggleShuffle_DuplicateTracksRelocateByIdentity(t *testing.T) {
	q := New(WithRand(func(int) int { return 0 }))
	q.SetQueue(tracks(7, 8, 7), 2)

	q.ToggleShuffle(true)
	assert.Equal(t, 0, q.Cursor())

	cursor := q.ToggleShuffle(false)
	assert.Equal(t, 2, cursor, "the second 7 was current, not the first")
}

func TestQueue_ToggleShuffle_EditsWhileShuffled(t *testing.T) {
	q := New(WithRand(func(int) int { return 0 }))
	q.SetQueue(tracks(1, 2, 3), 0)
	q.ToggleShuffle(true)

	q.InsertNext(track.Track{ID: 10})
	q.Append(track.Track{ID: 11})
	require.NoError(t, q.RemoveAt(q.Len()-2))

	assert.ElementsMatch(t, ids(q.Tracks()), ids(q.OriginalTracks()))

	q.ToggleShuffle(false)
	cur, _ := q.Current()
	assert.Equal(t, int64(1), cur.ID)
	assert.Equal(t, int64(10), ids(q.Tracks())[q.Cursor()+1], "inserted track follows the current one in insertion order")
}

func TestQueue_ToggleShuffle_Empty(t *testing.T) {
	q := New()
	assert.Equal(t, -1, q.ToggleShuffle(true))
	assert.True(t, q.IsShuffled())
	assert.Equal(t, -1, q.ToggleShuffle(false))
}

func TestQueue_CursorInvariant_RandomOperations(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	q := New(WithRand(r.IntN))

	for step := 0; step < 2000; step++ {
		switch r.IntN(6) {
		case 0:
			n := r.IntN(5)
			ts := make([]track.Track, n)
			for i := range ts {
				ts[i] = track.Track{ID: int64(r.IntN(10))}
			}
			q.SetQueue(ts, r.IntN(6)-1)
		case 1:
			q.InsertNext(track.Track{ID: int64(r.IntN(10))})
		case 2:
			q.Append(track.Track{ID: int64(r.IntN(10))})
		case 3:
			_ = q.RemoveAt(r.IntN(q.Len()+2) - 1)
		case 4:
			q.ToggleShuffle(r.IntN(2) == 0)
		case 5:
			if next, ok := q.Advance(RepeatMode(r.IntN(3))); ok {
				require.NoError(t, q.SetCursor(next))
			}
		}
		assertCursorInvariant(t, q)
		assert.ElementsMatch(t, ids(q.Tracks()), ids(q.OriginalTracks()))
	}
}

func TestQueue_Locate(t *testing.T) {
	q := New()
	q.SetQueue(tracks(5, 6, 5, 7), 1)

	assert.Equal(t, 2, q.Locate(5), "search starts at the cursor")
	assert.Equal(t, 3, q.Locate(7))
	assert.Equal(t, 1, q.Locate(6))
	assert.Equal(t, -1, q.Locate(42))
}

func TestQueue_SetCursor(t *testing.T) {
	q := New()
	q.SetQueue(tracks(1, 2), 0)

	assert.NoError(t, q.SetCursor(1))
	assert.Equal(t, 1, q.Cursor())
	assert.ErrorIs(t, q.SetCursor(2), ErrIndexOutOfRange)
	assert.Equal(t, 1, q.Cursor())
}

func TestRepeatMode_Next(t *testing.T) {
	assert.Equal(t, RepeatAll, RepeatOff.Next())
	assert.Equal(t, RepeatOne, RepeatAll.Next())
	assert.Equal(t, RepeatOff, RepeatOne.Next())
}

func TestParseRepeatMode(t *testing.T) {
	for _, mode := range []RepeatMode{RepeatOff, RepeatAll, RepeatOne} {
		parsed, err := ParseRepeatMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}
	_, err := ParseRepeatMode("sometimes")
	assert.Error(t, err)
}
