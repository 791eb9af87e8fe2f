package state

import (
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19player/internal/app/notification"
	"github.com/osa030/19player/internal/app/playback"
)

// update is what the store broadcasts to subscribers.
type update struct {
	session playback.Session
	change  Change
}

// Store holds the latest published session snapshot and fans it out to subscribers.
type Store struct {
	mu       sync.RWMutex
	session  playback.Session
	received bool

	notifier *notification.Manager[update]
}

// NewStore creates a store holding initial until the first publish.
func NewStore(initial playback.Session) *Store {
	return &Store{
		session:  initial.Clone(),
		notifier: notification.NewManager[update](),
	}
}

// Snapshot returns a copy of the latest session.
func (s *Store) Snapshot() playback.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// Subscribe registers fn and returns its subscription ID.
func (s *Store) Subscribe(fn Subscriber) string {
	return s.notifier.Subscribe(func(_ uint64, u update) {
		fn(u.session.Clone(), u.change)
	})
}

// Unsubscribe removes a subscription. It returns false for unknown IDs.
func (s *Store) Unsubscribe(id string) bool {
	return s.notifier.Unsubscribe(id)
}

// SubscriberCount returns the number of subscribers.
func (s *Store) SubscriberCount() int {
	return s.notifier.SubscriberCount()
}

// Publish accepts a snapshot from the controller. Snapshots whose revision is not newer
// than the last accepted one are dropped. Subscribers run after the lock is released.
func (s *Store) Publish(session playback.Session) {
	s.mu.Lock()
	if s.received && session.Revision <= s.session.Revision {
		s.mu.Unlock()
		zlog.Debug().Msgf("state: dropping stale snapshot: revision=%d latest=%d", session.Revision, s.session.Revision)
		return
	}
	change := Diff(s.session, session)
	s.session = session.Clone()
	s.received = true
	s.mu.Unlock()

	s.notifier.Broadcast(update{session: session, change: change})
}

// Close drops all subscribers.
func (s *Store) Close() {
	s.notifier.Close()
}
