// Package notification provides the notification manager for broadcasting events.
package notification

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Handler receives broadcast values.
type Handler[T any] func(seq uint64, value T)

// subscription represents a subscriber's subscription.
type subscription[T any] struct {
	id      string
	handler Handler[T]
}

// Manager manages notification subscriptions and broadcasting.
// Handlers are called synchronously, in subscription order, without holding the lock,
// so a handler may subscribe or unsubscribe.
type Manager[T any] struct {
	mu            sync.RWMutex
	subscriptions []*subscription[T]
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager[T any]() *Manager[T] {
	return &Manager[T]{}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager[T]) Subscribe(handler Handler[T]) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions = append(m.subscriptions, &subscription[T]{
		id:      id,
		handler: handler,
	})
	return id
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (m *Manager[T]) Unsubscribe(subscriptionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscriptions {
		if sub.id == subscriptionID {
			m.subscriptions = append(m.subscriptions[:i:i], m.subscriptions[i+1:]...)
			return true
		}
	}
	return false
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager[T]) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast delivers value to every subscriber and returns its sequence number.
// A panicking handler is logged and does not stop delivery to the others.
func (m *Manager[T]) Broadcast(value T) uint64 {
	seq := m.NextSequenceNo()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during delivery
	subs := make([]*subscription[T], len(m.subscriptions))
	copy(subs, m.subscriptions)
	m.mu.RUnlock()

	for _, sub := range subs {
		m.deliver(sub, seq, value)
	}
	return seq
}

// Send delivers value to a specific subscriber. It returns false if the subscriber is unknown.
func (m *Manager[T]) Send(subscriptionID string, value T) bool {
	m.mu.RLock()
	var target *subscription[T]
	for _, sub := range m.subscriptions {
		if sub.id == subscriptionID {
			target = sub
			break
		}
	}
	m.mu.RUnlock()

	if target == nil {
		return false
	}
	m.deliver(target, m.NextSequenceNo(), value)
	return true
}

func (m *Manager[T]) deliver(sub *subscription[T], seq uint64, value T) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("notification: subscriber panicked: id=%s panic=%v", sub.id, r)
		}
	}()
	sub.handler(seq, value)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager[T]) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = nil
}
