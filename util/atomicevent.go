package util

import (
	"sync"
)

// AtomicEvent holds the latest event and signals its arrival on a one slot
// channel, so senders never block on slow readers. With a merge function
// successive events are folded together instead of replacing each other.
type AtomicEvent[T any] struct {
	mu     sync.Mutex
	value  T
	merge  func(old, event T) T
	notify chan struct{}
}

// NewAtomicEvent creates an event where only the most recent value is kept.
func NewAtomicEvent[T any]() *AtomicEvent[T] {
	return &AtomicEvent[T]{
		notify: make(chan struct{}, 1),
	}
}

// NewMergingEvent creates an event that folds each sent value into the
// pending one with merge until it is taken.
func NewMergingEvent[T any](merge func(old, event T) T) *AtomicEvent[T] {
	return &AtomicEvent[T]{
		merge:  merge,
		notify: make(chan struct{}, 1),
	}
}

// Send stores event and raises the notification. It never blocks.
func (ae *AtomicEvent[T]) Send(event T) {
	ae.mu.Lock()
	defer ae.mu.Unlock()

	if ae.merge != nil {
		ae.value = ae.merge(ae.value, event)
	} else {
		ae.value = event
	}

	select {
	case ae.notify <- struct{}{}:
	default:
		// already pending
	}
}

// Channel returns the notification channel for use in select statements.
func (ae *AtomicEvent[T]) Channel() <-chan struct{} {
	return ae.notify
}

// Value returns the current value without consuming it.
func (ae *AtomicEvent[T]) Value() T {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	return ae.value
}

// Take returns the current value, resets it to the zero value and drops a
// pending notification.
func (ae *AtomicEvent[T]) Take() T {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	var zero T
	ret := ae.value
	ae.value = zero
	select {
	case <-ae.notify:
	default:
	}
	return ret
}

// HasPending checks if a notification is waiting to be consumed.
func (ae *AtomicEvent[T]) HasPending() bool {
	return len(ae.notify) > 0
}
