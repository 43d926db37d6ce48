package bus

import (
	"context"
	"strings"
	"sync"
)

// Bus is an in-process publish/subscribe event bus with namespace filtering.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	namespace string
	ch        chan Event
	// reliable subscribers are never skipped; publishers wait for them.
	reliable bool
	gone     chan struct{}
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish sends an event to all subscribers whose namespace is a prefix of evt.Kind.
// It is PublishContext without a deadline.
func (b *Bus) Publish(evt Event) {
	_ = b.PublishContext(context.Background(), evt)
}

// PublishContext sends an event to all subscribers whose namespace is a prefix
// of evt.Kind. A plain subscriber whose buffer is full misses the event. A
// reliable subscriber is waited on until it takes the event, unsubscribes, or
// ctx is done.
func (b *Bus) PublishContext(ctx context.Context, evt Event) error {
	var waiting []*subscription
	b.mu.RLock()
	for _, sub := range b.subs {
		if !strings.HasPrefix(evt.Kind, sub.namespace) {
			continue
		}
		if sub.reliable {
			waiting = append(waiting, sub)
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop event if subscriber is full (non-blocking).
		}
	}
	b.mu.RUnlock()

	// Wait outside the lock so a slow consumer that publishes or subscribes
	// itself cannot deadlock against a pending Subscribe.
	for _, sub := range waiting {
		select {
		case sub.ch <- evt:
		case <-sub.gone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe returns a channel that receives events matching the given namespace prefix.
// bufSize controls the channel buffer. Returns the channel and an unsubscribe function.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	return b.subscribe(namespace, bufSize, false)
}

// SubscribeReliable is Subscribe for consumers that must see every event.
// Publishers block while the buffer is full, so the consumer must keep reading
// until it calls the returned unsubscribe function.
func (b *Bus) SubscribeReliable(namespace string, bufSize int) (<-chan Event, func()) {
	return b.subscribe(namespace, bufSize, true)
}

func (b *Bus) subscribe(namespace string, bufSize int, reliable bool) (<-chan Event, func()) {
	sub := &subscription{
		namespace: namespace,
		ch:        make(chan Event, bufSize),
		reliable:  reliable,
		gone:      make(chan struct{}),
	}
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			close(sub.gone)
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}
