// Package statusbus fans status events out to any number of subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the event
// and the miss is counted on its subscription.
package statusbus

import (
	"sync"
	"sync/atomic"

	"github.com/plaza-hq/rostersync/pkg/domain/interfaces"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
)

// DefaultBufferSize is the per-subscriber buffer used when none is configured
const DefaultBufferSize = 256

type Bus struct {
	mu         sync.RWMutex
	subs       map[*Subscription]struct{}
	bufferSize int
	closed     bool
}

var _ interfaces.StatusPublisher = &Bus{}

type Option func(*Bus)

// WithBufferSize sets the channel capacity of subscriptions created afterwards
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

func New(opts ...Option) *Bus {
	b := &Bus{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers ev to every current subscriber without waiting.
// Publishing with no subscribers, or after Close, is a no-op.
func (b *Bus) Publish(ev model.StatusEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Subscribe returns a cursor that receives every event published from now on.
// Subscribing to a closed bus yields an already closed subscription.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		bus: b,
		ch:  make(chan model.StatusEvent, b.bufferSize),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub.closed = true
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Close detaches every subscriber and closes their channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.closed = true
		close(sub.ch)
	}
	clear(b.subs)
}

// Subscribers returns the number of attached subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

type Subscription struct {
	bus     *Bus
	ch      chan model.StatusEvent
	dropped atomic.Uint64
	// guarded by bus.mu
	closed bool
}

// Events is closed once the subscription or the bus is closed
func (s *Subscription) Events() <-chan model.StatusEvent {
	return s.ch
}

// Dropped reports how many events were lost because the buffer was full
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close detaches the subscription. Buffered events remain readable.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	delete(s.bus.subs, s)
	close(s.ch)
}
