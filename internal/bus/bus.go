// Package bus is the in-process fan-out mechanism between ingestion and the
// live relays. One logical channel per farm; every current subscriber gets
// every published message, best effort. There is no buffering for absent
// subscribers and no replay.
package bus

import (
	"sync"

	"incubator-backend/internal/models"
)

const defaultBufferSize = 16

// Subscription is one subscriber's bounded inbox on a farm channel.
type Subscription struct {
	farmID string
	ch     chan models.FanOutMessage

	closeOnce sync.Once
}

// C is the receive side of the subscription.
func (s *Subscription) C() <-chan models.FanOutMessage { return s.ch }

// Bus broadcasts accepted telemetry to live subscribers keyed by farm.
// Publish never blocks: a subscriber whose inbox is full simply misses the
// message, so a slow dashboard client cannot stall ingestion.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &Bus{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber on the farm's channel. The caller owns
// the subscription and must Unsubscribe it when done.
func (b *Bus) Subscribe(farmID string) *Subscription {
	sub := &Subscription{
		farmID: farmID,
		ch:     make(chan models.FanOutMessage, b.buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[farmID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[farmID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscription and closes its channel. Safe to call
// more than once.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	if set, ok := b.subs[sub.farmID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.farmID)
		}
	}
	b.mu.Unlock()

	sub.closeOnce.Do(func() { close(sub.ch) })
}

// Publish delivers msg to every current subscriber of the farm channel.
// It returns the number of subscribers that received the message; overflowed
// subscribers are skipped.
func (b *Bus) Publish(farmID string, msg models.FanOutMessage) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for sub := range b.subs[farmID] {
		select {
		case sub.ch <- msg:
			delivered++
		default:
			// inbox full, drop for this subscriber
		}
	}
	return delivered
}

// SubscriberCount reports the current number of subscribers on a farm channel.
func (b *Bus) SubscriberCount(farmID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[farmID])
}
