// Package feed is an in-process topic broker used by the stores to
// redistribute changes to every subscriber of a board.
package feed

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 256

type subscriber[T any] struct {
	ch chan T
}

// Broker fans events out to the subscribers of a topic. Publish never
// blocks: a subscriber whose buffer is full misses the event.
type Broker[T any] struct {
	name   string
	buffer int

	mu     sync.RWMutex
	topics map[string]map[*subscriber[T]]struct{}
}

func NewBroker[T any](name string, buffer int) *Broker[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker[T]{name: name, buffer: buffer, topics: make(map[string]map[*subscriber[T]]struct{})}
}

// Subscribe returns a channel of the topic's events and a func that ends the
// subscription and closes the channel. The func is safe to call twice.
// initial events are queued ahead of anything published later.
func (b *Broker[T]) Subscribe(topic string, initial ...T) (<-chan T, func()) {
	sub := &subscriber[T]{ch: make(chan T, b.buffer+len(initial))}
	for _, ev := range initial {
		sub.ch <- ev
	}

	b.mu.Lock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*subscriber[T]]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.topics[topic], sub)
			if len(b.topics[topic]) == 0 {
				delete(b.topics, topic)
			}
			close(sub.ch)
		})
	}
}

func (b *Broker[T]) Publish(topic string, event T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.topics[topic] {
		select {
		case sub.ch <- event:
		default:
			logrus.WithFields(logrus.Fields{
				"feed":  b.name,
				"topic": topic,
			}).Warn("Dropped event for slow subscriber")
		}
	}
}

// Subscribers counts the live subscriptions of a topic.
func (b *Broker[T]) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
