// Package bus carries a payload-free "something changed, re-pull"
// signal between the engine and whatever surfaces render its state.
package bus

import (
	"sync"

	"go.uber.org/zap"
)

type Listener func()

type subscription struct {
	id int
	fn Listener
}

// Bus is an explicitly constructed publish/subscribe registry. Publish
// invokes listeners synchronously in registration order; a panicking
// listener never prevents the others from running.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

func New() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (b *Bus) Subscribe(fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish signals every subscriber that state changed.
func (b *Bus) Publish() {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		invoke(s.fn)
	}
}

func invoke(fn Listener) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Warnw("change bus listener panicked", "panic", r)
		}
	}()
	fn()
}
