package events

import (
	"context"
	"sync"
	"time"
)

// MemoryBus is an in-process Bus for single-instance deployments and tests.
// Slow subscribers lose events rather than block publishers.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: map[string]map[chan Event]struct{}{}}
}

func (b *MemoryBus) Publish(_ context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[e.UserID] {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, userID string) (<-chan Event, func(), error) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = map[chan Event]struct{}{}
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], ch)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
