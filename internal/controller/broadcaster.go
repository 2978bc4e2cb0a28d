package controller

import (
	"sync"
	"sync/atomic"

	"github.com/apophisnow/icemaker/internal/models"
)

// DefaultSubscriberBuffer is used when Subscribe is called with a
// non-positive buffer size.
const DefaultSubscriberBuffer = 64

// Broadcaster fans events out to subscribers without ever blocking the
// publisher. A subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[uint64]chan models.Event
	nextID  uint64
	dropped atomic.Uint64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]chan models.Event)}
}

// Subscribe registers a new observer. The returned cancel func closes the
// channel and is safe to call more than once.
func (b *Broadcaster) Subscribe(buf int) (<-chan models.Event, func()) {
	if buf <= 0 {
		buf = DefaultSubscriberBuffer
	}
	ch := make(chan models.Event, buf)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber with room for it.
func (b *Broadcaster) Publish(ev models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of registered observers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped is the total number of events not delivered because a buffer was full.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}
