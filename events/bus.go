package events

import "sync"

// Kind names a class of events.
type Kind string

// Wildcard subscribes a handler to every kind.
const Wildcard Kind = "*"

// Handler receives a published payload.
type Handler[E any] func(kind Kind, event E)

type subscription[E any] struct {
	id      uint64
	handler Handler[E]
}

// Bus maps event kinds to ordered handler lists. It is safe for concurrent
// use; handlers run on the publishing goroutine.
type Bus[E any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind][]subscription[E]
}

// NewBus creates an empty bus.
func NewBus[E any]() *Bus[E] {
	return &Bus[E]{subs: make(map[Kind][]subscription[E])}
}

// Subscribe registers h for kind and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (b *Bus[E]) Subscribe(kind Kind, h Handler[E]) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription[E]{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(kind, id) })
	}
}

func (b *Bus[E]) remove(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[kind]
	for i, s := range subs {
		if s.id == id {
			// Copy so in-flight Publish calls keep their snapshot intact.
			next := make([]subscription[E], 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, kind)
			} else {
				b.subs[kind] = next
			}
			return
		}
	}
}

// Publish calls every handler registered for kind, then every wildcard
// handler, each in registration order. It returns the number of handlers
// invoked.
func (b *Bus[E]) Publish(kind Kind, event E) int {
	b.mu.RLock()
	direct := b.subs[kind]
	var wild []subscription[E]
	if kind != Wildcard {
		wild = b.subs[Wildcard]
	}
	b.mu.RUnlock()

	for _, s := range direct {
		s.handler(kind, event)
	}
	for _, s := range wild {
		s.handler(kind, event)
	}
	return len(direct) + len(wild)
}

// Count returns the number of handlers registered for kind.
func (b *Bus[E]) Count(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}
