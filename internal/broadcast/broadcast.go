// Package broadcast is a per-instance publish/subscribe primitive. Delivery
// is synchronous and in subscription order.
package broadcast

import "sync"

type Listener[T any] func(T)

type Broadcaster[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	order     []uint64
	listeners map[uint64]Listener[T]
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		listeners: make(map[uint64]Listener[T]),
	}
}

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the listener. Calling it more than once is harmless.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

func (b *Broadcaster[T]) Subscribe(l Listener[T]) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.order = append(b.order, id)
	return &Subscription{cancel: func() { b.remove(id) }}
}

func (b *Broadcaster[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Broadcast delivers v to every listener subscribed when the call began.
// Listeners removed during delivery are skipped.
func (b *Broadcaster[T]) Broadcast(v T) {
	b.mu.Lock()
	ids := make([]uint64, len(b.order))
	copy(ids, b.order)
	b.mu.Unlock()

	for _, id := range ids {
		b.mu.Lock()
		l, ok := b.listeners[id]
		b.mu.Unlock()
		if ok {
			l(v)
		}
	}
}

func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
