package notify

import "sync"

const subscriptionBuffer = 16

// Subscription is one listener on a [Bus].
type Subscription struct {
	C    <-chan Notification
	ch   chan Notification
	done chan struct{}
	once sync.Once
}

// Done is closed once the subscription is cancelled or the bus is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) send(n Notification) {
	select {
	case <-s.done:
	case s.ch <- n:
	default:
		// Drop when the listener falls behind.
	}
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.done) })
}

// Bus is a [Sink] that fans notifications out to subscribers without blocking the publisher.
type Bus struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new listener.
func (b *Bus) Subscribe() *Subscription {
	ch := make(chan Notification, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, done: make(chan struct{})}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.close()
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

// Unsubscribe removes sub and closes its Done channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	sub.close()
}

// Notify implements [Sink].
func (b *Bus) Notify(n Notification) {
	b.mu.Lock()
	subs := make([]*Subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.send(n)
	}
}

// Close detaches every subscriber.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		s.close()
	}
	b.subs = nil
}
