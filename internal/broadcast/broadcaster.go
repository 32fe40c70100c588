// Package broadcast fans collaboration events out to the sessions
// subscribed to a document. Delivery to each subscriber is FIFO; a full
// subscriber drops its oldest queued event rather than blocking the
// publisher.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/collab-docs/collabserver/internal/event"
	"github.com/google/uuid"
)

// DefaultBufferSize is the per-subscription queue depth.
const DefaultBufferSize = 64

// Broadcaster owns one topic per live document.
type Broadcaster struct {
	mu      sync.RWMutex
	topics  map[string]*topic
	bufSize int
}

type topic struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// Subscription is one subscriber's ordered delivery channel. Close is
// idempotent and observable by the broadcaster, so dropped subscriptions
// never leak.
type Subscription struct {
	id         string
	documentID string
	clientID   string
	b          *Broadcaster

	mu      sync.Mutex // guards ch sends against Close
	ch      chan *event.Event
	closed  bool
	dropped atomic.Uint64
}

// New returns a broadcaster with the default per-subscriber buffer.
func New() *Broadcaster {
	return NewWithBuffer(DefaultBufferSize)
}

// NewWithBuffer returns a broadcaster whose subscriptions queue up to
// size events before the drop-oldest policy engages.
func NewWithBuffer(size int) *Broadcaster {
	if size < 1 {
		size = 1
	}
	return &Broadcaster{
		topics:  make(map[string]*topic),
		bufSize: size,
	}
}

// Subscribe registers clientID on the document's topic and returns its
// subscription. Every event published after this call is delivered in
// publish order until Close.
func (b *Broadcaster) Subscribe(documentID, clientID string) *Subscription {
	sub := &Subscription{
		id:         uuid.New().String(),
		documentID: documentID,
		clientID:   clientID,
		ch:         make(chan *event.Event, b.bufSize),
		b:          b,
	}

	// The insert happens under b.mu so a concurrent unsubscribe cannot
	// delete the topic between lookup and insert, which would leave this
	// subscription attached to an orphaned topic.
	b.mu.Lock()
	t, ok := b.topics[documentID]
	if !ok {
		t = &topic{subs: make(map[string]*Subscription)}
		b.topics[documentID] = t
	}
	t.mu.Lock()
	t.subs[sub.id] = sub
	t.mu.Unlock()
	b.mu.Unlock()
	return sub
}

// Publish delivers ev to every current subscriber of ev.DocumentID,
// skipping excludeClientID when non-empty. It never blocks: a full
// subscriber loses its oldest queued event and has the loss counted.
func (b *Broadcaster) Publish(ev *event.Event, excludeClientID string) {
	b.mu.RLock()
	t, ok := b.topics[ev.DocumentID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	t.mu.RLock()
	subs := make([]*Subscription, 0, len(t.subs))
	for _, sub := range t.subs {
		subs = append(subs, sub)
	}
	t.mu.RUnlock()

	for _, sub := range subs {
		if excludeClientID != "" && sub.clientID == excludeClientID {
			continue
		}
		sub.offer(ev)
	}
}

// SubscriberCount returns the number of live subscriptions on a document.
func (b *Broadcaster) SubscriberCount(documentID string) int {
	b.mu.RLock()
	t, ok := b.topics[documentID]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

func (b *Broadcaster) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	t, ok := b.topics[sub.documentID]
	if !ok {
		b.mu.Unlock()
		return
	}
	t.mu.Lock()
	delete(t.subs, sub.id)
	empty := len(t.subs) == 0
	t.mu.Unlock()
	if empty {
		delete(b.topics, sub.documentID)
	}
	b.mu.Unlock()
}

// offer enqueues without blocking, evicting the oldest queued event when
// the buffer is full. The mutex serialises senders against Close so a
// racing publisher can never hit a closed channel.
func (s *Subscription) offer(ev *event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- ev:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
	}
}

// C is the receive side of the subscription. The channel is closed by
// Close.
func (s *Subscription) C() <-chan *event.Event { return s.ch }

// ClientID returns the subscriber's client id.
func (s *Subscription) ClientID() string { return s.clientID }

// DocumentID returns the subscribed document.
func (s *Subscription) DocumentID() string { return s.documentID }

// Dropped returns how many events this subscriber lost to backpressure.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close detaches the subscription and closes its channel. Safe to call
// more than once and safe to race with Publish.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.b.unsubscribe(s)
}
