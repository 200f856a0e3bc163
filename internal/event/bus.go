package event

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dshills/redline/internal/event/topic"
)

// Sentinel errors for the bus.
var (
	// ErrNilHandler is returned when a nil handler is subscribed.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidTopic is returned when a topic pattern is empty.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrSubscriptionNotFound is returned when unsubscribing an unknown subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Event is a published occurrence on a topic.
type Event struct {
	Topic   topic.Topic
	Time    time.Time
	Payload any
}

// Handler processes a delivered event.
type Handler func(ctx context.Context, ev Event)

// PanicHandler is invoked when a subscriber panics during delivery.
type PanicHandler func(ev Event, recovered any, stack []byte)

// Subscription identifies a registered handler.
type Subscription struct {
	id      uint64
	pattern topic.Topic
}

// Pattern returns the topic pattern the subscription matches.
func (s Subscription) Pattern() topic.Topic {
	return s.pattern
}

// Bus delivers events to pattern-matched subscribers.
// All methods are safe for concurrent use.
type Bus struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]subscriber
	onPanic PanicHandler
}

type subscriber struct {
	pattern topic.Topic
	handler Handler
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithPanicHandler sets the hook invoked when a handler panics.
func WithPanicHandler(h PanicHandler) BusOption {
	return func(b *Bus) {
		b.onPanic = h
	}
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{subs: make(map[uint64]subscriber)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for every topic matching pattern.
func (b *Bus) Subscribe(pattern topic.Topic, h Handler) (Subscription, error) {
	if h == nil {
		return Subscription{}, ErrNilHandler
	}
	if pattern == "" {
		return Subscription{}, ErrInvalidTopic
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[b.nextID] = subscriber{pattern: pattern, handler: h}
	return Subscription{id: b.nextID, pattern: pattern}, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.id]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(b.subs, sub.id)
	return nil
}

// Publish delivers an event synchronously to all matching subscribers.
// Handler panics are recovered and reported via the panic hook.
func (b *Bus) Publish(ctx context.Context, t topic.Topic, payload any) {
	ev := Event{Topic: t, Time: time.Now(), Payload: payload}

	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.pattern.Match(t) {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		b.deliver(ctx, ev, h)
	}
}

func (b *Bus) deliver(ctx context.Context, ev Event, h Handler) {
	defer func() {
		if r := recover(); r != nil && b.onPanic != nil {
			b.onPanic(ev, r, debug.Stack())
		}
	}()
	h(ctx, ev)
}
