package bus

import (
	"context"
	"errors"
	"sync"
)

// LocalEvent is one event fanned out in-process, for websocket/telemetry
// subscribers that want typed events without round-tripping through
// Redis.
type LocalEvent struct {
	Name    string
	Payload any
}

// LocalSubscriber reacts to events published on a LocalBus.
type LocalSubscriber interface {
	HandleLocalEvent(ctx context.Context, event LocalEvent)
}

// LocalSubscriberFunc adapts a function to LocalSubscriber.
type LocalSubscriberFunc func(ctx context.Context, event LocalEvent)

// HandleLocalEvent calls f.
func (f LocalSubscriberFunc) HandleLocalEvent(ctx context.Context, event LocalEvent) { f(ctx, event) }

// LocalBus fans out events to in-process subscribers (websocket pushers,
// telemetry hooks) independently of the Redis-backed Pulse stream. Per
// spec.md §4.13, a LocalBus publish failure never aborts the engine run
// that produced the event — Publish here cannot fail at all, by design,
// unlike the Redis path which can.
//
// Grounded on runtime/agent/hooks.Bus: a mutex-guarded subscriber map with
// a snapshot-then-iterate Publish and an idempotent Subscription.Close,
// adapted from fail-fast (stop at first subscriber error) to best-effort
// (subscribers cannot return an error at all) since no local subscriber in
// this domain is allowed to block optimization delivery.
type LocalBus struct {
	mu          sync.RWMutex
	subscribers map[*localSubscription]LocalSubscriber
}

type localSubscription struct {
	bus  *LocalBus
	once sync.Once
}

// NewLocalBus constructs an empty LocalBus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subscribers: make(map[*localSubscription]LocalSubscriber)}
}

// Publish delivers event to every currently registered subscriber.
func (b *LocalBus) Publish(ctx context.Context, event LocalEvent) {
	b.mu.RLock()
	subs := make([]LocalSubscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()
	for _, sub := range subs {
		sub.HandleLocalEvent(ctx, event)
	}
}

// Subscribe registers sub and returns a closer that unregisters it.
func (b *LocalBus) Subscribe(sub LocalSubscriber) (func(), error) {
	if sub == nil {
		return nil, errors.New("bus: local subscriber is required")
	}
	s := &localSubscription{bus: b}
	b.mu.Lock()
	b.subscribers[s] = sub
	b.mu.Unlock()
	return s.close, nil
}

func (s *localSubscription) close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subscribers, s)
		s.bus.mu.Unlock()
	})
}
