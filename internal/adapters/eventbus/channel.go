package eventbus

import (
	"FrameBus/internal/core/domain"
	"FrameBus/internal/core/ports"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Subscriber wraps a handler with an identity.
// Channels compare subscribers by pointer, so keep the *Subscriber around
// to unsubscribe it later.
type Subscriber struct {
	id      uuid.UUID
	label   string
	handler ports.Handler
}

// NewSubscriber creates a subscriber. The label only shows up in diagnostics.
func NewSubscriber(label string, handler ports.Handler) *Subscriber {
	return &Subscriber{
		id:      uuid.New(),
		label:   label,
		handler: handler,
	}
}

// ID returns the unique id of the subscriber.
func (s *Subscriber) ID() uuid.UUID { return s.id }

// Label returns the diagnostic label of the subscriber.
func (s *Subscriber) Label() string { return s.label }

// Channel is one addressable notification point.
//
// Subscribers live in an immutable slice behind an atomic pointer. Writers
// take mu, build a new slice and store it; Publish only loads the pointer,
// so it never waits on a concurrent Subscribe or Unsubscribe.
type Channel struct {
	id       domain.ChannelID
	name     string
	internal atomic.Bool

	log      zerolog.Logger
	sink     ports.FaultSink
	observer ports.PublishObserver

	mu          sync.Mutex
	subscribers atomic.Pointer[[]*Subscriber]
}

var _ ports.Notifier = (*Channel)(nil)

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithChannelFaultSink replaces the default logging fault sink.
func WithChannelFaultSink(sink ports.FaultSink) ChannelOption {
	return func(c *Channel) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithChannelObserver attaches an instrumentation hook.
func WithChannelObserver(observer ports.PublishObserver) ChannelOption {
	return func(c *Channel) {
		c.observer = observer
	}
}

// NewChannel creates a standalone channel. Channels obtained from a Registry
// are built the same way and share the registry's sink and observer.
func NewChannel(id domain.ChannelID, name string, baseLogger *zerolog.Logger, opts ...ChannelOption) *Channel {
	c := &Channel{
		id:   id,
		name: name,
		log: baseLogger.With().
			Str("component", "event_channel").
			Str("channel", name).
			Uint64("channel_id", uint64(id)).
			Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sink == nil {
		c.sink = NewLogFaultSink(baseLogger)
	}

	empty := make([]*Subscriber, 0)
	c.subscribers.Store(&empty)
	return c
}

// ID returns the registry-assigned id.
func (c *Channel) ID() domain.ChannelID { return c.id }

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Internal reports whether the channel is currently reserved in its registry.
func (c *Channel) Internal() bool { return c.internal.Load() }

// Subscribe appends sub to the channel. Subscribing the same subscriber twice
// is a no-op; so is a nil subscriber.
func (c *Channel) Subscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current := *c.subscribers.Load()
	for _, existing := range current {
		if existing == sub {
			return
		}
	}

	next := make([]*Subscriber, len(current)+1)
	copy(next, current)
	next[len(current)] = sub
	c.subscribers.Store(&next)

	c.log.Debug().
		Str("subscriber", sub.label).
		Str("subscriber_id", sub.id.String()).
		Int("subscribers", len(next)).
		Msg("Subscriber added")
}

// SubscribeFunc wraps handler in a new Subscriber and subscribes it.
// The returned subscriber is what Unsubscribe expects.
func (c *Channel) SubscribeFunc(label string, handler ports.Handler) *Subscriber {
	sub := NewSubscriber(label, handler)
	c.Subscribe(sub)
	return sub
}

// Unsubscribe removes sub if it is subscribed. A publish already in flight
// keeps running against the snapshot it loaded.
func (c *Channel) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current := *c.subscribers.Load()
	idx := -1
	for i, existing := range current {
		if existing == sub {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	next := make([]*Subscriber, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	c.subscribers.Store(&next)

	c.log.Debug().
		Str("subscriber", sub.label).
		Str("subscriber_id", sub.id.String()).
		Int("subscribers", len(next)).
		Msg("Subscriber removed")
}

// SubscriberCount returns the number of current subscribers.
func (c *Channel) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(*c.subscribers.Load())
}

// Publish notifies every subscriber of the current snapshot, in subscription
// order, on the calling goroutine. Failing subscribers are reported to the
// fault sink and do not stop the remaining ones.
func (c *Channel) Publish(ctx context.Context) {
	snapshot := *c.subscribers.Load()

	var start time.Time
	if c.observer != nil {
		start = time.Now()
	}

	failed := 0
	for _, sub := range snapshot {
		panicked, err := c.invoke(ctx, sub)
		if err == nil {
			continue
		}
		failed++
		c.reportFault(ctx, domain.SubscriberFault{
			ChannelID:       c.id,
			ChannelName:     c.name,
			SubscriberID:    sub.id,
			SubscriberLabel: sub.label,
			Err:             err,
			Panicked:        panicked,
		})
	}

	if c.observer != nil {
		c.observePublish(len(snapshot)-failed, failed, time.Since(start))
	}

	c.log.Trace().
		Int("delivered", len(snapshot)-failed).
		Int("failed", failed).
		Msg("Published")
}

// invoke runs one handler and turns a panic into an error.
func (c *Channel) invoke(ctx context.Context, sub *Subscriber) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			panicked = true
		}
	}()
	return false, sub.handler(ctx)
}

// reportFault hands a fault to the sink. A panicking sink is logged and
// swallowed so the remaining subscribers still run.
func (c *Channel) reportFault(ctx context.Context, fault domain.SubscriberFault) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Interface("panic", r).
				Err(fault.Err).
				Str("subscriber", fault.SubscriberLabel).
				Msg("Fault sink panicked")
		}
	}()
	c.sink.ReportFault(ctx, fault)
}

func (c *Channel) observePublish(delivered, failed int, took time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("Publish observer panicked")
		}
	}()
	c.observer.ObservePublish(c.name, delivered, failed, took)
}
