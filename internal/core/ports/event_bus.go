package ports

import (
	"FrameBus/internal/core/domain"
	"context"
	"time"
)

// Handler is a subscriber callback. Signals carry no payload; the context only
// carries request-scoped values such as the publisher's logger.
// A returned error is reported as a subscriber fault, it never reaches the publisher.
type Handler func(ctx context.Context) error

// Notifier is the publishing side of a single channel.
type Notifier interface {
	Publish(ctx context.Context)
}

// FaultSink receives diagnostics for subscribers that failed during a publish.
// It is called synchronously on the publishing goroutine, so implementations
// must be quick and must not publish on the bus themselves.
type FaultSink interface {
	ReportFault(ctx context.Context, fault domain.SubscriberFault)
}

// PublishObserver is an optional instrumentation hook for the bus.
type PublishObserver interface {
	// ObservePublish is called once per Publish after all subscribers ran.
	ObservePublish(channelName string, delivered, failed int, took time.Duration)
	// ObserveChannels is called with the live channel count after every registry mutation.
	ObserveChannels(count int)
}

// EventRegistry is the part of the registry that framework producers need:
// bulk registration of the internal catalog and resolution of its channels.
type EventRegistry interface {
	RegisterInternal(events ...domain.InternalEvent) error
	Notifier(event domain.InternalEvent) (Notifier, error)
}
