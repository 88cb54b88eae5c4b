package metrics

import (
	"FrameBus/internal/adapters/eventbus"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusMetrics_ObservePublish(t *testing.T) {
	m := NewBusMetrics(prometheus.NewRegistry())

	m.ObservePublish("<updated>", 3, 1, time.Millisecond)
	m.ObservePublish("<updated>", 0, 0, time.Microsecond)
	m.ObserveChannels(5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PublishesTotal.WithLabelValues("<updated>")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("<updated>")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubscriberFaultsTotal.WithLabelValues("<updated>")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Channels))
}

func TestBusMetrics_WiredIntoRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusMetrics(reg)
	nopLogger := zerolog.Nop()

	registry := eventbus.NewRegistry(&nopLogger, eventbus.WithPublishObserver(m))
	ch, err := registry.Create("<score-changed>", false)
	require.NoError(t, err)

	ch.SubscribeFunc("ok", func(ctx context.Context) error { return nil })
	ch.SubscribeFunc("bad", func(ctx context.Context) error { return errors.New("bad") })
	ch.Publish(context.Background())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishesTotal.WithLabelValues("<score-changed>")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubscriberFaultsTotal.WithLabelValues("<score-changed>")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Channels))

	count, err := testutil.GatherAndCount(reg, "framebus_publish_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewBusMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewBusMetrics(reg)
	assert.Panics(t, func() { NewBusMetrics(reg) })
}
