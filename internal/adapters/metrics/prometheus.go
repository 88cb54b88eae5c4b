package metrics

import (
	"FrameBus/internal/core/ports"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusMetrics records event bus activity in Prometheus.
type BusMetrics struct {
	PublishesTotal        *prometheus.CounterVec
	DeliveriesTotal       *prometheus.CounterVec
	SubscriberFaultsTotal *prometheus.CounterVec
	PublishDuration       *prometheus.HistogramVec
	Channels              prometheus.Gauge
}

var _ ports.PublishObserver = (*BusMetrics)(nil)

// NewBusMetrics registers the bus metrics with registerer.
func NewBusMetrics(registerer prometheus.Registerer) *BusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &BusMetrics{
		PublishesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebus_publishes_total",
				Help: "Total number of channel publishes",
			},
			[]string{"channel"},
		),
		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebus_deliveries_total",
				Help: "Total number of subscriber notifications that completed without error",
			},
			[]string{"channel"},
		),
		SubscriberFaultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebus_subscriber_faults_total",
				Help: "Total number of subscriber invocations that failed or panicked",
			},
			[]string{"channel"},
		),
		PublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framebus_publish_duration_seconds",
				Help:    "Time to notify every subscriber of a channel",
				Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10), // 1µs to ~262ms
			},
			[]string{"channel"},
		),
		Channels: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "framebus_channels",
				Help: "Number of live channels in the registry",
			},
		),
	}
}

// ObservePublish implements ports.PublishObserver.
func (m *BusMetrics) ObservePublish(channelName string, delivered, failed int, took time.Duration) {
	m.PublishesTotal.WithLabelValues(channelName).Inc()
	if delivered > 0 {
		m.DeliveriesTotal.WithLabelValues(channelName).Add(float64(delivered))
	}
	if failed > 0 {
		m.SubscriberFaultsTotal.WithLabelValues(channelName).Add(float64(failed))
	}
	m.PublishDuration.WithLabelValues(channelName).Observe(took.Seconds())
}

// ObserveChannels implements ports.PublishObserver.
func (m *BusMetrics) ObserveChannels(count int) {
	m.Channels.Set(float64(count))
}
