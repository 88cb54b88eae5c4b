package eventbus

import (
	"FrameBus/internal/core/domain"
	"FrameBus/internal/core/ports"
	"context"

	"github.com/rs/zerolog"
)

// logFaultSink writes subscriber faults to a zerolog logger.
type logFaultSink struct {
	log zerolog.Logger
}

// NewLogFaultSink creates the default fault sink.
func NewLogFaultSink(baseLogger *zerolog.Logger) ports.FaultSink {
	return &logFaultSink{
		log: baseLogger.With().Str("component", "fault_sink").Logger(),
	}
}

// ReportFault logs the fault at error level.
func (s *logFaultSink) ReportFault(ctx context.Context, fault domain.SubscriberFault) {
	s.log.Error().
		Err(fault.Err).
		Str("channel", fault.ChannelName).
		Uint64("channel_id", uint64(fault.ChannelID)).
		Str("subscriber", fault.SubscriberLabel).
		Str("subscriber_id", fault.SubscriberID.String()).
		Bool("panicked", fault.Panicked).
		Msg("Subscriber failed during publish")
}

// multiFaultSink fans a fault out to several sinks in order.
type multiFaultSink []ports.FaultSink

// NewMultiFaultSink combines sinks. Nil sinks are skipped.
func NewMultiFaultSink(sinks ...ports.FaultSink) ports.FaultSink {
	out := make(multiFaultSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiFaultSink) ReportFault(ctx context.Context, fault domain.SubscriberFault) {
	for _, s := range m {
		s.ReportFault(ctx, fault)
	}
}
