package host

import (
	"FrameBus/internal/core/domain"
	"FrameBus/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FrameLoop drives the framework notifications: initialized once, then
// updated and rendered on every frame.
type FrameLoop struct {
	log zerolog.Logger

	initialized ports.Notifier
	updated     ports.Notifier
	rendered    ports.Notifier

	poller   *InputPoller
	input    InputSource
	interval time.Duration
	limit    int

	frames atomic.Int64
}

// FrameLoopConfig holds the loop settings.
type FrameLoopConfig struct {
	Interval time.Duration // time between frames, must be positive
	Limit    int           // stop after this many frames; 0 runs until the context ends
}

// NewFrameLoop registers the frame channels and resolves them. poller and
// input are optional; without both the loop publishes no input events.
func NewFrameLoop(
	registry ports.EventRegistry,
	poller *InputPoller,
	input InputSource,
	cfg FrameLoopConfig,
	baseLogger *zerolog.Logger,
) (*FrameLoop, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("frame interval must be positive")
	}
	if cfg.Limit < 0 {
		return nil, errors.New("frame limit cannot be negative")
	}

	frameEvents := []domain.InternalEvent{domain.EventInitialized, domain.EventUpdated, domain.EventRendered}
	if err := registry.RegisterInternal(frameEvents...); err != nil {
		return nil, fmt.Errorf("could not register frame events: %w", err)
	}

	notifiers := make([]ports.Notifier, len(frameEvents))
	for i, ev := range frameEvents {
		n, err := registry.Notifier(ev)
		if err != nil {
			return nil, fmt.Errorf("could not resolve %s: %w", ev.Name(), err)
		}
		notifiers[i] = n
	}

	return &FrameLoop{
		log:         baseLogger.With().Str("component", "frame_loop").Logger(),
		initialized: notifiers[0],
		updated:     notifiers[1],
		rendered:    notifiers[2],
		poller:      poller,
		input:       input,
		interval:    cfg.Interval,
		limit:       cfg.Limit,
	}, nil
}

// Run publishes initialized, then ticks until ctx is done or the frame limit
// is reached. It returns nil in both cases.
func (l *FrameLoop) Run(ctx context.Context) error {
	l.log.Info().Dur("interval", l.interval).Int("limit", l.limit).Msg("Starting frame loop...")

	ctx = l.log.WithContext(ctx)
	l.initialized.Publish(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Int64("frames", l.frames.Load()).Msg("Frame loop stopped")
			return nil
		case <-ticker.C:
			l.tick(ctx)
			if l.limit > 0 && l.frames.Load() >= int64(l.limit) {
				l.log.Info().Int64("frames", l.frames.Load()).Msg("Frame limit reached")
				return nil
			}
		}
	}
}

// tick runs one frame: input, update, render.
func (l *FrameLoop) tick(ctx context.Context) {
	if l.poller != nil && l.input != nil {
		l.poller.Poll(ctx, l.input.Sample())
	}
	l.updated.Publish(ctx)
	l.rendered.Publish(ctx)
	l.frames.Add(1)
}

// Frames returns the number of completed frames.
func (l *FrameLoop) Frames() int64 {
	return l.frames.Load()
}
