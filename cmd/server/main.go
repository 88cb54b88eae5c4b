package main

import (
	"FrameBus/internal/adapters/eventbus"
	"FrameBus/internal/adapters/metrics"
	"FrameBus/internal/adapters/postgres"
	"FrameBus/internal/core/domain"
	"FrameBus/internal/core/ports"
	"FrameBus/internal/host"
	"FrameBus/internal/shared/config"
	"FrameBus/internal/shared/logger"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	baseLogger := logger.New(cfg.IsDev(), cfg.LogLevel)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Dur("frame_interval", cfg.Frame.Interval).
		Int("frame_limit", cfg.Frame.Limit).
		Bool("metrics", cfg.Metrics.Addr != "").
		Bool("fault_journal", cfg.Journal.DatabaseURL != "").
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Fault sinks: always log, optionally journal to Postgres
	sinks := []ports.FaultSink{eventbus.NewLogFaultSink(&baseLogger)}
	var journal *postgres.FaultJournal
	if cfg.Journal.DatabaseURL != "" {
		db, err := postgres.NewDB(ctx, cfg.Journal.DatabaseURL, &baseLogger)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to prepare fault journal schema")
		}
		journal = postgres.NewFaultJournal(db, cfg.Journal.QueueSize, &baseLogger)
		sinks = append(sinks, journal)
	}

	// 4. Registry, with metrics when enabled
	opts := []eventbus.Option{eventbus.WithFaultSink(eventbus.NewMultiFaultSink(sinks...))}
	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		promRegistry := prometheus.NewRegistry()
		promRegistry.MustRegister(collectors.NewGoCollector())
		opts = append(opts, eventbus.WithPublishObserver(metrics.NewBusMetrics(promRegistry)))
		metricsServer = startMetricsServer(cfg.Metrics.Addr, promRegistry, &baseLogger)
	}

	registry := eventbus.NewRegistry(&baseLogger, opts...)
	if err := registry.RegisterInternal(domain.InternalCatalog()...); err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to register internal channels")
	}

	// 5. Game logic: every key press scores a point
	var score atomic.Int64
	if err := wireScore(registry, &score, &baseLogger); err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to wire game channels")
	}

	// 6. Host collaborators
	poller, err := host.NewInputPoller(registry, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize input poller")
	}
	input := host.NewScriptedInput(
		host.InputState{},
		host.InputState{Keys: []host.Key{32}},
		host.InputState{Keys: []host.Key{32}, Buttons: []host.Button{0}},
		host.InputState{},
	)
	loop, err := host.NewFrameLoop(registry, poller, input, host.FrameLoopConfig{
		Interval: cfg.Frame.Interval,
		Limit:    cfg.Frame.Limit,
	}, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize frame loop")
	}

	baseLogger.Info().Strs("internal_channels", registry.InternalNames()).Msg("All services initialized successfully")

	// 7. Run until interrupted or the frame limit is reached
	if err := loop.Run(ctx); err != nil {
		baseLogger.Error().Err(err).Msg("Frame loop failed")
	}

	// 8. Shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			baseLogger.Error().Err(err).Msg("Metrics server shutdown error")
		}
	}
	if journal != nil {
		if err := journal.Close(shutdownCtx); err != nil {
			baseLogger.Error().Err(err).Msg("Fault journal shutdown error")
		}
	}

	baseLogger.Info().
		Int64("frames", loop.Frames()).
		Int64("score", score.Load()).
		Msg("Shut down gracefully")
}

// wireScore creates the "<score-changed>" channel and hooks it to key presses.
func wireScore(registry *eventbus.Registry, score *atomic.Int64, baseLogger *zerolog.Logger) error {
	log := baseLogger.With().Str("component", "score").Logger()

	keyPressed, ok := registry.Channel(domain.EventKeyPressed)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, domain.EventKeyPressed.Name())
	}

	scoreChanged, err := registry.Create("<score-changed>", false)
	if err != nil {
		return err
	}
	scoreChanged.SubscribeFunc("score-logger", func(ctx context.Context) error {
		log.Debug().Int64("score", score.Load()).Msg("Score changed")
		return nil
	})

	keyPressed.SubscribeFunc("score-counter", func(ctx context.Context) error {
		score.Add(1)
		scoreChanged.Publish(ctx)
		return nil
	})
	return nil
}

// startMetricsServer serves /metrics in the background.
func startMetricsServer(addr string, gatherer prometheus.Gatherer, baseLogger *zerolog.Logger) *http.Server {
	log := baseLogger.With().Str("component", "metrics_server").Logger()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("Starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}
