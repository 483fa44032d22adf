// QuizHub is a room-based websocket broadcast hub for real-time quiz
// sessions. Producers publish events over a small REST API; the hub fans
// them out to every websocket client in the room, across processes via a
// NATS backplane.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	qhhttp "github.com/adaptivelabs/quizhub/internal/adapter/http"
	qhnats "github.com/adaptivelabs/quizhub/internal/adapter/nats"
	"github.com/adaptivelabs/quizhub/internal/adapter/natskv"
	otelx "github.com/adaptivelabs/quizhub/internal/adapter/otel"
	"github.com/adaptivelabs/quizhub/internal/adapter/ristretto"
	"github.com/adaptivelabs/quizhub/internal/adapter/tiered"
	"github.com/adaptivelabs/quizhub/internal/adapter/ws"
	"github.com/adaptivelabs/quizhub/internal/config"
	"github.com/adaptivelabs/quizhub/internal/hub"
	"github.com/adaptivelabs/quizhub/internal/logger"
	"github.com/adaptivelabs/quizhub/internal/middleware"
	"github.com/adaptivelabs/quizhub/internal/resilience"
	"github.com/adaptivelabs/quizhub/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLogger := logger.New(cfg.Logging)
	defer closeLogger.Close()
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"nats_url", cfg.NATS.URL,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownTelemetry, err := otelx.Init(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(sctx)
	}()

	metrics, err := otelx.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Backplane ---
	bus, err := qhnats.Connect(cfg.NATS, log)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = bus.Close() }()

	// --- Snapshot cache (L1 ristretto, L2 NATS KV) ---
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()

	var snapshots *service.Snapshot
	if kv, err := bus.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL); err != nil {
		// Snapshots are best-effort; without the KV bucket late joiners
		// simply miss the current quiz until the next publish.
		log.Warn("snapshot bucket unavailable, using in-process cache only", "error", err)
		snapshots = service.NewSnapshot(log, l1, cfg.Cache.L2TTL)
	} else {
		snapshots = service.NewSnapshot(log, tiered.New(l1, natskv.New(kv), cfg.Cache.L2TTL), cfg.Cache.L2TTL)
	}

	// --- Hub ---
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	h := hub.New(log, bus, breaker, hub.NewRegistry())
	h.SetDeliveryHooks(
		func(_ string, n int) {
			metrics.EventsDelivered.Add(ctx, int64(n))
			metrics.FanoutSize.Record(ctx, int64(n))
		},
		func(string) { metrics.EventsDropped.Add(ctx, 1) },
	)

	// --- HTTP ---
	wsHandler := ws.NewHandler(log, h, snapshots, metrics, cfg.Hub)
	handlers := &qhhttp.Handlers{
		Hub:       h,
		Snapshots: snapshots,
		Backplane: bus,
		Breaker:   breaker,
		Metrics:   metrics,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(qhhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(qhhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.Health)
	r.Get("/ws/{quizID}", wsHandler.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Use(otelx.HTTPMiddleware("quizhub-api"))
		qhhttp.MountRoutes(r, handlers)
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Hub.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests, then drain websocket connections, then let
	// the backplane flush pending messages.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}
	if err := h.Shutdown(shutdownCtx); err != nil {
		log.Warn("hub drain incomplete", "error", err)
	}
	if err := bus.Drain(); err != nil {
		log.Warn("backplane drain failed", "error", err)
	}

	log.Info("shutdown complete")
	return nil
}
