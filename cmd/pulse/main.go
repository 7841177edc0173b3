package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/soundforge/pulse/pkg/config"
	"github.com/soundforge/pulse/pkg/observability"
	"github.com/soundforge/pulse/pkg/ranking"
	"github.com/soundforge/pulse/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)

	serviceLog := logrus.New()
	serviceLog.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(cfg.Observability.LogLevel); err == nil {
		serviceLog.SetLevel(lvl)
	}

	// Metrics registry (own registry, not the global default)
	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// Alert thresholds: env defaults, optionally overridden by file
	thresholds := cfg.Engine.Thresholds
	if cfg.Engine.ThresholdsFile != "" {
		thresholds, err = config.LoadThresholds(cfg.Engine.ThresholdsFile, cfg.Engine.Thresholds)
		if err != nil {
			logger.WithError(err).Error("Failed to load thresholds file")
			os.Exit(1)
		}
	}

	engine, err := telemetry.NewEngine(telemetry.EngineOptions{
		WindowHorizon:  cfg.Engine.WindowHorizon,
		RollupInterval: cfg.Engine.RollupInterval,
		AlertInterval:  cfg.Engine.AlertInterval,
		SweepInterval:  cfg.Engine.SweepInterval,
		TrendingWindow: cfg.Engine.TrendingWindow,
		Thresholds:     thresholds,
		Recorder: telemetry.RecorderOptions{
			ActorHistoryLimit: cfg.Engine.ActorHistoryLimit,
			ActorCacheSize:    cfg.Engine.ActorCacheSize,
			ActorCacheTTL:     cfg.Engine.ActorCacheTTL,
		},
		Sweeper: telemetry.SweeperOptions{
			MaxAge:   cfg.Engine.RetentionMaxAge,
			MinPlays: cfg.Engine.RetentionMinPlays,
		},
	}, serviceLog)
	if err != nil {
		logger.WithError(err).Error("Failed to construct engine")
		os.Exit(1)
	}

	engine.SetMetrics(metrics)

	query := ranking.NewQuery(engine.Store(), cfg.Engine.Weights, cfg.Engine.TrendingWindow)

	// API router
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	telemetry.NewHandlers(engine, metrics, serviceLog).RegisterRoutes(api)
	ranking.NewHandlers(query).RegisterRoutes(api)
	api.Use(telemetry.SelfInstrumentation(engine.Recorder(), serviceLog))
	if metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(metrics))
	}

	// Health/metrics server on its own port
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	observability.RegisterMetricsEndpoint(healthMux, registry)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	if err := engine.Start(); err != nil {
		logger.WithError(err).Error("Failed to start engine")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Pulse API listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("Health/metrics listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Engine.ThresholdsFile != "" {
		g.Go(func() error {
			return config.WatchThresholds(gctx, cfg.Engine.ThresholdsFile, cfg.Engine.Thresholds,
				serviceLog, engine.Evaluator().SetThresholds)
		})
	}

	sm := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	sm.RegisterShutdownFunc(engine.Shutdown)
	sm.RegisterShutdownFunc(func(context.Context) error {
		cancel()
		return nil
	})

	if err := sm.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
	}
	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server error")
		os.Exit(1)
	}
}
