package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth"
	"github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking"
	rankingmetrics "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/metrics"
	"github.com/Black-And-White-Club/rhythm-ranker/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

const serviceName = "rhythm-ranker"

// App wires the ranking engine to its database, HTTP surface and job queue.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *bun.DB
	Registry      *prometheus.Registry
	Router        chi.Router
	AuthModule    *auth.Module
	RankingModule *ranking.Module

	server        *http.Server
	metricsServer *http.Server
	wg            sync.WaitGroup
}

// Options adjusts how NewApp builds the application.
type Options struct {
	// WithoutHTTP skips the HTTP servers and job queue, as the CLI does.
	WithoutHTTP bool
}

// NewLogger builds the JSON logger every component writes through.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("environment", cfg.Observability.Environment),
	)
}

// NewDB opens the Postgres connection behind bun.
func NewDB(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// NewApp initializes the application with the necessary services and configuration.
func NewApp(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := NewLogger(cfg)

	db, err := NewDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Registry: registry,
	}

	deps := ranking.Deps{
		DB:           db,
		Logger:       logger,
		Metrics:      rankingmetrics.NewPrometheus(registry),
		Tracer:       otel.Tracer(serviceName),
		DisableQueue: opts.WithoutHTTP,
	}

	if !opts.WithoutHTTP {
		authModule, err := auth.NewModule(cfg, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		app.AuthModule = authModule

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Get("/healthz", app.handleHealth)
		app.Router = r

		deps.Router = r
		deps.Authenticate = authModule.Middleware()
	}

	rankingModule, err := ranking.NewRankingModule(ctx, cfg, deps)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ranking module: %w", err)
	}
	app.RankingModule = rankingModule

	return app, nil
}

func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := app.DB.PingContext(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	if q := app.RankingModule.Queue; q != nil {
		if err := q.HealthCheck(r.Context()); err != nil {
			http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Run serves HTTP and runs the modules until ctx is canceled.
func (app *App) Run(ctx context.Context) error {
	app.wg.Add(1)
	go app.RankingModule.Run(ctx, &app.wg)

	if app.Router == nil {
		<-ctx.Done()
		return nil
	}

	errCh := make(chan error, 2)

	app.server = &http.Server{
		Addr:              app.Config.HTTP.Address,
		Handler:           otelhttp.NewHandler(app.Router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		app.Logger.Info("HTTP server listening", slog.String("address", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if addr := app.Config.Observability.MetricsAddress; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
		app.metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			app.Logger.Info("Metrics server listening", slog.String("address", addr))
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Close shuts down servers, modules and the database.
func (app *App) Close(ctx context.Context) error {
	app.Logger.Info("Shutting down application")

	var errs []error
	for _, srv := range []*http.Server{app.server, app.metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if app.RankingModule != nil {
		if err := app.RankingModule.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.wg.Wait()
	if err := app.DB.Close(); err != nil {
		errs = append(errs, err)
	}

	app.Logger.Info("Application shut down")
	return errors.Join(errs...)
}
