// Package main is the entry point for the naturalization tracker API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pkordes/naturalization-tracker/internal/auth"
	"github.com/pkordes/naturalization-tracker/internal/config"
	"github.com/pkordes/naturalization-tracker/internal/handler"
	"github.com/pkordes/naturalization-tracker/internal/metrics"
	"github.com/pkordes/naturalization-tracker/internal/middleware"
	"github.com/pkordes/naturalization-tracker/internal/repo"
	"github.com/pkordes/naturalization-tracker/internal/service"
	"github.com/pkordes/naturalization-tracker/internal/state"
	"github.com/pkordes/naturalization-tracker/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// --- Remote store (Postgres) -----------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("database connection established")

	if err := migrate(ctx, pool); err != nil {
		return err
	}

	// --- Local store (Redis or memory) ------------------------------------
	var kv repo.KV
	if cfg.RedisURL != "" {
		rkv, err := repo.NewRedisKV(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rkv.Close()
		kv = rkv
		slog.Info("local store on redis")
	} else {
		kv = repo.NewMemoryKV()
		slog.Warn("REDIS_URL not set; local store is in memory")
	}

	// --- Metrics ----------------------------------------------------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// --- Services ---------------------------------------------------------
	local := repo.NewLocalStore(kv, cfg.LocalKeyPrefix, logger)
	remote := repo.NewRemoteStore(pool, logger)
	identity := auth.NewProvider(cfg.JWTSecret, cfg.JWTIssuer, logger)
	var snapshots state.Store

	controller := service.NewController(local, remote, identity, &snapshots, logger, m)
	controller.Start(ctx)
	defer controller.Close()

	imports := service.NewImportService(controller, remote, identity)
	export := service.NewExportService(controller)

	// --- Router -----------------------------------------------------------
	// RequestID must run before SlogLogger so every line carries the ID.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	handler.NewServer(controller, imports, export, &snapshots, logger).Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// --- HTTP Server ------------------------------------------------------
	// GET /events clears its own write deadline; every other route is bound
	// by WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// migrate applies pending goose migrations through a database/sql view of
// the pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	n, err := migrations.Up(ctx, db)
	if err != nil {
		return err
	}
	slog.Info("migrations applied", "count", n)
	return nil
}
