// Package main is the entry point for the Birthdays API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/birthdays/internal/config"
	"github.com/pkordes/birthdays/internal/domain"
	"github.com/pkordes/birthdays/internal/handler"
	"github.com/pkordes/birthdays/internal/middleware"
	"github.com/pkordes/birthdays/internal/repo"
	"github.com/pkordes/birthdays/internal/service"
	"github.com/pkordes/birthdays/migrations"
	"github.com/pkordes/birthdays/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
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

	// --- Storage ----------------------------------------------------------
	birthdayRepo, closeRepo, err := openRepo(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer closeRepo()
	slog.Info("storage ready", "backend", cfg.StorageBackend)

	// --- Services ---------------------------------------------------------
	clock := domain.SystemClock{}
	birthdaySvc := service.NewBirthdayService(birthdayRepo, clock)
	exportSvc := service.NewExportService(birthdayRepo, clock)

	srvHandler := handler.NewServer(birthdaySvc, exportSvc, handler.Options{
		Logger:           logger,
		Clock:            clock,
		ConcealForbidden: cfg.ConcealForbidden,
		OpenAPI:          spec.OpenAPI,
	})
	auth := middleware.NewAuthenticator([]byte(cfg.JWTSecret), middleware.AuthOptions{
		Leeway: cfg.JWTLeeway,
		Logger: logger,
	})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → MaxBody.
	// CORS sits outside authentication so preflight requests never need a token.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", srvHandler.Routes(auth))

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openRepo builds the BirthdayRepo selected by STORAGE_BACKEND and returns a
// function that releases its connections.
func openRepo(ctx context.Context, cfg config.Config) (repo.BirthdayRepo, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create database pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if cfg.RunMigrations {
			// goose drives database/sql; wrap the pool instead of opening a second one.
			db := stdlib.OpenDBFromPool(pool)
			applied, err := migrations.Up(ctx, db)
			db.Close()
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			slog.Info("migrations applied", "count", applied)
		}
		return repo.NewPostgresRepo(pool), pool.Close, nil

	case config.BackendDynamoDB:
		client, err := repo.NewDynamoClient(ctx, repo.DynamoOptions{
			Region:   cfg.AWSRegion,
			Profile:  cfg.AWSProfile,
			Endpoint: cfg.DynamoEndpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo.NewDynamoRepo(client, cfg.DynamoTable, cfg.DynamoOwnerIndex), func() {}, nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return repo.NewRedisRepo(rdb), func() { rdb.Close() }, nil

	case config.BackendMemory:
		slog.Warn("using in-memory storage; data is lost on restart")
		return repo.NewMemoryRepo(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
