package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/oggyb/movie-rating/internal/app"
	"github.com/oggyb/movie-rating/internal/auth"
	"github.com/oggyb/movie-rating/internal/cache"
	"github.com/oggyb/movie-rating/internal/catalog"
	"github.com/oggyb/movie-rating/internal/config"
	"github.com/oggyb/movie-rating/internal/db"
	"github.com/oggyb/movie-rating/internal/logger"
	"github.com/oggyb/movie-rating/internal/server"
	"github.com/oggyb/movie-rating/internal/service"
)

const (
	shutdownTimeout = 15 * time.Second
	healthInterval  = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(database); err != nil {
			log.Warn("failed to close db", "err", err)
		}
	}()

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		return err
	}
	defer redisCache.Close()

	tokens, err := auth.NewManager(cfg)
	if err != nil {
		return err
	}

	cat := catalog.New(cfg, log)
	if !cat.Configured() {
		log.Warn("TMDB_API_KEY is not set; catalog requests will fail")
	}

	appCtx := app.New(cfg, database, redisCache, log, cat, tokens)

	if cfg.IsDevelopment() {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	pingDB := func(ctx context.Context) error {
		sqlDB, err := database.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	checks := []server.HealthCheck{
		{Name: "database", Ping: pingDB},
		{Name: "redis", Ping: redisCache.Ping},
	}

	httpSrv := server.NewHTTPServer(cfg, server.NewRouter(cfg, log, checks, service.Registrars(appCtx)...))

	grpcSrv := server.NewGRPCServer()
	lis, err := server.Listen(cfg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting HTTP server", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting gRPC health server", "addr", lis.Addr().String())
		return grpcSrv.Serve(lis)
	})

	// gRPC health follows the database.
	g.Go(func() error {
		ticker := time.NewTicker(healthInterval)
		defer ticker.Stop()
		for {
			pctx, cancel := context.WithTimeout(gctx, 2*time.Second)
			grpcSrv.SetServing(pingDB(pctx) == nil)
			cancel()

			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcSrv.Stop()
		return httpSrv.Shutdown(sctx)
	})

	return g.Wait()
}
