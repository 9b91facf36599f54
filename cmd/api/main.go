package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/whatlove/getinthegame/internal/app/migrate"
	httpx "github.com/whatlove/getinthegame/internal/http"
	"github.com/whatlove/getinthegame/internal/repository"
	"github.com/whatlove/getinthegame/internal/repository/postgres"
	"github.com/whatlove/getinthegame/internal/session"
	"github.com/whatlove/getinthegame/internal/ws"
	"github.com/whatlove/getinthegame/pkg/config"
	"github.com/whatlove/getinthegame/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", cfg.Environment, slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var archive repository.MatchArchive = repository.NewMemoryArchive()
	var dbHealth func(context.Context) error
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		runner, err := migrate.New(pool, dsn, cfg.MigrationsDir, log)
		if err != nil {
			log.Error("failed to configure migrations", "error", err)
			os.Exit(1)
		}
		if err := runner.Ping(ctx); err != nil {
			log.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		if err := runner.Ensure(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		archive = postgres.New(pool)
		dbHealth = pool.Ping
	} else {
		log.Info("no database configured, match archive is in-memory only")
	}

	hub := ws.NewHub()
	store, err := session.New(session.Config{
		Courts:            cfg.Courts,
		PlayersPerTeam:    cfg.PlayersPerTeam,
		PlayersPerTeamMin: cfg.PlayersPerTeamMin,
		PlayersPerTeamMax: cfg.PlayersPerTeamMax,
	}, archive, hub, log)
	if err != nil {
		log.Error("failed to open session", "error", err)
		os.Exit(1)
	}

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, store, archive, hub, limiter, dbHealth)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "courts", cfg.Courts)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
