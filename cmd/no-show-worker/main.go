package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-channeling/internal/appointment"
	"github.com/hackgods/hospital-channeling/internal/config"
	"github.com/hackgods/hospital-channeling/internal/db"
	"github.com/hackgods/hospital-channeling/internal/logging"
	"github.com/hackgods/hospital-channeling/internal/notification"
	redisclient "github.com/hackgods/hospital-channeling/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(os.Getenv("APP_ENV"), "info")
		boot.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "no-show-worker").Logger()
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("no-show worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing redis")
		}
	}()

	repo := appointment.NewPgRepository(pgPool)
	locker := redisclient.NewRedisChannelLocker(rdb, cfg.LockTTL, cfg.LockRetries)
	svc := appointment.NewService(repo, locker, notification.NewLogNotifier(logger), logger)

	// Run once at startup
	runOnce(rootCtx, svc, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping no-show worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	marked, err := svc.MarkNoShows(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("no-show run error")
		return
	}
	logger.Info().Int("marked", marked).Dur("took", time.Since(start)).Msg("no-show run complete")
}
