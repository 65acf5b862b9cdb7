package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/hospital-channeling/internal/api"
	"github.com/hackgods/hospital-channeling/internal/appointment"
	"github.com/hackgods/hospital-channeling/internal/config"
	"github.com/hackgods/hospital-channeling/internal/db"
	"github.com/hackgods/hospital-channeling/internal/doctor"
	"github.com/hackgods/hospital-channeling/internal/logging"
	"github.com/hackgods/hospital-channeling/internal/notification"
	redisclient "github.com/hackgods/hospital-channeling/internal/redis"
	"github.com/hackgods/hospital-channeling/internal/session"
	"github.com/hackgods/hospital-channeling/internal/testimonial"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(os.Getenv("APP_ENV"), "info")
		boot.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "api-server").Logger()
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	if err == nil {
		err = db.Migrate(pgCtx, pgPool)
	}
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres setup error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres, schema applied")

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
	logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

	apptRepo := appointment.NewPgRepository(pgPool)
	locker := redisclient.NewRedisChannelLocker(rdb, cfg.LockTTL, cfg.LockRetries)
	notifier := notification.NewRedisPublisher(rdb, cfg.NotifyChannel, logger)

	health := api.NewHealthHandler(cfg.Env, version).
		WithCheck("postgres", true, api.PostgresCheck(pgPool)).
		WithCheck("redis", false, api.RedisCheck(rdb))

	router := api.NewRouter(api.RouterConfig{
		Appointments:   appointment.NewService(apptRepo, locker, notifier, logger),
		Doctors:        doctor.NewService(doctor.NewPgRepository(pgPool), logger),
		Testimonials:   testimonial.NewService(testimonial.NewPgRepository(pgPool), apptRepo, logger),
		Health:         health,
		Sessions:       session.DefaultChain(cfg.JWTSecret),
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
