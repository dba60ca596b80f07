package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campusdelivery/internal/cache"
	"campusdelivery/internal/config"
	"campusdelivery/internal/database"
	"campusdelivery/internal/handlers"
	"campusdelivery/internal/jobs"
	"campusdelivery/internal/log"
	"campusdelivery/internal/notify"
	"campusdelivery/internal/repository"
	"campusdelivery/internal/security"
	"campusdelivery/internal/server"
	"campusdelivery/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	var (
		dbPool   *pgxpool.Pool
		accounts repository.CredentialStore
		orders   repository.OrderRepository
	)
	switch cfg.Database.Driver {
	case "postgres":
		dbPool, err = database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		if cfg.Postgres.AutoMigrate {
			if err := database.Migrate(ctx, dbPool, logger); err != nil {
				logger.Fatal().Err(err).Msg("failed to migrate postgres")
			}
		}
		accounts = repository.NewPostgresCredentialStore(dbPool)
		orders = repository.NewPostgresOrderRepository(dbPool)
	default:
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		accounts = repository.NewMemoryCredentialStore()
		orders = repository.NewMemoryOrderRepository()
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		if cfg.Notifications.Driver == "stream" {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		logger.Warn().Err(err).Msg("redis unavailable, rate limiting disabled")
	}

	var notifier notify.Notifier
	if cfg.Notifications.Driver == "stream" {
		notifier = notify.NewStreamNotifier(redisClient, cfg.Redis.NotificationStream)
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	tokens, err := security.NewTokenIssuer([]byte(cfg.Security.JWTSecret), cfg.Security.JWTFullTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init token issuer")
	}
	hasher := security.NewArgon2Hasher(security.Argon2Params{
		Time:    cfg.Security.Argon2.Time,
		Memory:  cfg.Security.Argon2.MemoryKiB,
		Threads: cfg.Security.Argon2.Threads,
	})

	authService := service.NewAuthService(accounts, hasher, tokens, security.NewTOTP(), notifier, service.AuthOptions{
		StaffRegistrationKey: cfg.Auth.StaffRegistrationKey,
		Issuer:               cfg.Auth.Issuer,
		ResetTokenTTL:        cfg.Auth.ResetTokenTTL,
	}, logger)
	orderService := service.NewOrderService(orders, notifier, logger, time.Now)

	deps := handlers.Deps{
		Auth:     authService,
		Orders:   orderService,
		Tokens:   tokens,
		Accounts: accounts,
		Cache:    redisClient,
	}
	if dbPool != nil {
		deps.DB = dbPool
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, deps)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(orderService, cfg.Orders.ExpirySchedule, cfg.Orders.PendingTTL, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop()

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
