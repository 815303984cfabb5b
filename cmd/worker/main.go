package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/glamyouup/mailflow/internal/config"
	"github.com/glamyouup/mailflow/internal/infra/postgresql"
	"github.com/glamyouup/mailflow/internal/infra/postgresql/migrations"
	infraredis "github.com/glamyouup/mailflow/internal/infra/redis"
	"github.com/glamyouup/mailflow/internal/observability"
	"github.com/glamyouup/mailflow/internal/provider"
	"github.com/glamyouup/mailflow/internal/queue"
	"github.com/glamyouup/mailflow/internal/ratelimit"
	"github.com/glamyouup/mailflow/internal/repository"
	"github.com/glamyouup/mailflow/internal/service"
	"github.com/glamyouup/mailflow/internal/template"
	"github.com/glamyouup/mailflow/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	metrics := observability.NewMetrics()

	providerConfigs, err := cfg.ProviderConfigs()
	if err != nil {
		logger.Fatal("provider configuration failed", zap.Error(err))
	}
	providers, err := provider.BuildRegistry(ctx, providerConfigs)
	if err != nil {
		logger.Fatal("provider construction failed", zap.Error(err))
	}

	emailService, err := service.NewEmailService(
		providers,
		cfg.PrimaryProvider,
		cfg.FallbackProvider,
		logger,
		metrics,
	)
	if err != nil {
		logger.Fatal("email service initialization failed", zap.Error(err))
	}

	limiter, err := ratelimit.NewLimiter(
		repository.NewGormRateLimitRepo(db),
		cfg.Limits(),
		logger,
	)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	renderer := template.NewService(
		template.NewEngine(),
		repository.NewGormTemplateRepo(db),
		template.NewCache(rdb, time.Duration(cfg.TemplateCacheTTLSec)*time.Second),
		logger,
	)

	publisher := queue.NewRabbitMQPublisher(rabbit)
	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.ConsumerPrefetch, logger)

	deliveryService, err := service.NewDeliveryService(
		repository.NewGormNotificationRepo(db),
		repository.NewGormAttemptRepo(db),
		limiter,
		renderer,
		emailService,
		publisher,
		logger,
		metrics,
	)
	if err != nil {
		logger.Fatal("delivery service initialization failed", zap.Error(err))
	}

	dispatcher, err := service.NewDispatcher(deliveryService, consumer, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	scanner, err := service.NewRetryScanner(
		deliveryService,
		time.Duration(cfg.RetryScanIntervalSec)*time.Second,
		cfg.RetryMaxAttempts,
		logger,
	)
	if err != nil {
		logger.Fatal("retry scanner initialization failed", zap.Error(err))
	}

	opsServer := transport.NewOpsServer(cfg.OpsPort, sqlDB, rdb, metrics, logger)

	logger.Info("mailflow worker started",
		zap.String("primaryProvider", cfg.PrimaryProvider),
		zap.String("fallbackProvider", cfg.FallbackProvider),
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Int("opsPort", cfg.OpsPort),
	)

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Start(groupCtx) })
	g.Go(func() error { return scanner.Start(groupCtx) })
	g.Go(func() error { return opsServer.Start(groupCtx) })

	if err := g.Wait(); err != nil {
		logger.Fatal("worker terminated with error", zap.Error(err))
	}

	logger.Info("mailflow worker stopped")
}
