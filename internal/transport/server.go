package transport

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glamyouup/mailflow/internal/observability"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

const (
	readinessTimeout = 2 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// OpsServer exposes health, readiness, and metrics endpoints for the worker.
type OpsServer struct {
	app    *fiber.App
	port   int
	logger *zap.Logger
}

func NewOpsServer(
	port int,
	sqlDB *sql.DB,
	rdb *redis.Client,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *OpsServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler(logger),
		DisableStartupMessage: true,
	})

	app.Use(metrics.HTTPMiddleware())
	app.Get("/healthz", HealthzHandler())
	app.Get("/readyz", ReadyzHandler(sqlDB, rdb))

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(metrics.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	return &OpsServer{
		app:    app,
		port:   port,
		logger: logger,
	}
}

// Start serves until context cancellation, then shuts down gracefully.
func (s *OpsServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(fmt.Sprintf(":%d", s.port))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ops server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down ops server")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return fmt.Errorf("ops server shutdown failed: %w", err)
		}
		return nil
	}
}

func HealthzHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func ReadyzHandler(sqlDB *sql.DB, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		pgStatus := "ok"
		pgDown := false
		if sqlDB == nil || sqlDB.PingContext(ctx) != nil {
			pgStatus = "down"
			pgDown = true
		}

		redisStatus := "ok"
		redisDown := false
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			redisStatus = "down"
			redisDown = true
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if pgDown || redisDown {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": fiber.Map{
				"postgres": pgStatus,
				"redis":    redisStatus,
			},
		})
	}
}
