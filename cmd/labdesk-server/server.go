package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/labdesk/labdesk/internal/config"
	"github.com/labdesk/labdesk/internal/domain/billing"
	"github.com/labdesk/labdesk/internal/domain/catalog"
	"github.com/labdesk/labdesk/internal/domain/patient"
	"github.com/labdesk/labdesk/internal/domain/report"
	"github.com/labdesk/labdesk/internal/platform/analytics"
	"github.com/labdesk/labdesk/internal/platform/db"
	"github.com/labdesk/labdesk/internal/platform/events"
	"github.com/labdesk/labdesk/internal/platform/export"
	"github.com/labdesk/labdesk/internal/platform/metrics"
	"github.com/labdesk/labdesk/internal/platform/middleware"
)

const (
	chartPrefix  = "/api/v1/analytics/charts/"
	exportPrefix = "/api/v1/export/"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnIdleTime: 5 * time.Minute,
	}
}

// app holds the wired services. A nil publisher means events are dropped.
type app struct {
	catalog   *catalog.Service
	patients  *patient.Service
	reports   *report.Service
	billing   *billing.Service
	analytics *analytics.Service
	export    *export.Service
}

func buildApp(cfg *config.Config, pool db.DB, pub events.Publisher, logger zerolog.Logger) *app {
	if pub == nil {
		pub = events.Noop{}
	}
	tx := db.NewTxRunner(pool)

	a := &app{
		catalog:  catalog.NewService(catalog.NewRepoPG(pool), logger),
		patients: patient.NewService(patient.NewRepoPG(pool), logger),
		reports:  report.NewService(report.NewRepoPG(pool), tx, pub, logger),
		billing:  billing.NewService(billing.NewRepoPG(pool), tx, pub, logger),
	}
	a.billing.SetOnePerReport(cfg.BillOnePerReport)
	a.analytics = analytics.NewService(analytics.NewStorePG(pool), logger)
	a.export = export.NewService(export.NewSourcePG(pool), a.reports, a.billing, export.LabInfo{
		Name:    cfg.LabName,
		Address: cfg.LabAddress,
		Phone:   cfg.LabPhone,
		Email:   cfg.LabEmail,
	}, logger)
	return a
}

func (a *app) registerRoutes(api *echo.Group, writeMW ...echo.MiddlewareFunc) {
	catalog.NewHandler(a.catalog).RegisterRoutes(api)
	patient.NewHandler(a.patients).RegisterRoutes(api)
	report.NewHandler(a.reports).RegisterRoutes(api)
	billing.NewHandler(a.billing).RegisterRoutes(api, writeMW...)
	analytics.NewHandler(a.analytics).RegisterRoutes(api)
	export.NewHandler(a.export).RegisterRoutes(api)
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 || rl.BurstSize <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	return rl
}

// newIdempotencyStore returns the redis store when REDIS_URL is set, with a
// health check for it, or an in-memory store otherwise.
func newIdempotencyStore(ctx context.Context, cfg *config.Config) (middleware.IdempotencyStore, *db.Check, func(), error) {
	if cfg.RedisURL == "" {
		return middleware.NewMemoryIdempotencyStore(), nil, func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	check := &db.Check{Name: "redis", Ping: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
	return middleware.NewRedisIdempotencyStore(client), check, func() { client.Close() }, nil
}

// newPublisher dials the broker when AMQP_URL is set. Events are counted
// either way.
func newPublisher(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (events.Publisher, *db.Check, func(), error) {
	if cfg.AMQPURL == "" {
		return m.Publisher(events.Noop{}), nil, func() {}, nil
	}
	amqpPub, err := events.DialAMQP(cfg.AMQPURL, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	check := &db.Check{Name: "rabbitmq", Ping: amqpPub.Ping}
	closeFn := func() {
		published, failed := amqpPub.Stats()
		logger.Info().Int64("published", published).Int64("failed", failed).Msg("closing event publisher")
		amqpPub.Close()
	}
	return m.Publisher(amqpPub), check, closeFn, nil
}

func newArchiver(ctx context.Context, cfg *config.Config) (export.Archiver, error) {
	if !cfg.MinioEnabled() {
		return export.NewDirArchiver(cfg.BackupDir), nil
	}
	return export.NewMinioArchiver(ctx, export.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		Secure:    cfg.MinioSecure,
	})
}

// scheduleBackups runs svc.Backup on schedule. The caller stops the
// returned scheduler.
func scheduleBackups(schedule string, svc *export.Service, logger zerolog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		names, err := svc.Backup(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("scheduled backup failed")
			return
		}
		logger.Info().Strs("objects", names).Msg("scheduled backup written")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid BACKUP_SCHEDULE %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	m := metrics.New()
	m.RegisterPool(pool)

	var checks []db.Check

	pub, pubCheck, closePub, err := newPublisher(cfg, m, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to event broker")
	}
	defer closePub()
	if pubCheck != nil {
		checks = append(checks, *pubCheck)
	}

	idemStore, redisCheck, closeRedis, err := newIdempotencyStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up idempotency store")
	}
	defer closeRedis()
	if redisCheck != nil {
		checks = append(checks, *redisCheck)
	}

	a := buildApp(cfg, pool, pub, logger)

	archiver, err := newArchiver(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up backup archive")
	}
	a.export.SetArchiver(archiver)

	if cfg.BackupSchedule != "" {
		sched, err := scheduleBackups(cfg.BackupSchedule, a.export, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to schedule backups")
		}
		defer sched.Stop()
		logger.Info().Str("schedule", cfg.BackupSchedule).Msg("backup schedule started")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(m.Middleware())
	e.Use(middleware.SecurityHeaders(chartPrefix))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader, middleware.IdempotencyKeyHeader},
	}))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.BodyLimit(cfg.BodyLimit))
	apiV1.Use(middleware.RequestTimeout(cfg.RequestTimeout, exportPrefix))
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))

	a.registerRoutes(apiV1, middleware.Idempotency(middleware.IdempotencyConfig{
		Store:  idemStore,
		Logger: logger,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, checks...))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
