package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/littleoak-health/intake-platform/cmd/mainconfig"
	"github.com/littleoak-health/intake-platform/internal/api/router"
	"github.com/littleoak-health/intake-platform/internal/appointments"
	"github.com/littleoak-health/intake-platform/internal/availability"
	appconfig "github.com/littleoak-health/intake-platform/internal/config"
	"github.com/littleoak-health/intake-platform/internal/events"
	"github.com/littleoak-health/intake-platform/internal/notify"
	"github.com/littleoak-health/intake-platform/internal/observability/metrics"
	"github.com/littleoak-health/intake-platform/internal/scheduling"
	"github.com/littleoak-health/intake-platform/internal/therapists"
	"github.com/littleoak-health/intake-platform/pkg/logging"
)

func main() {
	// Load .env if present (local development).
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting intake-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Database
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(rootCtx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// Slot cache (optional)
	var slotCache *scheduling.SlotCache
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(rootCtx).Err(); err != nil {
			logger.Warn("redis unreachable, slot cache disabled", "error", err)
		} else {
			slotCache = scheduling.NewSlotCache(redisClient, cfg.SlotCacheTTL, logger)
		}
	}

	// Repositories
	therapistRepo := therapists.NewPostgresRepository(pool)
	availabilityRepo := availability.NewPostgresRepository(pool)
	appointmentRepo := appointments.NewPostgresRepository(pool)
	outboxStore := events.NewOutboxStore(pool)

	// Services
	generator := scheduling.NewGenerator(availabilityRepo, appointmentRepo, therapistRepo)
	schedulingService := scheduling.NewService(generator, slotCache, bookingMetrics, logger)

	policy := appointments.NoticePolicy{MinNotice: cfg.MinCancelNotice}
	appointmentService := appointments.NewService(appointmentRepo, therapistRepo, policy, logger).
		WithOutbox(outboxStore).
		WithMetrics(bookingMetrics)
	if slotCache != nil {
		appointmentService = appointmentService.WithSlotCache(slotCache)
	}

	// Email notifications, fed by the outbox deliverer.
	emailSender := buildEmailSender(rootCtx, cfg, logger)
	notifyService := notify.NewService(emailSender, therapistRepo, logger)
	deliverer := events.NewDeliverer(outboxStore, notifyService, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)
	go deliverer.Start(rootCtx)

	// Handlers
	schedulingHandler := scheduling.NewHandler(schedulingService, cfg.MaxSlotRangeDays, logger)
	appointmentsHandler := appointments.NewHandler(appointmentService, logger)
	availabilityHandler := availability.NewHandler(availabilityRepo, logger)
	if slotCache != nil {
		availabilityHandler = availabilityHandler.WithSlotCache(slotCache)
	}

	// Setup router
	routerCfg := &router.Config{
		Logger:              logger,
		SchedulingHandler:   schedulingHandler,
		AppointmentsHandler: appointmentsHandler,
		AvailabilityHandler: availabilityHandler,
		AdminJWTSecret:      cfg.AdminJWTSecret,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	rootCancel()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailSender picks the configured provider. Returning nil disables
// notifications; events still land in the outbox for later replay.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty")
			return nil
		}
		return sender
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config, email disabled", "error", err)
			return nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	default:
		logger.Info("email notifications disabled", "provider", cfg.EmailProvider)
		return nil
	}
}
