// Package main is the entry point for the LumePay API.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lumepay/internal/config"
	"lumepay/internal/handlers"
	"lumepay/internal/logging"
	"lumepay/internal/middleware"
	"lumepay/internal/repositories"
	"lumepay/internal/repositories/cache"
	"lumepay/internal/routes"
	"lumepay/internal/services/apikey"
	"lumepay/internal/services/auth"
	"lumepay/internal/services/merchant"
	"lumepay/internal/services/payment"
	"lumepay/internal/services/verification"
	"lumepay/internal/services/waitlist"
	"lumepay/internal/services/webhook"
	"lumepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func main() {
	config.LoadEnv()
	cfg := config.Load()
	log := logging.Setup(cfg.Env)

	db, err := repositories.InitDB(cfg.DB, logging.Component(log, "gorm"))
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cacheService := cache.NewCacheService(redisClient, middleware.IdempotencyTTL)
	if err := cacheService.HealthCheck(context.Background()); err != nil {
		// Idempotency replay degrades to pass-through while Redis is down.
		log.Warn().Err(err).Msg("redis unreachable at startup")
	}

	users := repositories.NewUserRepository(db)
	keys := repositories.NewAPIKeyRepository(db)
	intents := repositories.NewIntentRepository(db)
	payments := repositories.NewPaymentRepository(db)
	webhooks := repositories.NewWebhookRepository(db)

	dispatcher := webhook.NewDispatcher(webhooks, webhook.DispatcherConfig{
		Workers:   cfg.WebhookWorkers,
		QueueSize: cfg.WebhookQueueSize,
		Timeout:   cfg.WebhookTimeout,
	}, logging.Component(log, "webhook"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx)

	gate := apikey.NewGate(keys, payments, time.Now, logging.Component(log, "apikey"))
	keyService := apikey.NewService(keys, apikey.Config{
		DefaultCredits:  cfg.DefaultKeyCredits,
		RateLimitMax:    cfg.DefaultRateLimitMax,
		RateLimitWindow: cfg.DefaultRateLimitWindow,
	})

	paymentLog := logging.Component(log, "payment")
	paymentService := payment.NewService(payment.Dependencies{
		Intents:  intents,
		Payments: payments,
		Keys:     keys,
		Verifier: verification.NewClient(verification.Config{
			BaseURL: cfg.VerificationURL,
			Timeout: cfg.VerificationTimeout,
		}),
		Notifier: dispatcher,
	}, payment.Config{IntentTTL: cfg.IntentTTL}, &payment.LogMetricsCollector{Log: paymentLog}, paymentLog)

	webhookService := webhook.NewService(webhooks, payments, dispatcher, time.Now)

	waitlistService := waitlist.NewService(
		repositories.NewSettingsRepository(db),
		repositories.NewWaitlistRepository(db),
		waitlist.NewConfigCache(cfg.SettingsCacheTTL, time.Now),
		time.Now,
		logging.Component(log, "waitlist"),
	)

	authService := auth.NewService(users, waitlistService, auth.Config{JWTSecret: cfg.JWTSecret}, logging.Component(log, "auth"))
	merchantService := merchant.NewService(users, logging.Component(log, "merchant"))

	app := fiber.New(fiber.Config{
		AppName:      "LumePay API",
		ErrorHandler: response.FiberErrorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     strings.Join([]string{"Origin", "Content-Type", "Accept", "Authorization", middleware.APIKeyHeader, middleware.IdempotencyHeader}, ", "),
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: !strings.Contains(cfg.CORSOrigins, "*"),
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService),
		Intent:   handlers.NewIntentHandler(paymentService),
		Settings: handlers.NewSettingsHandler(merchantService),
		APIKey:   handlers.NewAPIKeyHandler(keyService),
		Webhook:  handlers.NewWebhookHandler(webhookService),
		Waitlist: handlers.NewWaitlistHandler(waitlistService),
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"database": handlers.PingFunc(func(ctx context.Context) error { return pingDB(ctx, db) }),
			"redis":    cacheService,
		}),
	}, routes.Middleware{
		Session:     middleware.NewAuthMiddleware(authService, logging.Component(log, "session")),
		APIKey:      middleware.NewAPIKeyMiddleware(gate),
		Idempotency: middleware.Idempotency(cacheService, logging.Component(log, "idempotency")),
		AuthLimiter: limiter.New(limiter.Config{
			Max:        5,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests. Please try again later.",
					"code":  "RATE_LIMITED",
				})
			},
		}),
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("LumePay API listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// In-flight deliveries finish; jobs still queued are dropped.
	dispatcher.Stop()

	if err := repositories.CloseDB(db); err != nil {
		log.Error().Err(err).Msg("failed to close database connection")
	}
	if err := cacheService.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close redis connection")
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
