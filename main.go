package main

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"mailgate/config"
	controller "mailgate/controllers"
	"mailgate/middleware"
	"mailgate/routes"
	"mailgate/utils"
	"mailgate/verify"
	"mailgate/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Warnf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Optional audit store; the pipeline itself keeps all state in process.
	if config.AppConfig.DBEnabled {
		if err := config.ConnectDB(); err != nil {
			logger.Fatalf("Failed to connect to audit database: %v", err)
		}
	}

	provider, err := verify.NewProvider(&config.AppConfig)
	if err != nil {
		logger.Fatalf("Failed to configure verification provider: %v", err)
	}
	service := verify.NewService(&config.AppConfig, provider, logger)

	var mailer *utils.Mailer
	if config.AppConfig.SMTP.Host != "" {
		mailer = utils.NewMailer(config.AppConfig.SMTP, logger)
	} else {
		logger.Warn("SMTP not configured; gated messages will be accepted but not dispatched")
	}

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	// Evict expired cache entries in the background
	sweeper := worker.NewCacheSweeper(service, 10*time.Minute, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Start(ctx)

	vc := controller.NewValidationController(&config.AppConfig, service, mailer, config.DB, logger)
	routes.SetupRoutes(app, vc)

	// Start server
	logger.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
