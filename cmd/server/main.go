package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"e2e-transit/internal/adapters/cache"
	"e2e-transit/internal/adapters/http/middleware"
	"e2e-transit/internal/adapters/http/routes"
	"e2e-transit/internal/adapters/mail"
	"e2e-transit/internal/adapters/persistence/models"
	"e2e-transit/internal/adapters/persistence/repositories"
	"e2e-transit/internal/config"
	"e2e-transit/internal/core/services"
	"e2e-transit/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"

	_ "e2e-transit/docs" // Swagger docs
)

// @title E2E Transit API
// @version 1.0
// @description Fleet operations backend: account auth, dashboard alerts and the trip creation wizard.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@e2etransit.in

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:3000
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, JSON: cfg.IsProd()})

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to auto migrate: %v", err)
	}
	logger.Infof("Database migration completed")

	if cfg.IsDev() {
		if err := config.NewSeeder(db).Run(); err != nil {
			logger.Warnf("Failed to seed dev data: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional alert cache
	redisClient := config.NewRedisClient(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}
	var alertCache services.AlertCache
	if c := cache.NewAlertCache(redisClient, cfg.Redis.AlertTTL); c != nil {
		alertCache = c
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganisationRepository(db)
	truckRepo := repositories.NewTruckRepository(db)
	alertRepo := repositories.NewAlertRepository(db)
	stagedRepo := repositories.NewStagedTripRepository(db)

	// Services
	mailer, closeMailer := newMailer(ctx, cfg)
	defer closeMailer()
	authService := services.NewAuthService(userRepo, mailer, services.NewIdentityProvider(cfg.AuthProvider), cfg)
	alertService := services.NewAlertService(orgRepo, alertRepo, alertCache)
	tripService := services.NewTripService(stagedRepo, truckRepo, userRepo, cfg)

	// Housekeeping jobs
	cronService := services.NewCronService(authService, tripService, cfg.Cron)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "E2E Transit API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, &routes.Services{
		Auth:  authService,
		Alert: alertService,
		Trip:  tripService,
	}, redisClient, cfg)

	// Graceful shutdown
	go gracefulShutdown(app, cancel)

	// Start server
	logger.Infof("Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

// newMailer picks the mail transport. With the queue transport, requests only
// publish to RabbitMQ and an in-process consumer delivers over SMTP.
func newMailer(ctx context.Context, cfg *config.Config) (services.Mailer, func()) {
	smtp := mail.NewSMTPMailer(cfg.Mail)
	if cfg.Mail.Transport != "queue" {
		logger.Infof("Mail transport: smtp [%s:%d]", cfg.Mail.Host, cfg.Mail.Port)
		return smtp, func() {}
	}

	consumer := mail.NewOutboxConsumer(cfg.Queue.URL, cfg.Queue.MailQueue, smtp)
	go consumer.Run(ctx)

	publisher := mail.NewOutboxPublisher(cfg.Queue.URL, cfg.Queue.MailQueue)
	logger.Infof("Mail transport: queue [%s]", cfg.Queue.MailQueue)
	return publisher, func() { _ = publisher.Close() }
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")
	cancel()
	if err := app.Shutdown(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Infof("Server stopped gracefully")
}
