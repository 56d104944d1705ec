package routes

import (
	"time"

	"e2e-transit/internal/adapters/http/handlers"
	"e2e-transit/internal/adapters/http/middleware"
	"e2e-transit/internal/config"
	"e2e-transit/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

// Services bundles the services the HTTP layer is wired to
type Services struct {
	Auth  *services.AuthService
	Alert *services.AlertService
	Trip  *services.TripService
}

// Setup configures all routes for the application. redisClient may be nil.
func Setup(app *fiber.App, svc *Services, redisClient *redis.Client, cfg *config.Config) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg, redisClient)
	authHandler := handlers.NewAuthHandler(svc.Auth)
	alertHandler := handlers.NewAlertHandler(svc.Alert)
	tripHandler := handlers.NewTripHandler(svc.Trip)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes (public)
	authRoutes := app.Group("/auth", middleware.NoCacheHeaders())
	setupAuthRoutes(authRoutes, authHandler)

	// API routes
	api := app.Group("/api", middleware.AuthMiddleware(cfg))

	dashboardRoutes := api.Group("/dashboard/alerts")
	setupDashboardRoutes(dashboardRoutes, alertHandler)

	tripRoutes := api.Group("/trip", middleware.NoCacheHeaders())
	setupTripRoutes(tripRoutes, tripHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, h *handlers.AuthHandler) {
	router.Post("/signup", middleware.AuthRateLimiter(), h.Signup)
	router.Post("/verify", middleware.AuthRateLimiter(), h.Verify)
	router.Post("/login", middleware.AuthRateLimiter(), h.Login)
	router.Post("/forgot-password", middleware.StrictRateLimiter(), h.ForgotPassword)
	router.Post("/syncuser", h.SyncUser)
	router.Get("/callback", h.Callback)
}

// setupDashboardRoutes configures dashboard alert routes
func setupDashboardRoutes(router fiber.Router, h *handlers.AlertHandler) {
	router.Get("/critical", middleware.CacheControl(15*time.Second), h.CriticalAlerts)
	router.Get("/suspicious", middleware.CacheControl(time.Minute), h.SuspiciousAlerts)
}

// setupTripRoutes configures the trip wizard routes
func setupTripRoutes(router fiber.Router, h *handlers.TripHandler) {
	router.Post("/step1", h.Step1)
	// step2 has always been a GET with a JSON body; POST is the well-behaved alias
	router.Get("/step2", h.Step2)
	router.Post("/step2", h.Step2)
	router.Post("/step3", h.Step3)
}
