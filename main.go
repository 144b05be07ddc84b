package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"dietlog/internal/config"
	"dietlog/internal/database"
	"dietlog/internal/handlers"
	"dietlog/internal/logger"
	"dietlog/internal/middleware"
	"dietlog/internal/repositories"
	"dietlog/internal/services"
	"dietlog/pkg/rabbitmq"
)

// App is the HTTP server together with the resources it owns.
type App struct {
	Fiber  *fiber.App
	MQ     *rabbitmq.Client // nil when meal events are disabled
	Config *config.Config
}

// NewApp wires repositories, services and handlers from cfg.
func NewApp(cfg *config.Config) (*App, error) {
	// --- Repositories ---
	var (
		userRepo repositories.UserRepository
		mealRepo repositories.MealRepository
	)
	if cfg.DatabaseDriver == "memory" {
		userRepo = repositories.NewInMemoryUserRepository()
		mealRepo = repositories.NewInMemoryMealRepository()
	} else {
		db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		userRepo = repositories.NewGORMUserRepository(db)
		mealRepo = repositories.NewGORMMealRepository(db)
	}

	// --- RabbitMQ (optional) ---
	var (
		mqClient  *rabbitmq.Client
		publisher services.EventPublisher
	)
	if cfg.RabbitMQURL != "" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		mqClient = client
		publisher = client
	}

	// --- Services ---
	sessions := services.NewSessionStore(userRepo, cfg.SessionSecret, cfg.SessionTTL)
	authService := services.NewAuthService(userRepo, sessions)
	mealService := services.NewMealService(authService, mealRepo, userRepo, publisher)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	mealHandler := handlers.NewMealHandler(mealService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		mqStatus := "disabled"
		if mqClient != nil {
			mqStatus = "connected"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"rabbitMQ": mqStatus,
		})
	})

	authLimit := limiter.New(limiter.Config{
		Max:        cfg.AuthRateLimitMax,
		Expiration: cfg.AuthRateLimitWindow,
	})
	requireSession := middleware.SessionRequired()

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1, authLimit, requireSession)
	mealHandler.RegisterRoutes(apiV1, requireSession)

	return &App{Fiber: app, MQ: mqClient, Config: cfg}, nil
}

// Close releases the broker connection.
func (a *App) Close() error {
	if a.MQ != nil {
		return a.MQ.Close()
	}
	return nil
}

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)

	app, err := NewApp(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize application")
	}
	defer func() {
		if err := app.Close(); err != nil {
			logrus.WithError(err).Error("Error closing RabbitMQ client")
		}
	}()

	if app.MQ != nil {
		if err := app.MQ.ConsumeMealEvents(rabbitmq.LogMealEvent); err != nil {
			logrus.WithError(err).Error("Failed to start RabbitMQ consumer")
		}
	}

	logrus.WithField("port", cfg.AppPort).Info("Starting server")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			logrus.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-quit
	logrus.Info("Shutting down server...")

	if err := app.Fiber.Shutdown(); err != nil {
		logrus.WithError(err).Error("Error during Fiber shutdown")
	}
	logrus.Info("Server gracefully stopped")
}
