package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds everything the server reads from the environment.
type Config struct {
	AppPort             string
	DatabaseDriver      string // sqlite, postgres or memory
	DatabaseDSN         string
	SessionSecret       string
	SessionTTL          time.Duration
	RabbitMQURL         string // empty disables meal events
	RabbitMQQueue       string
	LogLevel            string
	AuthRateLimitMax    int
	AuthRateLimitWindow time.Duration
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
}

// Load reads configuration from a .env file when present, then from the
// environment, falling back to defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables or defaults")
	}

	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "dietlog.db?_foreign_keys=on")
	v.SetDefault("SESSION_SECRET", "change-me")
	v.SetDefault("SESSION_TTL_HOURS", 24*7)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "meal_events")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_RATE_LIMIT_MAX", 20)
	v.SetDefault("AUTH_RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("READ_TIMEOUT_SECONDS", 10)
	v.SetDefault("WRITE_TIMEOUT_SECONDS", 10)
	v.AutomaticEnv()

	return &Config{
		AppPort:             v.GetString("APP_PORT"),
		DatabaseDriver:      v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:         v.GetString("DATABASE_DSN"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		SessionTTL:          time.Duration(v.GetInt("SESSION_TTL_HOURS")) * time.Hour,
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		RabbitMQQueue:       v.GetString("RABBITMQ_QUEUE"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		AuthRateLimitMax:    v.GetInt("AUTH_RATE_LIMIT_MAX"),
		AuthRateLimitWindow: time.Duration(v.GetInt("AUTH_RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		ReadTimeout:         time.Duration(v.GetInt("READ_TIMEOUT_SECONDS")) * time.Second,
		WriteTimeout:        time.Duration(v.GetInt("WRITE_TIMEOUT_SECONDS")) * time.Second,
	}
}
