package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	DatabasePath    string
	LogLevel        slog.Level
	ScheduleHorizon time.Duration
	AllowedOrigins  []string
}

// Load reads the configuration from the environment. A .env file is loaded
// first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", port)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}

	horizon, err := time.ParseDuration(getEnv("SCHEDULE_HORIZON", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_HORIZON environment variable: %w", err)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("SCHEDULE_HORIZON must be positive, got %s", horizon)
	}

	var origins []string
	for _, o := range strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		Port:            port,
		DatabasePath:    getEnv("DATABASE_PATH", "op_field_scheduler.db"),
		LogLevel:        level,
		ScheduleHorizon: horizon,
		AllowedOrigins:  origins,
	}, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
