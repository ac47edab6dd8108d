package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

type PushConfig struct {
	GatewayURL  string
	SendTimeout time.Duration
}

type Config struct {
	Repositories RepositoriesConfig
	Push         PushConfig
	ServerPort   string
	JWTSecret    string
	CronSecret   string
	StripeKey    string
	ShareBaseURL string
	OtelEndpoint string
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
				DB:       getEnvOrDefault("POSTGRES_DB", "parkspot"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		Push: PushConfig{
			GatewayURL:  getEnvOrDefault("PUSH_GATEWAY_URL", "https://exp.host/--/api/v2/push/send"),
			SendTimeout: getEnvSecondsOrDefault("PUSH_SEND_TIMEOUT_SECONDS", 10),
		},
		ServerPort:   getEnvOrDefault("SERVER_PORT", "8080"),
		JWTSecret:    getEnvOrDefault("JWT_SECRET", ""),
		CronSecret:   getEnvOrDefault("CRON_SECRET", ""),
		StripeKey:    getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		ShareBaseURL: getEnvOrDefault("SHARE_BASE_URL", "https://parkspot.app/s"),
		OtelEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4318"),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.CronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSecondsOrDefault(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}
