package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type Config struct {
	ServerPort string
	Env        string
	LogLevel   string
	LogFormat  string

	StoreDriver     string
	MongoURL        string
	MongoDatabase   string
	MongoCollection string
	DatabaseURL     string
	RedisURL        string

	SessionRetention time.Duration
	SweepOnPing      bool
	SweepInterval    time.Duration
	DetectDeviceType bool

	KafkaBrokers []string
	KafkaTopic   string
}

func LoadConfig() (*Config, error) {
	retention, err := time.ParseDuration(getEnv("SESSION_RETENTION", "168h"))
	if err != nil || retention <= 0 {
		return nil, errors.New("invalid SESSION_RETENTION format")
	}

	interval, err := time.ParseDuration(getEnv("SWEEP_INTERVAL", "1h"))
	if err != nil || interval < 0 {
		return nil, errors.New("invalid SWEEP_INTERVAL format")
	}

	sweepOnPing, err := strconv.ParseBool(getEnv("SWEEP_ON_PING", "true"))
	if err != nil {
		return nil, errors.New("invalid SWEEP_ON_PING value")
	}

	detectDevice, err := strconv.ParseBool(getEnv("DETECT_DEVICE_TYPE", "false"))
	if err != nil {
		return nil, errors.New("invalid DETECT_DEVICE_TYPE value")
	}

	env := getEnv("APP_ENV", "development")
	defaultFormat := "console"
	if env == "production" {
		defaultFormat = "json"
	}

	cfg := &Config{
		ServerPort:       os.Getenv("PORT"),
		Env:              env,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", defaultFormat),
		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURL:         os.Getenv("MONGO_URL"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "oogly_analytics"),
		MongoCollection:  getEnv("MONGO_COLLECTION", "sessions"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		SessionRetention: retention,
		SweepOnPing:      sweepOnPing,
		SweepInterval:    interval,
		DetectDeviceType: detectDevice,
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "session-heartbeats"),
	}

	// Validate required fields
	if cfg.ServerPort == "" {
		return nil, errors.New("PORT is required")
	}
	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		return nil, fmt.Errorf("invalid PORT %q", cfg.ServerPort)
	}

	switch cfg.StoreDriver {
	case StoreMongo:
		if cfg.MongoURL == "" {
			return nil, errors.New("MONGO_URL is required")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
	case StoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
