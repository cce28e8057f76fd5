package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string
	JWTSecret   string
	Geocoder    GeocoderConfig
	Worker      WorkerConfig
	Logging     LoggingConfig
}

type GeocoderConfig struct {
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
	RetryAttempts     int
	RetryBase         time.Duration
}

type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	StaleAfter   time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:         getenv("APP_ENV", "dev"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		Geocoder: GeocoderConfig{
			Endpoint:          getenv("GEOCODER_ENDPOINT", "https://api.postcodes.io"),
			Timeout:           getenvDuration("GEOCODER_TIMEOUT", 6*time.Second),
			RequestsPerSecond: getenvFloat("GEOCODER_RPS", 5),
			RetryAttempts:     getenvInt("GEOCODER_RETRY_ATTEMPTS", 3),
			RetryBase:         getenvDuration("GEOCODER_RETRY_BASE", 200*time.Millisecond),
		},
		Worker: WorkerConfig{
			PollInterval: getenvDuration("WORKER_POLL_INTERVAL", 10*time.Second),
			BatchSize:    getenvInt("WORKER_BATCH_SIZE", 100),
			MaxAttempts:  getenvInt("WORKER_MAX_ATTEMPTS", 3),
			StaleAfter:   getenvDuration("WORKER_STALE_AFTER", 10*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
			File:   os.Getenv("LOG_FILE"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return parsed
}
