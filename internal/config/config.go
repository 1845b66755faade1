package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned by Validate when no model API key is set
var ErrMissingAPIKey = errors.New("NVIDIA_API_KEY is not set")

// Config holds all configuration for the API service
type Config struct {
	// Server
	Port           string
	Environment    string
	RequestTimeout time.Duration
	RateLimit      int // requests per minute per client

	// Model
	APIKey       string
	ModelBaseURL string
	ModelName    string
	ModelTimeout time.Duration

	// Checker; empty uses the public TradingView endpoint
	CheckerURL       string
	ValidatorTimeout time.Duration

	// Optional infrastructure; empty disables
	RedisURL     string
	CacheTTL     time.Duration
	NATSURL      string
	OTLPEndpoint string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("GO_ENV", "development"),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 12*time.Minute),
		RateLimit:        getEnvInt("RATE_LIMIT_PER_MINUTE", 20),
		APIKey:           os.Getenv("NVIDIA_API_KEY"),
		ModelBaseURL:     getEnv("MODEL_BASE_URL", "https://integrate.api.nvidia.com/v1"),
		ModelName:        getEnv("MODEL_NAME", "qwen/qwen3-coder-480b-a35b-instruct"),
		ModelTimeout:     getEnvDuration("MODEL_TIMEOUT", 2*time.Minute),
		CheckerURL:       os.Getenv("PINE_CHECKER_URL"),
		ValidatorTimeout: getEnvDuration("VALIDATOR_TIMEOUT", 30*time.Second),
		RedisURL:         os.Getenv("REDIS_URL"),
		CacheTTL:         getEnvDuration("CACHE_TTL", 24*time.Hour),
		NATSURL:          os.Getenv("NATS_URL"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

// Validate reports configuration the service cannot start without
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// IsProduction reports whether GO_ENV is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
