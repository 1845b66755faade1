package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "GO_ENV", "NVIDIA_API_KEY", "MODEL_NAME", "MODEL_TIMEOUT", "VALIDATOR_TIMEOUT", "REDIS_URL", "NATS_URL", "RATE_LIMIT_PER_MINUTE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "qwen/qwen3-coder-480b-a35b-instruct", cfg.ModelName)
	assert.Equal(t, "https://integrate.api.nvidia.com/v1", cfg.ModelBaseURL)
	assert.Equal(t, 2*time.Minute, cfg.ModelTimeout)
	assert.Equal(t, 30*time.Second, cfg.ValidatorTimeout)
	assert.Equal(t, 20, cfg.RateLimit)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.NATSURL)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NVIDIA_API_KEY", "nvapi-test")
	t.Setenv("MODEL_NAME", "meta/llama-3.1-70b-instruct")
	t.Setenv("MODEL_TIMEOUT", "45s")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("GO_ENV", "production")

	cfg := Load()

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "nvapi-test", cfg.APIKey)
	assert.Equal(t, "meta/llama-3.1-70b-instruct", cfg.ModelName)
	assert.Equal(t, 45*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 5, cfg.RateLimit)
	assert.True(t, cfg.IsProduction())
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("MODEL_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "lots")

	cfg := Load()

	assert.Equal(t, 2*time.Minute, cfg.ModelTimeout)
	assert.Equal(t, 20, cfg.RateLimit)
}
