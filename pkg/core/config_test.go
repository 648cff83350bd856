package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/internal/secret"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("binance", "https://api.binance.com")

	require.NoError(t, config.Validate())
	assert.Equal(t, "binance", config.Venue)
	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.Equal(t, 1200, config.RateLimitBudget)
	assert.Equal(t, time.Minute, config.RateLimitWindow)
	assert.True(t, config.CircuitBreakerEnabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing venue", func(c *Config) { c.Venue = "" }, true},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, true},
		{"malformed base url", func(c *Config) { c.BaseURL = "not-a-url" }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"zero budget", func(c *Config) { c.RateLimitBudget = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig("binance", "https://api.binance.com")
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Chaining(t *testing.T) {
	config := DefaultConfig("bitget", "https://api.bitget.com").
		WithTimeout(5 * time.Second).
		WithRateLimit(20, time.Second).
		WithRawRequestLimit(10, time.Second).
		WithCircuitBreaker(false)

	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, 20, config.RateLimitBudget)
	assert.Equal(t, time.Second, config.RateLimitWindow)
	assert.Equal(t, 10, config.RawRequestLimit)
	assert.False(t, config.CircuitBreakerEnabled)
}

func TestCredentials_IsZero(t *testing.T) {
	var nilCreds *Credentials
	assert.True(t, nilCreds.IsZero())

	assert.True(t, (&Credentials{}).IsZero())
	assert.True(t, (&Credentials{APIKey: secret.New("key")}).IsZero())

	full := &Credentials{
		APIKey:    secret.New("key"),
		APISecret: secret.New("secret"),
	}
	assert.False(t, full.IsZero())
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("NAKULA_TEST_KEY", "k")
	t.Setenv("NAKULA_TEST_SECRET", "s")

	creds := CredentialsFromEnv("NAKULA_TEST_KEY", "NAKULA_TEST_SECRET")
	assert.Equal(t, "k", creds.APIKey.Expose())
	assert.Equal(t, "s", creds.APISecret.Expose())
	assert.False(t, creds.IsZero())
}
