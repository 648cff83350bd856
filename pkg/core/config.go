package core

import (
	"time"

	"github.com/go-playground/validator/v10"

	"nakula/internal/secret"
)

// Credentials holds API authentication material for one venue account.
// All fields are Secrets: neither logging nor JSON serialization can
// leak them.
type Credentials struct {
	// APIKey is the public API key identifier.
	APIKey secret.Secret `json:"api_key"`
	// APISecret is the private key used for signing requests.
	APISecret secret.Secret `json:"api_secret"`
	// Passphrase is an additional credential required by some venues.
	Passphrase secret.Secret `json:"passphrase,omitempty"`
}

// IsZero reports whether no usable key material is present.
func (c *Credentials) IsZero() bool {
	return c == nil || c.APIKey.IsEmpty() || c.APISecret.IsEmpty()
}

// CredentialsFromEnv reads a credential pair from the environment.
func CredentialsFromEnv(keyVar, secretVar string) *Credentials {
	return &Credentials{
		APIKey:    secret.FromEnv(keyVar),
		APISecret: secret.FromEnv(secretVar),
	}
}

// Config contains the dispatch options for one venue client: base URL,
// timeouts, rate-limit budgets, and the optional circuit breaker.
type Config struct {
	Venue   string `json:"venue" validate:"required"`
	BaseURL string `json:"base_url" validate:"required,url"`

	// Timeout is the maximum duration for HTTP requests.
	Timeout time.Duration `json:"timeout" validate:"min=1ms"`

	// RateLimitBudget is the default weight budget per window for each
	// classification; venue clients override per-classification budgets
	// where documented limits differ.
	RateLimitBudget int           `json:"rate_limit_budget" validate:"min=1"`
	RateLimitWindow time.Duration `json:"rate_limit_window" validate:"min=1ms"`

	// RawRequestLimit caps raw request counts per RawRequestPeriod
	// independent of weight. Zero disables it.
	RawRequestLimit  int           `json:"raw_request_limit" validate:"min=0"`
	RawRequestPeriod time.Duration `json:"raw_request_period" validate:"min=0"`

	CircuitBreakerEnabled          bool          `json:"circuit_breaker_enabled"`
	CircuitBreakerFailThreshold    int           `json:"circuit_breaker_fail_threshold"`
	CircuitBreakerSuccessThreshold int           `json:"circuit_breaker_success_threshold"`
	CircuitBreakerTimeout          time.Duration `json:"circuit_breaker_timeout"`
}

// DefaultConfig returns a Config with sensible defaults: 10s timeout,
// 1200 weight/minute, circuit breaker at 5 failures / 2 successes / 30s.
func DefaultConfig(venue, baseURL string) *Config {
	return &Config{
		Venue:   venue,
		BaseURL: baseURL,

		Timeout: 10 * time.Second,

		RateLimitBudget: 1200,
		RateLimitWindow: time.Minute,

		CircuitBreakerEnabled:          true,
		CircuitBreakerFailThreshold:    5,
		CircuitBreakerSuccessThreshold: 2,
		CircuitBreakerTimeout:          30 * time.Second,
	}
}

var validate = validator.New()

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// WithTimeout sets the request timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRateLimit sets the default weight budget and window and returns
// the config for chaining.
func (c *Config) WithRateLimit(budget int, window time.Duration) *Config {
	c.RateLimitBudget = budget
	c.RateLimitWindow = window
	return c
}

// WithRawRequestLimit sets the raw request-frequency cap and returns
// the config for chaining.
func (c *Config) WithRawRequestLimit(requests int, period time.Duration) *Config {
	c.RawRequestLimit = requests
	c.RawRequestPeriod = period
	return c
}

// WithCircuitBreaker enables or disables the circuit breaker and
// returns the config for chaining.
func (c *Config) WithCircuitBreaker(enabled bool) *Config {
	c.CircuitBreakerEnabled = enabled
	return c
}
