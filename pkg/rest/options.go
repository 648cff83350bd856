package rest

import (
	"github.com/rs/zerolog"

	"nakula/internal/keyring"
	"nakula/internal/ratelimit"
	"nakula/pkg/core"
)

// Option is a functional option for configuring the Client.
type Option func(*Options)

// Options holds the configurable collaborators of a Client.
type Options struct {
	Logger      zerolog.Logger
	Credentials *core.Credentials
	Ring        *keyring.Ring
	Auth        AuthFunc
	MapCode     CodeMapper
	Limiter     *ratelimit.Limiter
	OnRateInfo  func(RateLimitInfo)
}

func defaultOptions() *Options {
	return &Options{
		Logger: zerolog.Nop(),
	}
}

// WithLogger sets the logger for the client and its transport.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithCredentials sets a static credential pair for private calls.
func WithCredentials(creds *core.Credentials) Option {
	return func(o *Options) {
		o.Credentials = creds
	}
}

// WithKeyRing sets a rotating credential ring, taking precedence over
// WithCredentials.
func WithKeyRing(ring *keyring.Ring) Option {
	return func(o *Options) {
		o.Ring = ring
	}
}

// WithAuth sets the venue's request-signing function.
func WithAuth(fn AuthFunc) Option {
	return func(o *Options) {
		o.Auth = fn
	}
}

// WithCodeMapper sets the venue's error-code-to-taxonomy mapping.
func WithCodeMapper(fn CodeMapper) Option {
	return func(o *Options) {
		o.MapCode = fn
	}
}

// WithLimiter injects a pre-configured rate limiter instead of the one
// built from the config defaults.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(o *Options) {
		o.Limiter = l
	}
}

// WithRateInfoHook registers a callback invoked with the usage
// information venues report in response headers.
func WithRateInfoHook(fn func(RateLimitInfo)) Option {
	return func(o *Options) {
		o.OnRateInfo = fn
	}
}
