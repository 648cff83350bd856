// Package rest is the venue-agnostic dispatch core: it composes the
// rate limiter, request signing, and HTTP transport into a single send
// path with typed error classification. Venue packages are thin
// wrappers that build requests and hand them to a Client.
package rest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"nakula/internal/circuitbreaker"
	nhttp "nakula/internal/http"
	"nakula/internal/keyring"
	"nakula/internal/ratelimit"
	"nakula/pkg/core"
)

// AuthFunc attaches venue authentication to a request: timestamp,
// canonical string, signature, and API-key headers. Venue packages
// supply their scheme-specific implementation.
type AuthFunc func(req *core.Request, creds core.Credentials) error

// CodeMapper promotes a venue error code to a taxonomy type. Returning
// false leaves the code on the generic venue variant; nothing is
// dropped either way.
type CodeMapper func(code string) (core.ErrorType, bool)

// Client dispatches requests for one venue. Its rate limiter is owned
// by the instance, so independent clients never share budgets.
type Client struct {
	config  *core.Config
	http    *nhttp.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.Breaker
	creds   *core.Credentials
	ring    *keyring.Ring
	auth    AuthFunc
	mapCode CodeMapper
	onRate  func(RateLimitInfo)
	logger  zerolog.Logger
	closed  atomic.Bool
}

// New creates a dispatch client from a validated config.
func New(config *core.Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	httpClient, err := nhttp.NewClient(&nhttp.Config{
		BaseURL: config.BaseURL,
		Timeout: config.Timeout,
	}, options.Logger)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	limiter := options.Limiter
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.WindowConfig{
			Budget: config.RateLimitBudget,
			Window: config.RateLimitWindow,
		})
	}
	if config.RawRequestLimit > 0 {
		limiter.SetRawLimit(config.RawRequestLimit, config.RawRequestPeriod)
	}

	var breaker *circuitbreaker.Breaker
	if config.CircuitBreakerEnabled {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.CircuitBreakerFailThreshold,
			SuccessThreshold: config.CircuitBreakerSuccessThreshold,
			Timeout:          config.CircuitBreakerTimeout,
		})
	}

	return &Client{
		config:  config,
		http:    httpClient,
		limiter: limiter,
		breaker: breaker,
		creds:   options.Credentials,
		ring:    options.Ring,
		auth:    options.Auth,
		mapCode: options.MapCode,
		onRate:  options.OnRateInfo,
		logger:  options.Logger,
	}, nil
}

// Limiter exposes the client's rate limiter for budget overrides.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Close releases the underlying transport. In-flight calls fail with
// ErrClientClosed.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.http.Close()
}

// SendPublic dispatches an unauthenticated request, decoding a 2xx
// body into out when out is non-nil.
func (c *Client) SendPublic(ctx context.Context, req *core.Request, out any) error {
	req.RequireAuth = false
	return c.send(ctx, req, out)
}

// SendPrivate dispatches a signed request. It fails fast with an
// auth-configuration error when no credentials are available, before
// consuming any rate budget or touching the network.
func (c *Client) SendPrivate(ctx context.Context, req *core.Request, out any) error {
	req.RequireAuth = true
	return c.send(ctx, req, out)
}

func (c *Client) send(ctx context.Context, req *core.Request, out any) error {
	if c.closed.Load() {
		return core.NewAPIError(c.config.Venue, core.ErrorTypeTransport, 0,
			core.ErrClientClosed.Error()).WithCause(core.ErrClientClosed)
	}

	var creds core.Credentials
	if req.RequireAuth {
		picked := c.credentials()
		if picked.IsZero() {
			return core.NewAPIError(c.config.Venue, core.ErrorTypeAuthConfig, 0,
				core.ErrNoCredentials.Error()).WithCause(core.ErrNoCredentials)
		}
		creds = *picked
	}

	if c.breaker != nil && !c.breaker.Allow() {
		return core.NewAPIError(c.config.Venue, core.ErrorTypeTransport, 0,
			core.ErrCircuitOpen.Error()).WithCause(core.ErrCircuitOpen)
	}

	if err := c.limiter.Acquire(ctx, req.Classification, req.Weight); err != nil {
		if err == ratelimit.ErrWeightExceedsBudget {
			return core.NewAPIError(c.config.Venue, core.ErrorTypeValidation, 0,
				err.Error()).WithCause(err)
		}
		return core.NewAPIError(c.config.Venue, core.ErrorTypeTransport, 0,
			err.Error()).WithCause(err)
	}

	if req.RequireAuth {
		if c.auth == nil {
			return core.NewAPIError(c.config.Venue, core.ErrorTypeAuthConfig, 0,
				"no signing scheme configured")
		}
		if err := c.auth(req, creds); err != nil {
			return core.NewAPIError(c.config.Venue, core.ErrorTypeAuthConfig, 0,
				err.Error()).WithCause(err)
		}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		apiErr := core.NewAPIError(c.config.Venue, core.ErrorTypeTransport, 0,
			err.Error()).WithCause(err)
		c.recordOutcome(false, apiErr)
		return apiErr
	}

	info := parseRateLimitInfo(resp.Headers)
	if c.onRate != nil && !info.IsZero() {
		c.onRate(info)
	}

	if err := c.classify(resp, info, out); err != nil {
		c.recordOutcome(false, err)
		return err
	}
	c.recordOutcome(true, nil)
	return nil
}

func (c *Client) credentials() *core.Credentials {
	if c.ring != nil {
		if entry := c.ring.Current(); entry != nil {
			return &entry.Credentials
		}
		return nil
	}
	return c.creds
}

func (c *Client) recordOutcome(success bool, err error) {
	if c.breaker != nil {
		c.breaker.Record(success || !breakerFailure(err))
	}
	if c.ring == nil {
		return
	}
	switch {
	case success:
		c.ring.MarkUsed()
	case core.IsRateLimitError(err):
		c.ring.OnRateLimit()
	case err != nil:
		c.ring.OnError()
	}
}

// breakerFailure reports whether an error indicates venue or network
// ill-health. Caller-side failures (validation, auth, business
// rejections) prove the venue answered and must not trip the breaker.
func breakerFailure(err error) bool {
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) {
		return err != nil
	}
	return apiErr.Type == core.ErrorTypeTransport ||
		apiErr.Type == core.ErrorTypeRateLimit ||
		apiErr.StatusCode >= 500
}

// venueErrorBody is the {code, msg} envelope nearly every venue uses
// for error responses. Code may be numeric or a string.
type venueErrorBody struct {
	Code    any    `json:"code"`
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

func (b *venueErrorBody) code() string {
	switch v := b.Code.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (b *venueErrorBody) message() string {
	if b.Msg != "" {
		return b.Msg
	}
	return b.Message
}

func (c *Client) classify(resp *nhttp.Response, info RateLimitInfo, out any) error {
	venue := c.config.Venue

	if resp.StatusCode == 429 || resp.StatusCode == 418 {
		msg := "rate limit exceeded"
		if body := parseVenueErrorBody(resp.Body); body != nil && body.message() != "" {
			msg = body.message()
		}
		return core.NewAPIError(venue, core.ErrorTypeRateLimit, resp.StatusCode, msg).
			WithRetryAfter(info.RetryAfter)
	}

	if resp.IsSuccess() {
		if out == nil {
			return nil
		}
		if err := sonic.Unmarshal(resp.Body, out); err != nil {
			// Contract drift with the venue. Logged loudly since it
			// means local struct definitions need maintenance.
			c.logger.Error().Err(err).
				Str("venue", venue).
				Int("status", resp.StatusCode).
				Bytes("body", truncate(resp.Body, 512)).
				Msg("response schema mismatch")
			return core.NewAPIError(venue, core.ErrorTypeDecode, resp.StatusCode,
				"decode response: "+err.Error()).WithCause(err)
		}
		return nil
	}

	body := parseVenueErrorBody(resp.Body)
	if body == nil || (body.code() == "" && body.message() == "") {
		return core.NewAPIError(venue, statusType(resp.StatusCode), resp.StatusCode,
			string(truncate(resp.Body, 256)))
	}

	errType := statusType(resp.StatusCode)
	if c.mapCode != nil {
		if mapped, ok := c.mapCode(body.code()); ok {
			errType = mapped
		}
	}
	return core.NewAPIError(venue, errType, resp.StatusCode, body.message()).
		WithCode(body.code())
}

func parseVenueErrorBody(body []byte) *venueErrorBody {
	var parsed venueErrorBody
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return nil
	}
	return &parsed
}

// statusType is the fallback classification when the venue code has no
// dedicated mapping. The code and message stay on the error verbatim.
func statusType(status int) core.ErrorType {
	switch status {
	case 401, 403:
		return core.ErrorTypeUnauthorized
	default:
		return core.ErrorTypeVenue
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
