// Package binance is the thin Binance spot REST client: typed
// endpoint wrappers over the shared dispatch core. Weights follow the
// documented per-endpoint costs, computed by the caller side before
// dispatch.
package binance

import (
	"context"
	"net/http"
	"time"

	"nakula/pkg/core"
	"nakula/pkg/rest"
	"nakula/pkg/sign"
)

const (
	// ProductionURL is the Binance spot REST endpoint.
	ProductionURL = "https://api.binance.com"
	// SandboxURL is the spot testnet endpoint.
	SandboxURL = "https://testnet.binance.vision"
)

// scheme is Binance's documented signing rule: HMAC-SHA256 over the
// URL-encoded, lexicographically sorted query string, hex output,
// millisecond timestamp parameter.
var scheme = sign.Scheme{
	Layout:       sign.LayoutQuery,
	Order:        sign.OrderLexicographic,
	Encoding:     sign.EncodingHex,
	TimestampKey: "timestamp",
}

const recvWindow = "5000"

// Client wraps the dispatch core with Binance spot endpoints.
type Client struct {
	rest *rest.Client
}

// DefaultConfig returns the spot API limits: 6000 weight per minute
// and the documented order budget per 10 seconds.
func DefaultConfig() *core.Config {
	return core.DefaultConfig("binance", ProductionURL).
		WithRateLimit(6000, time.Minute)
}

// New creates a Binance spot client.
func New(config *core.Config, opts ...rest.Option) (*Client, error) {
	opts = append(opts,
		rest.WithAuth(signRequest),
		rest.WithCodeMapper(mapErrorCode),
	)
	rc, err := rest.New(config, opts...)
	if err != nil {
		return nil, err
	}
	// Orders have their own 10-second budget independent of weight.
	rc.Limiter().SetClassLimit(core.ClassOrder, 100, 10*time.Second)
	return &Client{rest: rc}, nil
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.rest.Close()
}

// signRequest implements the Binance query-signature flow: attach
// timestamp and recvWindow, sign the sorted query, and send the signed
// byte string verbatim with the signature appended.
func signRequest(req *core.Request, creds core.Credentials) error {
	params := make(core.Params, len(req.Query))
	copy(params, req.Query)
	params.Set("recvWindow", recvWindow)

	ts := sign.TimestampMillis(time.Now())
	canonical := scheme.Canonical(req.Method, req.Path, params, "", ts)
	signature, err := scheme.Sign(creds.APISecret, canonical)
	if err != nil {
		return err
	}

	req.RawQuery = canonical + "&signature=" + signature
	req.SetHeader("X-MBX-APIKEY", creds.APIKey.Expose())
	return nil
}

// mapErrorCode promotes the cross-cutting Binance error codes to
// taxonomy types. Business codes stay on the venue variant with code
// and message preserved.
func mapErrorCode(code string) (core.ErrorType, bool) {
	switch code {
	case "-1002", "-1022", "-2014", "-2015":
		// Unauthorized, invalid signature, bad API key format,
		// rejected key.
		return core.ErrorTypeUnauthorized, true
	case "-1003", "-1015":
		// Too many requests / too many orders.
		return core.ErrorTypeRateLimit, true
	case "-1021", "-1100", "-1102", "-1121", "-1130":
		// Timestamp outside recvWindow, illegal characters, missing
		// mandatory parameter, invalid symbol, invalid data.
		return core.ErrorTypeValidation, true
	default:
		return core.ErrorTypeUnknown, false
	}
}

// Time fetches the venue server time.
func (c *Client) Time(ctx context.Context) (*ServerTime, error) {
	req := core.NewRequest(http.MethodGet, "/api/v3/time").
		SetClassification(core.ClassMarketData).
		SetWeight(1)

	var out ServerTime
	if err := c.rest.SendPublic(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ticker24h fetches 24-hour rolling statistics for one symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (*Ticker24h, error) {
	req := core.NewRequest(http.MethodGet, "/api/v3/ticker/24hr").
		SetQuery("symbol", symbol).
		SetClassification(core.ClassMarketData).
		SetWeight(2)

	var out Ticker24h
	if err := c.rest.SendPublic(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// depthWeight is the documented tiered cost of the depth endpoint.
func depthWeight(limit int) int {
	switch {
	case limit <= 100:
		return 5
	case limit <= 500:
		return 25
	case limit <= 1000:
		return 50
	default:
		return 250
	}
}

// Depth fetches an order book snapshot. The weight depends on the
// requested limit, so it is computed here before dispatch.
func (c *Client) Depth(ctx context.Context, symbol string, limit int) (*Depth, error) {
	if limit <= 0 {
		limit = 100
	}
	req := core.NewRequest(http.MethodGet, "/api/v3/depth").
		SetQuery("symbol", symbol).
		SetQuery("limit", limit).
		SetClassification(core.ClassMarketData).
		SetWeight(depthWeight(limit))

	var out Depth
	if err := c.rest.SendPublic(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Account fetches account balances and permissions. Signed.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	req := core.NewRequest(http.MethodGet, "/api/v3/account").
		SetClassification(core.ClassAccount).
		SetWeight(20)

	var out Account
	if err := c.rest.SendPrivate(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func orderRequest(path string, params NewOrderParams) *core.Request {
	req := core.NewRequest(http.MethodPost, path).
		SetQuery("symbol", params.Symbol).
		SetQuery("side", string(params.Side)).
		SetQuery("type", string(params.Type)).
		SetClassification(core.ClassOrder).
		SetWeight(1)

	if params.TimeInForce != "" {
		req.SetQuery("timeInForce", string(params.TimeInForce))
	}
	if params.Quantity != "" {
		req.SetQuery("quantity", params.Quantity)
	}
	if params.Price != "" {
		req.SetQuery("price", params.Price)
	}
	if params.NewClientOrderID != "" {
		req.SetQuery("newClientOrderId", params.NewClientOrderID)
	}
	return req
}

// NewOrder places an order. Signed; charged against the order budget.
func (c *Client) NewOrder(ctx context.Context, params NewOrderParams) (*OrderResponse, error) {
	req := orderRequest("/api/v3/order", params)

	var out OrderResponse
	if err := c.rest.SendPrivate(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestOrder validates an order without placing it. The documented
// weight is 1, or 20 when commission rates are computed, so the cost
// is decided here from the flag.
func (c *Client) TestOrder(ctx context.Context, params NewOrderParams, computeCommissionRates bool) error {
	req := orderRequest("/api/v3/order/test", params)
	if computeCommissionRates {
		req.SetQuery("computeCommissionRates", true)
		req.SetWeight(20)
	}
	return c.rest.SendPrivate(ctx, req, nil)
}
