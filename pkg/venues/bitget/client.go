// Package bitget is the thin Bitget spot REST client. Bitget signs a
// prehash of timestamp + method + path + body with base64 HMAC and
// caps request frequency per second rather than weight, so each
// endpoint here charges weight 1 against a per-second window.
package bitget

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"nakula/pkg/core"
	"nakula/pkg/rest"
	"nakula/pkg/sign"
)

// ProductionURL is the Bitget REST endpoint.
const ProductionURL = "https://api.bitget.com"

// scheme is Bitget's documented signing rule: base64 HMAC-SHA256 over
// timestamp + METHOD + requestPath[?query] + body.
var scheme = sign.Scheme{
	Layout:   sign.LayoutPrefixed,
	Order:    sign.OrderInsertion,
	Encoding: sign.EncodingBase64,
}

// Client wraps the dispatch core with Bitget spot endpoints.
type Client struct {
	rest *rest.Client
}

// DefaultConfig returns the documented Bitget frequency limits:
// 20 requests per second for most endpoints.
func DefaultConfig() *core.Config {
	return core.DefaultConfig("bitget", ProductionURL).
		WithRateLimit(20, time.Second)
}

// New creates a Bitget spot client.
func New(config *core.Config, opts ...rest.Option) (*Client, error) {
	opts = append(opts,
		rest.WithAuth(signRequest),
		rest.WithCodeMapper(mapErrorCode),
	)
	rc, err := rest.New(config, opts...)
	if err != nil {
		return nil, err
	}
	// Trade endpoints carry a tighter 10/s cap.
	rc.Limiter().SetClassLimit(core.ClassOrder, 10, time.Second)
	return &Client{rest: rc}, nil
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.rest.Close()
}

// signRequest implements the Bitget prehash flow. The signed query and
// body bytes are the exact ones transmitted.
func signRequest(req *core.Request, creds core.Credentials) error {
	ts := sign.TimestampMillis(time.Now())

	var body string
	if req.Body != nil {
		data, err := sonic.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		body = string(data)
		// Transmit the exact bytes that were signed.
		req.Body = body
	}

	canonical := scheme.Canonical(req.Method, req.Path, req.Query, body, ts)
	signature, err := scheme.Sign(creds.APISecret, canonical)
	if err != nil {
		return err
	}

	if q := req.Query.Encode(); q != "" {
		req.RawQuery = q
	}
	req.SetHeader("ACCESS-KEY", creds.APIKey.Expose())
	req.SetHeader("ACCESS-SIGN", signature)
	req.SetHeader("ACCESS-TIMESTAMP", ts)
	req.SetHeader("ACCESS-PASSPHRASE", creds.Passphrase.Expose())
	return nil
}

// mapErrorCode promotes cross-cutting Bitget error codes to taxonomy
// types. Business codes stay on the venue variant.
func mapErrorCode(code string) (core.ErrorType, bool) {
	switch code {
	case "40001", "40002", "40006", "40009", "40037":
		// Missing/invalid ACCESS headers, signature error, key not
		// found.
		return core.ErrorTypeUnauthorized, true
	case "429", "40018", "40030":
		// Request frequency exceeded.
		return core.ErrorTypeRateLimit, true
	case "40004", "40019", "40034":
		// Bad timestamp or request parameter.
		return core.ErrorTypeValidation, true
	default:
		return core.ErrorTypeUnknown, false
	}
}

// unwrap checks the envelope code and converts venue-reported failures
// that arrive with HTTP 200.
func unwrap[T any](venue string, env *envelope[T]) (T, error) {
	if env.Code != codeOK {
		errType := core.ErrorTypeVenue
		if mapped, ok := mapErrorCode(env.Code); ok {
			errType = mapped
		}
		var zero T
		return zero, core.NewAPIError(venue, errType, http.StatusOK, env.Msg).
			WithCode(env.Code)
	}
	return env.Data, nil
}

// Tickers fetches spot tickers, optionally filtered to one symbol.
func (c *Client) Tickers(ctx context.Context, symbol string) ([]Ticker, error) {
	req := core.NewRequest(http.MethodGet, "/api/v2/spot/market/tickers").
		SetClassification(core.ClassMarketData)
	if symbol != "" {
		req.SetQuery("symbol", symbol)
	}

	var env envelope[[]Ticker]
	if err := c.rest.SendPublic(ctx, req, &env); err != nil {
		return nil, err
	}
	return unwrap("bitget", &env)
}

// Assets fetches spot account balances. Signed.
func (c *Client) Assets(ctx context.Context, coin string) ([]Asset, error) {
	req := core.NewRequest(http.MethodGet, "/api/v2/spot/account/assets").
		SetClassification(core.ClassAccount)
	if coin != "" {
		req.SetQuery("coin", coin)
	}

	var env envelope[[]Asset]
	if err := c.rest.SendPrivate(ctx, req, &env); err != nil {
		return nil, err
	}
	return unwrap("bitget", &env)
}

// PlaceOrder places a spot order. Signed; charged against the order
// budget.
func (c *Client) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*PlaceOrderResult, error) {
	req := core.NewRequest(http.MethodPost, "/api/v2/spot/trade/place-order").
		SetBody(params).
		SetClassification(core.ClassOrder)

	var env envelope[PlaceOrderResult]
	if err := c.rest.SendPrivate(ctx, req, &env); err != nil {
		return nil, err
	}
	result, err := unwrap("bitget", &env)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
