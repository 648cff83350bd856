package bitget

import "nakula/pkg/core"

// envelope is the uniform Bitget response wrapper. Errors can arrive
// with HTTP 200 and a non-success code, so callers check the code.
type envelope[T any] struct {
	Code        string `json:"code"`
	Msg         string `json:"msg"`
	RequestTime int64  `json:"requestTime"`
	Data        T      `json:"data"`
}

// codeOK is the Bitget success code.
const codeOK = "00000"

// Ticker is one entry of GET /api/v2/spot/market/tickers.
type Ticker struct {
	Symbol       string       `json:"symbol"`
	LastPrice    core.Decimal `json:"lastPr"`
	BidPrice     core.Decimal `json:"bidPr"`
	AskPrice     core.Decimal `json:"askPr"`
	High24h      core.Decimal `json:"high24h"`
	Low24h       core.Decimal `json:"low24h"`
	BaseVolume   core.Decimal `json:"baseVolume"`
	QuoteVolume  core.Decimal `json:"quoteVolume"`
	OpenUTC      core.Decimal `json:"openUtc"`
	ChangeUTC24h core.Decimal `json:"changeUtc24h"`
	Timestamp    int64        `json:"ts,string"`
}

// Asset is one entry of GET /api/v2/spot/account/assets.
type Asset struct {
	Coin      string       `json:"coin"`
	Available core.Decimal `json:"available"`
	Frozen    core.Decimal `json:"frozen"`
	Locked    core.Decimal `json:"locked"`
}

// Side is the order direction vocabulary.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType is the order type vocabulary.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// Force is the time-in-force vocabulary.
type Force string

const (
	ForceGTC      Force = "gtc"
	ForceIOC      Force = "ioc"
	ForceFOK      Force = "fok"
	ForcePostOnly Force = "post_only"
)

// PlaceOrderParams is the body of POST /api/v2/spot/trade/place-order.
type PlaceOrderParams struct {
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	OrderType OrderType `json:"orderType"`
	Force     Force     `json:"force"`
	Size      string    `json:"size"`
	Price     string    `json:"price,omitempty"`
	ClientOID string    `json:"clientOid,omitempty"`
}

// PlaceOrderResult is the data field of the place-order response.
type PlaceOrderResult struct {
	OrderID   string `json:"orderId"`
	ClientOID string `json:"clientOid"`
}
