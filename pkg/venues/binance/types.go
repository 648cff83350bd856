package binance

import (
	"fmt"

	"github.com/bytedance/sonic"

	"nakula/pkg/core"
)

// ServerTime is the response of GET /api/v3/time.
type ServerTime struct {
	ServerTime int64 `json:"serverTime"`
}

// Ticker24h is the 24-hour rolling statistics for one symbol.
type Ticker24h struct {
	Symbol             string       `json:"symbol"`
	PriceChange        core.Decimal `json:"priceChange"`
	PriceChangePercent core.Decimal `json:"priceChangePercent"`
	LastPrice          core.Decimal `json:"lastPrice"`
	BidPrice           core.Decimal `json:"bidPrice"`
	AskPrice           core.Decimal `json:"askPrice"`
	OpenPrice          core.Decimal `json:"openPrice"`
	HighPrice          core.Decimal `json:"highPrice"`
	LowPrice           core.Decimal `json:"lowPrice"`
	Volume             core.Decimal `json:"volume"`
	QuoteVolume        core.Decimal `json:"quoteVolume"`
	OpenTime           int64        `json:"openTime"`
	CloseTime          int64        `json:"closeTime"`
	Count              int64        `json:"count"`
}

// PriceLevel is one [price, quantity] pair from the depth endpoint.
type PriceLevel struct {
	Price    core.Decimal
	Quantity core.Decimal
}

// UnmarshalJSON decodes the two-element array form the wire uses.
func (p *PriceLevel) UnmarshalJSON(data []byte) error {
	var raw [2]string
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode price level: %w", err)
	}
	price, err := core.ParseDecimal(raw[0])
	if err != nil {
		return err
	}
	qty, err := core.ParseDecimal(raw[1])
	if err != nil {
		return err
	}
	p.Price = price
	p.Quantity = qty
	return nil
}

// Depth is the order book snapshot of GET /api/v3/depth.
type Depth struct {
	LastUpdateID int64        `json:"lastUpdateId"`
	Bids         []PriceLevel `json:"bids"`
	Asks         []PriceLevel `json:"asks"`
}

// Balance is one asset's balance within an account.
type Balance struct {
	Asset  string       `json:"asset"`
	Free   core.Decimal `json:"free"`
	Locked core.Decimal `json:"locked"`
}

// Account is the response of GET /api/v3/account.
type Account struct {
	MakerCommission int64     `json:"makerCommission"`
	TakerCommission int64     `json:"takerCommission"`
	CanTrade        bool      `json:"canTrade"`
	CanWithdraw     bool      `json:"canWithdraw"`
	CanDeposit      bool      `json:"canDeposit"`
	UpdateTime      int64     `json:"updateTime"`
	AccountType     string    `json:"accountType"`
	Balances        []Balance `json:"balances"`
}

// OrderSide is the taker direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderType is the venue order type vocabulary.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// TimeInForce controls how long an order rests.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// NewOrderParams are the caller-supplied fields of POST /api/v3/order.
type NewOrderParams struct {
	Symbol           string
	Side             OrderSide
	Type             OrderType
	TimeInForce      TimeInForce
	Quantity         string
	Price            string
	NewClientOrderID string
}

// OrderResponse is the ACK/RESULT response of POST /api/v3/order.
type OrderResponse struct {
	Symbol        string       `json:"symbol"`
	OrderID       int64        `json:"orderId"`
	ClientOrderID string       `json:"clientOrderId"`
	TransactTime  int64        `json:"transactTime"`
	Price         core.Decimal `json:"price"`
	OrigQty       core.Decimal `json:"origQty"`
	ExecutedQty   core.Decimal `json:"executedQty"`
	Status        string       `json:"status"`
	Type          OrderType    `json:"type"`
	Side          OrderSide    `json:"side"`
}
