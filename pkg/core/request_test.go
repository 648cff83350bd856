package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_InsertionOrderPreserved(t *testing.T) {
	var p Params
	p.Set("zeta", "1")
	p.Set("alpha", "2")
	p.Set("mid", "3")

	assert.Equal(t, "zeta=1&alpha=2&mid=3", p.Encode())
}

func TestParams_SetReplacesInPlace(t *testing.T) {
	var p Params
	p.Set("a", "1")
	p.Set("b", "2")
	p.Set("a", "updated")

	v, ok := p.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "updated", v)
	assert.Equal(t, "a=updated&b=2", p.Encode(), "replacing must keep position")
}

func TestParams_Sorted(t *testing.T) {
	var p Params
	p.Set("zeta", "1")
	p.Set("alpha", "2")

	assert.Equal(t, "alpha=2&zeta=1", p.Sorted().Encode())
	assert.Equal(t, "zeta=1&alpha=2", p.Encode(), "sorting must not mutate the original")
}

func TestParams_EncodeEscapes(t *testing.T) {
	var p Params
	p.Set("symbol", "BTC/USDT")
	p.Set("note", "a b")

	assert.Equal(t, "symbol=BTC%2FUSDT&note=a+b", p.Encode())
}

func TestParams_GetMissing(t *testing.T) {
	var p Params
	_, ok := p.Get("absent")
	assert.False(t, ok)
}

func TestNewRequest_Defaults(t *testing.T) {
	req := NewRequest("GET", "/api/v3/time")

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/api/v3/time", req.Path)
	assert.Equal(t, 1, req.Weight)
	assert.Equal(t, ClassDefault, req.Classification)
	assert.False(t, req.RequireAuth)
}

func TestRequest_BuilderChaining(t *testing.T) {
	req := NewRequest("POST", "/api/v3/order").
		SetQuery("symbol", "BTCUSDT").
		SetQuery("limit", 500).
		SetQuery("price", 42000.5).
		SetQuery("reduceOnly", true).
		SetHeader("X-Custom", "1").
		SetWeight(5).
		SetClassification(ClassOrder).
		SetRequireAuth(true)

	assert.Equal(t, "symbol=BTCUSDT&limit=500&price=42000.5&reduceOnly=true", req.Query.Encode())
	assert.Equal(t, "1", req.Headers["X-Custom"])
	assert.Equal(t, 5, req.Weight)
	assert.Equal(t, ClassOrder, req.Classification)
	assert.True(t, req.RequireAuth)
}
