package model

import (
	"math"
	"strings"
)

// OrderType is the execution style of the hypothetical order.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// Side is the direction of the hypothetical order. Buys consume asks, sells consume bids.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// QuantityUnit says what Quantity is denominated in.
type QuantityUnit string

const (
	// UnitQuote is quote-currency notional (USDT for BTC-USDT). It is the default.
	UnitQuote QuantityUnit = "quote"
	// UnitBase is base-asset size (BTC for BTC-USDT).
	UnitBase QuantityUnit = "base"
)

// QuoteRequest is the validated, normalized form of an estimate request.
//
// Volatility is daily realized volatility expressed as a fraction: 0.02 means
// a 2% one-day standard deviation of returns.
type QuoteRequest struct {
	Venue        string
	Symbol       string
	OrderType    OrderType
	Side         Side
	Quantity     float64
	QuantityUnit QuantityUnit
	Volatility   float64
	FeeTier      string
	LimitPrice   float64 // 0 when absent; only meaningful for limit orders
}

// Validate checks the invariants every component relies on. It is a guard for
// callers that bypass the HTTP boundary; the boundary reports richer errors.
func (r QuoteRequest) Validate() error {
	switch {
	case r.Venue == "":
		return NewInvalidInput("exchange", "is required")
	case r.Symbol == "":
		return NewInvalidInput("spotAsset", "is required")
	case r.OrderType != OrderTypeMarket && r.OrderType != OrderTypeLimit:
		return NewInvalidInput("orderType", "must be 'market' or 'limit'")
	case r.Side != SideBuy && r.Side != SideSell:
		return NewInvalidInput("side", "must be 'buy' or 'sell'")
	case r.QuantityUnit != UnitQuote && r.QuantityUnit != UnitBase:
		return NewInvalidInput("quantityUnit", "must be 'quote' or 'base'")
	case !finite(r.Quantity) || r.Quantity <= 0:
		return NewInvalidInput("quantity", "must be a finite number greater than 0")
	case !finite(r.Volatility) || r.Volatility < 0:
		return NewInvalidInput("volatility", "must be a finite number greater than or equal to 0")
	case r.FeeTier == "":
		return NewInvalidInput("feeTier", "is required")
	case !finite(r.LimitPrice) || r.LimitPrice < 0:
		return NewInvalidInput("limitPrice", "must be a positive number")
	case r.LimitPrice > 0 && r.OrderType != OrderTypeLimit:
		return NewInvalidInput("limitPrice", "is only allowed with orderType 'limit'")
	}
	return nil
}

// NormalizeVenue upper-cases a venue code ("okx" -> "OKX").
func NormalizeVenue(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// NormalizeSymbol maps the common pair spellings onto the dash form used as cache key
// ("btc/usdt", "BTC_USDT" -> "BTC-USDT").
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("/", "-", "_", "-", ":", "-").Replace(s)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
