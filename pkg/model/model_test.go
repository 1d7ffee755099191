package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBook() *OrderBook {
	return &OrderBook{
		Venue:  "OKX",
		Symbol: "BTC-USDT",
		Bids:   []Level{{Price: 99, Size: 4}, {Price: 98, Size: 6}},
		Asks:   []Level{{Price: 100, Size: 5}, {Price: 101, Size: 10}},
	}
}

func TestOrderBook_Validate(t *testing.T) {
	require.NoError(t, testBook().Validate())

	tests := []struct {
		name   string
		mutate func(b *OrderBook)
		want   string
	}{
		{"crossed", func(b *OrderBook) { b.Bids[0].Price = 100 }, "crossed book"},
		{"asks out of order", func(b *OrderBook) { b.Asks[1].Price = 100 }, "out of order"},
		{"bids out of order", func(b *OrderBook) { b.Bids[1].Price = 99.5 }, "out of order"},
		{"zero size", func(b *OrderBook) { b.Asks[0].Size = 0 }, "size"},
		{"negative price", func(b *OrderBook) { b.Bids[1].Price = -1 }, "price"},
		{"empty", func(b *OrderBook) { b.Bids, b.Asks = nil, nil }, "empty"},
		{"no venue", func(b *OrderBook) { b.Venue = "" }, "venue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBook()
			tt.mutate(b)
			err := b.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOrderBook_Accessors(t *testing.T) {
	b := testBook()

	assert.InDelta(t, 99.5, b.Mid(), 1e-12)
	assert.InDelta(t, 1/99.5*1e4, b.SpreadBps(), 1e-9)
	assert.Equal(t, b.Asks, b.Consuming(SideBuy))
	assert.Equal(t, b.Bids, b.Consuming(SideSell))
	assert.Equal(t, b.Bids, b.Passive(SideBuy))

	base, quote := Depth(b.Asks)
	assert.InDelta(t, 15, base, 1e-12)
	assert.InDelta(t, 500+1010, quote, 1e-9)

	oneSided := &OrderBook{Venue: "OKX", Symbol: "X", Asks: b.Asks}
	assert.Zero(t, oneSided.Mid())
	assert.Zero(t, oneSided.SpreadBps())
}

func TestOrderBook_CloneDoesNotAlias(t *testing.T) {
	b := testBook()
	c := b.Clone()
	c.Asks[0].Price = 1

	assert.Equal(t, 100.0, b.Asks[0].Price)
}

func TestEstimateError_IsAndKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewInsufficientLiquidity(20, 15, UnitBase))

	assert.True(t, errors.Is(err, ErrInsufficientLiquidity))
	assert.False(t, errors.Is(err, ErrSnapshotUnavailable))
	assert.Equal(t, KindInsufficientLiquidity, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	inv := NewInvalidInput("quantity", "must be greater than 0")
	assert.Equal(t, "quantity", FieldOf(inv))
	assert.Contains(t, inv.Error(), "InvalidInput: quantity")
}

func TestAbandoned(t *testing.T) {
	assert.True(t, Abandoned(context.Canceled))
	assert.True(t, Abandoned(fmt.Errorf("walk: %w", context.DeadlineExceeded)))
	assert.False(t, Abandoned(NewInternal("overflow")))
	assert.False(t, Abandoned(nil))
}

func TestSplitFromMaker_Clamps(t *testing.T) {
	assert.Equal(t, MakerTaker{Maker: 0, Taker: 1}, SplitFromMaker(-0.3))
	assert.Equal(t, MakerTaker{Maker: 1, Taker: 0}, SplitFromMaker(1.7))

	s := SplitFromMaker(0.25)
	assert.InDelta(t, 1, s.Maker+s.Taker, 1e-15)
}

func TestQuoteRequest_Validate(t *testing.T) {
	ok := QuoteRequest{
		Venue: "OKX", Symbol: "BTC-USDT", OrderType: OrderTypeMarket, Side: SideBuy,
		Quantity: 100, QuantityUnit: UnitQuote, Volatility: 0.02, FeeTier: "standard",
	}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.Quantity = 0
	assert.Equal(t, "quantity", FieldOf(bad.Validate()))

	bad = ok
	bad.LimitPrice = 99
	assert.Equal(t, "limitPrice", FieldOf(bad.Validate()))
}

func TestBookMessage_ToOrderBook(t *testing.T) {
	raw := `{"venue":"okx","symbol":"btc/usdt","ts":1718000000000,
		"bids":[["64000.1","0.5"],[63999,1]],
		"asks":[["64000.2","1.25"]]}`

	var msg BookMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	b, err := msg.ToOrderBook(time.Now())
	require.NoError(t, err)
	assert.Equal(t, "OKX", b.Venue)
	assert.Equal(t, "BTC-USDT", b.Symbol)
	assert.Equal(t, int64(1718000000000), b.Timestamp.UnixMilli())
	require.Len(t, b.Bids, 2)
	assert.InDelta(t, 63999, b.Bids[1].Price, 1e-9)
	assert.InDelta(t, 1.25, b.Asks[0].Size, 1e-12)
	require.NoError(t, b.Validate())
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("41006.8", "0.60038921")
	require.NoError(t, err)
	assert.InDelta(t, 41006.8, l.Price, 1e-9)

	_, err = ParseLevel("abc", "1")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "BTC-USDT", NormalizeSymbol(" btc_usdt "))
	assert.Equal(t, "OKX", NormalizeVenue("okx"))
}
