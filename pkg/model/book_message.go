package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BookMessage is the wire form of a snapshot pushed by an external feed over
// NATS, AMQP or the operator PUT endpoint. Prices and sizes may be JSON numbers
// or strings; both decode exactly through decimal.
//
//	{"venue":"OKX","symbol":"BTC-USDT","ts":1718000000000,
//	 "bids":[["64000.1","0.5"]],"asks":[["64000.2","1.2"]]}
type BookMessage struct {
	Venue  string               `json:"venue"`
	Symbol string               `json:"symbol"`
	TsMs   int64                `json:"ts"`
	Bids   [][2]decimal.Decimal `json:"bids"`
	Asks   [][2]decimal.Decimal `json:"asks"`
}

// ToOrderBook converts the message into a model snapshot. A zero timestamp is
// replaced by receivedAt. Invariants are checked by the cache on swap.
func (m BookMessage) ToOrderBook(receivedAt time.Time) (*OrderBook, error) {
	venue := NormalizeVenue(m.Venue)
	symbol := NormalizeSymbol(m.Symbol)
	if venue == "" || symbol == "" {
		return nil, fmt.Errorf("book message missing venue or symbol")
	}
	ts := receivedAt
	if m.TsMs > 0 {
		ts = time.UnixMilli(m.TsMs).UTC()
	}
	return &OrderBook{
		Venue:     venue,
		Symbol:    symbol,
		Timestamp: ts,
		Bids:      levelsFromDecimal(m.Bids),
		Asks:      levelsFromDecimal(m.Asks),
	}, nil
}

func levelsFromDecimal(in [][2]decimal.Decimal) []Level {
	out := make([]Level, 0, len(in))
	for _, pair := range in {
		out = append(out, Level{
			Price: pair[0].InexactFloat64(),
			Size:  pair[1].InexactFloat64(),
		})
	}
	return out
}

// ParseLevel parses a venue's string price/size pair exactly before converting to float.
func ParseLevel(price, size string) (Level, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Level{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	s, err := decimal.NewFromString(size)
	if err != nil {
		return Level{}, fmt.Errorf("parse size %q: %w", size, err)
	}
	return Level{Price: p.InexactFloat64(), Size: s.InexactFloat64()}, nil
}
