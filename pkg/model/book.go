package model

import (
	"fmt"
	"time"
)

// Level is one resting price level. Size is in base units.
type Level struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Notional is the quote-currency value resting at the level.
func (l Level) Notional() float64 { return l.Price * l.Size }

// OrderBook is an immutable point-in-time view of one symbol at one venue.
// Bids are strictly descending in price, asks strictly ascending.
//
// Once published by the book cache a snapshot is shared between concurrent
// requests; nothing may modify its slices.
type OrderBook struct {
	Venue     string    `json:"venue"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Version   uint64    `json:"version"`
	Bids      []Level   `json:"bids"`
	Asks      []Level   `json:"asks"`
}

// Validate enforces the snapshot invariants: positive prices and sizes,
// strictly monotonic sides, and a non-crossed top of book.
func (b *OrderBook) Validate() error {
	if b == nil {
		return fmt.Errorf("nil order book")
	}
	if b.Venue == "" || b.Symbol == "" {
		return fmt.Errorf("order book missing venue or symbol")
	}
	if len(b.Bids) == 0 && len(b.Asks) == 0 {
		return fmt.Errorf("order book %s %s is empty", b.Venue, b.Symbol)
	}
	if err := checkSide("bid", b.Bids, func(prev, cur float64) bool { return cur < prev }); err != nil {
		return err
	}
	if err := checkSide("ask", b.Asks, func(prev, cur float64) bool { return cur > prev }); err != nil {
		return err
	}
	if len(b.Bids) > 0 && len(b.Asks) > 0 && b.Bids[0].Price >= b.Asks[0].Price {
		return fmt.Errorf("crossed book: best bid %g >= best ask %g", b.Bids[0].Price, b.Asks[0].Price)
	}
	return nil
}

func checkSide(name string, levels []Level, ordered func(prev, cur float64) bool) error {
	for i, l := range levels {
		if !finite(l.Price) || l.Price <= 0 {
			return fmt.Errorf("%s level %d: price %g must be positive", name, i, l.Price)
		}
		if !finite(l.Size) || l.Size <= 0 {
			return fmt.Errorf("%s level %d: size %g must be positive", name, i, l.Size)
		}
		if i > 0 && !ordered(levels[i-1].Price, l.Price) {
			return fmt.Errorf("%s level %d: price %g out of order after %g", name, i, l.Price, levels[i-1].Price)
		}
	}
	return nil
}

// Clone deep-copies the book so the caller's slices can never alias a published snapshot.
func (b *OrderBook) Clone() *OrderBook {
	out := *b
	out.Bids = append([]Level(nil), b.Bids...)
	out.Asks = append([]Level(nil), b.Asks...)
	return &out
}

// BestBid returns the highest bid, false if the side is empty.
func (b *OrderBook) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, false if the side is empty.
func (b *OrderBook) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// Mid is the arithmetic mid price; 0 when either side is empty.
func (b *OrderBook) Mid() float64 {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0
	}
	return (bid.Price + ask.Price) / 2
}

// SpreadBps is the quoted spread relative to mid in basis points; 0 for one-sided books.
func (b *OrderBook) SpreadBps() float64 {
	mid := b.Mid()
	if mid == 0 {
		return 0
	}
	return (b.Asks[0].Price - b.Bids[0].Price) / mid * 1e4
}

// Consuming returns the side a taker order of the given direction walks.
func (b *OrderBook) Consuming(side Side) []Level {
	if side == SideSell {
		return b.Bids
	}
	return b.Asks
}

// Passive returns the side a resting order of the given direction joins.
func (b *OrderBook) Passive(side Side) []Level {
	if side == SideSell {
		return b.Asks
	}
	return b.Bids
}

// Depth sums a side in base units and in quote notional.
func Depth(levels []Level) (base, quote float64) {
	for _, l := range levels {
		base += l.Size
		quote += l.Notional()
	}
	return base, quote
}

// Age is how old the snapshot is relative to now.
func (b *OrderBook) Age(now time.Time) time.Duration {
	if b.Timestamp.IsZero() {
		return 0
	}
	return now.Sub(b.Timestamp)
}
