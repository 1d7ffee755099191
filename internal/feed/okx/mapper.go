package okx

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// ToOrderBook maps an OKX depth payload to a model snapshot. Zero-size levels
// are dropped; invariants are left to the book cache.
func ToOrderBook(instID string, d bookData, receivedAt time.Time) (*model.OrderBook, error) {
	bids, err := toLevels(d.Bids)
	if err != nil {
		return nil, fmt.Errorf("okx %s bids: %w", instID, err)
	}
	asks, err := toLevels(d.Asks)
	if err != nil {
		return nil, fmt.Errorf("okx %s asks: %w", instID, err)
	}

	ts := receivedAt
	if d.Ts != "" {
		ms, err := strconv.ParseInt(d.Ts, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("okx %s ts %q: %w", instID, d.Ts, err)
		}
		ts = time.UnixMilli(ms).UTC()
	}

	return &model.OrderBook{
		Venue:     Venue,
		Symbol:    model.NormalizeSymbol(instID),
		Timestamp: ts,
		Bids:      bids,
		Asks:      asks,
	}, nil
}

func toLevels(raw [][]string) ([]model.Level, error) {
	out := make([]model.Level, 0, len(raw))
	for i, row := range raw {
		if len(row) < 2 {
			return nil, fmt.Errorf("level %d: want price and size, got %d fields", i, len(row))
		}
		lvl, err := model.ParseLevel(row[0], row[1])
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		if lvl.Size == 0 {
			continue
		}
		out = append(out, lvl)
	}
	return out, nil
}
