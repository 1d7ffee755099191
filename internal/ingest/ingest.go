// Package ingest feeds order-book snapshots published by upstream market-data
// services into the book cache.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// Swapper publishes a snapshot into the book cache.
type Swapper interface {
	Swap(ctx context.Context, b *model.OrderBook) (*model.OrderBook, error)
}

var (
	errDecode = errors.New("decode book message")
	errReject = errors.New("snapshot rejected")
)

// apply decodes a BookMessage body and swaps it in. The returned error wraps
// errDecode or errReject so transports can decide whether to redeliver.
func apply(ctx context.Context, books Swapper, body []byte, receivedAt time.Time) (*model.OrderBook, error) {
	var msg model.BookMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", errDecode, err)
	}
	ob, err := msg.ToOrderBook(receivedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDecode, err)
	}
	snap, err := books.Swap(ctx, ob)
	if err != nil {
		return ob, fmt.Errorf("%w: %v", errReject, err)
	}
	return snap, nil
}
