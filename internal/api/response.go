package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

// BookSummary is the GET/PUT /api/v1/books response.
type BookSummary struct {
	Venue     string    `json:"venue"`
	Symbol    string    `json:"symbol"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	AgeMs     int64     `json:"ageMs"`
	BestBid   float64   `json:"bestBid"`
	BestAsk   float64   `json:"bestAsk"`
	Mid       float64   `json:"mid"`
	SpreadBps float64   `json:"spreadBps"`
	BidLevels int       `json:"bidLevels"`
	AskLevels int       `json:"askLevels"`
	BidDepth  float64   `json:"bidDepthQuote"`
	AskDepth  float64   `json:"askDepthQuote"`
}

// FeeTiersResponse is the GET /api/v1/fee-tiers response.
type FeeTiersResponse struct {
	Default string                    `json:"default"`
	Tiers   map[string]model.FeeRates `json:"tiers"`
}

func summarize(b *model.OrderBook, now time.Time) BookSummary {
	s := BookSummary{
		Venue:     b.Venue,
		Symbol:    b.Symbol,
		Version:   b.Version,
		Timestamp: b.Timestamp,
		AgeMs:     b.Age(now).Milliseconds(),
		Mid:       b.Mid(),
		SpreadBps: b.SpreadBps(),
		BidLevels: len(b.Bids),
		AskLevels: len(b.Asks),
	}
	if l, ok := b.BestBid(); ok {
		s.BestBid = l.Price
	}
	if l, ok := b.BestAsk(); ok {
		s.BestAsk = l.Price
	}
	_, s.BidDepth = model.Depth(b.Bids)
	_, s.AskDepth = model.Depth(b.Asks)
	return s
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindInvalidInput:
		return fiber.StatusBadRequest
	case model.KindSnapshotUnavailable:
		return fiber.StatusServiceUnavailable
	case model.KindInsufficientLiquidity:
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

func writeError(c *fiber.Ctx, err error) error {
	kind := model.KindOf(err)
	return c.Status(StatusFor(kind)).JSON(ErrorResponse{
		Error: err.Error(),
		Kind:  string(kind),
		Field: model.FieldOf(err),
	})
}
