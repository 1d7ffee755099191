package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical event envelope.
// Everything the estimator publishes to NATS follows this format.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
	Context       Context         `json:"context,omitempty"`
}

// Context carries routing hints copied out of the payload so consumers can
// filter without decoding it.
type Context struct {
	Venue     string  `json:"venue,omitempty"`
	Symbol    string  `json:"symbol,omitempty"`
	Side      string  `json:"side,omitempty"`
	OrderType string  `json:"order_type,omitempty"`
	Quantity  float64 `json:"quantity,omitempty"`
}

// NewEnvelope wraps payload under a fresh id. correlationID may be uuid.Nil,
// in which case a new one is generated.
func NewEnvelope(topic, eventType string, correlationID uuid.UUID, payload any, ctx Context) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}
	return &Envelope{
		ID:            uuid.New(),
		CorrelationID: correlationID,
		Topic:         topic,
		EventType:     eventType,
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       data,
		Context:       ctx,
	}, nil
}
