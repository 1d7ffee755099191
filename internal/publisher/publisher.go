package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/internal/metrics"
	"github.com/aadarsh2904/GoQunat-Project/pkg/logger"
	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

const (
	EventCostEstimated = "cost.estimated"
	EventFeesRefreshed = "fees.refreshed"
)

// JetStream is the subset of nats.JetStreamContext the publisher uses.
type JetStream interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher wraps a NATS connection and provides helpers for publishing canonical events.
type Publisher struct {
	nc      *nats.Conn
	js      JetStream
	prefix  string // e.g. "evt"
	service string
	log     *zap.Logger

	queue chan estimateJob
}

type estimateJob struct {
	req model.QuoteRequest
	est model.CostEstimate
}

// New creates a new Publisher on top of JetStream.
func New(nc *nats.Conn, prefix, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		prefix:  prefix,
		service: service,
		log:     logger.Named("publisher"),
	}, nil
}

// NewWithJetStream builds a publisher over any JetStream implementation.
func NewWithJetStream(js JetStream, prefix, service string) *Publisher {
	return &Publisher{js: js, prefix: prefix, service: service, log: logger.Named("publisher")}
}

// EnsureStream creates the events stream if it does not exist yet.
func EnsureStream(jsm nats.JetStreamManager, name string, subjects ...string) error {
	if _, err := jsm.StreamInfo(name); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err := jsm.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: subjects,
		MaxAge:   24 * time.Hour,
	})
	return err
}

// Subject builds "<prefix>.<name>.v1".
func (p *Publisher) Subject(name string) string {
	return p.prefix + "." + name + ".v1"
}

// PublishEnvelope serializes and publishes a canonical event envelope to NATS.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	if subject == "" {
		subject = env.Topic
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"venue":          []string{env.Context.Venue},
			"symbol":         []string{env.Context.Symbol},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	logger.S().Debugw("publisher.publish_success",
		"subject", subject,
		"event_type", env.EventType,
	)

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

// Publish publishes raw JSON payloads (for non-canonical internal events).
func (p *Publisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{"source": []string{p.service}},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

// EstimatedEvent is the payload of cost.estimated events. Unlike the HTTP
// response it carries the request and the snapshot diagnostics.
type EstimatedEvent struct {
	Venue           string           `json:"venue"`
	Symbol          string           `json:"symbol"`
	OrderType       string           `json:"orderType"`
	Side            string           `json:"side"`
	Quantity        float64          `json:"quantity"`
	QuantityUnit    string           `json:"quantityUnit"`
	Volatility      float64          `json:"volatility"`
	FeeTier         string           `json:"feeTier"`
	Slippage        float64          `json:"slippage"`
	Fees            float64          `json:"fees"`
	MarketImpact    float64          `json:"marketImpact"`
	Cost            float64          `json:"cost"`
	MakerTaker      model.MakerTaker `json:"makerTaker"`
	LatencyMs       float64          `json:"latency"`
	SnapshotVersion uint64           `json:"snapshotVersion"`
	Notional        float64          `json:"notional"`
	VWAP            float64          `json:"vwap"`
	BestPrice       float64          `json:"bestPrice"`
	ImpactModel     string           `json:"impactModel"`
}

func newEstimatedEvent(req model.QuoteRequest, est model.CostEstimate) EstimatedEvent {
	return EstimatedEvent{
		Venue:           est.Venue,
		Symbol:          est.Symbol,
		OrderType:       string(req.OrderType),
		Side:            string(req.Side),
		Quantity:        req.Quantity,
		QuantityUnit:    string(req.QuantityUnit),
		Volatility:      req.Volatility,
		FeeTier:         req.FeeTier,
		Slippage:        est.Slippage,
		Fees:            est.Fees,
		MarketImpact:    est.MarketImpact,
		Cost:            est.NetCost,
		MakerTaker:      est.MakerTaker,
		LatencyMs:       est.LatencyMs,
		SnapshotVersion: est.SnapshotVersion,
		Notional:        est.Notional,
		VWAP:            est.VWAP,
		BestPrice:       est.BestPrice,
		ImpactModel:     est.ImpactModel,
	}
}

// PublishEstimate emits a canonical cost.estimated event.
func (p *Publisher) PublishEstimate(ctx context.Context, req model.QuoteRequest, est model.CostEstimate) error {
	subject := p.Subject(EventCostEstimated)
	env, err := model.NewEnvelope(subject, EventCostEstimated, uuid.Nil, newEstimatedEvent(req, est), model.Context{
		Venue:     est.Venue,
		Symbol:    est.Symbol,
		Side:      string(req.Side),
		OrderType: string(req.OrderType),
		Quantity:  req.Quantity,
	})
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}
	return p.PublishEnvelope(ctx, subject, env)
}

// PublishFeesRefreshed emits the schedule now in force.
func (p *Publisher) PublishFeesRefreshed(ctx context.Context, tiers map[string]model.FeeRates) error {
	subject := p.Subject(EventFeesRefreshed)
	env, err := model.NewEnvelope(subject, EventFeesRefreshed, uuid.Nil, map[string]any{"tiers": tiers}, model.Context{})
	if err != nil {
		return err
	}
	return p.PublishEnvelope(ctx, subject, env)
}

// StartEstimateWorker drains queued estimates until ctx ends and returns an
// observer that enqueues without blocking. Estimates are dropped when the
// queue is full.
func (p *Publisher) StartEstimateWorker(ctx context.Context, size int) func(model.QuoteRequest, *model.CostEstimate) {
	if size <= 0 {
		size = 1024
	}
	p.queue = make(chan estimateJob, size)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-p.queue:
				pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				if err := p.PublishEstimate(pubCtx, job.req, job.est); err != nil {
					p.log.Warn("publisher.estimate_publish_failed",
						zap.String("venue", job.est.Venue),
						zap.String("symbol", job.est.Symbol),
						zap.Uint64("snapshot_version", job.est.SnapshotVersion),
						zap.Error(err))
				}
				cancel()
			}
		}
	}()
	return func(req model.QuoteRequest, est *model.CostEstimate) {
		select {
		case p.queue <- estimateJob{req: req, est: *est}:
		default:
			metrics.IncError("publisher", "queue_full")
		}
	}
}

func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
