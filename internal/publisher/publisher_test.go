package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// --- mock types ---

type mockJetStream struct {
	mu        sync.Mutex
	published []*nats.Msg
	fail      bool
}

func (m *mockJetStream) PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("mock publish error")
	}
	m.published = append(m.published, msg)
	return &nats.PubAck{Stream: "mock-stream"}, nil
}

func (m *mockJetStream) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

func sampleEstimate() (model.QuoteRequest, model.CostEstimate) {
	req := model.QuoteRequest{
		Venue: "OKX", Symbol: "BTC-USDT", OrderType: model.OrderTypeMarket,
		Side: model.SideBuy, Quantity: 100, QuantityUnit: model.UnitQuote,
		Volatility: 0.02, FeeTier: "standard",
	}
	est := model.CostEstimate{
		Slippage: 0.5, Fees: 0.1, MarketImpact: 0.2, NetCost: 0.8,
		MakerTaker: model.AllTaker, Venue: "OKX", Symbol: "BTC-USDT",
		SnapshotVersion: 3, ImpactModel: "sqrt",
	}
	return req, est
}

// --- tests ---

func TestPublishEstimate_Envelope(t *testing.T) {
	js := &mockJetStream{}
	p := NewWithJetStream(js, "evt", "cost-estimator")

	req, est := sampleEstimate()
	require.NoError(t, p.PublishEstimate(context.Background(), req, est))
	require.Len(t, js.published, 1)

	msg := js.published[0]
	assert.Equal(t, "evt.cost.estimated.v1", msg.Subject)
	assert.Equal(t, EventCostEstimated, msg.Header.Get("event_type"))
	assert.Equal(t, "cost-estimator", msg.Header.Get("service"))
	assert.Equal(t, "OKX", msg.Header.Get("venue"))

	var env model.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, "evt.cost.estimated.v1", env.Topic)
	assert.Equal(t, "BTC-USDT", env.Context.Symbol)

	var ev EstimatedEvent
	require.NoError(t, json.Unmarshal(env.Payload, &ev))
	assert.Equal(t, 0.8, ev.Cost)
	assert.Equal(t, uint64(3), ev.SnapshotVersion)
	assert.Equal(t, "standard", ev.FeeTier)
}

func TestPublishEnvelope_Failure(t *testing.T) {
	js := &mockJetStream{fail: true}
	p := NewWithJetStream(js, "evt", "cost-estimator")

	env, err := model.NewEnvelope("evt.test.v1", "test", uuid.Nil, map[string]int{"a": 1}, model.Context{})
	require.NoError(t, err)
	assert.Error(t, p.PublishEnvelope(context.Background(), "", env))
}

func TestPublishEnvelope_DefaultsSubjectToTopic(t *testing.T) {
	js := &mockJetStream{}
	p := NewWithJetStream(js, "evt", "cost-estimator")

	env, err := model.NewEnvelope("evt.test.v1", "test", uuid.Nil, nil, model.Context{})
	require.NoError(t, err)
	require.NoError(t, p.PublishEnvelope(context.Background(), "", env))
	assert.Equal(t, "evt.test.v1", js.published[0].Subject)
}

func TestPublish_Raw(t *testing.T) {
	js := &mockJetStream{}
	p := NewWithJetStream(js, "evt", "cost-estimator")

	require.NoError(t, p.Publish(context.Background(), "internal.debug", map[string]string{"k": "v"}))
	assert.Equal(t, "cost-estimator", js.published[0].Header.Get("source"))
	assert.JSONEq(t, `{"k":"v"}`, string(js.published[0].Data))
}

func TestPublishFeesRefreshed(t *testing.T) {
	js := &mockJetStream{}
	p := NewWithJetStream(js, "evt", "cost-estimator")

	err := p.PublishFeesRefreshed(context.Background(), map[string]model.FeeRates{"vip": {MakerBps: 2, TakerBps: 5}})
	require.NoError(t, err)
	assert.Equal(t, "evt.fees.refreshed.v1", js.published[0].Subject)
}

func TestStartEstimateWorker(t *testing.T) {
	js := &mockJetStream{}
	p := NewWithJetStream(js, "evt", "cost-estimator")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	observe := p.StartEstimateWorker(ctx, 8)

	req, est := sampleEstimate()
	for i := 0; i < 3; i++ {
		observe(req, &est)
	}

	assert.Eventually(t, func() bool { return js.count() == 3 }, time.Second, 5*time.Millisecond)
}

func TestStartEstimateWorker_LogsPublishFailure(t *testing.T) {
	js := &mockJetStream{fail: true}
	p := NewWithJetStream(js, "evt", "cost-estimator")
	core, logs := observer.New(zapcore.WarnLevel)
	p.log = zap.New(core)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	observe := p.StartEstimateWorker(ctx, 4)

	req, est := sampleEstimate()
	observe(req, &est)

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("publisher.estimate_publish_failed").Len() == 1
	}, time.Second, 5*time.Millisecond)

	entry := logs.FilterMessage("publisher.estimate_publish_failed").All()[0]
	assert.Equal(t, "OKX", entry.ContextMap()["venue"])
	assert.Equal(t, uint64(3), entry.ContextMap()["snapshot_version"])
}
