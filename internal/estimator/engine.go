// Package estimator composes slippage, fees and market impact into one
// additive cost estimate over a single order-book snapshot.
package estimator

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aadarsh2904/GoQunat-Project/internal/book"
	"github.com/aadarsh2904/GoQunat-Project/internal/fees"
	"github.com/aadarsh2904/GoQunat-Project/internal/impact"
	"github.com/aadarsh2904/GoQunat-Project/internal/makertaker"
	"github.com/aadarsh2904/GoQunat-Project/internal/metrics"
	"github.com/aadarsh2904/GoQunat-Project/internal/slippage"
	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// Engine is stateless per request and safe for concurrent use.
type Engine struct {
	books      book.Source
	fees       *fees.Registry
	impact     impact.Model
	classifier makertaker.Classifier
	adv        map[string]float64
	log        *zap.Logger
	now        func() time.Time
	observers  []func(model.QuoteRequest, *model.CostEstimate)
}

// Option configures an Engine.
type Option func(*Engine)

// WithImpactModel replaces the default square-root model.
func WithImpactModel(m impact.Model) Option { return func(e *Engine) { e.impact = m } }

// WithClassifier replaces the default logistic maker/taker classifier.
func WithClassifier(c makertaker.Classifier) Option { return func(e *Engine) { e.classifier = c } }

// WithADV sets average daily volume in quote units keyed "VENUE:SYMBOL". The
// impact model uses it as its liquidity proxy instead of visible depth.
func WithADV(adv map[string]float64) Option {
	return func(e *Engine) {
		e.adv = make(map[string]float64, len(adv))
		for k, v := range adv {
			venue, symbol, ok := strings.Cut(k, ":")
			if !ok || v <= 0 {
				continue
			}
			e.adv[model.NormalizeVenue(venue)+":"+model.NormalizeSymbol(symbol)] = v
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithObserver is called after every successful estimate, outside the
// measured latency. Observers must not block.
func WithObserver(fn func(model.QuoteRequest, *model.CostEstimate)) Option {
	return func(e *Engine) { e.observers = append(e.observers, fn) }
}

func New(books book.Source, feeReg *fees.Registry, opts ...Option) *Engine {
	e := &Engine{
		books:      books,
		fees:       feeReg,
		impact:     impact.DefaultSquareRoot(),
		classifier: makertaker.DefaultLogistic(),
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ImpactModel names the configured impact model.
func (e *Engine) ImpactModel() string { return e.impact.Name() }

// Estimate prices req against the current snapshot.
func (e *Engine) Estimate(ctx context.Context, req model.QuoteRequest) (*model.CostEstimate, error) {
	return e.EstimateSince(ctx, e.now(), req)
}

// EstimateSince is Estimate with the latency clock started at start, so HTTP
// callers can include decoding and validation in the reported latency.
func (e *Engine) EstimateSince(ctx context.Context, start time.Time, req model.QuoteRequest) (*model.CostEstimate, error) {
	est, err := e.estimate(ctx, req)
	if err != nil {
		if model.Abandoned(err) {
			metrics.IncEstimate(req.Venue, string(req.OrderType), "abandoned")
			e.log.Debug("estimator.estimate_abandoned",
				zap.String("venue", req.Venue),
				zap.String("symbol", req.Symbol),
				zap.Error(err))
			return nil, err
		}
		kind := model.KindOf(err)
		metrics.IncEstimate(req.Venue, string(req.OrderType), string(kind))
		if kind == model.KindInternal {
			metrics.IncError("estimator", "internal")
			e.log.Error("estimator.estimate_failed",
				zap.String("venue", req.Venue),
				zap.String("symbol", req.Symbol),
				zap.Error(err))
		} else {
			e.log.Debug("estimator.estimate_rejected",
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
		return nil, err
	}

	elapsed := e.now().Sub(start)
	est.LatencyMs = float64(elapsed) / float64(time.Millisecond)

	metrics.IncEstimate(req.Venue, string(req.OrderType), "ok")
	metrics.ObserveEstimate(req.Venue, elapsed)
	for _, fn := range e.observers {
		fn(req, est)
	}
	return est, nil
}

func (e *Engine) estimate(ctx context.Context, req model.QuoteRequest) (*model.CostEstimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Side == "" {
		req.Side = model.SideBuy
	}
	if req.QuantityUnit == "" {
		req.QuantityUnit = model.UnitQuote
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rates, err := e.fees.Current().Rates(req.FeeTier)
	if err != nil {
		return nil, err
	}

	snap, err := e.books.Snapshot(req.Venue, req.Symbol)
	if err != nil {
		return nil, err
	}

	consuming := snap.Consuming(req.Side)
	if len(consuming) == 0 {
		return nil, model.NewInsufficientLiquidity(req.Quantity, 0, req.QuantityUnit)
	}
	touch := consuming[0].Price

	notional := req.Quantity
	if req.QuantityUnit == model.UnitBase {
		notional = req.Quantity * touch
	}

	// Both branches always run to completion and their errors are ranked, so
	// identical requests fail identically regardless of scheduling.
	var (
		split   model.MakerTaker
		fill    slippage.Fill
		impCst  float64
		walkErr error
		impErr  error
	)
	var g errgroup.Group
	g.Go(func() error {
		walkErr = func() error {
			s, err := e.classifier.Classify(makertaker.Input{
				OrderType:  req.OrderType,
				Side:       req.Side,
				Notional:   notional,
				Volatility: req.Volatility,
				LimitPrice: req.LimitPrice,
				Book:       snap,
			})
			if err != nil {
				return err
			}
			// Only the share expected to cross the spread walks the book.
			takerQty := req.Quantity
			if req.OrderType == model.OrderTypeLimit {
				takerQty = req.Quantity * s.Taker
			}
			f, err := slippage.Estimate(snap, req.Side, takerQty, req.QuantityUnit)
			if err != nil {
				return err
			}
			split, fill = s, f
			return nil
		}()
		return nil
	})
	g.Go(func() error {
		impCst, impErr = e.impact.Impact(impact.Input{
			Quantity:   notional,
			Volatility: req.Volatility,
			Depth:      e.depth(snap, req.Side),
		})
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := firstByKind(walkErr, impErr); err != nil {
		return nil, err
	}

	feeCst := fees.Fee(rates, split, notional)
	net := fill.SlippageCost + feeCst + impCst

	for name, v := range map[string]float64{
		"slippage": fill.SlippageCost,
		"fees":     feeCst,
		"impact":   impCst,
		"cost":     net,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, model.NewInternal("%s component is %g", name, v)
		}
	}
	if d := split.Maker + split.Taker - 1; math.Abs(d) > 1e-9 {
		return nil, model.NewInternal("maker/taker split does not sum to one: %+v", split)
	}

	return &model.CostEstimate{
		Slippage:        fill.SlippageCost,
		Fees:            feeCst,
		MarketImpact:    impCst,
		NetCost:         net,
		MakerTaker:      split,
		Venue:           snap.Venue,
		Symbol:          snap.Symbol,
		SnapshotVersion: snap.Version,
		Notional:        notional,
		VWAP:            fill.VWAP,
		BestPrice:       touch,
		BaseFilled:      fill.BaseFilled,
		LevelsConsumed:  fill.LevelsConsumed,
		ImpactModel:     e.impact.Name(),
	}, nil
}

// depth is the impact model's liquidity proxy: configured ADV when present,
// otherwise visible quote depth on the consuming side.
func (e *Engine) depth(snap *model.OrderBook, side model.Side) float64 {
	if v, ok := e.adv[snap.Venue+":"+snap.Symbol]; ok {
		return v
	}
	_, quote := model.Depth(snap.Consuming(side))
	return quote
}

// firstByKind returns the most caller-actionable error among errs. Ties keep
// argument order.
func firstByKind(errs ...error) error {
	var best error
	for _, err := range errs {
		if err != nil && (best == nil || kindRank(err) < kindRank(best)) {
			best = err
		}
	}
	return best
}

func kindRank(err error) int {
	if model.Abandoned(err) {
		return 0
	}
	switch model.KindOf(err) {
	case model.KindInvalidInput:
		return 1
	case model.KindSnapshotUnavailable:
		return 2
	case model.KindInsufficientLiquidity:
		return 3
	}
	return 4
}
