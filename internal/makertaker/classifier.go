// Package makertaker splits an order's expected fill volume between maker and
// taker liquidity.
package makertaker

import (
	"math"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// Input describes the order relative to the snapshot it is priced against.
type Input struct {
	OrderType  model.OrderType
	Side       model.Side
	Notional   float64 // quote currency
	Volatility float64 // daily realized, fraction
	LimitPrice float64 // 0 means "join the touch"
	Book       *model.OrderBook
}

// Classifier is the pluggable resting-probability capability.
type Classifier interface {
	Classify(in Input) (model.MakerTaker, error)
}

// Logistic estimates the probability that a limit order rests and fills
// passively:
//
//	p = sigmoid(Intercept + SpreadCoef*spreadBps - VolCoef*sigma
//	            - QueueCoef*queueRatio - DistanceCoef*distanceBps)
//
// queueRatio is order notional over the notional already resting at the
// passive touch; distanceBps is how far the limit price sits behind the touch.
// Market orders and marketable limits are always all-taker.
type Logistic struct {
	Intercept    float64
	SpreadCoef   float64
	VolCoef      float64
	QueueCoef    float64
	DistanceCoef float64
}

// DefaultLogistic gives roughly 60% maker for a small order joining a tight
// touch at 2% daily volatility; wider spreads favour resting, volatility,
// queue size and distance favour crossing.
func DefaultLogistic() Logistic {
	return Logistic{
		Intercept:    0.8,
		SpreadCoef:   0.4,
		VolCoef:      20,
		QueueCoef:    1.5,
		DistanceCoef: 0.1,
	}
}

func (l Logistic) Classify(in Input) (model.MakerTaker, error) {
	if in.OrderType != model.OrderTypeLimit {
		return model.AllTaker, nil
	}
	if in.Book == nil {
		return model.MakerTaker{}, model.NewInternal("maker/taker: nil book")
	}

	passive := in.Book.Passive(in.Side)
	consuming := in.Book.Consuming(in.Side)

	distance := 0.0
	if in.LimitPrice > 0 {
		if len(consuming) > 0 && crosses(in.Side, in.LimitPrice, consuming[0].Price) {
			return model.AllTaker, nil
		}
		if len(passive) > 0 {
			distance = distanceBps(in.Side, in.LimitPrice, passive[0].Price)
		}
	}

	// With nothing resting on our side we would be the touch.
	queueRatio := 0.0
	if len(passive) > 0 && passive[0].Notional() > 0 {
		queueRatio = in.Notional / passive[0].Notional()
	}

	z := l.Intercept +
		l.SpreadCoef*in.Book.SpreadBps() -
		l.VolCoef*in.Volatility -
		l.QueueCoef*queueRatio -
		l.DistanceCoef*distance
	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) {
		return model.MakerTaker{}, model.NewInternal("maker/taker: non-finite probability for z=%g", z)
	}
	return model.SplitFromMaker(p), nil
}

func crosses(side model.Side, limit, oppositeTouch float64) bool {
	if side == model.SideSell {
		return limit <= oppositeTouch
	}
	return limit >= oppositeTouch
}

// distanceBps is how far behind our own touch the limit rests, never negative.
// A limit improving on the touch (inside the spread) counts as distance 0.
func distanceBps(side model.Side, limit, touch float64) float64 {
	var d float64
	if side == model.SideSell {
		d = (limit - touch) / touch
	} else {
		d = (touch - limit) / touch
	}
	if d < 0 {
		return 0
	}
	return d * 1e4
}
