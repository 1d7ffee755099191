// Package slippage prices a taker order by walking the consuming side of a book.
package slippage

import (
	"math"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// relTolerance absorbs float residue when a level exactly exhausts the order.
const relTolerance = 1e-9

// Fill is the result of walking the book for one order.
//
// The reference price is the top of book on the consuming side (best ask for
// buys, best bid for sells). SlippagePrice is |VWAP - BestPrice| and
// SlippageCost is SlippagePrice * BaseFilled, in quote currency.
type Fill struct {
	BaseFilled     float64
	QuoteFilled    float64
	VWAP           float64
	BestPrice      float64
	SlippagePrice  float64
	SlippageCost   float64
	LevelsConsumed int
}

// Estimate walks book for a taker order of quantity (expressed in unit) on side.
// A zero quantity yields an empty fill priced at the touch. When the side
// cannot absorb quantity the walk fails with InsufficientLiquidity instead of
// extrapolating beyond visible depth.
func Estimate(book *model.OrderBook, side model.Side, quantity float64, unit model.QuantityUnit) (Fill, error) {
	levels := book.Consuming(side)
	if len(levels) == 0 {
		return Fill{}, model.NewInsufficientLiquidity(quantity, 0, unit)
	}
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0 {
		return Fill{}, model.NewInternal("slippage walk: invalid quantity %g", quantity)
	}

	best := levels[0].Price
	fill := Fill{BestPrice: best}
	if quantity == 0 {
		fill.VWAP = best
		return fill, nil
	}

	remaining := quantity
	for _, l := range levels {
		if remaining <= quantity*relTolerance {
			break
		}
		avail := l.Size
		if unit == model.UnitQuote {
			avail = l.Notional()
		}
		take := math.Min(remaining, avail)

		var base float64
		if unit == model.UnitQuote {
			base = take / l.Price
		} else {
			base = take
		}
		fill.BaseFilled += base
		fill.QuoteFilled += base * l.Price
		fill.LevelsConsumed++
		remaining -= take
	}

	if remaining > quantity*relTolerance {
		return Fill{}, model.NewInsufficientLiquidity(quantity, quantity-remaining, unit)
	}

	fill.VWAP = fill.QuoteFilled / fill.BaseFilled
	if side == model.SideSell {
		fill.SlippagePrice = best - fill.VWAP
		fill.SlippageCost = fill.BaseFilled*best - fill.QuoteFilled
	} else {
		fill.SlippagePrice = fill.VWAP - best
		fill.SlippageCost = fill.QuoteFilled - fill.BaseFilled*best
	}
	// Walking away from the touch can only cost; clamp float residue.
	if fill.SlippagePrice < 0 {
		fill.SlippagePrice = 0
	}
	if fill.SlippageCost < 0 {
		fill.SlippageCost = 0
	}
	if math.IsNaN(fill.VWAP) || math.IsInf(fill.SlippageCost, 0) {
		return Fill{}, model.NewInternal("slippage walk produced non-finite result")
	}
	return fill, nil
}

// Capacity reports how much the consuming side can absorb, in unit.
func Capacity(book *model.OrderBook, side model.Side, unit model.QuantityUnit) float64 {
	base, quote := model.Depth(book.Consuming(side))
	if unit == model.UnitQuote {
		return quote
	}
	return base
}
