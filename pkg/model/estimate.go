package model

// MakerTaker is the expected split of filled volume between liquidity-providing
// and liquidity-removing fills. Maker + Taker == 1.
type MakerTaker struct {
	Maker float64 `json:"maker"`
	Taker float64 `json:"taker"`
}

// AllTaker is the split of any market order.
var AllTaker = MakerTaker{Maker: 0, Taker: 1}

// SplitFromMaker builds a split from a maker share, clamping it to [0,1].
func SplitFromMaker(maker float64) MakerTaker {
	switch {
	case !finite(maker) || maker < 0:
		maker = 0
	case maker > 1:
		maker = 1
	}
	return MakerTaker{Maker: maker, Taker: 1 - maker}
}

// CostEstimate is the decomposed execution cost of a hypothetical order.
// All money fields are in the quote currency of the symbol.
//
// NetCost is defined as Slippage + Fees + MarketImpact. The decomposition is
// additive by contract, not by accident of implementation.
type CostEstimate struct {
	Slippage     float64    `json:"slippage"`
	Fees         float64    `json:"fees"`
	MarketImpact float64    `json:"marketImpact"`
	NetCost      float64    `json:"cost"`
	MakerTaker   MakerTaker `json:"makerTaker"`
	LatencyMs    float64    `json:"latency"`

	// Diagnostics, not part of the wire contract.
	Venue           string  `json:"-"`
	Symbol          string  `json:"-"`
	SnapshotVersion uint64  `json:"-"`
	Notional        float64 `json:"-"`
	VWAP            float64 `json:"-"`
	BestPrice       float64 `json:"-"`
	BaseFilled      float64 `json:"-"`
	LevelsConsumed  int     `json:"-"`
	ImpactModel     string  `json:"-"`
}
