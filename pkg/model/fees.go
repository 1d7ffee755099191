package model

// FeeRates are a tier's maker and taker rates in basis points of notional.
type FeeRates struct {
	MakerBps float64 `json:"makerBps"`
	TakerBps float64 `json:"takerBps"`
}

// Valid reports whether both rates are finite and non-negative.
func (r FeeRates) Valid() bool {
	return finite(r.MakerBps) && finite(r.TakerBps) && r.MakerBps >= 0 && r.TakerBps >= 0
}
