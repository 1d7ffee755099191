package api

// EstimateRequest is the wire payload of POST / and POST /api/v1/estimate.
// Numeric fields are pointers so a missing field is distinguishable from 0.
type EstimateRequest struct {
	Exchange     string   `json:"exchange" validate:"required" example:"OKX"`
	SpotAsset    string   `json:"spotAsset" validate:"required" example:"BTC-USDT"`
	OrderType    string   `json:"orderType" validate:"required,oneof=market limit" example:"market"`
	Side         string   `json:"side,omitempty" validate:"omitempty,oneof=buy sell" example:"buy"`
	Quantity     *float64 `json:"quantity" validate:"required,gt=0" example:"100"`
	QuantityUnit string   `json:"quantityUnit,omitempty" validate:"omitempty,oneof=quote base" example:"quote"`
	Volatility   *float64 `json:"volatility" validate:"required,gte=0" example:"0.02"`
	FeeTier      string   `json:"feeTier" validate:"required" example:"standard"`
	LimitPrice   *float64 `json:"limitPrice,omitempty" validate:"omitempty,gt=0" example:"64000.5"`
}
