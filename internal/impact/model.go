// Package impact estimates the cost of an order's own size moving the book.
//
// Quantities are quote-currency notional; volatility is daily realized
// volatility as a fraction. Models return impact in quote currency.
package impact

import (
	"fmt"
	"math"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// Input is what every impact model is evaluated on.
type Input struct {
	Quantity   float64 // order notional, quote currency
	Volatility float64 // daily realized, fraction
	Depth      float64 // liquidity proxy, quote currency: ADV when known, else visible depth
}

// Model is the pluggable pricing capability for market impact.
// Implementations must be non-negative, non-decreasing in Quantity and
// Volatility, and return 0 for a zero quantity.
type Model interface {
	Name() string
	Impact(in Input) (float64, error)
}

// SquareRoot is the square-root law: impact = Y * sigma * (Q/D)^delta * Q.
//
// Y (Coefficient) defaults to 1.0 and delta (Exponent) to 0.5. Empirical
// studies of metaorders across equities, futures and crypto report Y of order
// one against daily volume; against visible depth it overstates impact for
// thin books, so deployments with a reliable ADV should configure it.
type SquareRoot struct {
	Coefficient float64
	Exponent    float64
}

// DefaultSquareRoot returns the square-root model with its documented defaults.
func DefaultSquareRoot() SquareRoot {
	return SquareRoot{Coefficient: 1.0, Exponent: 0.5}
}

func (m SquareRoot) Name() string { return "sqrt" }

func (m SquareRoot) Impact(in Input) (float64, error) {
	if err := check(in); err != nil {
		return 0, err
	}
	if in.Quantity == 0 || in.Volatility == 0 {
		return 0, nil
	}
	if in.Depth <= 0 {
		return 0, model.NewInternal("impact: liquidity proxy must be positive, got %g", in.Depth)
	}
	v := m.Coefficient * in.Volatility * math.Pow(in.Quantity/in.Depth, m.Exponent) * in.Quantity
	return finiteResult(v)
}

// PowerLaw is the Almgren-Chriss style fit impact = eta * Q^alpha * sigma,
// independent of book depth. Defaults eta=1e-4, alpha=0.6 come from fitting
// observed impacts of 10..1000 unit orders at 1-2% volatility.
type PowerLaw struct {
	Eta   float64
	Alpha float64
}

// DefaultPowerLaw returns the power-law model with its documented defaults.
func DefaultPowerLaw() PowerLaw {
	return PowerLaw{Eta: 1e-4, Alpha: 0.6}
}

func (m PowerLaw) Name() string { return "powerlaw" }

func (m PowerLaw) Impact(in Input) (float64, error) {
	if err := check(in); err != nil {
		return 0, err
	}
	if in.Quantity == 0 || in.Volatility == 0 {
		return 0, nil
	}
	return finiteResult(m.Eta * math.Pow(in.Quantity, m.Alpha) * in.Volatility)
}

// New builds a model by name with the given parameters. a and b are
// (coefficient, exponent) for "sqrt" and (eta, alpha) for "powerlaw".
// Parameters must be positive so the monotonicity contract holds.
func New(name string, a, b float64) (Model, error) {
	if !(a > 0) || !(b > 0) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return nil, fmt.Errorf("impact model %q: parameters must be positive and finite, got %g, %g", name, a, b)
	}
	switch name {
	case "", "sqrt", "squareroot":
		return SquareRoot{Coefficient: a, Exponent: b}, nil
	case "powerlaw", "almgren-chriss":
		return PowerLaw{Eta: a, Alpha: b}, nil
	}
	return nil, fmt.Errorf("unknown impact model %q", name)
}

func check(in Input) error {
	for _, f := range []float64{in.Quantity, in.Volatility, in.Depth} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return model.NewInternal("impact: non-finite input %+v", in)
		}
	}
	if in.Quantity < 0 || in.Volatility < 0 {
		return model.NewInternal("impact: negative input %+v", in)
	}
	return nil
}

func finiteResult(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, model.NewInternal("impact: non-finite result %g", v)
	}
	return v, nil
}
