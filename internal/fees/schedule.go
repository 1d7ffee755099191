// Package fees holds the maker/taker fee schedule keyed by tier.
package fees

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// DefaultTier is the tier the browser form submits when the user changes nothing.
const DefaultTier = "standard"

// Schedule is an immutable tier -> rates table. Tier names are case-insensitive.
type Schedule struct {
	tiers map[string]model.FeeRates
}

// NewSchedule validates and copies tiers. Every rate must be finite and >= 0.
func NewSchedule(tiers map[string]model.FeeRates) (*Schedule, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("fee schedule has no tiers")
	}
	s := &Schedule{tiers: make(map[string]model.FeeRates, len(tiers))}
	for name, r := range tiers {
		key := normalizeTier(name)
		if key == "" {
			return nil, fmt.Errorf("fee schedule has an empty tier name")
		}
		if !r.Valid() {
			return nil, fmt.Errorf("fee tier %q: rates must be finite and non-negative, got %+v", name, r)
		}
		s.tiers[key] = r
	}
	return s, nil
}

// Default is the OKX-like spot schedule the service ships with.
func Default() *Schedule {
	s, _ := NewSchedule(map[string]model.FeeRates{
		"standard": {MakerBps: 8, TakerBps: 10},
		"tier1":    {MakerBps: 9, TakerBps: 11},
		"tier2":    {MakerBps: 7, TakerBps: 9},
		"tier3":    {MakerBps: 5, TakerBps: 7},
		"vip":      {MakerBps: 2, TakerBps: 5},
	})
	return s
}

// Rates looks up a tier.
func (s *Schedule) Rates(tier string) (model.FeeRates, error) {
	r, ok := s.tiers[normalizeTier(tier)]
	if !ok {
		return model.FeeRates{}, model.NewInvalidInput("feeTier", fmt.Sprintf("unknown tier %q", tier))
	}
	return r, nil
}

// Has reports whether tier exists.
func (s *Schedule) Has(tier string) bool {
	_, ok := s.tiers[normalizeTier(tier)]
	return ok
}

// Tiers returns the tier names in sorted order.
func (s *Schedule) Tiers() []string {
	out := make([]string, 0, len(s.tiers))
	for k := range s.tiers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Table returns a copy of the tier table.
func (s *Schedule) Table() map[string]model.FeeRates {
	out := make(map[string]model.FeeRates, len(s.tiers))
	for k, v := range s.tiers {
		out[k] = v
	}
	return out
}

// Merge returns a new schedule with overrides layered over s.
func (s *Schedule) Merge(overrides map[string]model.FeeRates) (*Schedule, error) {
	merged := s.Table()
	for k, v := range overrides {
		merged[k] = v
	}
	return NewSchedule(merged)
}

// Fee is makerShare*Q*makerBps + takerShare*Q*takerBps, with bps scaled to a
// fraction so the result is in the currency of notional.
func Fee(rates model.FeeRates, split model.MakerTaker, notional float64) float64 {
	return split.Maker*notional*rates.MakerBps/1e4 + split.Taker*notional*rates.TakerBps/1e4
}

// LoadFile reads {"tiers": {"name": {"makerBps": 8, "takerBps": 10}}} from path.
func LoadFile(path string) (map[string]model.FeeRates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fee schedule: %w", err)
	}
	var doc struct {
		Tiers map[string]model.FeeRates `json:"tiers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode fee schedule %s: %w", path, err)
	}
	return doc.Tiers, nil
}

func normalizeTier(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// Registry publishes the current schedule to concurrent readers. Replacing the
// schedule never affects a request that already looked it up.
type Registry struct {
	current atomic.Pointer[Schedule]
}

// NewRegistry starts a registry at s.
func NewRegistry(s *Schedule) *Registry {
	r := &Registry{}
	r.current.Store(s)
	return r
}

// Current returns the schedule in force.
func (r *Registry) Current() *Schedule { return r.current.Load() }

// Replace swaps in a new schedule.
func (r *Registry) Replace(s *Schedule) { r.current.Store(s) }

// Has reports whether tier exists in the current schedule.
func (r *Registry) Has(tier string) bool { return r.Current().Has(tier) }
