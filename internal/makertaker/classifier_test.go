package makertaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

func book() *model.OrderBook {
	return &model.OrderBook{
		Venue:  "OKX",
		Symbol: "BTC-USDT",
		Bids:   []model.Level{{Price: 99.9, Size: 50}, {Price: 99.8, Size: 80}},
		Asks:   []model.Level{{Price: 100.1, Size: 40}, {Price: 100.2, Size: 90}},
	}
}

func limit(notional, vol, px float64) Input {
	return Input{
		OrderType:  model.OrderTypeLimit,
		Side:       model.SideBuy,
		Notional:   notional,
		Volatility: vol,
		LimitPrice: px,
		Book:       book(),
	}
}

func assertValidSplit(t *testing.T, s model.MakerTaker) {
	t.Helper()
	assert.GreaterOrEqual(t, s.Maker, 0.0)
	assert.GreaterOrEqual(t, s.Taker, 0.0)
	assert.InDelta(t, 1, s.Maker+s.Taker, 1e-12)
}

func TestClassify_MarketIsAllTaker(t *testing.T) {
	s, err := DefaultLogistic().Classify(Input{OrderType: model.OrderTypeMarket, Book: book()})
	require.NoError(t, err)
	assert.Equal(t, model.MakerTaker{Maker: 0, Taker: 1}, s)
}

func TestClassify_LimitSplitsSumToOne(t *testing.T) {
	for _, n := range []float64{1, 100, 5_000, 1e6} {
		for _, vol := range []float64{0, 0.02, 0.5} {
			s, err := DefaultLogistic().Classify(limit(n, vol, 0))
			require.NoError(t, err)
			assertValidSplit(t, s)
		}
	}
}

func TestClassify_MarketableLimitIsAllTaker(t *testing.T) {
	s, err := DefaultLogistic().Classify(limit(100, 0.02, 100.1))
	require.NoError(t, err)
	assert.Equal(t, model.AllTaker, s)

	sell := limit(100, 0.02, 99.9)
	sell.Side = model.SideSell
	s, err = DefaultLogistic().Classify(sell)
	require.NoError(t, err)
	assert.Equal(t, model.AllTaker, s)
}

func TestClassify_QueueAndVolatilityReduceMakerShare(t *testing.T) {
	c := DefaultLogistic()

	small, _ := c.Classify(limit(10, 0.02, 0))
	large, _ := c.Classify(limit(20_000, 0.02, 0))
	assert.Greater(t, small.Maker, large.Maker)

	calm, _ := c.Classify(limit(10, 0.005, 0))
	wild, _ := c.Classify(limit(10, 0.08, 0))
	assert.Greater(t, calm.Maker, wild.Maker)
}

func TestClassify_DistanceReducesMakerShare(t *testing.T) {
	c := DefaultLogistic()
	atTouch, _ := c.Classify(limit(10, 0.02, 99.9))
	behind, _ := c.Classify(limit(10, 0.02, 99.0))
	assert.Greater(t, atTouch.Maker, behind.Maker)
}

func TestClassify_DefaultNearSixtyPercent(t *testing.T) {
	s, err := DefaultLogistic().Classify(Input{
		OrderType:  model.OrderTypeLimit,
		Side:       model.SideBuy,
		Notional:   100,
		Volatility: 0.02,
		Book: &model.OrderBook{
			Venue: "OKX", Symbol: "BTC-USDT",
			Bids: []model.Level{{Price: 64000, Size: 10}},
			Asks: []model.Level{{Price: 64000.1, Size: 10}},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, s.Maker, 0.05)
}

func TestClassify_EmptyPassiveSide(t *testing.T) {
	b := book()
	b.Bids = nil
	in := limit(100, 0.02, 0)
	in.Book = b

	s, err := DefaultLogistic().Classify(in)
	require.NoError(t, err)
	assertValidSplit(t, s)
}
