package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/internal/book"
	"github.com/aadarsh2904/GoQunat-Project/internal/estimator"
	"github.com/aadarsh2904/GoQunat-Project/internal/fees"
	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// --- Test Helpers ---

type fakeStore struct{ err error }

func (f fakeStore) HealthCheck(context.Context) error { return f.err }

func newTestApp(t *testing.T) (*fiber.App, *book.Cache) {
	t.Helper()
	cache := book.New()
	_, err := cache.Swap(context.Background(), &model.OrderBook{
		Venue:     "OKX",
		Symbol:    "BTC-USDT",
		Timestamp: time.Now(),
		Bids:      []model.Level{{Price: 99, Size: 10}, {Price: 98, Size: 10}},
		Asks:      []model.Level{{Price: 100, Size: 5}, {Price: 101, Size: 10}},
	})
	require.NoError(t, err)

	reg := fees.NewRegistry(fees.Default())
	engine := estimator.New(cache, reg)

	app := fiber.New()
	UseMiddleware(app, []string{"http://localhost:3000"})
	RegisterRoutes(app, nil, fakeStore{}, cache,
		NewEstimateHandler(zap.NewNop(), engine, NewValidator(reg)),
		NewBookHandler(zap.NewNop(), cache),
		NewFeeHandler(reg),
	)
	return app, cache
}

func do(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

const validBody = `{
	"exchange": "OKX",
	"spotAsset": "BTC-USDT",
	"orderType": "market",
	"quantity": 100,
	"volatility": 0.02,
	"feeTier": "standard"
}`

// --- Estimate Tests ---

func TestEstimate_Success(t *testing.T) {
	app, _ := newTestApp(t)
	resp, data := do(t, app, http.MethodPost, "/", validBody)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, k := range []string{"slippage", "fees", "marketImpact", "cost", "makerTaker", "latency"} {
		assert.Contains(t, raw, k)
	}
	assert.Len(t, raw, 6, "diagnostics must not leak into the response")

	var out model.CostEstimate
	require.NoError(t, json.Unmarshal(data, &out))
	assert.InDelta(t, out.Slippage+out.Fees+out.MarketImpact, out.NetCost, 1e-9)
	assert.Equal(t, model.AllTaker, out.MakerTaker)
	assert.InDelta(t, 0.1, out.Fees, 1e-12) // 100 * 10bps
	assert.GreaterOrEqual(t, out.LatencyMs, 0.0)
}

func TestEstimate_V1PathAndOptionalFields(t *testing.T) {
	app, _ := newTestApp(t)
	body := `{"exchange":"okx","spotAsset":"btc/usdt","orderType":"LIMIT","side":"sell",
		"quantity":2,"quantityUnit":"base","volatility":0.01,"feeTier":"VIP","limitPrice":99.5}`
	resp, data := do(t, app, http.MethodPost, "/api/v1/estimate", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var out model.CostEstimate
	require.NoError(t, json.Unmarshal(data, &out))
	assert.InDelta(t, 1, out.MakerTaker.Maker+out.MakerTaker.Taker, 1e-12)
}

func TestEstimate_InvalidInput(t *testing.T) {
	app, _ := newTestApp(t)

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"string quantity", `{"exchange":"OKX","spotAsset":"BTC-USDT","orderType":"market","quantity":"100","volatility":0.02,"feeTier":"standard"}`, "quantity"},
		{"unknown field", `{"exchange":"OKX","spotAsset":"BTC-USDT","orderType":"market","quantity":1,"volatility":0.02,"feeTier":"standard","leverage":5}`, "leverage"},
		{"missing volatility", `{"exchange":"OKX","spotAsset":"BTC-USDT","orderType":"market","quantity":1,"feeTier":"standard"}`, "volatility"},
		{"zero quantity", `{"exchange":"OKX","spotAsset":"BTC-USDT","orderType":"market","quantity":0,"volatility":0.02,"feeTier":"standard"}`, "quantity"},
		{"negative volatility", `{"exchange":"OKX","spotAsset":"BTC-USDT","orderType":"market","quantity":1,"volatility":-0.1,"feeTier":"standard"}`, "volatility"},
		{"bad order type", `{"exchange":"OKX","spotAsset":"BTC-USDT","orderType":"stop","quantity":1,"volatility":0.02,"feeTier":"standard"}`, "orderType"},
		{"unknown tier", `{"exchange":"OKX","spotAsset":"BTC-USDT","orderType":"market","quantity":1,"volatility":0.02,"feeTier":"platinum"}`, "feeTier"},
		{"limit price on market", `{"exchange":"OKX","spotAsset":"BTC-USDT","orderType":"market","quantity":1,"volatility":0.02,"feeTier":"standard","limitPrice":100}`, "limitPrice"},
		{"missing exchange", `{"spotAsset":"BTC-USDT","orderType":"market","quantity":1,"volatility":0.02,"feeTier":"standard"}`, "exchange"},
		{"malformed", `{"exchange":`, ""},
		{"empty", ``, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, data := do(t, app, http.MethodPost, "/api/v1/estimate", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var out ErrorResponse
			require.NoError(t, json.Unmarshal(data, &out))
			assert.Equal(t, string(model.KindInvalidInput), out.Kind)
			assert.Equal(t, tc.field, out.Field)
			assert.NotEmpty(t, out.Error)
		})
	}
}

func TestEstimate_SnapshotUnavailable(t *testing.T) {
	app, _ := newTestApp(t)
	body := strings.Replace(validBody, "BTC-USDT", "ETH-USDT", 1)
	resp, data := do(t, app, http.MethodPost, "/", body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var out ErrorResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, string(model.KindSnapshotUnavailable), out.Kind)
}

func TestEstimate_InsufficientLiquidity(t *testing.T) {
	app, _ := newTestApp(t)
	body := strings.Replace(validBody, `"quantity": 100`, `"quantity": 1000000`, 1)
	resp, data := do(t, app, http.MethodPost, "/", body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var out ErrorResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, string(model.KindInsufficientLiquidity), out.Kind)
}

// --- Book & fee endpoints ---

func TestBooks_PutThenGet(t *testing.T) {
	app, _ := newTestApp(t)

	put := `{"bids":[["2999.5","3"],[2999,10]],"asks":[["3000.5","2"],["3001","8"]]}`
	resp, data := do(t, app, http.MethodPut, "/api/v1/books/okx/eth-usdt", put)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = do(t, app, http.MethodGet, "/api/v1/books/OKX/ETH-USDT", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var s BookSummary
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, "OKX", s.Venue)
	assert.Equal(t, "ETH-USDT", s.Symbol)
	assert.Equal(t, 2999.5, s.BestBid)
	assert.Equal(t, 3000.5, s.BestAsk)
	assert.Equal(t, 2, s.AskLevels)
	assert.Equal(t, uint64(2), s.Version)

	// The injected book is immediately priceable.
	body := strings.Replace(validBody, "BTC-USDT", "ETH-USDT", 1)
	resp, _ = do(t, app, http.MethodPost, "/", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBooks_PutRejectsCrossedBook(t *testing.T) {
	app, _ := newTestApp(t)
	put := `{"bids":[["101","1"]],"asks":[["100","1"]]}`
	resp, _ := do(t, app, http.MethodPut, "/api/v1/books/OKX/SOL-USDT", put)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBooks_GetMissing(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := do(t, app, http.MethodGet, "/api/v1/books/OKX/DOGE-USDT", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFeeTiers(t *testing.T) {
	app, _ := newTestApp(t)
	resp, data := do(t, app, http.MethodGet, "/api/v1/fee-tiers", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out FeeTiersResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "standard", out.Default)
	assert.Equal(t, model.FeeRates{MakerBps: 2, TakerBps: 5}, out.Tiers["vip"])
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	resp, data := do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"ok"`)
}

func TestCORS_Preflight(t *testing.T) {
	app, _ := newTestApp(t)
	req, _ := http.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

type stubEstimator struct{ err error }

func (s stubEstimator) EstimateSince(context.Context, time.Time, model.QuoteRequest) (*model.CostEstimate, error) {
	return nil, s.err
}

func TestEstimate_AbandonedIsNotInternal(t *testing.T) {
	reg := fees.NewRegistry(fees.Default())
	h := NewEstimateHandler(zap.NewNop(), stubEstimator{err: context.DeadlineExceeded}, NewValidator(reg))
	app := fiber.New()
	app.Post("/estimate", h.Estimate)

	resp, body := do(t, app, http.MethodPost, "/estimate", validBody)
	assert.Equal(t, fiber.StatusRequestTimeout, resp.StatusCode)

	var out ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Abandoned", out.Kind)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusBadRequest, StatusFor(model.KindInvalidInput))
	assert.Equal(t, fiber.StatusServiceUnavailable, StatusFor(model.KindSnapshotUnavailable))
	assert.Equal(t, fiber.StatusUnprocessableEntity, StatusFor(model.KindInsufficientLiquidity))
	assert.Equal(t, fiber.StatusInternalServerError, StatusFor(model.KindInternal))
}
