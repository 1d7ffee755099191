package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

func newTestStore(t *testing.T) (*HybridStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &HybridStore{redis: rdb, bookTTL: 10 * time.Minute, logger: zap.NewNop()}, mr
}

func sampleBook(symbol string) *model.OrderBook {
	return &model.OrderBook{
		Venue:     "OKX",
		Symbol:    symbol,
		Version:   7,
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Bids:      []model.Level{{Price: 64000.1, Size: 0.5}},
		Asks:      []model.Level{{Price: 64000.2, Size: 1.2}},
	}
}

// --- Book mirror ---

func TestSaveAndLoadBooks(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.SaveBook(ctx, sampleBook("BTC-USDT")))
	require.NoError(t, store.SaveBook(ctx, sampleBook("ETH-USDT")))

	assert.True(t, mr.Exists("book:OKX:BTC-USDT"))
	assert.Equal(t, 10*time.Minute, mr.TTL("book:OKX:BTC-USDT"))

	books, err := store.LoadBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)

	bySymbol := map[string]*model.OrderBook{}
	for _, b := range books {
		bySymbol[b.Symbol] = b
	}
	assert.Equal(t, sampleBook("BTC-USDT"), bySymbol["BTC-USDT"])
}

func TestLoadBooks_SkipsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.SaveBook(ctx, sampleBook("BTC-USDT")))
	require.NoError(t, mr.Set("book:OKX:BAD-USDT", "not-json"))
	require.NoError(t, mr.Set("other:key", `{"venue":"X"}`))

	books, err := store.LoadBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "BTC-USDT", books[0].Symbol)
}

func TestBookMirror_NoRedisIsNoop(t *testing.T) {
	store := &HybridStore{}
	assert.NoError(t, store.SaveBook(context.Background(), sampleBook("BTC-USDT")))

	books, err := store.LoadBooks(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, books)
}

// --- Fee tiers ---

func TestListFeeTiers_NilPG(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	tiers, err := store.ListFeeTiers(context.Background(), "reference.fee_tiers")
	assert.Nil(t, tiers)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "postgres unavailable")
}

func TestTableIdentifier(t *testing.T) {
	id, err := tableIdentifier("reference.fee_tiers")
	require.NoError(t, err)
	assert.Equal(t, `"reference"."fee_tiers"`, id.Sanitize())

	id, err = tableIdentifier("fee_tiers")
	require.NoError(t, err)
	assert.Equal(t, `"fee_tiers"`, id.Sanitize())

	for _, bad := range []string{"", "a.b.c", "reference."} {
		_, err := tableIdentifier(bad)
		assert.Error(t, err, bad)
	}
}

// --- SetJSON / GetJSON ---

func TestSetAndGetJSON(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	val := map[string]string{"base_url": "https://www.okx.com"}
	require.NoError(t, store.SetJSON(ctx, "feed:okx", val, time.Minute))

	var got map[string]string
	require.NoError(t, store.GetJSON(ctx, "feed:okx", &got))
	assert.Equal(t, val, got)
}

func TestGetJSON_KeyNotFound(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	var dest map[string]string
	err := store.GetJSON(ctx, "nonexistent:key", &dest)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestSetJSON_NilValue(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	// nil marshals to "null" and is stored as-is
	err := store.SetJSON(ctx, "test:nil", nil, 0)
	require.NoError(t, err)
}

// --- HealthCheck / Close ---

func TestHealthCheck_Success(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.HealthCheck(context.Background()))
}

func TestHealthCheck_Uninitialized(t *testing.T) {
	store := &HybridStore{}
	err := store.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store not initialized")
}

func TestHealthCheck_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := &HybridStore{redis: rdb}

	// Close miniredis to simulate failure
	mr.Close()

	err = store.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestClose_NilComponents(t *testing.T) {
	store := &HybridStore{}
	require.NoError(t, store.Close())
}

// --- NewHybrid ---

func TestNewHybrid_RedisOnly(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	// nil logger should default to zap.NewNop
	st, err := NewHybrid(RedisConfig{Addr: mr.Addr(), BookTTL: time.Minute}, "", PGPoolConfig{}, nil)
	require.NoError(t, err)
	assert.True(t, st.HasRedis())
	assert.False(t, st.HasPG())
	require.NoError(t, st.Close())
}

func TestNewHybrid_NothingConfigured(t *testing.T) {
	_, err := NewHybrid(RedisConfig{}, "", PGPoolConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewHybrid_InvalidRedis(t *testing.T) {
	_, err := NewHybrid(RedisConfig{Addr: "localhost:1"}, "", PGPoolConfig{}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestNewHybrid_InvalidPGURL(t *testing.T) {
	_, err := NewHybrid(RedisConfig{}, "not-a-valid-pg-url", PGPoolConfig{}, nil)
	assert.Error(t, err)
}
