package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

const bookKeyPrefix = "book:"

// Store defines the contract for mirroring snapshots and loading reference data.
type Store interface {
	SaveBook(ctx context.Context, b *model.OrderBook) error
	LoadBooks(ctx context.Context) ([]*model.OrderBook, error)
	ListFeeTiers(ctx context.Context, table string) (map[string]model.FeeRates, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// HybridStore keeps hot snapshots in Redis and reference tables in Postgres.
// Either side may be absent.
type HybridStore struct {
	redis   *redis.Client
	PG      *pgxpool.Pool
	bookTTL time.Duration
	logger  *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// RedisConfig describes the snapshot mirror. An empty Addr disables Redis.
type RedisConfig struct {
	Addr    string
	DB      int
	Pass    string
	BookTTL time.Duration
}

// NewHybrid creates a store over whichever of Redis and Postgres is configured.
func NewHybrid(rc RedisConfig, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (*HybridStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rc.Addr == "" && pgURL == "" {
		return nil, fmt.Errorf("store needs a redis address or a postgres url")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var rdb *redis.Client
	if rc.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			DB:       rc.DB,
			Password: rc.Pass,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, bookTTL: rc.BookTTL, logger: logger}, nil
}

// HasRedis reports whether the snapshot mirror is available.
func (s *HybridStore) HasRedis() bool { return s.redis != nil }

// HasPG reports whether reference tables are available.
func (s *HybridStore) HasPG() bool { return s.PG != nil }

func bookKey(venue, symbol string) string {
	return bookKeyPrefix + venue + ":" + symbol
}

// SaveBook mirrors a snapshot under book:<venue>:<symbol>. No-op without Redis.
func (s *HybridStore) SaveBook(ctx context.Context, b *model.OrderBook) error {
	if s.redis == nil {
		return nil
	}
	return s.SetJSON(ctx, bookKey(b.Venue, b.Symbol), b, s.bookTTL)
}

// LoadBooks returns every mirrored snapshot. Undecodable entries are skipped.
func (s *HybridStore) LoadBooks(ctx context.Context) ([]*model.OrderBook, error) {
	if s.redis == nil {
		return nil, nil
	}
	var out []*model.OrderBook
	iter := s.redis.Scan(ctx, 0, bookKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		var b model.OrderBook
		if err := s.GetJSON(ctx, key, &b); err != nil {
			if errors.Is(err, redis.Nil) {
				continue // expired between SCAN and GET
			}
			s.logger.Warn("store.redis.book_decode_failed", zap.String("key", key), zap.Error(err))
			continue
		}
		out = append(out, &b)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan mirrored books: %w", err)
	}
	return out, nil
}

// ListFeeTiers reads active tiers from table (e.g. "reference.fee_tiers").
func (s *HybridStore) ListFeeTiers(ctx context.Context, table string) (map[string]model.FeeRates, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	ident, err := tableIdentifier(table)
	if err != nil {
		return nil, err
	}
	rows, err := s.PG.Query(ctx, `
		SELECT tier, maker_bps, taker_bps
		FROM `+ident.Sanitize()+`
		WHERE is_active
		ORDER BY tier;
	`)
	if err != nil {
		return nil, fmt.Errorf("ListFeeTiers query failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.FeeRates)
	for rows.Next() {
		var (
			tier  string
			rates model.FeeRates
		)
		if err := rows.Scan(&tier, &rates.MakerBps, &rates.TakerBps); err != nil {
			return nil, fmt.Errorf("ListFeeTiers scan failed: %w", err)
		}
		out[tier] = rates
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListFeeTiers rows: %w", err)
	}
	return out, nil
}

func tableIdentifier(table string) (pgx.Identifier, error) {
	parts := strings.Split(strings.TrimSpace(table), ".")
	if len(parts) == 0 || len(parts) > 2 {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return pgx.Identifier(parts), nil
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil && s.PG == nil {
		return fmt.Errorf("store not initialized")
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
