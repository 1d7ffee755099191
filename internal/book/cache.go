// Package book keeps the latest order-book snapshot per venue and symbol.
//
// Readers never block: the whole key->snapshot map lives behind an atomic
// pointer and is replaced copy-on-write by writers. A request that has loaded a
// snapshot keeps using it even if a newer one is swapped in mid-computation.
package book

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// Source is what the estimator needs from the cache.
type Source interface {
	Snapshot(venue, symbol string) (*model.OrderBook, error)
}

// Mirror persists snapshots outside the process so a restart can warm up.
type Mirror interface {
	SaveBook(ctx context.Context, b *model.OrderBook) error
	LoadBooks(ctx context.Context) ([]*model.OrderBook, error)
}

type snapshots map[string]*model.OrderBook

// Cache is safe for concurrent use.
type Cache struct {
	maxAge time.Duration
	now    func() time.Time
	mirror Mirror
	log    *zap.Logger

	mu      sync.Mutex // serializes writers
	version uint64
	books   atomic.Pointer[snapshots]

	onSwap func(b *model.OrderBook)
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxAge makes Snapshot reject books older than d. Zero disables the check.
func WithMaxAge(d time.Duration) Option { return func(c *Cache) { c.maxAge = d } }

// WithMirror writes every accepted snapshot through to m.
func WithMirror(m Mirror) Option { return func(c *Cache) { c.mirror = m } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithLogger sets the logger; defaults to a no-op.
func WithLogger(l *zap.Logger) Option { return func(c *Cache) { c.log = l } }

// WithSwapHook is called after each accepted swap with the published snapshot.
func WithSwapHook(fn func(b *model.OrderBook)) Option { return func(c *Cache) { c.onSwap = fn } }

func New(opts ...Option) *Cache {
	c := &Cache{now: time.Now, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	empty := snapshots{}
	c.books.Store(&empty)
	return c
}

func key(venue, symbol string) string {
	return model.NormalizeVenue(venue) + ":" + model.NormalizeSymbol(symbol)
}

// Snapshot returns the current book for venue/symbol. The returned book is
// shared and must be treated as read-only.
func (c *Cache) Snapshot(venue, symbol string) (*model.OrderBook, error) {
	b, ok := (*c.books.Load())[key(venue, symbol)]
	if !ok {
		return nil, model.NewSnapshotUnavailable(venue, symbol, "no snapshot received")
	}
	if c.maxAge > 0 {
		if age := b.Age(c.now()); age > c.maxAge {
			return nil, model.NewSnapshotUnavailable(venue, symbol, fmt.Sprintf("snapshot is %s old", age.Truncate(time.Millisecond)))
		}
	}
	return b, nil
}

// Swap validates b and publishes a private copy of it with the next version.
// A book whose timestamp is older than the one already held is ignored.
func (c *Cache) Swap(ctx context.Context, b *model.OrderBook) (*model.OrderBook, error) {
	return c.swap(ctx, b, true)
}

func (c *Cache) swap(ctx context.Context, b *model.OrderBook, persist bool) (*model.OrderBook, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	snap := b.Clone()
	snap.Venue = model.NormalizeVenue(snap.Venue)
	snap.Symbol = model.NormalizeSymbol(snap.Symbol)
	if snap.Timestamp.IsZero() {
		snap.Timestamp = c.now()
	}
	k := snap.Venue + ":" + snap.Symbol

	c.mu.Lock()
	cur := *c.books.Load()
	if prev, ok := cur[k]; ok && snap.Timestamp.Before(prev.Timestamp) {
		c.mu.Unlock()
		c.log.Debug("book.swap.stale", zap.String("key", k),
			zap.Time("incoming", snap.Timestamp), zap.Time("held", prev.Timestamp))
		return prev, nil
	}
	c.version++
	snap.Version = c.version
	next := make(snapshots, len(cur)+1)
	for kk, v := range cur {
		next[kk] = v
	}
	next[k] = snap
	c.books.Store(&next)
	c.mu.Unlock()

	if persist && c.mirror != nil {
		if err := c.mirror.SaveBook(ctx, snap); err != nil {
			c.log.Warn("book.mirror.save_failed", zap.String("key", k), zap.Error(err))
		}
	}
	if c.onSwap != nil {
		c.onSwap(snap)
	}
	return snap, nil
}

// Remove drops a key. It reports whether anything was removed.
func (c *Cache) Remove(venue, symbol string) bool {
	k := key(venue, symbol)
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := *c.books.Load()
	if _, ok := cur[k]; !ok {
		return false
	}
	next := make(snapshots, len(cur))
	for kk, v := range cur {
		if kk != k {
			next[kk] = v
		}
	}
	c.books.Store(&next)
	return true
}

// Keys lists "VENUE:SYMBOL" keys in sorted order.
func (c *Cache) Keys() []string {
	cur := *c.books.Load()
	out := make([]string, 0, len(cur))
	for k := range cur {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Cache) Len() int { return len(*c.books.Load()) }

// Warm loads every mirrored snapshot. Invalid entries are skipped.
func (c *Cache) Warm(ctx context.Context) (int, error) {
	if c.mirror == nil {
		return 0, nil
	}
	books, err := c.mirror.LoadBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("load mirrored books: %w", err)
	}
	n := 0
	for _, b := range books {
		if b == nil {
			continue
		}
		if _, err := c.swap(ctx, b, false); err != nil {
			c.log.Warn("book.warm.skip", zap.String("venue", b.Venue), zap.String("symbol", b.Symbol), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}
