package okx

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aadarsh2904/GoQunat-Project/internal/metrics"
	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// BookFetcher is satisfied by *Client.
type BookFetcher interface {
	FetchBook(ctx context.Context, instID string) (*model.OrderBook, error)
}

// Swapper publishes a snapshot into the book cache.
type Swapper interface {
	Swap(ctx context.Context, b *model.OrderBook) (*model.OrderBook, error)
}

// Poller refreshes REST snapshots for a fixed symbol set on an interval.
type Poller struct {
	logger   *zap.Logger
	client   BookFetcher
	books    Swapper
	symbols  []string
	interval time.Duration
	parallel int
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPoller constructs a poller. symbols are OKX instrument IDs (BTC-USDT).
func NewPoller(logger *zap.Logger, client BookFetcher, books Swapper, symbols []string, interval time.Duration) *Poller {
	return &Poller{
		logger:   logger,
		client:   client,
		books:    books,
		symbols:  symbols,
		interval: interval,
		parallel: 4,
		stopCh:   make(chan struct{}),
	}
}

// Start polls once immediately and then on every tick until stopped.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("okx.poller_started",
		zap.Strings("symbols", p.symbols),
		zap.Duration("interval", p.interval))
	p.PollOnce(ctx)

	for {
		select {
		case <-ticker.C:
			p.PollOnce(ctx)
		case <-p.stopCh:
			p.logger.Info("okx.poller_stopped", zap.String("reason", "poller_shutdown"))
			return
		case <-ctx.Done():
			p.logger.Info("okx.poller_stopped", zap.String("reason", "context_canceled"))
			return
		}
	}
}

// Stop signals the poller to stop gracefully.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// PollOnce fetches every symbol and swaps accepted snapshots into the cache.
// A failing symbol does not stop the others. Returns the number swapped.
func (p *Poller) PollOnce(ctx context.Context) int {
	var swapped atomic.Int32
	var g errgroup.Group
	g.SetLimit(p.parallel)

	for _, sym := range p.symbols {
		g.Go(func() error {
			b, err := p.client.FetchBook(ctx, sym)
			if err != nil {
				p.logger.Warn("okx.poll_failed", zap.String("symbol", sym), zap.Error(err))
				metrics.IncBookSwap(Venue, "rest", "fetch_failed")
				return nil
			}
			if _, err := p.books.Swap(ctx, b); err != nil {
				p.logger.Warn("okx.swap_rejected", zap.String("symbol", sym), zap.Error(err))
				metrics.IncBookSwap(Venue, "rest", "rejected")
				return nil
			}
			metrics.IncBookSwap(Venue, "rest", "ok")
			swapped.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if swapped.Load() > 0 {
		metrics.SetLastPoll("okx_poller", time.Now())
	}
	return int(swapped.Load())
}
