package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/internal/fees"
	"github.com/aadarsh2904/GoQunat-Project/internal/metrics"
	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// TierSource loads fee tiers from reference data (pgx-backed store in production).
type TierSource interface {
	ListFeeTiers(ctx context.Context, table string) (map[string]model.FeeRates, error)
}

// Notifier announces a refreshed schedule. Optional.
type Notifier interface {
	PublishFeesRefreshed(ctx context.Context, tiers map[string]model.FeeRates) error
}

// FeeRefresher periodically layers database fee tiers over the base schedule
// and swaps the result into the registry.
type FeeRefresher struct {
	logger   *zap.Logger
	source   TierSource
	table    string
	base     *fees.Schedule
	registry *fees.Registry
	notifier Notifier
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewFeeRefresher constructs a background job that runs periodically.
// notifier may be nil.
func NewFeeRefresher(logger *zap.Logger, source TierSource, table string, base *fees.Schedule,
	registry *fees.Registry, notifier Notifier, interval time.Duration) *FeeRefresher {
	return &FeeRefresher{
		logger:   logger,
		source:   source,
		table:    table,
		base:     base,
		registry: registry,
		notifier: notifier,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start refreshes once immediately, then on every tick.
func (r *FeeRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("fee_refresher.started", zap.Duration("interval", r.interval))
	_ = r.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			_ = r.RunOnce(ctx)
		case <-r.stopCh:
			r.logger.Info("fee_refresher.stopped (manual stop)")
			return
		case <-ctx.Done():
			r.logger.Info("fee_refresher.stopped (context canceled)")
			return
		}
	}
}

// Stop gracefully halts the refresher.
func (r *FeeRefresher) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// RunOnce executes one refresh cycle. On failure the schedule in force is kept.
func (r *FeeRefresher) RunOnce(ctx context.Context) error {
	start := time.Now()

	tiers, err := r.source.ListFeeTiers(ctx, r.table)
	if err != nil {
		r.logger.Error("fee_refresher.load_failed", zap.String("table", r.table), zap.Error(err))
		metrics.IncError("fee_refresher", "load_failed")
		return err
	}

	next, err := r.base.Merge(tiers)
	if err != nil {
		r.logger.Error("fee_refresher.invalid_tiers", zap.Error(err))
		metrics.IncError("fee_refresher", "invalid_tiers")
		return err
	}
	r.registry.Replace(next)
	metrics.SetLastPoll("fee_refresher", time.Now())

	if r.notifier != nil {
		if err := r.notifier.PublishFeesRefreshed(ctx, next.Table()); err != nil {
			r.logger.Warn("fee_refresher.nats_publish_failed", zap.Error(err))
		}
	}

	r.logger.Info("fee_refresher.success",
		zap.Int("tiers", len(next.Tiers())),
		zap.Int("overrides", len(tiers)),
		zap.Duration("duration", time.Since(start)))
	return nil
}
