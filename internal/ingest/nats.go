package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/internal/metrics"
)

// NATSSubscriber consumes snapshots from a core NATS subject (wildcards allowed).
// With a queue group, replicas share the stream instead of each receiving it.
type NATSSubscriber struct {
	nc      *nats.Conn
	subject string
	queue   string
	books   Swapper
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time

	sub *nats.Subscription
}

func NewNATSSubscriber(nc *nats.Conn, subject, queue string, books Swapper, logger *zap.Logger) *NATSSubscriber {
	return &NATSSubscriber{
		nc:      nc,
		subject: subject,
		queue:   queue,
		books:   books,
		logger:  logger,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// Start registers the subscription. Messages are handled on the NATS callback goroutine.
func (s *NATSSubscriber) Start() error {
	var (
		sub *nats.Subscription
		err error
	)
	if s.queue != "" {
		sub, err = s.nc.QueueSubscribe(s.subject, s.queue, s.handle)
	} else {
		sub, err = s.nc.Subscribe(s.subject, s.handle)
	}
	if err != nil {
		return err
	}
	s.sub = sub
	s.logger.Info("ingest.nats_subscribed", zap.String("subject", s.subject), zap.String("queue", s.queue))
	return nil
}

func (s *NATSSubscriber) handle(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	snap, err := apply(ctx, s.books, msg.Data, s.now().UTC())
	if err != nil {
		metrics.IncNATSMessage(msg.Subject, "error")
		venue := "unknown"
		if snap != nil {
			venue = snap.Venue
		}
		if errors.Is(err, errReject) {
			metrics.IncBookSwap(venue, "nats", "rejected")
		}
		s.logger.Warn("ingest.nats_message_dropped",
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return
	}
	metrics.IncNATSMessage(msg.Subject, "ok")
	metrics.IncBookSwap(snap.Venue, "nats", "ok")
}

// Close drains the subscription so in-flight messages finish.
func (s *NATSSubscriber) Close() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Drain()
}
