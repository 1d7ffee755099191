package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counts estimates by outcome: "ok" or the error kind.
	EstimatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cost_estimates_total",
			Help: "Total number of cost estimates served (by venue, order type and result).",
		},
		[]string{"venue", "order_type", "result"},
	)

	// Measures end-to-end estimate latency as reported in the response.
	EstimateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cost_estimate_duration_seconds",
			Help:    "Estimate latency from request receipt to response assembly.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs → ~330ms
		},
		[]string{"venue"},
	)

	// Counts accepted and rejected snapshot swaps by source.
	BookSwaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "book_swaps_total",
			Help: "Order-book snapshots offered to the cache (by venue, source and result).",
		},
		[]string{"venue", "source", "result"},
	)

	// Unix seconds of the newest snapshot held per venue/symbol.
	BookTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "book_snapshot_timestamp",
			Help: "Timestamp (unix seconds) of the current snapshot per venue and symbol.",
		},
		[]string{"venue", "symbol"},
	)

	// Tracks outbound market-data calls.
	FeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_requests_total",
			Help: "Total number of market-data requests made (by venue, endpoint and status).",
		},
		[]string{"venue", "endpoint", "status"},
	)

	FeedRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_request_duration_seconds",
			Help:    "Duration of market-data requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"venue", "endpoint"},
	)

	// Tracks bus messages processed by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages processed.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks cache hits and misses for secrets.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimator_errors_total",
			Help: "Count of service errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last successful poll time (seconds since epoch).
	LastPollTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "estimator_last_poll_timestamp",
			Help: "Timestamp (unix seconds) of the last successful feed poll or refresh.",
		},
		[]string{"component"},
	)
)

// ObserveDuration records the time taken since start on the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// counters are not meant for duration tracking
	}
}

func IncEstimate(venue, orderType, result string) {
	EstimatesTotal.WithLabelValues(venue, orderType, result).Inc()
}

func ObserveEstimate(venue string, d time.Duration) {
	EstimateDuration.WithLabelValues(venue).Observe(d.Seconds())
}

func IncBookSwap(venue, source, result string) {
	BookSwaps.WithLabelValues(venue, source, result).Inc()
}

func SetBookTimestamp(venue, symbol string, t time.Time) {
	BookTimestamp.WithLabelValues(venue, symbol).Set(float64(t.Unix()))
}

func IncFeedRequest(venue, endpoint, status string) {
	FeedRequestsTotal.WithLabelValues(venue, endpoint, status).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastPoll(component string, t time.Time) {
	LastPollTimestamp.WithLabelValues(component).Set(float64(t.Unix()))
}
