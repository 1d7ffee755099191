package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/aadarsh2904/GoQunat-Project/internal/api"
	"github.com/aadarsh2904/GoQunat-Project/internal/book"
	"github.com/aadarsh2904/GoQunat-Project/internal/config"
	"github.com/aadarsh2904/GoQunat-Project/internal/estimator"
	"github.com/aadarsh2904/GoQunat-Project/internal/feed/okx"
	"github.com/aadarsh2904/GoQunat-Project/internal/fees"
	"github.com/aadarsh2904/GoQunat-Project/internal/impact"
	"github.com/aadarsh2904/GoQunat-Project/internal/ingest"
	"github.com/aadarsh2904/GoQunat-Project/internal/jobs"
	"github.com/aadarsh2904/GoQunat-Project/internal/makertaker"
	"github.com/aadarsh2904/GoQunat-Project/internal/metrics"
	"github.com/aadarsh2904/GoQunat-Project/internal/publisher"
	"github.com/aadarsh2904/GoQunat-Project/internal/rate"
	internalsecrets "github.com/aadarsh2904/GoQunat-Project/internal/secrets"
	"github.com/aadarsh2904/GoQunat-Project/internal/store"
	"github.com/aadarsh2904/GoQunat-Project/pkg/logger"
	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
	"github.com/aadarsh2904/GoQunat-Project/pkg/secrets"
	"github.com/aadarsh2904/GoQunat-Project/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Infof("starting [%s]...", cfg.ServiceName)

	// --- Fee schedule (built-in tiers, optionally overlaid from file) ---
	baseFees := fees.Default()
	if cfg.FeeSchedulePath != "" {
		overrides, err := fees.LoadFile(cfg.FeeSchedulePath)
		if err != nil {
			logg.Fatalw("failed to load fee schedule", "path", cfg.FeeSchedulePath, "error", err)
		}
		if baseFees, err = baseFees.Merge(overrides); err != nil {
			logg.Fatalw("invalid fee schedule", "path", cfg.FeeSchedulePath, "error", err)
		}
	}
	feeRegistry := fees.NewRegistry(baseFees)

	// --- Impact model ---
	impactA, impactB := cfg.ImpactCoefficient, cfg.ImpactExponent
	if cfg.ImpactModel == "powerlaw" || cfg.ImpactModel == "almgren-chriss" {
		impactA, impactB = cfg.PowerLawEta, cfg.PowerLawAlpha
	}
	impactModel, err := impact.New(cfg.ImpactModel, impactA, impactB)
	if err != nil {
		logg.Fatalw("invalid impact model", "error", err)
	}

	// --- Store (Redis snapshot mirror + Postgres fee tiers), optional ---
	var st *store.HybridStore
	if cfg.RedisAddr != "" || cfg.DatabaseURL != "" {
		logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))
		st, err = store.NewHybrid(store.RedisConfig{
			Addr:    cfg.RedisAddr,
			DB:      cfg.RedisDB,
			Pass:    cfg.RedisPass,
			BookTTL: cfg.BookMirrorTTL,
		}, cfg.DatabaseURL, store.PGPoolConfig{
			MaxConns:          int32(cfg.PGMaxConns),
			MinConns:          int32(cfg.PGMinConns),
			MaxConnLifetime:   cfg.PGMaxConnLifetime,
			MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
			HealthCheckPeriod: cfg.PGHealthCheckPeriod,
		}, logger.Named("store"))
		if err != nil {
			logg.Fatalw("failed to init store", "error", err)
		}
	}

	// --- Book cache ---
	cacheOpts := []book.Option{
		book.WithMaxAge(cfg.BookMaxAge),
		book.WithLogger(logger.Named("book")),
		book.WithSwapHook(func(b *model.OrderBook) {
			metrics.SetBookTimestamp(b.Venue, b.Symbol, b.Timestamp)
		}),
	}
	if st != nil && st.HasRedis() {
		cacheOpts = append(cacheOpts, book.WithMirror(st))
	}
	books := book.New(cacheOpts...)
	if n, err := books.Warm(ctx); err != nil {
		logg.Warnw("book cache warm-up failed", "error", err)
	} else if n > 0 {
		logg.Infow("book cache warmed from mirror", "books", n)
	}

	// --- NATS (optional) ---
	var nc *nats.Conn
	var pub *publisher.Publisher
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "url", utils.MaskURL(cfg.NATSURL), "error", err)
		}
		if js, err := nc.JetStream(); err == nil {
			if err := publisher.EnsureStream(js, cfg.EventsStream, cfg.EventsPrefix+".>"); err != nil {
				logg.Warnw("failed to ensure events stream", "stream", cfg.EventsStream, "error", err)
			}
		}
		pub, err = publisher.New(nc, cfg.EventsPrefix, cfg.ServiceName)
		if err != nil {
			logg.Fatalw("failed to init publisher", "error", err)
		}
	}

	// --- Estimator ---
	engineOpts := []estimator.Option{
		estimator.WithImpactModel(impactModel),
		estimator.WithClassifier(makertaker.Logistic{
			Intercept:    cfg.MakerIntercept,
			SpreadCoef:   cfg.MakerSpreadCoef,
			VolCoef:      cfg.MakerVolCoef,
			QueueCoef:    cfg.MakerQueueCoef,
			DistanceCoef: cfg.MakerDistanceCoef,
		}),
		estimator.WithADV(cfg.ImpactADV),
		estimator.WithLogger(logger.Named("estimator")),
	}
	if pub != nil && cfg.PublishEstimates {
		engineOpts = append(engineOpts, estimator.WithObserver(pub.StartEstimateWorker(ctx, 1024)))
	}
	engine := estimator.New(books, feeRegistry, engineOpts...)

	// --- Fee refresher (Postgres reference data) ---
	var feeRefresher *jobs.FeeRefresher
	if st != nil && st.HasPG() {
		var notifier jobs.Notifier
		if pub != nil {
			notifier = pub
		}
		feeRefresher = jobs.NewFeeRefresher(logger.Named("fees"), st, cfg.FeeTable, baseFees, feeRegistry, notifier, cfg.FeeRefreshInterval)
		go feeRefresher.Start(ctx)
	}

	// --- Snapshot ingestion from the bus ---
	var natsSub *ingest.NATSSubscriber
	if nc != nil && cfg.BookSubject != "" {
		natsSub = ingest.NewNATSSubscriber(nc, cfg.BookSubject, cfg.ServiceName, books, logger.Named("ingest"))
		if err := natsSub.Start(); err != nil {
			logg.Fatalw("failed to subscribe to book subject", "subject", cfg.BookSubject, "error", err)
		}
	}
	var amqpConsumer *ingest.AMQPConsumer
	if cfg.AMQPURL != "" {
		amqpConsumer, err = ingest.NewAMQPConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, books, logger.Named("ingest"))
		if err != nil {
			logg.Fatalw("failed to init AMQP consumer", "error", err)
		}
		if err := amqpConsumer.Start(ctx); err != nil {
			logg.Fatalw("failed to start AMQP consumer", "error", err)
		}
	}

	// --- Venue feed ---
	endpoint := internalsecrets.FeedEndpoint{BaseURL: cfg.FeedBaseURL, WSURL: cfg.FeedWSURL}
	stopCleaner := make(chan struct{})
	if cfg.AWSSecretsEnabled {
		awsProvider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		endpointCache := secrets.NewCache[internalsecrets.FeedEndpoint](cfg.CacheTTL)
		go endpointCache.StartCleaner(cfg.CleanupFreq, stopCleaner)
		resolver := internalsecrets.NewResolver(logger.Named("secrets"), cfg.Env, awsProvider, endpointCache)
		endpoint = resolver.ResolveOr(ctx, cfg.FeedVenue, endpoint)
	}

	var poller *okx.Poller
	switch cfg.FeedMode {
	case config.FeedModeREST:
		rateMgr := rate.NewManager(rate.Config{
			RequestsPerSecond: cfg.FeedRPS,
			Burst:             cfg.FeedBurst,
			Cooldown:          2 * time.Second,
		})
		client := okx.NewClient(logger.Named("okx"), rateMgr, &http.Client{Timeout: 10 * time.Second}, endpoint.BaseURL, cfg.FeedDepth)
		poller = okx.NewPoller(logger.Named("okx"), client, books, cfg.FeedSymbols, cfg.FeedPollInterval)
		go poller.Start(ctx)
	case config.FeedModeWS:
		streamer := okx.NewStreamer(logger.Named("okx"), endpoint.WSURL, cfg.FeedSymbols, books)
		go func() { _ = streamer.Run(ctx) }()
	case config.FeedModeNone, "":
		logg.Warn("FEED_MODE=none; snapshots arrive only via NATS, AMQP or PUT /api/v1/books")
	default:
		logg.Fatalw("unknown FEED_MODE", "mode", cfg.FeedMode)
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})
	api.UseMiddleware(app, cfg.CORSOrigins)

	estimateHandler := api.NewEstimateHandler(logger.Named("api"), engine, api.NewValidator(feeRegistry))
	bookHandler := api.NewBookHandler(logger.Named("api"), books)
	feeHandler := api.NewFeeHandler(feeRegistry)

	var health api.HealthChecker
	if st != nil {
		health = st
	}
	api.RegisterRoutes(app, nc, health, books, estimateHandler, bookHandler, feeHandler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	// --- Main process stays alive until interrupted ---
	logg.Infow("["+cfg.ServiceName+"] running",
		"env", cfg.Env,
		"impact_model", engine.ImpactModel(),
		"fee_tiers", feeRegistry.Current().Tiers(),
		"feed_mode", cfg.FeedMode,
		"nats", cfg.NATSURL != "",
		"amqp", cfg.AMQPURL != "")

	<-ctx.Done()
	logg.Infof("shutting down [%s]...", cfg.ServiceName)

	close(stopCleaner)
	if poller != nil {
		poller.Stop()
	}
	if feeRefresher != nil {
		feeRefresher.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if natsSub != nil {
		if err := natsSub.Close(); err != nil {
			logg.Warnw("nats.unsubscribe_failed", "error", err)
		}
	}
	if amqpConsumer != nil {
		if err := amqpConsumer.Close(); err != nil {
			logg.Warnw("amqp.close_failed", "error", err)
		}
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
	if st != nil {
		if err := st.Close(); err != nil {
			logg.Warnw("store.close_failed", "error", err)
		}
	}
}
