package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mastermhp/Live-Baz-sub000/external/analytics"
	"github.com/mastermhp/Live-Baz-sub000/external/apifootball"
	"github.com/mastermhp/Live-Baz-sub000/internal/config"
	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	"github.com/mastermhp/Live-Baz-sub000/internal/infrastructure/repository/cache"
	"github.com/mastermhp/Live-Baz-sub000/internal/infrastructure/repository/memory"
	"github.com/mastermhp/Live-Baz-sub000/internal/infrastructure/repository/postgres"
	"github.com/mastermhp/Live-Baz-sub000/internal/interfaces/httpapi"
	basecache "github.com/mastermhp/Live-Baz-sub000/internal/platform/cache"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/metrics"
	"github.com/mastermhp/Live-Baz-sub000/internal/realtime"
	"github.com/mastermhp/Live-Baz-sub000/internal/usecase"
)

// App owns every long-lived component of the API process.
type App struct {
	cfg    config.Config
	logger *logging.Logger

	server    *http.Server
	pipeline  *metrics.Pipeline
	broker    *realtime.Broker
	scheduler *usecase.MatchFeedScheduler
	relay     *realtime.RedisRelay
	flusher   *usecase.AnalyticsFlusher

	closers []func() error
	cancel  context.CancelFunc
	workers *conc.WaitGroup
}

// New builds the object graph. Nothing runs until Start.
func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		pipeline: metrics.NewPipeline(),
	}

	store, err := a.buildStore(ctx)
	if err != nil {
		_ = a.close()
		return nil, err
	}

	a.broker = realtime.NewBroker(
		realtime.WithLogger(logger.With("component", "broker")),
		realtime.WithMetrics(a.pipeline),
	)
	var publisher usecase.EventPublisher = a.broker
	if cfg.RealtimeRedisEnabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		a.relay = realtime.NewRedisRelay(client, cfg.RealtimeRedisChannel, a.broker, logger.With("component", "redis_relay"))
		publisher = a.relay
	}

	a.scheduler = usecase.NewMatchFeedScheduler(
		a.buildProvider(),
		store,
		publisher,
		a.pipeline,
		usecase.MatchFeedConfig{
			LiveInterval:         cfg.IngestLiveInterval,
			UpcomingInterval:     cfg.IngestUpcomingInterval,
			FinishedInterval:     cfg.IngestFinishedInterval,
			UpcomingWindowDays:   cfg.IngestUpcomingWindowDays,
			FinishedLookbackDays: cfg.IngestFinishedLookbackDays,
			FetchTimeout:         cfg.IngestFetchTimeout,
		},
		logger.With("component", "scheduler"),
	)

	if cfg.AnalyticsEnabled {
		analyticsPublisher := analytics.NewPublisher(analytics.PublisherConfig{
			Endpoint:       cfg.AnalyticsEndpoint,
			Token:          cfg.AnalyticsToken,
			ServiceName:    cfg.ServiceName,
			Timeout:        cfg.AnalyticsTimeout,
			CircuitBreaker: cfg.AnalyticsCircuit,
		}, logger.With("component", "analytics"))
		a.flusher = usecase.NewAnalyticsFlusher(analyticsPublisher, a.pipeline, cfg.AnalyticsFlushInterval, logger)
	}

	handler := httpapi.NewHandler(httpapi.HandlerDeps{
		Matches:       usecase.NewMatchFeedService(a.scheduler),
		Ingestion:     a.scheduler,
		LocalMatches:  store,
		Subscriptions: a.broker,
		Metrics:       a.pipeline,
		Logger:        logger,
		WS: httpapi.WSConfig{
			SendBuffer:     cfg.RealtimeSendBuffer,
			WriteTimeout:   cfg.RealtimeWriteTimeout,
			PongTimeout:    cfg.RealtimePongTimeout,
			AllowedOrigins: cfg.CORSAllowedOrigins,
		},
	})
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		Logger:             logger,
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
		Metrics:            a.pipeline.Handler(),
	})

	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return a, nil
}

func (a *App) Server() *http.Server { return a.server }

// buildStore returns the local store, wrapped in the read-through cache when
// enabled. Both sides of the returned store go through the cache so admin
// writes invalidate it.
func (a *App) buildStore(ctx context.Context) (match.Store, error) {
	var store match.Store
	switch a.cfg.LocalStoreDriver {
	case config.StoreDriverPostgres:
		db, err := openDB(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		repo := postgres.NewMatchRepository(db)
		if a.cfg.LocalStoreSeed {
			if err := seedStore(ctx, repo, time.Now()); err != nil {
				return nil, err
			}
		}
		store = repo
	default:
		var seed []match.LocalDocument
		if a.cfg.LocalStoreSeed {
			seed = memory.SeedMatches(time.Now())
		}
		store = memory.NewMatchRepository(seed)
	}

	a.logger.Info("local store ready",
		"driver", a.cfg.LocalStoreDriver,
		"seeded", a.cfg.LocalStoreSeed,
		"cache_enabled", a.cfg.CacheEnabled,
	)
	if !a.cfg.CacheEnabled {
		return store, nil
	}
	return cache.NewMatchRepository(store, basecache.NewStore[[]match.LocalDocument](a.cfg.CacheTTL)), nil
}

// buildProvider returns an untyped nil when the provider is disabled so the
// scheduler sees a nil interface and runs local-only cycles.
func (a *App) buildProvider() match.FixtureProvider {
	if !a.cfg.ProviderEnabled {
		a.logger.Info("provider disabled", "reason", "PROVIDER_ENABLED=false")
		return nil
	}
	return apifootball.NewClient(apifootball.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   a.cfg.ProviderTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		BaseURL:        a.cfg.ProviderBaseURL,
		APIKey:         a.cfg.ProviderAPIKey,
		Timezone:       a.cfg.ProviderTimezone,
		Timeout:        a.cfg.ProviderTimeout,
		MaxRetries:     a.cfg.ProviderMaxRetries,
		RatePerMinute:  a.cfg.ProviderRatePerMinute,
		Workers:        a.cfg.ProviderWorkers,
		Logger:         a.logger.With("component", "apifootball"),
		Metrics:        a.pipeline,
		CircuitBreaker: a.cfg.ProviderCircuit,
	})
}

func seedStore(ctx context.Context, writer match.Writer, now time.Time) error {
	for _, doc := range memory.SeedMatches(now) {
		if err := writer.Upsert(ctx, doc); err != nil {
			return fmt.Errorf("seed local match %s: %w", doc.ID, err)
		}
	}
	return nil
}

// Start launches the scheduler and the background workers. The HTTP server
// is started by the caller.
func (a *App) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.workers = &conc.WaitGroup{}

	a.scheduler.Start(runCtx)
	if a.relay != nil {
		a.workers.Go(func() {
			if err := a.relay.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("redis relay stopped", "error", err)
			}
		})
	}
	if a.flusher != nil {
		a.workers.Go(func() {
			a.flusher.Run(runCtx)
		})
	}
}

// Stop shuts the HTTP server down first so no new subscriptions arrive, then
// stops the pipeline and releases resources.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	a.scheduler.Stop()
	if a.cancel != nil {
		a.cancel()
		a.workers.Wait()
	}
	if err := a.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
