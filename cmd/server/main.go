package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"railclaim/internal/catalog"
	cataloghandler "railclaim/internal/catalog/handler"
	"railclaim/internal/claim"
	"railclaim/internal/decision"
	decisionhandler "railclaim/internal/decision/handler"
	decisionmetrics "railclaim/internal/decision/metrics"
	"railclaim/internal/decision/store"
	"railclaim/internal/platform/config"
	"railclaim/internal/platform/httpserver"
	"railclaim/internal/platform/kafka"
	"railclaim/internal/platform/logger"
	"railclaim/internal/platform/metrics"
	"railclaim/internal/platform/postgres"
	"railclaim/internal/platform/redis"
	"railclaim/internal/ratelimit"
	httptransport "railclaim/internal/transport/http"
	"railclaim/pkg/platform/audit"
	"railclaim/pkg/platform/audit/publisher"
	auditkafka "railclaim/pkg/platform/audit/store/kafka"
	auditmemory "railclaim/pkg/platform/audit/store/memory"
	auditpostgres "railclaim/pkg/platform/audit/store/postgres"
	"railclaim/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.Load(os.Getenv("RAILCLAIM_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

type resources struct {
	db      *sql.DB
	redis   *redis.Client
	kafka   *kgo.Client
	audit   *publisher.Publisher
	closers []func() error
}

func (i *resources) close(log *slog.Logger) {
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](); err != nil {
			log.Warn("shutdown step failed", "error", err)
		}
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	appMetrics := metrics.New()
	res := &resources{}
	defer res.close(log)

	if err := initPostgres(ctx, cfg, log, res); err != nil {
		return err
	}
	if err := initAudit(ctx, cfg, log, res); err != nil {
		return err
	}

	catalogStore, err := catalog.Open(ctx, catalog.FileSource{Path: cfg.Catalog.Path},
		catalog.WithLogger(log),
		catalog.WithSwapHook(func(snap *catalog.Snapshot) {
			appMetrics.ObserveCatalogReload(len(snap.Entries()), nil)
			emitCatalogEvent(res.audit, log, audit.EventCatalogReloaded, snap.Version(), "")
		}),
		catalog.WithFailureHook(func(err error) {
			appMetrics.ObserveCatalogReload(0, err)
			emitCatalogEvent(res.audit, log, audit.EventCatalogReloadFailed, cfg.Catalog.Path, err.Error())
		}),
	)
	if err != nil {
		return err
	}
	if cfg.Catalog.Watch {
		go func() {
			if err := catalog.Watch(ctx, catalogStore, cfg.Catalog.Path, log); err != nil {
				log.Error("catalog watcher stopped", "error", err)
			}
		}()
	}

	records, err := initRecordStore(ctx, cfg, log, res)
	if err != nil {
		return err
	}

	policy, err := decision.NewPolicy(cfg.Claim.FeePercent, cfg.Compensation.MinPayout, cfg.Compensation.RefundPolicy)
	if err != nil {
		return err
	}
	opts := []decision.Option{
		decision.WithLogger(log),
		decision.WithMetrics(decisionmetrics.New()),
		decision.WithRates(claim.DefaultRates().Merge(cfg.FX.Rates)),
		decision.WithPolicy(policy),
		decision.WithBatch(cfg.Batch.MaxItems, cfg.Batch.Concurrency),
	}
	if res.audit != nil {
		opts = append(opts, decision.WithAudit(res.audit))
	}
	if cfg.Store.Backend == config.BackendPostgres {
		opts = append(opts, decision.WithTx(newEvaluationPostgresTx(res.db)))
	}
	service := decision.NewService(catalogStore, records, opts...)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:   log,
		Observer: appMetrics,
		Metrics:  metrics.Handler(),
		Health:   healthChecks(catalogStore, res),
		Throttle: newThrottle(cfg.RateLimit, res, log),
	},
		decisionhandler.New(service, log),
		cataloghandler.New(catalogStore, log),
	)

	srv := httpserver.New(cfg.Server, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting railclaim", "addr", cfg.Server.Addr, "catalog_version", catalogStore.Current().Version())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func initPostgres(ctx context.Context, cfg *config.Config, log *slog.Logger, res *resources) error {
	if cfg.Store.Backend != config.BackendPostgres && cfg.Audit.Sink != config.SinkPostgres {
		return nil
	}
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	res.db = db
	res.closers = append(res.closers, db.Close)
	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(db, postgres.Up); err != nil {
			return err
		}
		version, _, _ := postgres.Version(db)
		log.Info("database migrated", "version", version)
	}
	return nil
}

func initAudit(ctx context.Context, cfg *config.Config, log *slog.Logger, res *resources) error {
	var sink audit.Store
	buffer := cfg.Audit.Buffer
	switch cfg.Audit.Sink {
	case config.SinkNone:
		return nil
	case config.SinkMemory:
		sink = auditmemory.NewInMemoryStore()
	case config.SinkPostgres:
		sink = auditpostgres.New(res.db)
		if cfg.Store.Backend == config.BackendPostgres && buffer > 0 {
			// Events must be written on the evaluation's transaction.
			log.Info("audit buffer disabled: postgres events commit with their evaluation")
			buffer = 0
		}
	case config.SinkKafka:
		client, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return err
		}
		res.kafka = client
		res.closers = append(res.closers, func() error { client.Close(); return nil })
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka); err != nil {
			return err
		}
		sink = auditkafka.New(client, cfg.Kafka.Topic)
	}

	res.audit = publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(buffer),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(prometheus.DefaultRegisterer)),
		publisher.WithBreaker(circuit.New("audit-"+cfg.Audit.Sink)),
	)
	res.closers = append(res.closers, res.audit.Close)
	return nil
}

func initRecordStore(ctx context.Context, cfg *config.Config, log *slog.Logger, res *resources) (decision.Store, error) {
	var records decision.Store
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		records = store.NewPostgres(res.db)
	default:
		records = store.NewMemory()
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rdb == nil {
		return records, nil
	}
	res.redis = rdb
	res.closers = append(res.closers, rdb.Close)
	log.Info("evaluation cache enabled", "ttl", cfg.Redis.TTL)
	return store.NewCached(records, rdb.Client,
		store.WithTTL(cfg.Redis.TTL),
		store.WithCacheLogger(log),
		store.WithCacheMetrics(store.NewCacheMetrics(prometheus.DefaultRegisterer)),
	), nil
}

// newThrottle returns nil when rate limiting is off. With Redis available
// every replica shares the window.
func newThrottle(cfg config.RateLimit, res *resources, log *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return nil
	}
	var st ratelimit.Store = ratelimit.NewMemoryStore()
	if res.redis != nil {
		st = ratelimit.NewRedisStore(res.redis.Client)
	}
	limiter := ratelimit.New(st, map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassRead:  {Requests: cfg.Read, Window: cfg.Window},
		ratelimit.ClassWrite: {Requests: cfg.Write, Window: cfg.Window},
	},
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratelimit.NewMetrics(prometheus.DefaultRegisterer)),
	)
	log.Info("rate limiting enabled", "read", cfg.Read, "write", cfg.Write, "window", cfg.Window, "shared", res.redis != nil)
	return limiter.Handler
}

func emitCatalogEvent(p *publisher.Publisher, log *slog.Logger, action audit.AuditEvent, subject, reason string) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	event := audit.Event{Action: string(action), Subject: subject, Reason: reason}
	if action == audit.EventCatalogReloaded {
		event.CatalogVersion = subject
	}
	if err := p.Emit(ctx, event); err != nil {
		log.Warn("catalog audit event not emitted", "action", action, "error", err)
	}
}

func healthChecks(catalogStore *catalog.Store, res *resources) []httptransport.HealthCheck {
	checks := []httptransport.HealthCheck{{
		Name: "catalog",
		Check: func(context.Context) error {
			if catalogStore.Current() == nil {
				return errors.New("catalog not loaded")
			}
			return nil
		},
	}}
	if res.db != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: res.db.PingContext})
	}
	if res.redis != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: res.redis.Health})
	}
	if res.kafka != nil {
		client := res.kafka
		checks = append(checks, httptransport.HealthCheck{Name: "kafka", Check: func(ctx context.Context) error {
			return kafka.Health(ctx, client)
		}})
	}
	return checks
}
