package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"railclaim/internal/decision"
	"railclaim/pkg/domain"
	"railclaim/pkg/platform/circuit"
	txcontext "railclaim/pkg/platform/tx"
)

const keyPrefix = "railclaim:evaluation:"

// Cached is a read-through Redis cache in front of a record store. Redis
// failures never fail a call: the primary answers and a circuit breaker
// stops trying Redis until its cooldown has passed.
type Cached struct {
	primary decision.Store
	rdb     redis.Cmdable
	ttl     time.Duration
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *CacheMetrics
}

type CacheOption func(*Cached)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cached) {
		c.ttl = ttl
	}
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cached) {
		c.logger = logger
	}
}

func WithCacheMetrics(m *CacheMetrics) CacheOption {
	return func(c *Cached) {
		c.metrics = m
	}
}

func WithBreaker(b *circuit.Breaker) CacheOption {
	return func(c *Cached) {
		c.breaker = b
	}
}

func NewCached(primary decision.Store, rdb redis.Cmdable, opts ...CacheOption) *Cached {
	c := &Cached{
		primary: primary,
		rdb:     rdb,
		ttl:     24 * time.Hour,
		breaker: circuit.New("redis-evaluations", circuit.WithFailureThreshold(3), circuit.WithCooldown(10*time.Second)),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func idKey(id domain.EvaluationID) string { return keyPrefix + "id:" + id.String() }
func fpKey(fingerprint string) string     { return keyPrefix + "fp:" + fingerprint }

// Save writes through to Redis unless the save runs inside a transaction
// that may still roll back; the next read fills the cache then.
func (c *Cached) Save(ctx context.Context, rec *decision.Record) error {
	if err := c.primary.Save(ctx, rec); err != nil {
		return err
	}
	if _, inTx := txcontext.From(ctx); !inTx {
		c.put(ctx, rec)
	}
	return nil
}

func (c *Cached) FindByID(ctx context.Context, id domain.EvaluationID) (*decision.Record, error) {
	if rec, ok := c.get(ctx, idKey(id)); ok {
		return rec, nil
	}
	rec, err := c.primary.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, rec)
	return rec, nil
}

func (c *Cached) FindByFingerprint(ctx context.Context, fingerprint string) (*decision.Record, error) {
	if rec, ok := c.get(ctx, fpKey(fingerprint)); ok {
		return rec, nil
	}
	rec, err := c.primary.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	c.put(ctx, rec)
	return rec, nil
}

func (c *Cached) get(ctx context.Context, key string) (*decision.Record, bool) {
	if !c.breaker.Allow() {
		c.metrics.observe("bypass")
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.succeeded()
		c.metrics.observe("miss")
		return nil, false
	}
	if err != nil {
		c.failed(ctx, err)
		c.metrics.observe("error")
		return nil, false
	}
	c.succeeded()
	var rec decision.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.WarnContext(ctx, "discarding unreadable cached evaluation", "key", key, "error", err)
		c.metrics.observe("miss")
		return nil, false
	}
	c.metrics.observe("hit")
	return &rec, true
}

// put writes the record under both keys in one pipeline.
func (c *Cached) put(ctx context.Context, rec *decision.Record) {
	if !c.breaker.Allow() {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		c.logger.WarnContext(ctx, "cannot encode evaluation for cache", "error", err)
		return
	}
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, idKey(rec.ID), raw, c.ttl)
		p.Set(ctx, fpKey(rec.Fingerprint), raw, c.ttl)
		return nil
	})
	if err != nil {
		c.failed(ctx, err)
		return
	}
	c.succeeded()
}

func (c *Cached) failed(ctx context.Context, err error) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "evaluation cache circuit opened", "error", err)
	}
}

func (c *Cached) succeeded() {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("evaluation cache circuit closed")
	}
}

// CacheMetrics counts cache lookups by result (hit, miss, error, bypass).
type CacheMetrics struct {
	Lookups *prometheus.CounterVec
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	return &CacheMetrics{
		Lookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "railclaim_evaluation_cache_lookups_total",
			Help: "Evaluation cache lookups by result",
		}, []string{"result"}),
	}
}

func (m *CacheMetrics) observe(result string) {
	if m != nil {
		m.Lookups.WithLabelValues(result).Inc()
	}
}
