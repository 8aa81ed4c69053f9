package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"railclaim/pkg/platform/httputil"
	"railclaim/pkg/requestcontext"
)

// Store records requests in a window and reports whether one more fits.
type Store interface {
	Allow(ctx context.Context, key string, limit Limit) (Result, error)
}

// Metrics counts rate limit decisions by class and result.
type Metrics struct {
	Decisions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "railclaim_ratelimit_decisions_total",
			Help: "Rate limit checks by endpoint class and result (allowed, rejected, error)",
		}, []string{"class", "result"}),
	}
}

func (m *Metrics) observe(class Class, result string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(string(class), result).Inc()
}

type Limiter struct {
	store   Store
	limits  map[Class]Limit
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// New builds a limiter. Classes missing from limits are not throttled.
func New(store Store, limits map[Class]Limit, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		limits: limits,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Handler throttles by client IP. Store errors let the request through.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := ClassOf(r)
		limit, ok := l.limits[class]
		if !ok || limit.Requests <= 0 || limit.Window <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		res, err := l.store.Allow(ctx, string(class)+":"+ip, limit)
		if err != nil {
			l.metrics.observe(class, "error")
			l.logger.ErrorContext(ctx, "rate limit check failed", "error", err, "class", class)
			next.ServeHTTP(w, r)
			return
		}

		addHeaders(w, res)
		if !res.Allowed {
			l.metrics.observe(class, "rejected")
			l.logger.WarnContext(ctx, "rate limit exceeded", "class", class, "client_ip", ip)
			writeExceeded(w, res)
			return
		}
		l.metrics.observe(class, "allowed")
		next.ServeHTTP(w, r)
	})
}

func addHeaders(w http.ResponseWriter, res Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

func writeExceeded(w http.ResponseWriter, res Result) {
	retry := max(int(math.Ceil(res.RetryAfter.Seconds())), 1)
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	httputil.WriteJSON(w, http.StatusTooManyRequests, ExceededResponse{
		Error:            "rate_limit_exceeded",
		ErrorDescription: "Too many requests from this client. Please try again later.",
		RetryAfter:       retry,
	})
}
