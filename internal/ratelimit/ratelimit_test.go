package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railclaim/pkg/requestcontext"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryStoreSlidingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithMemoryClock(clock.now))
	ctx := context.Background()
	limit := Limit{Requests: 2, Window: time.Minute}

	res, err := s.Allow(ctx, "k", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	clock.advance(20 * time.Second)
	res, err = s.Allow(ctx, "k", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Zero(t, res.Remaining)

	res, err = s.Allow(ctx, "k", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 40*time.Second, res.RetryAfter)

	t.Run("other keys are independent", func(t *testing.T) {
		res, err := s.Allow(ctx, "other", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	clock.advance(41 * time.Second)
	res, err = s.Allow(ctx, "k", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "the first request left the window")
	assert.Zero(t, res.Remaining)

	require.NoError(t, s.Reset(ctx, "k"))
	res, err = s.Allow(ctx, "k", limit)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Remaining)
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, ClassRead, ClassOf(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, ClassWrite, ClassOf(httptest.NewRequest(http.MethodPost, "/", nil)))
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, Limit) (Result, error) {
	return Result{}, errors.New("redis down")
}

func serve(h http.Handler, method, ip string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, "/v1/evaluations", nil)
	r = r.WithContext(requestcontext.WithClientMetadata(r.Context(), ip, "test", "api"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestLimiterHandler(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("rejects over the limit per client", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		h := New(NewMemoryStore(), map[Class]Limit{
			ClassWrite: {Requests: 1, Window: time.Minute},
		}, WithMetrics(m)).Handler(ok)

		first := serve(h, http.MethodPost, "203.0.113.1")
		assert.Equal(t, http.StatusNoContent, first.Code)
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

		second := serve(h, http.MethodPost, "203.0.113.1")
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.NotEmpty(t, second.Header().Get("Retry-After"))
		assert.Contains(t, second.Body.String(), "rate_limit_exceeded")

		assert.Equal(t, http.StatusNoContent, serve(h, http.MethodPost, "203.0.113.2").Code)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Decisions.WithLabelValues("write", "rejected")))
		assert.Equal(t, float64(2), testutil.ToFloat64(m.Decisions.WithLabelValues("write", "allowed")))
	})

	t.Run("unconfigured class is not throttled", func(t *testing.T) {
		h := New(NewMemoryStore(), map[Class]Limit{
			ClassWrite: {Requests: 1, Window: time.Minute},
		}).Handler(ok)
		for range 3 {
			w := serve(h, http.MethodGet, "203.0.113.1")
			assert.Equal(t, http.StatusNoContent, w.Code)
			assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
		}
	})

	t.Run("store errors fail open", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		h := New(failingStore{}, map[Class]Limit{
			ClassWrite: {Requests: 1, Window: time.Minute},
		}, WithMetrics(m)).Handler(ok)
		assert.Equal(t, http.StatusNoContent, serve(h, http.MethodPost, "203.0.113.1").Code)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Decisions.WithLabelValues("write", "error")))
	})
}
