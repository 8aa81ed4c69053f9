//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"railclaim/internal/decision/store"
	"railclaim/pkg/testutil/containers"
)

type CacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	primary *store.Memory
	metrics *store.CacheMetrics
	cached  *store.Cached
}

func TestCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *CacheSuite) SetupTest() {
	s.Require().NoError(s.redis.Reset(context.Background()))
	s.primary = store.NewMemory()
	s.metrics = store.NewCacheMetrics(prometheus.NewRegistry())
	s.cached = store.NewCached(s.primary, s.redis.Client,
		store.WithTTL(time.Minute),
		store.WithCacheMetrics(s.metrics),
	)
}

func (s *CacheSuite) TestSaveWritesThrough() {
	ctx := context.Background()
	rec := record("fp-cache")
	s.Require().NoError(s.cached.Save(ctx, rec))

	keys, err := s.redis.Client.Keys(ctx, "railclaim:evaluation:*").Result()
	s.Require().NoError(err)
	s.Len(keys, 2)

	got, err := s.cached.FindByFingerprint(ctx, "fp-cache")
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Lookups.WithLabelValues("hit")))
}

func (s *CacheSuite) TestMissPopulatesCache() {
	ctx := context.Background()
	rec := record("fp-miss")
	s.Require().NoError(s.primary.Save(ctx, rec))

	_, err := s.cached.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Lookups.WithLabelValues("miss")))

	_, err = s.cached.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Lookups.WithLabelValues("hit")))
}
