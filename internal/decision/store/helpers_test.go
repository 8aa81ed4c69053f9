package store

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newUnreachableRedis points at a port nothing listens on.
func newUnreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}
