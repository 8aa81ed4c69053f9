package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerDefaults(t *testing.T) {
	b := New("redis-evaluations")
	assert.Equal(t, "redis-evaluations", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerOpensAtFailureThreshold(t *testing.T) {
	b := New("audit-kafka", WithFailureThreshold(3))

	for i := range 2 {
		useFallback, change := b.RecordFailure()
		assert.False(t, useFallback, "failure %d", i+1)
		assert.False(t, change.Opened)
	}
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback, "still open")
	assert.False(t, change.Opened, "no second transition")
}

func TestBreakerCounters(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		sequence string // f = failure, s = success
		wantOpen bool
	}{
		{"success clears failures", []Option{WithFailureThreshold(3)}, "ffsff", false},
		{"failures after clearing still open it", []Option{WithFailureThreshold(3)}, "ffsfff", true},
		{"needs consecutive successes to close", []Option{WithFailureThreshold(1), WithSuccessThreshold(2)}, "fs", true},
		{"closes on the second success", []Option{WithFailureThreshold(1), WithSuccessThreshold(2)}, "fss", false},
		{"failure while open resets successes", []Option{WithFailureThreshold(1), WithSuccessThreshold(3)}, "fssfss", true},
		{"full run of successes closes", []Option{WithFailureThreshold(1), WithSuccessThreshold(3)}, "fssfsss", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("test", tt.opts...)
			for _, c := range tt.sequence {
				if c == 'f' {
					b.RecordFailure()
				} else {
					b.RecordSuccess()
				}
			}
			assert.Equal(t, tt.wantOpen, b.IsOpen())
		})
	}
}

func TestBreakerCloseReportsTransition(t *testing.T) {
	b := New("test", WithFailureThreshold(1))
	b.RecordFailure()

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
}

func TestBreakerReset(t *testing.T) {
	b := New("test", WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerAllowProbesAfterCooldown(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	b := New("test", WithFailureThreshold(1), WithCooldown(time.Minute), WithClock(func() time.Time { return now }))

	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(59 * time.Second)
	assert.False(t, b.Allow())

	now = now.Add(time.Second)
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.False(t, b.Allow(), "failed probe restarts the cooldown")
}
