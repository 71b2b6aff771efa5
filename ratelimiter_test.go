package http2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhaustsAtCapacity(t *testing.T) {
	b := newTokenBucket(3, 1)

	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
	assert.False(t, b.Allow(), "fourth request within the same instant must be refused")
}

func TestTokenBucketRefillsOverTime(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(1, 10) // 10 tokens/sec refill
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow())
	assert.False(t, b.Allow())

	now = now.Add(200 * time.Millisecond) // should refill ~2 tokens, capped at capacity 1
	assert.True(t, b.Allow())
}

func TestTokenBucketAllowNRejectsPartialBudget(t *testing.T) {
	b := newTokenBucket(5, 0)
	assert.True(t, b.AllowN(5))
	assert.False(t, b.AllowN(1), "no refill configured, bucket stays empty")
}

func TestNewConnRateLimitersUsesOptions(t *testing.T) {
	opts := NewOptions()
	opts.MaxPingBurst = 2
	opts.MaxPingPerSecond = 0

	l := newConnRateLimiters(opts)
	assert.True(t, l.Ping.Allow())
	assert.True(t, l.Ping.Allow())
	assert.False(t, l.Ping.Allow())
}
