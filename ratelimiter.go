package http2

import (
	"sync"
	"time"
)

// tokenBucket is a small, mutex-guarded token bucket used per
// connection to cap the rate of SETTINGS, PING, RST_STREAM and
// PRIORITY frames a peer may send as a flood mitigation.
// One bucket per connection, never a package-level singleton, so one
// abusive connection cannot starve the rate budget of another.
type tokenBucket struct {
	mu sync.Mutex

	tokens   float64
	capacity float64
	refill   float64 // tokens added per second
	last     time.Time

	now func() time.Time
}

func newTokenBucket(capacity, refillPerSecond float64) *tokenBucket {
	return &tokenBucket{
		tokens:   capacity,
		capacity: capacity,
		refill:   refillPerSecond,
		last:     time.Now(),
		now:      time.Now,
	}
}

// Allow reports whether one token is available and, if so, consumes it.
func (b *tokenBucket) Allow() bool {
	return b.AllowN(1)
}

// AllowN reports whether n tokens are available and, if so, consumes
// them.
func (b *tokenBucket) AllowN(n float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	elapsed := now.Sub(b.last).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	b.last = now

	b.tokens += elapsed * b.refill
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}

	if b.tokens < n {
		return false
	}

	b.tokens -= n
	return true
}

// connRateLimiters bundles the four per-connection limiters the engine
// consults: Settings and Ping in its read loop, RstStream and Priority
// in its dispatch loop.
type connRateLimiters struct {
	Settings   *tokenBucket
	Ping       *tokenBucket
	RstStream  *tokenBucket
	Priority   *tokenBucket
}

// newConnRateLimiters builds limiters sized from the burst and
// per-second fields of Options, as given; NewOptions supplies the
// defaults, and a zero burst admits no frame of that kind.
func newConnRateLimiters(opts *Options) *connRateLimiters {
	return &connRateLimiters{
		Settings:  newTokenBucket(float64(opts.MaxSettingsBurst), float64(opts.MaxSettingsPerSecond)),
		Ping:      newTokenBucket(float64(opts.MaxPingBurst), float64(opts.MaxPingPerSecond)),
		RstStream: newTokenBucket(float64(opts.MaxRstStreamBurst), float64(opts.MaxRstStreamPerSecond)),
		Priority:  newTokenBucket(float64(opts.MaxPriorityBurst), float64(opts.MaxPriorityPerSecond)),
	}
}
