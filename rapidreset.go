package http2

import (
	"sync"
	"time"
)

// rapidResetGuard defends against CVE-2023-44487: a client opening a
// stream and immediately RST_STREAM-ing it before the server's handler
// ever runs, repeated fast enough to exhaust CPU/memory on stream setup
// without ever completing a request. It is one instance per connection.
type rapidResetGuard struct {
	mu sync.Mutex

	window   time.Duration
	maxResets int

	resets []time.Time

	banned    bool
	bannedAt  time.Time

	now func() time.Time
}

func newRapidResetGuard(window time.Duration, maxResets int) *rapidResetGuard {
	return &rapidResetGuard{
		window:    window,
		maxResets: maxResets,
		now:       time.Now,
	}
}

// RecordClientReset records a client-initiated stream reset that
// occurred before the stream's request was ever completed, and reports
// whether the connection has now crossed the rapid-reset threshold and
// should be closed with ENHANCE_YOUR_CALM.
func (g *rapidResetGuard) RecordClientReset() (banned bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.banned {
		return true
	}

	now := g.now()
	cutoff := now.Add(-g.window)

	kept := g.resets[:0]
	for _, t := range g.resets {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.resets = append(kept, now)

	if len(g.resets) > g.maxResets {
		g.banned = true
		g.bannedAt = now
		return true
	}

	return false
}

// Banned reports whether this connection has already tripped the
// guard.
func (g *rapidResetGuard) Banned() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.banned
}
