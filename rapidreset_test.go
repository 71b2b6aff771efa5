package http2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRapidResetGuardTripsAfterThreshold(t *testing.T) {
	g := newRapidResetGuard(10*time.Second, 3)

	assert.False(t, g.RecordClientReset())
	assert.False(t, g.RecordClientReset())
	assert.False(t, g.RecordClientReset())
	assert.True(t, g.RecordClientReset(), "the fourth reset within the window must trip the guard")
	assert.True(t, g.Banned())
}

func TestRapidResetGuardStaysBannedOnceTripped(t *testing.T) {
	g := newRapidResetGuard(time.Second, 1)
	g.RecordClientReset()
	assert.True(t, g.RecordClientReset())
	assert.True(t, g.RecordClientReset(), "a banned connection stays banned regardless of the window")
}

func TestRapidResetGuardForgetsOldResets(t *testing.T) {
	now := time.Now()
	g := newRapidResetGuard(time.Second, 2)
	g.now = func() time.Time { return now }

	assert.False(t, g.RecordClientReset())
	assert.False(t, g.RecordClientReset())

	// advance past the window so both prior resets age out.
	now = now.Add(2 * time.Second)
	assert.False(t, g.RecordClientReset(), "resets outside the window must not count toward the threshold")
}
