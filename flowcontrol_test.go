package http2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnFlowControlSendWindow(t *testing.T) {
	f := newConnFlowControl(65535)

	assert.True(t, f.ConsumeSend(1000))
	assert.EqualValues(t, 64535, f.SendAvailable())

	assert.False(t, f.ConsumeSend(1<<20), "cannot consume more than available")

	assert.NoError(t, f.AddSend(1000))
	assert.EqualValues(t, 65535, f.SendAvailable())
}

func TestConnFlowControlAddSendOverflow(t *testing.T) {
	f := newConnFlowControl(maxFlowWindow)
	err := f.AddSend(1)
	assert.Error(t, err)
	var ce *ConnError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, FlowControlError, ce.Code)
}

func TestConnFlowControlConsumeRecvModerateThreshold(t *testing.T) {
	f := newConnFlowControl(1000)
	f.strategy = FlowControlModerate

	assert.EqualValues(t, 0, f.ConsumeRecv(400), "below 0.5 threshold, no update yet")
	assert.EqualValues(t, 600, f.ConsumeRecv(200), "crossing the 0.5 mark returns the accumulated increment")
}

func TestStreamFlowControlSetInitialSend(t *testing.T) {
	f := newStreamFlowControl(65535, 65535)

	assert.NoError(t, f.SetInitialSend(1000))
	assert.EqualValues(t, 66535, f.SendAvailable())

	assert.NoError(t, f.SetInitialSend(-2000))
	assert.EqualValues(t, 64535, f.SendAvailable())
}

func TestStreamFlowControlSetInitialSendOverflow(t *testing.T) {
	f := newStreamFlowControl(maxFlowWindow, 65535)
	err := f.SetInitialSend(1)
	assert.Error(t, err)
}

func TestConnFlowControlWaitSendWakesOnAddSend(t *testing.T) {
	f := newConnFlowControl(0)

	waitc := f.WaitSend()
	select {
	case <-waitc:
		t.Fatal("waitc should not be closed before the window grows")
	default:
	}

	assert.NoError(t, f.AddSend(10))

	select {
	case <-waitc:
	default:
		t.Fatal("AddSend should close the channel returned by WaitSend")
	}
}

func TestStreamFlowControlCloseWakesWaiters(t *testing.T) {
	f := newStreamFlowControl(0, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-f.WaitSend():
			t.Error("WaitSend should not fire; Close should")
		case <-f.closed:
		}
	}()

	f.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not wake the waiter")
	}
}

func TestStreamFlowControlDynamicBurstGoesAggressive(t *testing.T) {
	f := newStreamFlowControl(100000, 100000)
	f.strategy = FlowControlDynamic

	// prime the smoothed rate with small, steady consumption.
	f.ConsumeRecv(1000)
	f.ConsumeRecv(1000)

	// a burst far larger than the smoothed rate and the 1.5x initial-window
	// floor should switch the stream into aggressive mode.
	f.ConsumeRecv(200000)
	assert.Greater(t, f.aggressiveFor, 0)
}
