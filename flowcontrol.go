package http2

import "sync"

// FlowControlStrategy picks how aggressively a side tops up its
// receive window with WINDOW_UPDATE frames.
//
// https://tools.ietf.org/html/rfc7540#section-6.9
type FlowControlStrategy uint8

const (
	// FlowControlConservative sends a WINDOW_UPDATE once the consumed
	// fraction of the window passes 0.25 — more frequent, smaller
	// updates.
	FlowControlConservative FlowControlStrategy = iota
	// FlowControlModerate updates at the 0.5 mark and is the module's
	// default.
	FlowControlModerate
	// FlowControlAggressive updates only once 0.75 of the window is
	// consumed, trading latency for fewer WINDOW_UPDATE frames.
	FlowControlAggressive
	// FlowControlDynamic adapts between Moderate and Aggressive based
	// on observed consumption bursts; see streamFlowControl.recordBurst.
	FlowControlDynamic
)

func (s FlowControlStrategy) threshold() float64 {
	switch s {
	case FlowControlConservative:
		return 0.25
	case FlowControlAggressive:
		return 0.75
	default:
		return 0.5
	}
}

const maxFlowWindow = 1<<31 - 1

// connFlowControl tracks one connection's two independent flow-control
// windows. send is decremented by outgoing DATA and incremented by
// inbound WINDOW_UPDATE; recv is decremented (conceptually) by inbound
// DATA bytes delivered to the application and topped back up by
// outbound WINDOW_UPDATE. The two fields are never read or written by
// the same code path, so a sign error in one can never silently affect
// the other.
type connFlowControl struct {
	mu   sync.Mutex
	send int64
	recv int64

	recvInitial int64
	recvConsumedSinceUpdate int64

	strategy FlowControlStrategy

	// waitc is closed and replaced every time send grows, waking any
	// goroutine parked on the channel WaitSend returned (ConsumeSend
	// itself never blocks). A per-stream
	// analogue lives on streamFlowControl; neither uses a condition
	// variable so a blocked sender can select on it alongside a
	// cancellation signal.
	waitc chan struct{}
}

func newConnFlowControl(initial int32) *connFlowControl {
	return &connFlowControl{
		send:        int64(initial),
		recv:        int64(initial),
		recvInitial: int64(initial),
		strategy:    FlowControlModerate,
		waitc:       make(chan struct{}),
	}
}

// AddSend applies a WINDOW_UPDATE increment to the send window. It
// returns an error if the result would exceed the protocol's 2^31-1
// ceiling (RFC 7540 §6.9.1's FLOW_CONTROL_ERROR case).
func (f *connFlowControl) AddSend(n int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.send += int64(n)
	if f.send > maxFlowWindow {
		return NewConnError(FlowControlError, "connection send window overflow")
	}
	f.wake()
	return nil
}

// wake releases every goroutine currently parked in WaitSend. Callers
// must hold f.mu.
func (f *connFlowControl) wake() {
	close(f.waitc)
	f.waitc = make(chan struct{})
}

// WaitSend returns the channel a blocked sender should select on: it
// closes the next time the send window grows.
func (f *connFlowControl) WaitSend() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waitc
}

// ConsumeSend reserves n bytes of send window for an outgoing DATA
// frame. Returns false if insufficient window is available; the caller
// must wait for a WINDOW_UPDATE.
func (f *connFlowControl) ConsumeSend(n int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.send < n {
		return false
	}
	f.send -= n
	return true
}

func (f *connFlowControl) SendAvailable() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.send
}

// ConsumeRecv records n bytes of inbound DATA delivered to the
// application and reports the WINDOW_UPDATE increment to send back, or
// 0 if the configured strategy's threshold has not yet been crossed.
func (f *connFlowControl) ConsumeRecv(n int64) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recv -= n
	f.recvConsumedSinceUpdate += n

	threshold := int64(float64(f.recvInitial) * f.strategy.threshold())
	if f.recvConsumedSinceUpdate < threshold {
		return 0
	}

	inc := f.recvConsumedSinceUpdate
	f.recv += inc
	f.recvConsumedSinceUpdate = 0

	return int32(inc)
}

// streamFlowControl is the per-stream analogue of connFlowControl. It
// additionally tracks a short consumption history so FlowControlDynamic
// can raise its threshold when it detects a bursty receiver.
type streamFlowControl struct {
	mu   sync.Mutex
	send int64
	recv int64

	recvInitial             int64
	recvConsumedSinceUpdate int64

	smoothedRate float64 // exponentially-smoothed bytes/consume-call
	aggressiveFor int    // remaining window-checks to stay aggressive

	strategy FlowControlStrategy

	// waitc and closed back the blocking wait in the sender
	// (streamSink.awaitSendWindow; ConsumeSend never blocks): waitc wakes a
	// waiter whenever the send window grows, closed wakes it for good
	// once the stream is torn down so it never blocks past the stream's
	// lifetime.
	waitc  chan struct{}
	closed chan struct{}
}

func newStreamFlowControl(initialSend, initialRecv int32) *streamFlowControl {
	return &streamFlowControl{
		send:        int64(initialSend),
		recv:        int64(initialRecv),
		recvInitial: int64(initialRecv),
		strategy:    FlowControlModerate,
		waitc:       make(chan struct{}),
		closed:      make(chan struct{}),
	}
}

func (f *streamFlowControl) AddSend(n int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.send += int64(n)
	if f.send > maxFlowWindow {
		return NewConnError(FlowControlError, "stream send window overflow")
	}
	f.wake()
	return nil
}

// SetInitialSend applies SETTINGS_INITIAL_WINDOW_SIZE's effect on an
// already-open stream's send window: every open stream's window shifts
// by the delta between old and new initial value (RFC 7540 §6.9.2).
func (f *streamFlowControl) SetInitialSend(delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.send += delta
	if f.send > maxFlowWindow || f.send < -maxFlowWindow {
		return NewConnError(FlowControlError, "initial window size update overflowed a stream window")
	}
	f.wake()
	return nil
}

// wake releases every goroutine parked in WaitSend. Callers must hold f.mu.
func (f *streamFlowControl) wake() {
	close(f.waitc)
	f.waitc = make(chan struct{})
}

// WaitSend returns the channel a blocked sender should select on: it
// closes the next time the stream's send window grows.
func (f *streamFlowControl) WaitSend() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waitc
}

// Close signals every goroutine parked in WaitSend (on this stream's
// flow controller specifically, as opposed to the connection's) that
// the stream is gone and further waiting is pointless. Safe to call at
// most once per stream.
func (f *streamFlowControl) Close() {
	close(f.closed)
}

func (f *streamFlowControl) ConsumeSend(n int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.send < n {
		return false
	}
	f.send -= n
	return true
}

func (f *streamFlowControl) SendAvailable() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.send
}

func (f *streamFlowControl) ConsumeRecv(n int64) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recv -= n
	f.recvConsumedSinceUpdate += n
	f.recordBurst(n)

	threshold := int64(float64(f.recvInitial) * f.effectiveThreshold())
	if f.recvConsumedSinceUpdate < threshold {
		return 0
	}

	inc := f.recvConsumedSinceUpdate
	f.recv += inc
	f.recvConsumedSinceUpdate = 0

	return int32(inc)
}

// recordBurst updates the smoothed consumption rate and, under
// FlowControlDynamic, raises the threshold toward Aggressive for a
// handful of subsequent checks whenever a single consume call blows
// past 3x the smoothed rate and 1.5x the initial window — i.e. the
// receiver just drained a large burst rather than trickling data in,
// so fewer, larger WINDOW_UPDATEs are worth the latency tradeoff.
func (f *streamFlowControl) recordBurst(n int64) {
	if f.strategy != FlowControlDynamic {
		return
	}

	const smoothing = 0.3
	sample := float64(n)

	if f.smoothedRate == 0 {
		f.smoothedRate = sample
		return
	}

	isBurst := sample >= 3*f.smoothedRate && sample >= 1.5*float64(f.recvInitial)
	if isBurst {
		f.aggressiveFor = 5
	} else if f.aggressiveFor > 0 {
		f.aggressiveFor--
	}

	f.smoothedRate = smoothing*sample + (1-smoothing)*f.smoothedRate
}

func (f *streamFlowControl) effectiveThreshold() float64 {
	if f.strategy == FlowControlDynamic {
		if f.aggressiveFor > 0 {
			return FlowControlAggressive.threshold()
		}
		return FlowControlModerate.threshold()
	}
	return f.strategy.threshold()
}
