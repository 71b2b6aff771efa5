package http2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnForDispatch() *conn {
	c := &conn{
		flow:   newConnFlowControl(65535),
		writer: make(chan *FrameHeader, 16),
		closer: make(chan struct{}),
	}
	c.opts = NewOptions()
	return c
}

func newTestStream(id uint32) *Stream {
	s := acquireStream(id, 65535, 65535)
	s.state = StateOpen
	s.headersFinished = true
	return s
}

func dataFrame(body []byte, endStream bool) *FrameHeader {
	fr := AcquireFrameHeader()
	fr.SetStream(1)
	d := AcquireFrame(FrameData).(*Data)
	d.SetData(body)
	d.SetEndStream(endStream)
	fr.SetBody(d)
	return fr
}

func TestHandleDataRejectsContentLengthMismatch(t *testing.T) {
	c := newTestConnForDispatch()
	s := newTestStream(1)
	s.req.ContentLength = 10
	s.req.HasContentLen = true

	err := c.handleData(s, dataFrame([]byte("too short"), true))
	require.Error(t, err)
	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ProtocolError, se.Code)
}

func TestHandleDataAcceptsMatchingContentLength(t *testing.T) {
	c := newTestConnForDispatch()
	s := newTestStream(1)
	s.req.ContentLength = 9
	s.req.HasContentLen = true

	err := c.handleData(s, dataFrame([]byte("9 bytes!!"), true))
	assert.NoError(t, err)
}

func TestHandleDataWithoutEndStreamSkipsContentLengthCheck(t *testing.T) {
	c := newTestConnForDispatch()
	s := newTestStream(1)
	s.req.ContentLength = 100
	s.req.HasContentLen = true

	err := c.handleData(s, dataFrame([]byte("partial"), false))
	assert.NoError(t, err)
}

func TestAssignFieldRejectsConflictingContentLength(t *testing.T) {
	c := newTestConnForDispatch()
	s := newTestStream(1)

	hf := newHF("content-length", "10")
	require.NoError(t, c.assignField(s, hf, false))

	hf2 := newHF("content-length", "20")
	err := c.assignField(s, hf2, false)
	require.Error(t, err)
	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ProtocolError, se.Code)
}

func TestAssignFieldAllowsRepeatedIdenticalContentLength(t *testing.T) {
	c := newTestConnForDispatch()
	s := newTestStream(1)

	require.NoError(t, c.assignField(s, newHF("content-length", "10"), false))
	assert.NoError(t, c.assignField(s, newHF("content-length", "10"), false))
}

func continuationFrame(headers []byte, endHeaders bool) *FrameHeader {
	fr := AcquireFrameHeader()
	fr.SetStream(1)
	cont := AcquireFrame(FrameContinuation).(*Continuation)
	cont.SetHeader(headers)
	cont.SetEndHeaders(endHeaders)
	fr.SetBody(cont)
	if endHeaders {
		fr.SetFlags(fr.Flags().Add(FlagEndHeaders))
	}
	return fr
}

func TestHandleContinuationRejectsEmptyFrameFloodBeforeGeneralBudget(t *testing.T) {
	c := newTestConnForDispatch()
	c.opts.MaxContinuationFrames = 100 // generous general budget
	s := newTestStream(1)
	s.headerFrames = 1 // as if a HEADERS frame already started the block
	s.headerStart = time.Now()

	var err error
	var i int
	for i = 0; i < 100; i++ {
		err = c.handleContinuation(s, continuationFrame(nil, false))
		if err != nil {
			break
		}
	}
	require.Error(t, err, "a run of empty, non-terminal CONTINUATION frames must be rejected well before the general frame-count budget")
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, EnhanceYourCalm, ce.Code)
	assert.Less(t, i, 99, "the empty-frame budget (a quarter of MaxContinuationFrames) should trip first")
}

func TestRapidResetIgnoredAfterThreshold(t *testing.T) {
	c := newTestConnForDispatch()
	c.opts.RapidResetThreshold = 100 * time.Millisecond
	c.opts.RapidResetMaxResets = 0 // ban on the very first counted reset
	c.rapidReset = newRapidResetGuard(c.opts.RapidResetWindow, c.opts.RapidResetMaxResets)
	c.limiters = newConnRateLimiters(NewOptions())

	s := newTestStream(1)
	s.createdAt = time.Now().Add(-time.Second) // well past the threshold

	rst := AcquireFrame(FrameResetStream).(*RstStream)
	rst.SetCode(Cancel)
	fr := AcquireFrameHeader()
	fr.SetStream(1)
	fr.SetBody(rst)

	err := c.processFrame(s, fr)
	assert.NoError(t, err, "a reset long after stream creation must not trip the rapid-reset guard")
}
