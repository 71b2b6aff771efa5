package http2

import (
	"bytes"
	"runtime/debug"
	"time"
)

// dispatchLoop owns the stream table and the HPACK decoder; it is the
// only goroutine that ever touches either, so there is no locking
// around table mutation. It consumes frames off c.reader (fed by
// readLoop) and enqueues response frames onto c.writer.
func (c *conn) dispatchLoop() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Printf("http2: dispatchLoop panic: %v\n%s", r, debug.Stack())
		}
	}()

	requestTimerC := func() <-chan time.Time {
		if c.maxRequestTimer == nil {
			return nil
		}
		return c.maxRequestTimer.C
	}

	for {
		select {
		case <-c.closer:
			return

		case <-requestTimerC():
			c.reapExpiredStreams()

		case fr, ok := <-c.reader:
			if !ok {
				return
			}
			c.handleStreamFrame(fr)
			ReleaseFrameHeader(fr)

			if c.isClosing() && c.drained() {
				return
			}
		}
	}
}

// drained reports whether every stream opened at or before closeRef has
// finished, so a GOAWAY-initiated shutdown can complete.
func (c *conn) drained() bool {
	ref := c.closeRef
	if ref == 0 {
		return true
	}
	for id := range c.streams {
		if id <= ref {
			return false
		}
	}
	return true
}

func (c *conn) handleStreamFrame(fr *FrameHeader) {
	id := fr.Stream()

	s, ok := c.streams[id]
	if !ok {
		s = c.admitStream(fr)
		if s == nil {
			return
		}
	}

	if err := c.processFrame(s, fr); err != nil {
		c.writeConnError(err)
		s.state = StateClosed
	} else if fr.Type() == FrameData && fr.Body().(*Data).EndStream() {
		// The request body is complete: hand the request off now.
		c.dispatchRequest(s)
	}

	if s.state == StateClosed {
		c.closeStream(s)
	}
}

// admitStream creates a Stream for a previously-unseen id, enforcing
// RFC 7540 §5.1.1's monotonic-id rule, MAX_CONCURRENT_STREAMS and the
// rapid-reset guard. Returns nil (frame already handled/rejected) when
// no Stream should be created.
func (c *conn) admitStream(fr *FrameHeader) *Stream {
	id := fr.Stream()

	if _, closed := c.closedIDs[id]; closed {
		if fr.Type() != FramePriority {
			c.writeConnError(NewConnError(StreamClosed, "frame on closed stream"))
		}
		return nil
	}

	switch fr.Type() {
	case FrameResetStream:
		c.writeConnError(NewConnError(ProtocolError, "RST_STREAM on idle stream"))
		return nil
	case FramePriority:
		// PRIORITY on an idle stream is legal and stateless.
		return nil
	case FrameHeaders:
		// fall through to stream creation below
	default:
		c.writeConnError(NewConnError(ProtocolError, "frame before HEADERS"))
		return nil
	}

	if id < c.lastStreamID {
		c.writeConnError(NewConnError(ProtocolError, "stream id lower than last seen"))
		return nil
	}

	if c.isClosing() || c.openCount >= int(c.localSettings.MaxConcurrentStreams()) {
		c.writeReset(id, RefusedStream)
		return nil
	}

	// Implicitly close every idle stream below this one (RFC 7540
	// §5.1.1).
	for sid, s := range c.streams {
		if sid < id && s.state == StateIdle {
			s.state = StateClosed
			c.writeReset(sid, Cancel)
			c.closeStream(s)
		}
	}

	s := acquireStream(id, int32(c.peerSettings.InitialWindowSize()), int32(c.localSettings.InitialWindowSize()))
	c.streams[id] = s
	c.lastStreamID = id
	c.openCount++

	if c.opts.MaxRequestTime > 0 {
		c.armRequestTimer()
	}
	if c.maxIdleTimer != nil {
		c.maxIdleTimer.Reset(c.opts.IdleTimeout)
	}

	return s
}

// armRequestTimer makes sure maxRequestTimer will fire no later than the
// soonest deadline among open streams. It never spawns a goroutine: the
// dispatch loop's own select reaps expired streams when the timer fires,
// so one shared *time.Timer safely covers every concurrent stream.
func (c *conn) armRequestTimer() {
	if c.maxRequestTimer == nil {
		return
	}
	// Every other open stream was created earlier, so the timer is
	// already pending for a deadline no later than this stream's;
	// resetting it here would push that earlier deadline back.
	if len(c.streams) > 1 {
		return
	}
	c.maxRequestTimer.Reset(c.opts.MaxRequestTime)
}

// reapExpiredStreams runs whenever maxRequestTimer fires: it resets every
// stream whose MaxRequestTime deadline has passed and re-arms the timer
// for the next-soonest remaining deadline.
func (c *conn) reapExpiredStreams() {
	if c.opts.MaxRequestTime <= 0 {
		return
	}

	now := time.Now()
	var next time.Duration

	for id, s := range c.streams {
		deadline := s.createdAt.Add(c.opts.MaxRequestTime)
		if !now.Before(deadline) {
			c.writeReset(id, Cancel)
			s.state = StateClosed
			c.closeStream(s)
			continue
		}
		if remaining := deadline.Sub(now); next == 0 || remaining < next {
			next = remaining
		}
	}

	if next > 0 {
		c.maxRequestTimer.Reset(next)
	}
}

func (c *conn) closeStream(s *Stream) {
	delete(c.streams, s.id)
	c.closedIDs[s.id] = struct{}{}
	c.openCount--
	if s.flow != nil {
		s.flow.Close()
	}
	releaseStream(s)
}

// processFrame applies fr to stream s: advances the HTTP/2 stream state
// machine and, for HEADERS/CONTINUATION/DATA, assembles the request.
func (c *conn) processFrame(s *Stream, fr *FrameHeader) error {
	switch fr.Type() {
	case FrameHeaders:
		return c.handleHeaders(s, fr)

	case FrameContinuation:
		return c.handleContinuation(s, fr)

	case FrameData:
		return c.handleData(s, fr)

	case FrameResetStream:
		rst := fr.Body().(*RstStream)
		if s.state == StateIdle {
			return NewConnError(ProtocolError, "RST_STREAM on idle stream")
		}
		if !c.limiters.RstStream.Allow() {
			return NewConnError(EnhanceYourCalm, "RST_STREAM flood")
		}
		if s.state != StateHalfClosedRemote && s.state != StateClosed && time.Since(s.createdAt) < c.opts.RapidResetThreshold {
			if c.rapidReset.RecordClientReset() {
				return NewConnError(EnhanceYourCalm, "rapid reset")
			}
		}
		_ = rst
		return s.transition(eventRecvRstStream)

	case FramePriority:
		if !c.limiters.Priority.Allow() {
			return NewConnError(EnhanceYourCalm, "PRIORITY flood")
		}
		p := fr.Body().(*Priority)
		if p.Stream() == s.id {
			return NewStreamError(s.id, ProtocolError, "stream depends on itself")
		}
		return nil

	case FrameWindowUpdate:
		if s.state == StateIdle {
			return NewConnError(ProtocolError, "WINDOW_UPDATE on idle stream")
		}
		wu := fr.Body().(*WindowUpdate)
		if wu.Increment() == 0 {
			return NewStreamError(s.id, ProtocolError, "WINDOW_UPDATE increment of 0")
		}
		return s.flow.AddSend(int32(wu.Increment()))

	default:
		return nil
	}
}

func (c *conn) handleHeaders(s *Stream, fr *FrameHeader) error {
	if s.headersFinished && s.state != StateHalfClosedRemote {
		// a second HEADERS block on an already-open stream is trailers;
		// handled the same way as the first via appendHeaderBlock below,
		// but a state machine violation surfaces first.
	} else if s.state != StateIdle && s.state != StateOpen {
		return NewStreamError(s.id, StreamClosed, "HEADERS on a finished stream")
	}

	h := fr.Body().(*Headers)

	if err := s.transition(headersEvent(h.EndStream())); err != nil {
		return err
	}

	if err := c.appendHeaderBlock(s, h.Headers()); err != nil {
		return err
	}

	if fr.Flags().Has(FlagEndHeaders) {
		return c.finishHeadersAndMaybeDispatch(s)
	}

	return nil
}

func (c *conn) handleContinuation(s *Stream, fr *FrameHeader) error {
	cont := fr.Body().(*Continuation)

	if s.headerFrames == 0 {
		return NewConnError(ProtocolError, "CONTINUATION without HEADERS")
	}

	// A run of empty, non-terminal CONTINUATION frames carries no header
	// bytes at all, so it barely moves appendHeaderBlock's byte-total
	// check and would otherwise coast all the way to the frame-count
	// budget doing nothing useful. Give it a quarter of that budget
	// instead of the full amount.
	if cont.Empty() && !fr.Flags().Has(FlagEndHeaders) {
		s.emptyHeaderFrames++
		if limit := c.opts.MaxContinuationFrames / 4; limit > 0 && s.emptyHeaderFrames > limit {
			return NewConnError(EnhanceYourCalm, "too many empty CONTINUATION frames")
		}
	}

	if err := c.appendHeaderBlock(s, cont.Headers()); err != nil {
		return err
	}

	if fr.Flags().Has(FlagEndHeaders) {
		return c.finishHeadersAndMaybeDispatch(s)
	}

	return nil
}

// appendHeaderBlock accumulates one HEADERS/CONTINUATION fragment,
// enforcing the CONTINUATION-flood caps: a client that never sets
// END_HEADERS and keeps sending empty/near-empty CONTINUATION frames
// forever is rejected once any of the three budgets is exceeded.
func (c *conn) appendHeaderBlock(s *Stream, b []byte) error {
	if s.headerFrames == 0 {
		s.headerStart = time.Now()
	}
	s.headerFrames++
	s.headerBlockSize += len(b)

	if s.headerFrames > c.opts.MaxContinuationFrames {
		return NewConnError(EnhanceYourCalm, "too many HEADERS/CONTINUATION frames")
	}
	if s.headerBlockSize > c.opts.MaxContinuationBytes {
		return NewConnError(EnhanceYourCalm, "header block too large")
	}
	if c.opts.MaxContinuationTime > 0 && time.Since(s.headerStart) > c.opts.MaxContinuationTime {
		return NewConnError(EnhanceYourCalm, "header block assembly too slow")
	}

	s.rawBlock = append(s.rawBlock, b...)
	return nil
}

func (c *conn) finishHeadersAndMaybeDispatch(s *Stream) error {
	wasTrailers := s.headersFinished

	if err := c.decodeHeaderBlock(s, wasTrailers); err != nil {
		return err
	}

	s.headerFrames = 0
	s.headerBlockSize = 0
	s.headersFinished = true

	if s.state == StateHalfClosedRemote || s.state == StateClosed {
		c.dispatchRequest(s)
	}

	return nil
}

func (c *conn) decodeHeaderBlock(s *Stream, trailers bool) error {
	b := s.rawBlock
	defer func() { s.rawBlock = s.rawBlock[:0] }()

	c.dec.beginHeaderList()

	for len(b) > 0 {
		hf := AcquireHeaderField()
		n, err := c.dec.Next(hf, b)
		if err != nil {
			ReleaseHeaderField(hf)
			return NewConnError(CompressionError, err.Error())
		}
		b = b[n:]

		if hf.Empty() {
			ReleaseHeaderField(hf)
			continue
		}

		if err := validateField(hf); err != nil {
			ReleaseHeaderField(hf)
			return NewStreamError(s.id, ProtocolError, err.Error())
		}

		if err := c.assignField(s, hf, trailers); err != nil {
			ReleaseHeaderField(hf)
			return err
		}
		ReleaseHeaderField(hf)
	}

	return nil
}

func (c *conn) assignField(s *Stream, hf *HeaderField, trailers bool) error {
	k := hf.KeyBytes()

	if hf.IsPseudo() {
		if trailers {
			return NewStreamError(s.id, ProtocolError, "pseudo-header in trailers")
		}
		if len(s.req.Headers) > 0 {
			return NewStreamError(s.id, ProtocolError, "pseudo-header after regular header field")
		}
		switch string(k) {
		case ":method":
			s.req.Method = hf.Value()
		case ":scheme":
			s.req.Scheme = hf.Value()
		case ":authority":
			s.req.Authority = hf.Value()
		case ":path":
			s.req.Path = hf.Value()
		default:
			return NewStreamError(s.id, ProtocolError, "unknown pseudo-header")
		}
		return nil
	}

	if bytes.Equal(k, []byte("content-length")) {
		n, err := validateContentLength(hf.Value())
		if err != nil {
			return NewStreamError(s.id, ProtocolError, err.Error())
		}
		if s.req.HasContentLen && s.req.ContentLength != n {
			return NewStreamError(s.id, ProtocolError, "conflicting content-length values")
		}
		s.req.ContentLength = n
		s.req.HasContentLen = true
	}

	field := &HeaderField{}
	hf.CopyTo(field)

	if trailers {
		s.req.Trailers = append(s.req.Trailers, field)
	} else {
		s.req.Headers = append(s.req.Headers, field)
	}

	return nil
}

func headersEvent(endStream bool) streamEvent {
	if endStream {
		return eventRecvHeadersEndStream
	}
	return eventRecvHeaders
}

func (c *conn) handleData(s *Stream, fr *FrameHeader) error {
	if !s.headersFinished {
		return NewConnError(ProtocolError, "DATA before headers finished")
	}
	if s.state != StateOpen && s.state != StateHalfClosedLocal {
		return NewStreamError(s.id, StreamClosed, "DATA on a finished stream")
	}

	d := fr.Body().(*Data)
	n := int64(len(d.Data()))

	if inc := c.flow.ConsumeRecv(n); inc > 0 {
		c.sendWindowUpdate(0, inc)
	}
	if inc := s.flow.ConsumeRecv(n); inc > 0 {
		c.sendWindowUpdate(s.id, inc)
	}

	s.req.Body = append(s.req.Body, d.Data()...)

	if d.EndStream() {
		if s.req.HasContentLen && int64(len(s.req.Body)) != s.req.ContentLength {
			return NewStreamError(s.id, ProtocolError, "content-length does not match received body size")
		}
		return s.transition(eventRecvEndStream)
	}
	return nil
}

func (c *conn) sendWindowUpdate(streamID uint32, inc int32) {
	fr := AcquireFrameHeader()
	fr.SetStream(streamID)
	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(uint32(inc))
	fr.SetBody(wu)
	c.writer <- fr
}

// dispatchRequest hands a fully-assembled request to the Handler on its
// own goroutine, so a slow handler never blocks the dispatch loop or
// other streams' HPACK processing.
func (c *conn) dispatchRequest(s *Stream) {
	req := s.req
	sink := &streamSink{c: c, id: s.id, flow: s.flow}

	c.reqWG.Add(1)
	go func() {
		defer c.reqWG.Done()
		defer func() {
			if r := recover(); r != nil {
				c.log.Printf("http2: handler panic on stream %d: %v\n%s", s.id, r, debug.Stack())
				sink.Reset(InternalError)
			}
		}()
		c.h(&req, sink)
	}()
}
