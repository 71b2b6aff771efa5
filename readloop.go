package http2

import (
	"runtime/debug"
	"sync/atomic"
)

// readLoop is the connection's single reader: it parses frames off the
// wire and either handles connection-level frames (no stream id)
// directly or hands stream frames to the dispatch loop over c.reader.
// This is the only goroutine that ever touches c.br.
func (c *conn) readLoop() (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Printf("http2: readLoop panic: %v\n%s", r, debug.Stack())
		}
	}()

	for err == nil {
		var fr *FrameHeader
		fr, err = ReadFrameFromWithSize(c.br, c.localSettings.MaxFrameSize())
		if err != nil {
			break
		}

		if fr.Stream() != 0 {
			if e := c.checkStreamFrame(fr); e != nil {
				c.writeConnError(e)
				ReleaseFrameHeader(fr)
				continue
			}
			c.reader <- fr
			continue
		}

		c.handleConnFrame(fr)
		ReleaseFrameHeader(fr)
	}

	return
}

// checkStreamFrame rejects, before it ever reaches the dispatch loop,
// any stream frame the protocol forbids outright: even stream ids (the
// server only ever sees client-initiated odd ids plus its own
// server-pushed even ones, and this engine never pushes), PING/GOAWAY
// carrying a stream id, and PUSH_PROMISE from a client.
func (c *conn) checkStreamFrame(fr *FrameHeader) error {
	if fr.Stream()&1 == 0 {
		return NewConnError(ProtocolError, "invalid stream id")
	}

	switch fr.Type() {
	case FramePing:
		return NewConnError(ProtocolError, "PING frame carrying a stream id")
	case FrameGoAway:
		return NewConnError(ProtocolError, "GOAWAY frame carrying a stream id")
	case FramePushPromise:
		return NewConnError(ProtocolError, "clients cannot send PUSH_PROMISE")
	}

	return nil
}

// handleConnFrame processes a frame with stream id 0: SETTINGS,
// connection WINDOW_UPDATE, PING and GOAWAY.
func (c *conn) handleConnFrame(fr *FrameHeader) {
	switch fr.Type() {
	case FrameSettings:
		st := fr.Body().(*Settings)
		if st.Ack() {
			return
		}
		if !c.limiters.Settings.Allow() {
			c.writeGoAway(0, EnhanceYourCalm, "SETTINGS flood")
			return
		}
		c.applySettings(st)

	case FrameWindowUpdate:
		wu := fr.Body().(*WindowUpdate)
		if wu.Increment() == 0 {
			c.writeGoAway(0, ProtocolError, "WINDOW_UPDATE increment of 0")
			return
		}
		if err := c.flow.AddSend(int32(wu.Increment())); err != nil {
			c.writeConnError(err)
		}

	case FramePing:
		p := fr.Body().(*Ping)
		if p.IsAck() {
			return
		}
		if !c.limiters.Ping.Allow() {
			c.writeGoAway(0, EnhanceYourCalm, "PING flood")
			return
		}
		c.replyPing(p)

	case FrameGoAway:
		ga := fr.Body().(*GoAway)
		if ga.Code() != NoError {
			c.log.Printf("http2: %s: peer sent GOAWAY: %s: %s", c.nc.RemoteAddr(), ga.Code(), ga.Data())
		}
		select {
		case <-c.closer:
		default:
			close(c.closer)
		}

	default:
		// RFC 7540 §4.1: unknown frame types are ignored; UnknownFrame
		// already absorbed the payload in the codec layer.
	}
}

func (c *conn) replyPing(p *Ping) {
	fr := AcquireFrameHeader()
	reply := AcquireFrame(FramePing).(*Ping)
	reply.SetData(p.Data())
	reply.SetAck(true)
	fr.SetBody(reply)
	c.writer <- fr
}

func (c *conn) applySettings(st *Settings) {
	oldInitial := int64(c.peerSettings.InitialWindowSize())
	st.CopyTo(&c.peerSettings)
	c.encMu.Lock()
	c.enc.SetMaxTableSize(c.peerSettings.HeaderTableSize())
	c.encMu.Unlock()

	if delta := int64(c.peerSettings.InitialWindowSize()) - oldInitial; delta != 0 {
		for _, s := range c.streams {
			if s.flow != nil {
				_ = s.flow.SetInitialSend(delta)
			}
		}
	}

	ack := AcquireFrame(FrameSettings).(*Settings)
	ack.SetAck(true)
	fr := AcquireFrameHeader()
	fr.SetBody(ack)
	c.writer <- fr
}

func (c *conn) isClosing() bool {
	return atomic.LoadInt32(&c.state) != int32(connStateOpen)
}
