package http2

import (
	"bufio"
	"errors"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

type connState int32

const (
	connStateOpen connState = iota
	connStateClosing
	connStateClosed
)

// conn is one HTTP/2 server connection: one goroutine each for the read
// loop, the stream/dispatch loop and the write loop, joined by the
// reader/writer channels below. The HPACK decoder is only ever touched
// from the dispatch loop. The encoder is shared by the Handler
// goroutines and the read loop (which resizes it on SETTINGS) under
// encMu, and each header block is queued on c.writer before encMu is
// released, so both tables' state changes stay strictly ordered the way
// RFC 7541 requires.
type conn struct {
	nc net.Conn
	h  Handler

	opts *Options
	log  Logger

	br *bufio.Reader
	bw *bufio.Writer

	enc   *HPACK // used to encode outgoing response headers
	encMu sync.Mutex // serializes enc across stream handler goroutines and the read loop
	dec   *HPACK // used to decode incoming request headers; touched only by the dispatch loop

	flow *connFlowControl

	localSettings Settings
	peerSettings  Settings

	// lastStreamID is the highest-numbered stream the client has
	// opened. RFC 7540 §5.1.1: a new stream id implicitly closes every
	// idle stream below it.
	lastStreamID uint32

	streams    map[uint32]*Stream
	openCount  int
	closedIDs  map[uint32]struct{}

	state    int32 // connState, accessed atomically
	closeRef uint32

	rapidReset *rapidResetGuard
	limiters   *connRateLimiters

	writer chan *FrameHeader
	reader chan *FrameHeader
	closer chan struct{}

	pingTimer       *time.Timer
	maxRequestTimer *time.Timer
	maxIdleTimer    *time.Timer

	// loopWG tracks the write and dispatch loop goroutines; Serve waits
	// on it before tearing down. reqWG tracks in-flight per-request
	// Handler goroutines spawned by dispatchRequest — c.writer must not
	// be closed until every one of those has stopped sending to it.
	loopWG sync.WaitGroup
	reqWG  sync.WaitGroup
}

func newConn(nc net.Conn, h Handler, opts *Options) *conn {
	if opts == nil {
		opts = NewOptions()
	}

	c := &conn{
		nc:   nc,
		h:    h,
		opts: opts,
		log:  opts.Logger,

		br: bufio.NewReaderSize(nc, 1<<16),
		bw: bufio.NewWriterSize(nc, 1<<16),

		enc: AcquireHPack(),
		dec: AcquireHPack(),

		streams:   make(map[uint32]*Stream),
		closedIDs: make(map[uint32]struct{}),

		rapidReset: newRapidResetGuard(opts.RapidResetWindow, opts.RapidResetMaxResets),
		limiters:   newConnRateLimiters(opts),

		writer: make(chan *FrameHeader, 16),
		reader: make(chan *FrameHeader, 16),
		closer: make(chan struct{}),
	}
	if c.log == nil {
		c.log = nopLogger{}
	}

	c.localSettings.SetMaxConcurrentStreams(opts.MaxConcurrentStreams)
	c.localSettings.SetInitialWindowSize(opts.InitialWindowSize)
	c.localSettings.SetMaxFrameSize(opts.MaxFrameSize)
	c.localSettings.SetHeaderTableSize(opts.HeaderTableSize)
	c.localSettings.SetEnablePush(opts.EnablePush)
	if opts.MaxHeaderListSize > 0 {
		c.localSettings.SetMaxHeaderListSize(opts.MaxHeaderListSize)
	}

	c.dec.SetMaxTableSize(opts.HeaderTableSize)
	c.dec.MaxHeaderListSize = opts.MaxHeaderListSize

	c.flow = newConnFlowControl(int32(opts.InitialWindowSize))
	c.flow.strategy = opts.FlowControlStrategy

	return c
}

// Serve drives the connection: the preface handshake, then the read,
// dispatch and write loops until the connection closes.
func (c *conn) Serve() error {
	defer func() {
		if r := recover(); r != nil {
			c.log.Printf("http2: panic serving %s: %v\n%s", c.nc.RemoteAddr(), r, debug.Stack())
		}
	}()

	if err := readPreface(c.br); err != nil {
		return err
	}
	if err := writeServerPreface(c.bw, &c.localSettings); err != nil {
		return err
	}

	c.maxRequestTimer = time.NewTimer(time.Hour)
	c.maxRequestTimer.Stop()

	if c.opts.IdleTimeout > 0 {
		c.maxIdleTimer = time.AfterFunc(c.opts.IdleTimeout, c.closeIdle)
	}
	if c.opts.PingInterval > 0 {
		c.pingTimer = time.AfterFunc(c.opts.PingInterval, c.sendPingAndReschedule)
	}

	c.loopWG.Add(2)
	go func() {
		defer c.loopWG.Done()
		defer c.nc.Close()
		c.writeLoop()
	}()
	go func() {
		defer c.loopWG.Done()
		c.dispatchLoop()
		if c.pingTimer != nil {
			c.pingTimer.Stop()
		}
		// Every Handler goroutine dispatchLoop spawned must finish
		// sending before the write channel is closed out from under it.
		c.reqWG.Wait()
		close(c.writer)
	}()

	err := c.readLoop()
	if errors.Is(err, io.EOF) {
		err = nil
	}

	close(c.reader)
	c.loopWG.Wait()
	c.teardown()

	return err
}

func (c *conn) teardown() {
	if c.pingTimer != nil {
		c.pingTimer.Stop()
	}
	if c.maxIdleTimer != nil {
		c.maxIdleTimer.Stop()
	}
	if c.maxRequestTimer != nil {
		c.maxRequestTimer.Stop()
	}
	ReleaseHPack(c.enc)
	ReleaseHPack(c.dec)
}

func (c *conn) closeIdle() {
	c.writeGoAway(0, NoError, "connection idle")
	select {
	case <-c.closer:
	default:
		close(c.closer)
	}
}

func (c *conn) sendPingAndReschedule() {
	fr := AcquireFrameHeader()
	p := AcquireFrame(FramePing).(*Ping)
	p.SetData([]byte("http2ping"))
	fr.SetBody(p)

	select {
	case c.writer <- fr:
	default:
		ReleaseFrameHeader(fr)
	}

	if c.pingTimer != nil {
		c.pingTimer.Reset(c.opts.PingInterval)
	}
}

func (c *conn) writeReset(streamID uint32, code ErrorCode) {
	fr := AcquireFrameHeader()
	fr.SetStream(streamID)

	rst := AcquireFrame(FrameResetStream).(*RstStream)
	rst.SetCode(code)
	fr.SetBody(rst)

	c.writer <- fr
}

func (c *conn) writeGoAway(lastStream uint32, code ErrorCode, reason string) {
	fr := AcquireFrameHeader()

	ga := AcquireFrame(FrameGoAway).(*GoAway)
	if lastStream == 0 {
		lastStream = c.lastStreamID
	}
	ga.SetStream(lastStream)
	ga.SetCode(code)
	ga.SetData([]byte(reason))
	fr.SetBody(ga)

	c.writer <- fr

	atomic.StoreUint32(&c.closeRef, c.lastStreamID)
	atomic.StoreInt32(&c.state, int32(connStateClosing))

	c.log.Printf("http2: %s: GOAWAY(stream=%d, code=%s): %s", c.nc.RemoteAddr(), lastStream, code, reason)
}

// writeConnError reports err as the right frame: a ConnError becomes
// GOAWAY, a StreamError becomes RST_STREAM, anything else is treated
// as an internal connection error.
func (c *conn) writeConnError(err error) {
	var ce *ConnError
	var se *StreamError

	switch {
	case errors.As(err, &ce):
		c.writeGoAway(0, ce.Code, ce.Reason)
	case errors.As(err, &se):
		c.writeReset(se.StreamID, se.Code)
	default:
		c.writeGoAway(0, InternalError, err.Error())
	}
}
