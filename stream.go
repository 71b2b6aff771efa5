package http2

import (
	"sync"
	"time"
)

// Stream holds the per-stream data named by RFC 7540 §5.1: its state,
// flow-control window, and the header/trailer/body accumulation needed
// to hand a complete request to the external Handler.
type Stream struct {
	id    uint32
	state StreamState

	flow *streamFlowControl

	// headerBlockSize tracks bytes accumulated across HEADERS plus any
	// CONTINUATION frames, checked against the connection's
	// CONTINUATION-flood caps (§4.6) before being handed to HPACK.
	headerBlockSize int
	headerFrames    int
	headerStart     time.Time
	// emptyHeaderFrames counts non-terminal CONTINUATION frames carrying
	// zero header bytes, a cheaper signal than headerBlockSize/headerFrames
	// alone for a client trying to stall out a block assembly.
	emptyHeaderFrames int

	// rawBlock accumulates undecoded HPACK bytes across a HEADERS frame
	// and any CONTINUATION frames until END_HEADERS;
	// finishHeadersAndMaybeDispatch drains it through the connection's
	// decoder HPACK.
	rawBlock []byte
	// headersFinished is set once END_HEADERS has been seen and the
	// accumulated block has been decoded into req.Headers/Trailers.
	headersFinished bool

	req    StreamRequest
	weight byte
	parent uint32

	// createdAt supports MaxRequestTime enforcement.
	createdAt time.Time
}

// StreamRequest is the subset of a decoded request a Stream accumulates
// before the Handler runs. Headers and Trailers hold this package's
// HeaderField values; the Handler's one fasthttp type is the
// fasthttp.ResponseHeader it passes to StreamSink.SendHeaders.
type StreamRequest struct {
	Method    string
	Scheme    string
	Authority string
	Path      string
	Headers   []*HeaderField
	Trailers  []*HeaderField
	Body      []byte

	ContentLength int64
	HasContentLen bool
}

var streamPool = sync.Pool{
	New: func() interface{} { return &Stream{} },
}

func acquireStream(id uint32, initialSendWindow, initialRecvWindow int32) *Stream {
	s := streamPool.Get().(*Stream)
	s.reset()
	s.id = id
	s.state = StateIdle
	s.flow = newStreamFlowControl(initialSendWindow, initialRecvWindow)
	s.createdAt = time.Now()
	return s
}

func releaseStream(s *Stream) {
	streamPool.Put(s)
}

func (s *Stream) reset() {
	s.id = 0
	s.state = StateIdle
	s.flow = nil
	s.headerBlockSize = 0
	s.headerFrames = 0
	s.headerStart = time.Time{}
	s.emptyHeaderFrames = 0
	s.rawBlock = s.rawBlock[:0]
	s.headersFinished = false
	s.weight = 0
	s.parent = 0
	s.req = StreamRequest{
		Headers:  s.req.Headers[:0],
		Trailers: s.req.Trailers[:0],
		Body:     s.req.Body[:0],
	}
}

// ID returns the stream's id.
func (s *Stream) ID() uint32 { return s.id }

// State returns the stream's current state.
func (s *Stream) State() StreamState { return s.state }

func (s *Stream) transition(e streamEvent) error {
	next, err := nextState(s.state, e)
	s.state = next
	return err
}
