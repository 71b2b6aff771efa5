package http2

import (
	"io"

	"github.com/valyala/fasthttp"
)

// Handler processes one complete HTTP/2 request. It is called from a
// per-stream goroutine once the stream's HEADERS (+ CONTINUATION) block
// and, if present, its DATA frames have been fully assembled. Handler
// must not retain req or sink past return.
type Handler func(req *StreamRequest, sink StreamSink)

// StreamSink is the engine-side handle a Handler uses to produce a
// response on its stream. Every method is safe to call from the
// Handler's goroutine only; the engine serializes the resulting frames
// onto the connection's single write loop.
type StreamSink interface {
	// SendHeaders writes the response HEADERS frame. endStream marks
	// this as the complete response (no DATA will follow).
	SendHeaders(header *fasthttp.ResponseHeader, endStream bool) error

	// SendData writes p as one or more DATA frames, fragmented to the
	// peer's negotiated SETTINGS_MAX_FRAME_SIZE and paced by the
	// stream/connection flow-control windows.
	SendData(p []byte, endStream bool) error

	// SendDataFrom streams r's contents as DATA frames without
	// buffering the whole body in memory, for handlers that produce a
	// response body incrementally.
	SendDataFrom(r io.Reader, endStream bool) error

	// SendTrailers writes a HEADERS frame carrying trailers and ends
	// the stream.
	SendTrailers(trailers []*HeaderField) error

	// Reset abandons the stream with the given error code, sending
	// RST_STREAM.
	Reset(code ErrorCode) error
}
