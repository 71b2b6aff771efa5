package http2

import (
	"io"
	"strconv"

	"github.com/valyala/fasthttp"
)

var stringStatus = []byte(":status")

// streamSink is the Handler-facing StreamSink for one stream. Its
// methods run on the Handler's own goroutine (dispatchRequest spawns
// one per request) and enqueue frames onto the connection's writer
// channel; encoder access is serialized with conn.encMu since multiple
// streams' Handler goroutines may call these methods concurrently.
type streamSink struct {
	c    *conn
	id   uint32
	flow *streamFlowControl
}

func (s *streamSink) SendHeaders(header *fasthttp.ResponseHeader, endStream bool) error {
	fr := AcquireFrameHeader()
	fr.SetStream(s.id)

	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetEndHeaders(true)
	h.SetEndStream(endStream)
	fr.SetBody(h)

	// Queue the block before releasing encMu so header blocks reach the
	// writer in the order their encoder state changes were made.
	s.c.encMu.Lock()
	encodeResponseHeaders(h, s.c.enc, header)
	s.c.writer <- fr
	s.c.encMu.Unlock()

	return nil
}

// encodeResponseHeaders appends :status followed by every response
// header (minus hop-by-hop fields RFC 9113 §8.2.2 forbids on the wire)
// to dst's HPACK-encoded block.
func encodeResponseHeaders(dst *Headers, hp *HPACK, header *fasthttp.ResponseHeader) {
	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	hf.SetKeyBytes(stringStatus)
	hf.SetValue(strconv.Itoa(header.StatusCode()))
	dst.AppendHeaderField(hp, hf, true)

	header.Del("Connection")
	header.Del("Keep-Alive")
	header.Del("Proxy-Connection")
	header.Del("Transfer-Encoding")
	header.Del("Upgrade")

	header.VisitAll(func(k, v []byte) {
		hf.SetBytes(lowercaseHeaderKey(k), v)
		dst.AppendHeaderField(hp, hf, false)
	})
}

func lowercaseHeaderKey(k []byte) []byte {
	out := make([]byte, len(k))
	for i, c := range k {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

const maxDataFragment = 1 << 14

func (s *streamSink) SendData(p []byte, endStream bool) error {
	return s.sendDataFrame(p, endStream)
}

// sendDataFrame writes p as one or more DATA frames. Each wire frame is
// capped to min(the connection's send window, the stream's send
// window, the peer's SETTINGS_MAX_FRAME_SIZE); when none of that room
// is available it parks on awaitSendWindow until a WINDOW_UPDATE frees
// some, the stream closes, or the connection does. endStream is only
// set on the last frame written.
func (s *streamSink) sendDataFrame(chunk []byte, endStream bool) error {
	if len(chunk) == 0 {
		return s.writeDataFrame(nil, endStream)
	}

	for len(chunk) > 0 {
		n, err := s.awaitSendWindow(int64(len(chunk)))
		if err != nil {
			return err
		}

		last := n == int64(len(chunk))
		if err := s.writeDataFrame(chunk[:n], last && endStream); err != nil {
			return err
		}
		chunk = chunk[n:]
	}
	return nil
}

// awaitSendWindow reserves up to want bytes of send window, blocking
// until the connection and stream windows both have room. It never
// reserves more than the peer's negotiated MAX_FRAME_SIZE, so the
// caller always gets a wire-frame-sized slice back.
func (s *streamSink) awaitSendWindow(want int64) (int64, error) {
	if max := int64(s.c.peerSettings.MaxFrameSize()); want > max {
		want = max
	}

	for {
		n := want
		if avail := s.c.flow.SendAvailable(); n > avail {
			n = avail
		}
		if avail := s.flow.SendAvailable(); n > avail {
			n = avail
		}

		if n > 0 {
			if s.c.flow.ConsumeSend(n) {
				if s.flow.ConsumeSend(n) {
					return n, nil
				}
				// The stream's window moved under us between the two
				// checks; give the connection's share back and retry.
				_ = s.c.flow.AddSend(int32(n))
			}
		}

		select {
		case <-s.c.flow.WaitSend():
		case <-s.flow.WaitSend():
		case <-s.flow.closed:
			return 0, NewStreamError(s.id, StreamClosed, "stream closed while waiting for a flow-control window")
		case <-s.c.closer:
			return 0, NewConnError(NoError, "connection closed while waiting for a flow-control window")
		}
	}
}

func (s *streamSink) writeDataFrame(chunk []byte, endStream bool) error {
	fr := AcquireFrameHeader()
	fr.SetStream(s.id)

	d := AcquireFrame(FrameData).(*Data)
	d.SetData(chunk)
	d.SetEndStream(endStream)
	fr.SetBody(d)

	s.c.writer <- fr
	return nil
}

func (s *streamSink) SendDataFrom(r io.Reader, endStream bool) error {
	buf := make([]byte, maxDataFragment)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			last := err == io.EOF
			if sendErr := s.sendDataFrame(buf[:n], last && endStream); sendErr != nil {
				return sendErr
			}
		}
		if err == io.EOF {
			if endStream && n == 0 {
				return s.sendDataFrame(nil, true)
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *streamSink) SendTrailers(trailers []*HeaderField) error {
	fr := AcquireFrameHeader()
	fr.SetStream(s.id)

	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetEndHeaders(true)
	h.SetEndStream(true)
	fr.SetBody(h)

	s.c.encMu.Lock()
	for _, t := range trailers {
		h.AppendHeaderField(s.c.enc, t, false)
	}
	s.c.writer <- fr
	s.c.encMu.Unlock()

	return nil
}

func (s *streamSink) Reset(code ErrorCode) error {
	s.c.writeReset(s.id, code)
	return nil
}
