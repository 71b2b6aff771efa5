package http2

import (
	"bufio"
	"io"
	"sync"

	"github.com/relaywire/http2/internal/wire"
)

const (
	// FrameHeaderLen is the fixed 9-byte size of a frame header.
	//
	// http://httpwg.org/specs/rfc7540.html#FrameHeader
	FrameHeaderLen = 9

	// defaultMaxLen is the MAX_FRAME_SIZE a connection assumes before
	// any SETTINGS frame negotiates a larger one.
	//
	// https://httpwg.org/specs/rfc7540.html#SETTINGS_MAX_FRAME_SIZE
	defaultMaxLen = 1 << 14

	FlagAck        FrameFlags = 0x1
	FlagEndStream  FrameFlags = 0x1
	FlagEndHeaders FrameFlags = 0x4
	FlagPadded     FrameFlags = 0x8
	FlagPriority   FrameFlags = 0x20
)

var frameHeaderPool = sync.Pool{
	New: func() interface{} { return &FrameHeader{} },
}

// FrameHeader is the 9-byte header plus payload of an HTTP/2 frame.
//
// A FrameHeader must not be used concurrently from multiple goroutines.
//
// https://tools.ietf.org/html/rfc7540#section-4.1
type FrameHeader struct {
	length int
	kind   FrameType
	flags  FrameFlags
	stream uint32

	maxLen uint32

	rawHeader [FrameHeaderLen]byte
	payload   []byte

	fr Frame
}

// AcquireFrameHeader gets a FrameHeader from the pool.
func AcquireFrameHeader() *FrameHeader {
	frh := frameHeaderPool.Get().(*FrameHeader)
	frh.Reset()
	return frh
}

// ReleaseFrameHeader releases frh's body, if any, and returns frh to the
// pool.
func ReleaseFrameHeader(frh *FrameHeader) {
	ReleaseFrame(frh.fr)
	frh.fr = nil
	frameHeaderPool.Put(frh)
}

// Reset clears frh for reuse.
func (frh *FrameHeader) Reset() {
	frh.kind = 0
	frh.flags = 0
	frh.stream = 0
	frh.length = 0
	frh.maxLen = defaultMaxLen
	frh.fr = nil
	frh.payload = frh.payload[:0]
}

func (frh *FrameHeader) Type() FrameType   { return frh.kind }
func (frh *FrameHeader) Flags() FrameFlags { return frh.flags }

func (frh *FrameHeader) SetFlags(f FrameFlags) { frh.flags = f }

// Stream returns the stream id of the frame.
func (frh *FrameHeader) Stream() uint32 { return frh.stream }

// SetStream sets the stream id on the frame.
func (frh *FrameHeader) SetStream(stream uint32) {
	frh.stream = stream & (1<<31 - 1)
}

// Len returns the payload length as last parsed or set.
func (frh *FrameHeader) Len() int { return frh.length }

// MaxLen returns the MAX_FRAME_SIZE this header enforces, or 0 if
// unbounded.
func (frh *FrameHeader) MaxLen() uint32 { return frh.maxLen }

// SetMaxLen sets the MAX_FRAME_SIZE enforced on the next read or write.
func (frh *FrameHeader) SetMaxLen(max uint32) { frh.maxLen = max }

func (frh *FrameHeader) parseValues(header []byte) {
	frh.length = int(wire.BytesToUint24(header[:3]))
	frh.kind = FrameType(header[3])
	frh.flags = FrameFlags(header[4])
	frh.stream = wire.BytesToUint32(header[5:]) & (1<<31 - 1)
}

func (frh *FrameHeader) buildHeader(header []byte) {
	wire.Uint24ToBytes(header[:3], uint32(frh.length))
	header[3] = byte(frh.kind)
	header[4] = byte(frh.flags)
	wire.Uint32ToBytes(header[5:], frh.stream)
}

// ReadFrameFrom reads one frame (header + body) enforcing the default
// MAX_FRAME_SIZE.
func ReadFrameFrom(br *bufio.Reader) (*FrameHeader, error) {
	return ReadFrameFromWithSize(br, defaultMaxLen)
}

// ReadFrameFromWithSize reads one frame (header + body), rejecting a
// payload larger than max with ErrPayloadExceeds (max == 0 disables the
// check).
func ReadFrameFromWithSize(br *bufio.Reader, max uint32) (*FrameHeader, error) {
	frh := AcquireFrameHeader()
	frh.maxLen = max

	_, err := frh.readFrom(br)
	if err != nil {
		ReleaseFrameHeader(frh)
		return nil, err
	}

	return frh, nil
}

// readFrom parses the header and, for known frame kinds, dispatches to
// the matching Frame's Deserialize. Kinds beyond FrameContinuation are
// read into an UnknownFrame and otherwise ignored, per RFC 7540 §4.1's
// extensibility rule.
func (frh *FrameHeader) readFrom(br *bufio.Reader) (int64, error) {
	header, err := br.Peek(FrameHeaderLen)
	if err != nil {
		return 0, err
	}
	br.Discard(FrameHeaderLen)

	rn := int64(FrameHeaderLen)

	frh.parseValues(header)
	if err := frh.checkLen(); err != nil {
		io.CopyN(io.Discard, br, int64(frh.length))
		return rn, err
	}

	frh.fr = AcquireFrame(frh.kind)

	if frh.length > 0 {
		frh.payload = wire.Resize(frh.payload, frh.length)

		n, err := io.ReadFull(br, frh.payload)
		rn += int64(n)
		if err != nil {
			return rn, err
		}
	}

	return rn, frh.fr.Deserialize(frh)
}

// WriteTo serializes the body and writes header and payload to w.
func (frh *FrameHeader) WriteTo(w *bufio.Writer) (int64, error) {
	frh.fr.Serialize(frh)

	frh.length = len(frh.payload)
	frh.buildHeader(frh.rawHeader[:])

	var wb int64

	n, err := w.Write(frh.rawHeader[:])
	wb += int64(n)
	if err != nil {
		return wb, err
	}

	n, err = w.Write(frh.payload)
	wb += int64(n)

	return wb, err
}

// Body returns the frame's typed payload.
func (frh *FrameHeader) Body() Frame { return frh.fr }

// SetBody attaches fr as the payload, setting the header's type from it.
func (frh *FrameHeader) SetBody(fr Frame) {
	if fr == nil {
		panic("http2: frame body cannot be nil")
	}
	frh.kind = fr.Type()
	frh.fr = fr
}

func (frh *FrameHeader) setPayload(payload []byte) {
	frh.payload = append(frh.payload[:0], payload...)
}

func (frh *FrameHeader) checkLen() error {
	if frh.maxLen != 0 && frh.length > int(frh.maxLen) {
		return ErrPayloadExceeds
	}
	return nil
}

func (frh *FrameHeader) appendCheckingLen(dst, src []byte) ([]byte, error) {
	if frh.maxLen > 0 && uint32(len(src)+len(dst)) > frh.maxLen {
		return dst, ErrPayloadExceeds
	}

	dst = append(dst, src...)
	frh.length = len(dst)

	return dst, nil
}
