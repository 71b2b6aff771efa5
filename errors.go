package http2

import "fmt"

// ErrorCode is the HTTP/2 error code carried by RST_STREAM and GOAWAY
// frames.
//
// https://tools.ietf.org/html/rfc7540#section-7
type ErrorCode uint32

const (
	NoError ErrorCode = iota
	ProtocolError
	InternalError
	FlowControlError
	SettingsTimeout
	StreamClosed
	FrameSizeError
	RefusedStream
	Cancel
	CompressionError
	ConnectError
	EnhanceYourCalm
	InadequateSecurity
	HTTP11Required
)

func (e ErrorCode) String() string {
	switch e {
	case NoError:
		return "NO_ERROR"
	case ProtocolError:
		return "PROTOCOL_ERROR"
	case InternalError:
		return "INTERNAL_ERROR"
	case FlowControlError:
		return "FLOW_CONTROL_ERROR"
	case SettingsTimeout:
		return "SETTINGS_TIMEOUT"
	case StreamClosed:
		return "STREAM_CLOSED"
	case FrameSizeError:
		return "FRAME_SIZE_ERROR"
	case RefusedStream:
		return "REFUSED_STREAM"
	case Cancel:
		return "CANCEL"
	case CompressionError:
		return "COMPRESSION_ERROR"
	case ConnectError:
		return "CONNECT_ERROR"
	case EnhanceYourCalm:
		return "ENHANCE_YOUR_CALM"
	case InadequateSecurity:
		return "INADEQUATE_SECURITY"
	case HTTP11Required:
		return "HTTP_1_1_REQUIRED"
	default:
		return fmt.Sprintf("UNKNOWN_ERROR_CODE(%d)", uint32(e))
	}
}

// ConnError is a connection-level error: the engine sends GOAWAY with
// Code and closes the connection. No further frames are processed.
type ConnError struct {
	Code   ErrorCode
	Reason string
}

func NewConnError(code ErrorCode, reason string) *ConnError {
	return &ConnError{Code: code, Reason: reason}
}

func (e *ConnError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("http2: connection error: %s", e.Code)
	}
	return fmt.Sprintf("http2: connection error: %s: %s", e.Code, e.Reason)
}

// StreamError is a stream-level error: the engine sends RST_STREAM with
// Code for StreamID and the connection continues serving other streams.
type StreamError struct {
	StreamID uint32
	Code     ErrorCode
	Reason   string
}

func NewStreamError(streamID uint32, code ErrorCode, reason string) *StreamError {
	return &StreamError{StreamID: streamID, Code: code, Reason: reason}
}

func (e *StreamError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("http2: stream %d error: %s", e.StreamID, e.Code)
	}
	return fmt.Sprintf("http2: stream %d error: %s: %s", e.StreamID, e.Code, e.Reason)
}

// NewError builds a plain error carrying code, used where neither a
// connection nor a stream context is implied by the call site (e.g.
// RstStream.Error()).
func NewError(code ErrorCode, reason string) error {
	if reason == "" {
		return fmt.Errorf("http2: %s", code)
	}
	return fmt.Errorf("http2: %s: %s", code, reason)
}

// Sentinel frame-codec errors. These never carry an ErrorCode of their
// own; callers translate them to ProtocolError/FrameSizeError as the
// context requires.
var (
	ErrMissingBytes     = fmt.Errorf("http2: missing bytes in payload")
	ErrPayloadExceeds   = fmt.Errorf("http2: payload exceeds negotiated max frame size")
	ErrUnknowFrameType  = fmt.Errorf("http2: unknown frame type")
	ErrBadPreface       = fmt.Errorf("http2: bad connection preface")
	ErrZeroPayload      = fmt.Errorf("http2: zero length payload")
	ErrInvalidStreamID  = fmt.Errorf("http2: invalid stream id")
	ErrInvalidState      = fmt.Errorf("http2: frame not valid in current stream state")
	ErrContinuationFlood = fmt.Errorf("http2: excessive CONTINUATION frames")
	ErrFrameSizeError    = fmt.Errorf("http2: frame payload has an invalid size for its type")
	ErrIntegerOverflow   = fmt.Errorf("http2: HPACK integer overflows 32 bits")
	ErrHuffmanPadding    = fmt.Errorf("http2: invalid Huffman EOS padding")
	ErrHeaderListTooLarge = fmt.Errorf("http2: decompressed header list exceeds configured limit")
	ErrStreamClosed       = fmt.Errorf("http2: frame received for closed stream")
)
