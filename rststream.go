package http2

import (
	"github.com/relaywire/http2/internal/wire"
)

const FrameResetStream FrameType = 0x3

var _ Frame = &RstStream{}

// RstStream abruptly terminates a stream, carrying the ErrorCode the
// sender is terminating it for.
//
// https://tools.ietf.org/html/rfc7540#section-6.4
type RstStream struct {
	code ErrorCode
}

func (rst *RstStream) Type() FrameType {
	return FrameResetStream
}

func (rst *RstStream) Code() ErrorCode {
	return rst.code
}

func (rst *RstStream) SetCode(code ErrorCode) {
	rst.code = code
}

func (rst *RstStream) Reset() {
	rst.code = 0
}

func (rst *RstStream) CopyTo(r *RstStream) {
	r.code = rst.code
}

// Error returns the carried ErrorCode as an error value.
func (rst *RstStream) Error() error {
	return NewError(rst.code, "")
}

// Deserialize requires a payload of exactly 4 bytes.
//
// https://tools.ietf.org/html/rfc7540#section-6.4
func (rst *RstStream) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) != 4 {
		return ErrFrameSizeError
	}

	rst.code = ErrorCode(wire.BytesToUint32(fr.payload))

	return nil
}

func (rst *RstStream) Serialize(fr *FrameHeader) {
	fr.payload = wire.AppendUint32Bytes(fr.payload[:0], uint32(rst.code))
	fr.length = 4
}
