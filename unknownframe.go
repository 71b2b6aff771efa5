package http2

var _ Frame = &UnknownFrame{}

// UnknownFrame holds the raw payload of a frame type this module does
// not recognize. RFC 7540 §4.1 requires such frames to be ignored by
// the receiver rather than rejected, so it carries no error behavior of
// its own.
type UnknownFrame struct {
	kind    FrameType
	payload []byte
}

func (u *UnknownFrame) Type() FrameType { return u.kind }

func (u *UnknownFrame) Reset() {
	u.kind = 0
	u.payload = u.payload[:0]
}

func (u *UnknownFrame) Deserialize(fr *FrameHeader) error {
	u.kind = fr.Type()
	u.payload = append(u.payload[:0], fr.payload...)
	return nil
}

func (u *UnknownFrame) Serialize(fr *FrameHeader) {
	fr.setPayload(u.payload)
}
