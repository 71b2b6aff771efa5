package http2

// FrameType is the one-byte type field of a frame header.
//
// https://tools.ietf.org/html/rfc7540#section-11.2
type FrameType uint8

// FrameFlags is the one-byte flags field of a frame header. Individual
// flags are frame-type specific; FlagAck and FlagEndStream share the
// same bit because no frame type defines both.
type FrameFlags uint8

// Has reports whether flag is set in f.
func (f FrameFlags) Has(flag FrameFlags) bool {
	return f&flag == flag
}

// Add returns f with flag set.
func (f FrameFlags) Add(flag FrameFlags) FrameFlags {
	return f | flag
}
