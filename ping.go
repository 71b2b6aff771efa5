package http2

const FramePing FrameType = 0x6

var _ Frame = &Ping{}

// Ping is an 8-byte opaque roundtrip probe. A PING without ACK must be
// echoed back with ACK set and the same data, unchanged.
//
// https://tools.ietf.org/html/rfc7540#section-6.7
type Ping struct {
	ack  bool
	data [8]byte
}

func (ping *Ping) Type() FrameType {
	return FramePing
}

func (ping *Ping) Reset() {
	ping.ack = false
	ping.data = [8]byte{}
}

func (ping *Ping) CopyTo(p *Ping) {
	p.ack = ping.ack
	p.data = ping.data
}

func (ping *Ping) Write(b []byte) (n int, err error) {
	copy(ping.data[:], b)
	return
}

func (ping *Ping) SetData(b []byte) {
	copy(ping.data[:], b)
}

// Deserialize requires an exact 8-byte payload per RFC 7540 §6.7.
func (ping *Ping) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) != 8 {
		return ErrFrameSizeError
	}
	ping.ack = frh.Flags().Has(FlagAck)
	ping.SetData(frh.payload)
	return nil
}

func (ping *Ping) Data() []byte {
	return ping.data[:]
}

// IsAck reports whether this PING is a reply to an earlier PING.
func (ping *Ping) IsAck() bool {
	return ping.ack
}

// SetAck marks this PING as a reply.
func (ping *Ping) SetAck(ack bool) {
	ping.ack = ack
}

func (ping *Ping) Serialize(fr *FrameHeader) {
	if ping.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
	}

	fr.setPayload(ping.data[:])
}
