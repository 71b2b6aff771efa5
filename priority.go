package http2

import (
	"github.com/relaywire/http2/internal/wire"
)

const FramePriority FrameType = 0x2

var _ Frame = &Priority{}

// Priority represents the Priority frame.
//
// https://tools.ietf.org/html/rfc7540#section-6.3
type Priority struct {
	exclusive bool
	stream    uint32
	weight    byte
}

// Exclusive reports whether the dependency is exclusive.
func (pry *Priority) Exclusive() bool { return pry.exclusive }

// SetExclusive sets the exclusive-dependency bit.
func (pry *Priority) SetExclusive(v bool) { pry.exclusive = v }

func (pry *Priority) Type() FrameType {
	return FramePriority
}

// Reset resets priority fields.
func (pry *Priority) Reset() {
	pry.exclusive = false
	pry.stream = 0
	pry.weight = 0
}

func (pry *Priority) CopyTo(p *Priority) {
	p.exclusive = pry.exclusive
	p.stream = pry.stream
	p.weight = pry.weight
}

// Stream returns the Priority frame stream.
func (pry *Priority) Stream() uint32 {
	return pry.stream
}

// SetStream sets the Priority frame stream.
func (pry *Priority) SetStream(stream uint32) {
	pry.stream = stream & (1<<31 - 1)
}

// Weight returns the Priority frame weight.
func (pry *Priority) Weight() byte {
	return pry.weight
}

// SetWeight sets the Priority frame weight.
func (pry *Priority) SetWeight(w byte) {
	pry.weight = w
}

// Deserialize requires a payload of exactly 5 bytes: a 31-bit stream
// dependency (high bit is the exclusive flag) and an 8-bit weight.
//
// https://tools.ietf.org/html/rfc7540#section-6.3
func (pry *Priority) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) != 5 {
		return ErrFrameSizeError
	}

	raw := wire.BytesToUint32(fr.payload)
	pry.exclusive = raw&0x80000000 != 0
	pry.stream = raw & (1<<31 - 1)
	pry.weight = fr.payload[4]

	return nil
}

func (pry *Priority) Serialize(fr *FrameHeader) {
	raw := pry.stream & (1<<31 - 1)
	if pry.exclusive {
		raw |= 0x80000000
	}

	fr.payload = wire.AppendUint32Bytes(fr.payload[:0], raw)
	fr.payload = append(fr.payload, pry.weight)
	fr.length = 5
}
