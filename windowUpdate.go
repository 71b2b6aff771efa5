package http2

import (
	"github.com/relaywire/http2/internal/wire"
)

const FrameWindowUpdate FrameType = 0x8

var _ Frame = &WindowUpdate{}

// WindowUpdate https://tools.ietf.org/html/rfc7540#section-6.9
type WindowUpdate struct {
	increment uint32
}

func (wu *WindowUpdate) Type() FrameType {
	return FrameWindowUpdate
}

func (wu *WindowUpdate) Reset() {
	wu.increment = 0
}

func (wu *WindowUpdate) CopyTo(w *WindowUpdate) {
	w.increment = wu.increment
}

func (wu *WindowUpdate) Increment() uint32 {
	return wu.increment
}

func (wu *WindowUpdate) SetIncrement(increment uint32) {
	wu.increment = increment & (1<<31 - 1)
}

// Deserialize requires a payload of exactly 4 bytes: a reserved bit
// plus a 31-bit increment. A zero increment is left for the caller to
// reject with PROTOCOL_ERROR/FLOW_CONTROL_ERROR per §6.9.
func (wu *WindowUpdate) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) != 4 {
		wu.increment = 0
		return ErrFrameSizeError
	}

	wu.increment = wire.BytesToUint32(fr.payload) & (1<<31 - 1)

	return nil
}

func (wu *WindowUpdate) Serialize(fr *FrameHeader) {
	fr.payload = wire.AppendUint32Bytes(fr.payload[:0], wu.increment)
	fr.length = 4
}
