package http2

import "github.com/relaywire/http2/internal/wire"

const FrameSettings FrameType = 0x4

var _ Frame = &Settings{}

// Settings identifiers of RFC 7540 §6.5.2. RFC 9113's
// SETTINGS_NO_RFC7540_PRIORITIES has no constant here; like any other
// unknown identifier it is ignored on receipt (this module has no
// priority tree to disable).
const (
	SettingsHeaderTableSize      uint16 = 0x1
	SettingsEnablePush           uint16 = 0x2
	SettingsMaxConcurrentStreams uint16 = 0x3
	SettingsInitialWindowSize    uint16 = 0x4
	SettingsMaxFrameSize         uint16 = 0x5
	SettingsMaxHeaderListSize    uint16 = 0x6
)

// Default values assumed until a SETTINGS frame overrides them. Most are
// the initial values of RFC 7540 §6.5.2; DefaultEnablePush (RFC: 1) and
// DefaultMaxConcurrentStreams (RFC: unlimited) are this module's own.
const (
	DefaultHeaderTableSize      = 4096
	// DefaultEnablePush is false: this server never initiates server
	// push and advertises that up front rather than relying on a client
	// to ignore pushed streams it never asked for.
	DefaultEnablePush           = false
	DefaultMaxConcurrentStreams = 100
	DefaultWindowSize           = 65535
	DefaultMaxFrameSize         = 1 << 14
	DefaultMaxHeaderListSize    = 0 // 0 == unlimited
)

const maxWindowSize = 1<<31 - 1

// Settings is a FrameSettings payload: an ordered sequence of (id,
// value) pairs. Decode applies last-value-wins for duplicate ids, as
// RFC 7540 §6.5.3 note 3 permits.
type Settings struct {
	ack bool

	headerTableSize      uint32
	enablePush           bool
	maxConcurrentStreams uint32
	initialWindowSize    uint32
	maxFrameSize         uint32
	maxHeaderListSize    uint32

	hasHeaderTableSize      bool
	hasEnablePush           bool
	hasMaxConcurrentStreams bool
	hasInitialWindowSize    bool
	hasMaxFrameSize         bool
	hasMaxHeaderListSize    bool
}

func (st *Settings) Type() FrameType { return FrameSettings }

func (st *Settings) Reset() {
	*st = Settings{}
}

func (st *Settings) CopyTo(o *Settings) { *o = *st }

func (st *Settings) Ack() bool        { return st.ack }
func (st *Settings) SetAck(ack bool)  { st.ack = ack }

func (st *Settings) HeaderTableSize() uint32 {
	if st.hasHeaderTableSize {
		return st.headerTableSize
	}
	return DefaultHeaderTableSize
}

func (st *Settings) SetHeaderTableSize(n uint32) {
	st.headerTableSize = n
	st.hasHeaderTableSize = true
}

func (st *Settings) EnablePush() bool {
	if st.hasEnablePush {
		return st.enablePush
	}
	return DefaultEnablePush
}

func (st *Settings) SetEnablePush(v bool) {
	st.enablePush = v
	st.hasEnablePush = true
}

func (st *Settings) MaxConcurrentStreams() uint32 {
	if st.hasMaxConcurrentStreams {
		return st.maxConcurrentStreams
	}
	return DefaultMaxConcurrentStreams
}

func (st *Settings) SetMaxConcurrentStreams(n uint32) {
	st.maxConcurrentStreams = n
	st.hasMaxConcurrentStreams = true
}

func (st *Settings) InitialWindowSize() uint32 {
	if st.hasInitialWindowSize {
		return st.initialWindowSize
	}
	return DefaultWindowSize
}

func (st *Settings) SetInitialWindowSize(n uint32) {
	st.initialWindowSize = n
	st.hasInitialWindowSize = true
}

func (st *Settings) MaxFrameSize() uint32 {
	if st.hasMaxFrameSize {
		return st.maxFrameSize
	}
	return DefaultMaxFrameSize
}

func (st *Settings) SetMaxFrameSize(n uint32) {
	st.maxFrameSize = n
	st.hasMaxFrameSize = true
}

func (st *Settings) MaxHeaderListSize() uint32 {
	if st.hasMaxHeaderListSize {
		return st.maxHeaderListSize
	}
	return DefaultMaxHeaderListSize
}

func (st *Settings) SetMaxHeaderListSize(n uint32) {
	st.maxHeaderListSize = n
	st.hasMaxHeaderListSize = true
}

// Deserialize decodes the (id, value) pairs. An ACK-flagged frame must
// carry an empty payload per §6.5; a non-empty, non-6-aligned payload
// is a FRAME_SIZE_ERROR.
func (st *Settings) Deserialize(fr *FrameHeader) error {
	st.ack = fr.Flags().Has(FlagAck)

	payload := fr.payload

	if st.ack {
		if len(payload) != 0 {
			return ErrFrameSizeError
		}
		return nil
	}

	if len(payload)%6 != 0 {
		return ErrFrameSizeError
	}

	for i := 0; i+6 <= len(payload); i += 6 {
		id := uint16(payload[i])<<8 | uint16(payload[i+1])
		value := wire.BytesToUint32(payload[i+2 : i+6])

		switch id {
		case SettingsHeaderTableSize:
			st.SetHeaderTableSize(value)
		case SettingsEnablePush:
			if value > 1 {
				return NewConnError(ProtocolError, "invalid SETTINGS_ENABLE_PUSH value")
			}
			st.SetEnablePush(value == 1)
		case SettingsMaxConcurrentStreams:
			st.SetMaxConcurrentStreams(value)
		case SettingsInitialWindowSize:
			if value > maxWindowSize {
				return NewConnError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE exceeds 2^31-1")
			}
			st.SetInitialWindowSize(value)
		case SettingsMaxFrameSize:
			if value < DefaultMaxFrameSize || value > 1<<24-1 {
				return NewConnError(ProtocolError, "invalid SETTINGS_MAX_FRAME_SIZE value")
			}
			st.SetMaxFrameSize(value)
		case SettingsMaxHeaderListSize:
			st.SetMaxHeaderListSize(value)
		default:
			// unknown identifiers are ignored, RFC 7540 §6.5.2
		}
	}

	return nil
}

func (st *Settings) Serialize(fr *FrameHeader) {
	if st.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
		fr.payload = fr.payload[:0]
		return
	}

	payload := fr.payload[:0]
	payload = appendSetting(payload, st.hasHeaderTableSize, SettingsHeaderTableSize, st.headerTableSize)
	if st.hasEnablePush {
		v := uint32(0)
		if st.enablePush {
			v = 1
		}
		payload = appendSetting(payload, true, SettingsEnablePush, v)
	}
	payload = appendSetting(payload, st.hasMaxConcurrentStreams, SettingsMaxConcurrentStreams, st.maxConcurrentStreams)
	payload = appendSetting(payload, st.hasInitialWindowSize, SettingsInitialWindowSize, st.initialWindowSize)
	payload = appendSetting(payload, st.hasMaxFrameSize, SettingsMaxFrameSize, st.maxFrameSize)
	payload = appendSetting(payload, st.hasMaxHeaderListSize, SettingsMaxHeaderListSize, st.maxHeaderListSize)

	fr.payload = payload
}

func appendSetting(dst []byte, present bool, id uint16, value uint32) []byte {
	if !present {
		return dst
	}
	dst = append(dst, byte(id>>8), byte(id))
	return wire.AppendUint32Bytes(dst, value)
}
