package http2

import "sync"

// Frame is the payload of a frame, addressable independent of its
// 9-byte FrameHeader. Each concrete frame type (Data, Headers, ...)
// implements Frame and is pooled through AcquireFrame/ReleaseFrame.
type Frame interface {
	Type() FrameType
	Reset()
	Deserialize(fr *FrameHeader) error
	Serialize(fr *FrameHeader)
}

var (
	dataPool         = sync.Pool{New: func() interface{} { return &Data{} }}
	headersPool      = sync.Pool{New: func() interface{} { return &Headers{} }}
	priorityPool     = sync.Pool{New: func() interface{} { return &Priority{} }}
	rstStreamPool    = sync.Pool{New: func() interface{} { return &RstStream{} }}
	settingsPool     = sync.Pool{New: func() interface{} { return &Settings{} }}
	pushPromisePool  = sync.Pool{New: func() interface{} { return &PushPromise{} }}
	pingPool         = sync.Pool{New: func() interface{} { return &Ping{} }}
	goAwayPool       = sync.Pool{New: func() interface{} { return &GoAway{} }}
	windowUpdatePool = sync.Pool{New: func() interface{} { return &WindowUpdate{} }}
	continuationPool = sync.Pool{New: func() interface{} { return &Continuation{} }}
	unknownPool      = sync.Pool{New: func() interface{} { return &UnknownFrame{} }}
)

// AcquireFrame returns a pooled, Reset Frame for kind. Unknown kinds
// (including any value above FrameContinuation) get an UnknownFrame,
// which is read and discarded rather than dispatched.
func AcquireFrame(kind FrameType) Frame {
	var fr Frame

	switch kind {
	case FrameData:
		fr = dataPool.Get().(*Data)
	case FrameHeaders:
		fr = headersPool.Get().(*Headers)
	case FramePriority:
		fr = priorityPool.Get().(*Priority)
	case FrameResetStream:
		fr = rstStreamPool.Get().(*RstStream)
	case FrameSettings:
		fr = settingsPool.Get().(*Settings)
	case FramePushPromise:
		fr = pushPromisePool.Get().(*PushPromise)
	case FramePing:
		fr = pingPool.Get().(*Ping)
	case FrameGoAway:
		fr = goAwayPool.Get().(*GoAway)
	case FrameWindowUpdate:
		fr = windowUpdatePool.Get().(*WindowUpdate)
	case FrameContinuation:
		fr = continuationPool.Get().(*Continuation)
	default:
		u := unknownPool.Get().(*UnknownFrame)
		u.Reset()
		u.kind = kind
		return u
	}

	fr.Reset()
	return fr
}

// ReleaseFrame returns fr to its pool. A nil fr is a no-op, matching the
// FrameHeader.Reset/ReleaseFrameHeader call sites that may release a
// header before a body was ever attached.
func ReleaseFrame(fr Frame) {
	if fr == nil {
		return
	}

	switch f := fr.(type) {
	case *Data:
		dataPool.Put(f)
	case *Headers:
		headersPool.Put(f)
	case *Priority:
		priorityPool.Put(f)
	case *RstStream:
		rstStreamPool.Put(f)
	case *Settings:
		settingsPool.Put(f)
	case *PushPromise:
		pushPromisePool.Put(f)
	case *Ping:
		pingPool.Put(f)
	case *GoAway:
		goAwayPool.Put(f)
	case *WindowUpdate:
		windowUpdatePool.Put(f)
	case *Continuation:
		continuationPool.Put(f)
	case *UnknownFrame:
		unknownPool.Put(f)
	}
}
