package http2

// StreamState is one of the seven states of RFC 7540 §5.1's stream
// lifecycle.
type StreamState uint8

const (
	StateIdle StreamState = iota
	StateReservedLocal
	StateReservedRemote
	StateOpen
	StateHalfClosedLocal
	StateHalfClosedRemote
	StateClosed
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReservedLocal:
		return "reserved (local)"
	case StateReservedRemote:
		return "reserved (remote)"
	case StateOpen:
		return "open"
	case StateHalfClosedLocal:
		return "half-closed (local)"
	case StateHalfClosedRemote:
		return "half-closed (remote)"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// streamEvent names the transition-triggering occurrence: either a
// frame type arriving/being sent, or an internal close.
type streamEvent uint8

const (
	eventRecvHeaders streamEvent = iota
	eventRecvHeadersEndStream
	eventSendHeaders
	eventSendHeadersEndStream
	eventRecvPushPromise
	eventSendPushPromise
	eventRecvEndStream // DATA or trailing HEADERS with END_STREAM from peer
	eventSendEndStream
	eventRecvRstStream
	eventSendRstStream
	eventClose // local disposal (e.g. idle-stream reclaim), not a wire event
)

// nextState is the total (State, Event) -> (State, error) function of
// RFC 7540 §5.1. Frames valid in every open-ish state (PRIORITY,
// WINDOW_UPDATE) and frames always rejected in a given state return an
// error the caller turns into a stream or connection error as context
// requires.
func nextState(s StreamState, e streamEvent) (StreamState, error) {
	switch s {
	case StateIdle:
		switch e {
		case eventRecvHeaders, eventSendHeaders:
			return StateOpen, nil
		case eventRecvHeadersEndStream:
			return StateHalfClosedRemote, nil
		case eventSendHeadersEndStream:
			return StateHalfClosedLocal, nil
		case eventRecvPushPromise:
			return StateReservedRemote, nil
		case eventSendPushPromise:
			return StateReservedLocal, nil
		case eventClose:
			return StateClosed, nil
		default:
			return s, ErrInvalidState
		}

	case StateReservedLocal:
		switch e {
		case eventSendHeaders, eventSendHeadersEndStream:
			return StateHalfClosedRemote, nil
		case eventRecvRstStream, eventSendRstStream, eventClose:
			return StateClosed, nil
		default:
			return s, ErrInvalidState
		}

	case StateReservedRemote:
		switch e {
		case eventRecvHeaders, eventRecvHeadersEndStream:
			return StateHalfClosedLocal, nil
		case eventRecvRstStream, eventSendRstStream, eventClose:
			return StateClosed, nil
		default:
			return s, ErrInvalidState
		}

	case StateOpen:
		switch e {
		case eventRecvEndStream, eventRecvHeadersEndStream:
			return StateHalfClosedRemote, nil
		case eventSendEndStream:
			return StateHalfClosedLocal, nil
		case eventRecvRstStream, eventSendRstStream, eventClose:
			return StateClosed, nil
		case eventRecvHeaders, eventSendHeaders:
			return s, nil
		default:
			return s, ErrInvalidState
		}

	case StateHalfClosedLocal:
		switch e {
		case eventRecvEndStream, eventRecvHeadersEndStream:
			return StateClosed, nil
		case eventRecvRstStream, eventSendRstStream, eventClose:
			return StateClosed, nil
		case eventRecvHeaders:
			return s, nil
		default:
			return s, ErrInvalidState
		}

	case StateHalfClosedRemote:
		switch e {
		case eventSendEndStream:
			return StateClosed, nil
		case eventRecvRstStream, eventSendRstStream, eventClose:
			return StateClosed, nil
		case eventSendHeaders:
			return s, nil
		default:
			return s, ErrInvalidState
		}

	case StateClosed:
		switch e {
		case eventRecvRstStream, eventSendRstStream, eventClose:
			return StateClosed, nil
		default:
			// The engine keeps closed ids in conn.closedIDs with no
			// time limit: a later PRIORITY on one is ignored, and any
			// other frame on one (RST_STREAM and WINDOW_UPDATE
			// included) is a STREAM_CLOSED connection error. There is
			// no grace window after close.
			return s, ErrStreamClosed
		}
	}

	return s, ErrInvalidState
}
