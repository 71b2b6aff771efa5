package http2

import (
	"strconv"

	"golang.org/x/net/http/httpguts"
)

// requestPseudoHeaders enumerates the request pseudo-headers this module
// understands. RFC 9113 §8.3 additionally requires all pseudo-headers
// to precede regular fields in a header block; that ordering check
// lives in the connection engine (it needs to see the whole block),
// not here.
var requestPseudoHeaders = map[string]bool{
	":method":    true,
	":scheme":    true,
	":authority": true,
	":path":      true,
}

// validateField checks one decoded header field against RFC 9113 §8.2's
// field-name/value rules and §8.2.2's connection-specific-header
// rejection. It does not check pseudo-header ordering or completeness;
// that is a property of the whole header list.
func validateField(hf *HeaderField) error {
	key := hf.KeyBytes()

	if len(key) == 0 {
		return NewStreamError(0, ProtocolError, "empty header name")
	}

	if key[0] == ':' {
		if !requestPseudoHeaders[hf.Key()] {
			return NewStreamError(0, ProtocolError, "unknown pseudo-header")
		}
		return nil
	}

	if !httpguts.ValidHeaderFieldName(hf.Key()) {
		return NewStreamError(0, ProtocolError, "invalid header field name")
	}

	for _, c := range key {
		if c >= 'A' && c <= 'Z' {
			return NewStreamError(0, ProtocolError, "uppercase header field name")
		}
	}

	switch hf.Key() {
	case "connection", "keep-alive", "proxy-connection", "transfer-encoding", "upgrade":
		return NewStreamError(0, ProtocolError, "connection-specific header field")
	case "host":
		return NewStreamError(0, ProtocolError, "host is forbidden; authority travels via :authority")
	case "te":
		if hf.Value() != "trailers" {
			return NewStreamError(0, ProtocolError, `te header field must be "trailers"`)
		}
	}

	if !httpguts.ValidHeaderFieldValue(hf.Value()) {
		return NewStreamError(0, ProtocolError, "invalid header field value")
	}

	return nil
}

// validateContentLength parses a content-length field value and
// reports an error if it is not a valid non-negative decimal integer,
// per RFC 9113 §8.3's requirement that a malformed content-length is a
// stream error.
func validateContentLength(value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, NewStreamError(0, ProtocolError, "invalid content-length")
	}
	return n, nil
}
