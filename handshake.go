package http2

import (
	"bufio"
	"bytes"
)

// ClientPreface is the 24-octet sequence RFC 7540 §3.5 requires every
// HTTP/2 connection to open with, client side, before any frame.
const ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

var clientPrefaceBytes = []byte(ClientPreface)

// readPreface consumes and validates the client connection preface.
func readPreface(br *bufio.Reader) error {
	buf := make([]byte, len(clientPrefaceBytes))
	if _, err := readFull(br, buf); err != nil {
		return err
	}
	if !bytes.Equal(buf, clientPrefaceBytes) {
		return ErrBadPreface
	}
	return nil
}

func readFull(br *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := br.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// writeServerPreface sends the server's initial SETTINGS frame, the
// first frame RFC 7540 §3.5 requires a server to send (the client's
// half of the preface is the 24-byte magic above; the server's half is
// simply "a SETTINGS frame, which MAY be empty").
func writeServerPreface(bw *bufio.Writer, st *Settings) error {
	fr := AcquireFrameHeader()
	fr.SetBody(st)
	_, err := fr.WriteTo(bw)
	if err == nil {
		err = bw.Flush()
	}
	ReleaseFrameHeader(fr)
	return err
}
