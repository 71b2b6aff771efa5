package http2

import (
	"runtime/debug"
)

// writeLoop is the connection's single writer: it drains c.writer,
// serializing every frame (responses, SETTINGS acks, PING replies,
// RST_STREAM, GOAWAY, WINDOW_UPDATE) in the order other goroutines
// enqueued them, flushing in batches to avoid a syscall per small
// frame.
func (c *conn) writeLoop() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Printf("http2: writeLoop panic: %v\n%s", r, debug.Stack())
		}
	}()

	buffered := 0

	for fr := range c.writer {
		_, err := fr.WriteTo(c.bw)
		ReleaseFrameHeader(fr)

		if err != nil {
			c.log.Printf("http2: writeLoop: %s", err)
			return
		}

		if len(c.writer) == 0 || buffered > 10 {
			if err := c.bw.Flush(); err != nil {
				c.log.Printf("http2: writeLoop: flush: %s", err)
				return
			}
			buffered = 0
		} else {
			buffered++
		}
	}

	c.bw.Flush()
}
