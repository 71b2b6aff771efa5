package http2

import (
	"net"
)

// Server accepts HTTP/2 connections and dispatches their requests to a
// Handler. It holds no state beyond its configuration; callers
// typically construct one Server and call ServeConn for every
// connection accepted by an outer listener (or TLS handshake with
// "h2" negotiated via ALPN).
type Server struct {
	Handler Handler
	Options *Options
}

// NewServer returns a Server ready to serve connections with h using
// opts, or NewOptions()'s defaults if opts is nil.
func NewServer(h Handler, opts *Options) *Server {
	if opts == nil {
		opts = NewOptions()
	}
	return &Server{Handler: h, Options: opts}
}

// Serve accepts connections from ln until it returns an error (for
// example because the listener was closed), serving each on its own
// goroutine.
func (srv *Server) Serve(ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go func(c net.Conn) {
			if err := srv.ServeConn(c); err != nil {
				srv.Options.Logger.Printf("http2: %s: %s", c.RemoteAddr(), err)
			}
		}(nc)
	}
}

// ServeConn runs the HTTP/2 server connection preface and engine over
// an already-accepted net.Conn (after ALPN negotiated "h2", or in
// h2c/prior-knowledge setups). It blocks until the connection closes.
func (srv *Server) ServeConn(nc net.Conn) error {
	defer nc.Close()
	c := newConn(nc, srv.Handler, srv.Options)
	return c.Serve()
}
