package socket

import (
	"sync"
	"time"
)

// ServerOptions configures the protocol-level behaviour of a Server: ack
// waits and connect handshake timing. Transport concerns (ping interval,
// buffer sizes, CORS, adapters other than the local one) belong to the
// engine layer and are out of scope here.
type ServerOptions struct {
	// AckTimeout bounds how long EmitWithAck waits for a client response
	// when the caller does not override it with Operators.Timeout.
	AckTimeout time.Duration
	// ConnectTimeout is the connect-handshake delay carried with the server
	// options. Namespace.Connect does not apply it: the connect handler runs
	// to completion however long it takes.
	ConnectTimeout time.Duration
}

// DefaultServerOptions mirrors the reference implementation's defaults.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		AckTimeout:     5 * time.Second,
		ConnectTimeout: 45 * time.Second,
	}
}

// Assign copies every non-zero field of other onto the receiver, the same
// partial-override idiom used for option structs throughout this stack.
func (o ServerOptions) Assign(other ServerOptions) ServerOptions {
	if other.AckTimeout != 0 {
		o.AckTimeout = other.AckTimeout
	}
	if other.ConnectTimeout != 0 {
		o.ConnectTimeout = other.ConnectTimeout
	}
	return o
}

// Server owns the set of namespaces sharing one protocol configuration. A
// single EngineConn is routed to exactly one namespace at connect time.
type Server struct {
	opts ServerOptions

	mu         sync.RWMutex
	namespaces map[string]*Namespace
}

// NewServer constructs a Server. Zero-valued fields in opts fall back to
// DefaultServerOptions.
func NewServer(opts ServerOptions) *Server {
	return &Server{
		opts:       DefaultServerOptions().Assign(opts),
		namespaces: make(map[string]*Namespace),
	}
}

// Of returns the namespace at path, creating it (with a fresh LocalAdapter)
// on first use.
func (srv *Server) Of(path string) *Namespace {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if nsp, ok := srv.namespaces[path]; ok {
		return nsp
	}
	nsp := newNamespace(srv, path)
	srv.namespaces[path] = nsp
	return nsp
}
