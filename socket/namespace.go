package socket

import (
	"sync"

	"github.com/lattice-io/socketio-core/parser"
)

// ConnectHandler decides whether an incoming connection may join a
// namespace. Returning an error rejects the connection: a CONNECT_ERROR
// packet carrying the error's message is sent and the connection is never
// registered.
type ConnectHandler func(*Socket) error

// Namespace is a named multiplexing domain within a Server: every socket
// belongs to exactly one, and broadcast selection (rooms, except, local)
// never crosses a namespace boundary.
type Namespace struct {
	server *Server
	path   string

	adapter Adapter

	mu      sync.RWMutex
	sockets map[Sid]*Socket

	connectMu sync.Mutex
	onConnect ConnectHandler
}

func newNamespace(srv *Server, path string) *Namespace {
	nsp := &Namespace{server: srv, path: path, sockets: make(map[Sid]*Socket)}
	nsp.adapter = NewLocalAdapter(nsp)
	return nsp
}

// Name returns the namespace path, e.g. "/" or "/admin".
func (n *Namespace) Name() string { return n.path }

// Adapter returns the namespace's room/broadcast adapter, replaceable by
// SetAdapter before any socket connects.
func (n *Namespace) Adapter() Adapter { return n.adapter }

// SetAdapter swaps in a distributed Adapter implementation in place of the
// default LocalAdapter. Not safe to call once sockets are connected.
func (n *Namespace) SetAdapter(a Adapter) { n.adapter = a }

// OnConnect installs the handler invoked for each new connection routed to
// this namespace, replacing any previous one.
func (n *Namespace) OnConnect(fn ConnectHandler) {
	n.connectMu.Lock()
	defer n.connectMu.Unlock()
	n.onConnect = fn
}

func (n *Namespace) getSocket(sid Sid) (*Socket, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	sock, ok := n.sockets[sid]
	return sock, ok
}

func (n *Namespace) removeSocket(sid Sid) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.sockets, sid)
}

// Sockets returns every currently connected socket in the namespace.
func (n *Namespace) Sockets() []*Socket {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Socket, 0, len(n.sockets))
	for _, s := range n.sockets {
		out = append(out, s)
	}
	return out
}

// To begins a namespace-wide broadcast restricted to rooms. Unlike the
// socket-scoped To, there is no origin to exclude.
func (n *Namespace) To(rooms ...Room) Operators {
	return Operators{nsp: n, rooms: append([]Room(nil), rooms...)}
}

// In is an alias for To, matching the reference implementation's naming.
func (n *Namespace) In(rooms ...Room) Operators { return n.To(rooms...) }

// Except begins a namespace-wide broadcast to everyone outside rooms.
func (n *Namespace) Except(rooms ...Room) Operators {
	return Operators{nsp: n}.Except(rooms...)
}

// Local restricts a namespace-wide broadcast to this node.
func (n *Namespace) Local() Operators { return Operators{nsp: n, local: true} }

// Emit broadcasts (event, data) to every connected socket in the namespace.
func (n *Namespace) Emit(event string, data any) error {
	return Operators{nsp: n}.Emit(event, data)
}

// Connect drives a new connection through the namespace's connect handler
// and, on success, registers the resulting Socket and sends it the CONNECT
// acknowledgement packet. On failure it sends CONNECT_ERROR, drops any room
// membership the connect handler gave the socket, and discards the socket
// without ever registering it or making it reachable by broadcast.
func (n *Namespace) Connect(conn EngineConn) (*Socket, error) {
	sock := newSocket(n, conn)

	n.connectMu.Lock()
	handler := n.onConnect
	n.connectMu.Unlock()

	if handler != nil {
		if err := handler(sock); err != nil {
			namespaceLog.Debug("connect rejected for %s: %v", sock.id, err)
			_ = sock.deliver(&parser.Packet{Type: parser.CONNECT_ERROR, Data: err.Error()})
			n.adapter.DelAll(sock.id)
			return nil, err
		}
	}

	n.mu.Lock()
	n.sockets[sock.id] = sock
	n.mu.Unlock()

	if err := sock.deliver(&parser.Packet{Type: parser.CONNECT, Data: map[string]any{"sid": string(sock.id)}}); err != nil {
		namespaceLog.Debug("connect ack send failed for %s: %v", sock.id, err)
	}
	return sock, nil
}

// Dispatch routes one fully-decoded inbound packet (already addressed to
// this namespace, with any binary attachments already reconstructed) to the
// socket it belongs to. A packet for an unknown sid is dropped; the caller
// (the engine-layer connection loop) owns the sid-to-socket association for
// the lifetime of the connection. A packet the socket rejects as a protocol
// violation closes it with PacketParsingError and the error is returned.
func (n *Namespace) Dispatch(sid Sid, packet *parser.Packet) error {
	sock, ok := n.getSocket(sid)
	if !ok {
		return nil
	}
	if err := sock.recv(packet); err != nil {
		sock.close(PacketParsingError)
		return err
	}
	return nil
}
