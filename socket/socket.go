package socket

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/lattice-io/socketio-core/parser"
)

var sharedEncoder = parser.NewEncoder()

// reservedEvents may not be registered or emitted by user code; they are
// produced and consumed internally by the protocol dispatch in namespace.go.
var reservedEvents = newSet[string]("connect", "connect_error", "disconnect", "disconnecting")

// Socket is one logical client session within a Namespace. It owns the
// event handler table, the optional disconnect handler, the per-socket ack
// correlator, and a small heterogeneous extension bag for user-attached
// data. All exported methods are safe for concurrent use.
type Socket struct {
	id   Sid
	nsp  *Namespace
	conn EngineConn
	acks *ackCorrelator

	handlersMu sync.RWMutex
	handlers   map[string]EventHandler

	disconnectMu sync.Mutex
	onDisconnect DisconnectHandler

	extMu sync.RWMutex
	ext   map[reflect.Type]any

	closeOnce sync.Once
	closed    chan struct{}
}

func newSocket(nsp *Namespace, conn EngineConn) *Socket {
	return &Socket{
		id:       conn.Id(),
		nsp:      nsp,
		conn:     conn,
		acks:     newAckCorrelator(),
		handlers: make(map[string]EventHandler),
		ext:      make(map[reflect.Type]any),
		closed:   make(chan struct{}),
	}
}

// Id returns the socket's session id, shared with the underlying transport.
func (s *Socket) Id() Sid { return s.id }

// Rooms returns the socket's current room memberships, not including the
// implicit room containing only its own id.
func (s *Socket) Rooms() []Room { return s.nsp.adapter.SocketRooms(s.id) }

// Data returns the socket itself, through which its extension bag is
// reached with GetExt/SetExt; Data exists so Socket satisfies SocketDetails
// for adapters that only see sockets through that interface (e.g. a
// distributed peer).
func (s *Socket) Data() any { return s }

// GetExt retrieves the value of type T previously attached with SetExt.
func GetExt[T any](s *Socket) (T, bool) {
	s.extMu.RLock()
	defer s.extMu.RUnlock()
	v, ok := s.ext[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// SetExt attaches a value to the socket, keyed by its static type. A later
// SetExt with the same type replaces the previous value.
func SetExt[T any](s *Socket, v T) {
	s.extMu.Lock()
	defer s.extMu.Unlock()
	s.ext[reflect.TypeOf((*T)(nil)).Elem()] = v
}

// On registers the handler for event, replacing any handler previously
// registered for the same name. Reserved protocol event names are rejected
// silently, matching the namespace-level connect handler owning "connect".
func (s *Socket) On(event string, h EventHandler) {
	if reservedEvents.has(event) {
		return
	}
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[event] = h
}

// OnDisconnect installs the socket's disconnect handler, replacing any
// previous one. It runs at most once, synchronously, when the socket closes.
func (s *Socket) OnDisconnect(fn DisconnectHandler) {
	s.disconnectMu.Lock()
	defer s.disconnectMu.Unlock()
	s.onDisconnect = fn
}

// Join adds the socket to rooms, idempotently.
func (s *Socket) Join(rooms ...Room) {
	s.nsp.adapter.AddAll(s.id, rooms)
}

// Leave removes the socket from rooms, idempotently.
func (s *Socket) Leave(rooms ...Room) {
	s.nsp.adapter.Del(s.id, rooms)
}

// LeaveAll removes the socket from every room it belongs to.
func (s *Socket) LeaveAll() {
	s.nsp.adapter.DelAll(s.id)
}

// Emit sends an EVENT packet carrying (event, data) to this socket alone,
// with no acknowledgement requested.
func (s *Socket) Emit(event string, data any) error {
	if reservedEvents.has(event) {
		return &SendError{Kind: SendSerialize}
	}
	if _, err := json.Marshal(data); err != nil {
		return &SendError{Kind: SendSerialize, Err: err}
	}
	return s.deliver(&parser.Packet{Type: parser.EVENT, Data: []any{event, data}})
}

// EmitWithAck sends an EVENT packet to this socket and returns a future for
// its acknowledgement, decoded as V. It is a free function, not a method,
// because Go methods cannot introduce their own type parameters.
func EmitWithAck[V any](s *Socket, event string, data any) *AckFuture[V] {
	if _, err := json.Marshal(data); err != nil {
		return newFailedAckFuture[V](&AckError{Kind: AckSerialize, Err: err})
	}
	id := s.acks.allocate()
	packet := &parser.Packet{Type: parser.EVENT, Id: &id, Data: []any{event, data}}

	ch := make(chan AckOutcome, 1)
	if !s.acks.register(id, ch) {
		return newFailedAckFuture[V](&AckError{Kind: AckSocketClosed})
	}
	timeout := s.nsp.server.opts.AckTimeout
	timer := time.AfterFunc(timeout, func() { s.acks.timeout(id) })

	if err := s.deliver(packet); err != nil {
		s.acks.cancel(id, nil)
		timer.Stop()
		return newFailedAckFuture[V](&AckError{Kind: AckSend, Err: err})
	}
	return &AckFuture[V]{id: id, correlator: s.acks, ch: ch, timer: timer}
}

// To begins a broadcast restricted to rooms, excluding this socket from the
// selection (matching the "everyone in this room but me" semantics of a
// socket-scoped To).
func (s *Socket) To(rooms ...Room) Operators {
	return Operators{nsp: s.nsp, origin: s.id, hasOrigin: true, excludeSelf: true, rooms: append([]Room(nil), rooms...)}
}

// Within begins a broadcast restricted to rooms, including this socket if it
// is itself a member of one of them.
func (s *Socket) Within(rooms ...Room) Operators {
	return Operators{nsp: s.nsp, origin: s.id, hasOrigin: true, excludeSelf: false, rooms: append([]Room(nil), rooms...)}
}

// Except excludes rooms from whatever selection is eventually built,
// regardless of how To/Within/Broadcast set exclude-self.
func (s *Socket) Except(rooms ...Room) Operators {
	return Operators{nsp: s.nsp, origin: s.id, hasOrigin: true, excludeSelf: true}.Except(rooms...)
}

// Local restricts the eventual broadcast to this node.
func (s *Socket) Local() Operators {
	return Operators{nsp: s.nsp, origin: s.id, hasOrigin: true, excludeSelf: true, local: true}
}

// Broadcast selects every other socket in the namespace.
func (s *Socket) Broadcast() Operators {
	return Operators{nsp: s.nsp, origin: s.id, hasOrigin: true, excludeSelf: true}
}

// Bin attaches binary attachments to the eventual emit.
func (s *Socket) Bin(attachments [][]byte) Operators {
	return Operators{nsp: s.nsp, origin: s.id, hasOrigin: true, excludeSelf: true, bin: attachments}
}

// Timeout overrides the ack wait for the eventual EmitWithAck/FetchSockets.
func (s *Socket) Timeout(d time.Duration) Operators {
	return Operators{nsp: s.nsp, origin: s.id, hasOrigin: true, excludeSelf: true}.Timeout(d)
}

// Disconnect closes the socket. If closeTransport is set the underlying
// connection is torn down as well as the logical session, and Disconnect
// waits for the transport's Closed signal; otherwise only this namespace's
// session ends and the connection is left open. Calling it on a socket that
// is already closed does nothing.
func (s *Socket) Disconnect(closeTransport bool) error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	err := s.deliver(&parser.Packet{Type: parser.DISCONNECT})
	s.close(ServerNSDisconnect)
	if closeTransport {
		s.conn.Close(ServerNSDisconnect)
		<-s.conn.Closed()
	}
	if err != nil {
		return &DisconnectError{ChannelFull: err == ErrChannelFull}
	}
	return nil
}

// deliver encodes packet and writes it (plus any binary attachments) to the
// underlying connection, translating backpressure and already-closed
// connections into a SendError.
func (s *Socket) deliver(packet *parser.Packet) error {
	select {
	case <-s.closed:
		return &SendError{Kind: SendSocketClosed}
	default:
	}
	if packet.Nsp == "" {
		packet.Nsp = s.nsp.Name()
	}
	frames, bin := sharedEncoder.Encode(packet)
	for _, frame := range frames {
		if err := s.conn.Emit(frame); err != nil {
			return err
		}
	}
	for _, b := range bin {
		if err := s.conn.EmitBinary(b); err != nil {
			return err
		}
	}
	return nil
}

// recv dispatches one inbound packet already addressed to this socket's
// namespace: EVENT/BINARY_EVENT to the registered handler (unknown event
// names are a silent no-op), (BINARY_)ACK to the ack correlator, and
// DISCONNECT to close with ClientNSDisconnect. Any other packet type
// reaching a live socket is a protocol violation.
func (s *Socket) recv(packet *parser.Packet) error {
	switch packet.Type {
	case parser.EVENT, parser.BINARY_EVENT:
		return s.recvEvent(packet)
	case parser.ACK, parser.BINARY_ACK:
		s.recvAck(packet)
		return nil
	case parser.DISCONNECT:
		s.close(ClientNSDisconnect)
		return nil
	default:
		return newProtocolError("unexpected packet type %d for connected socket", packet.Type)
	}
}

func (s *Socket) recvEvent(packet *parser.Packet) error {
	args, ok := packet.Data.([]any)
	if !ok || len(args) == 0 {
		return newProtocolError("event packet carried no event name")
	}
	name, ok := args[0].(string)
	if !ok {
		return newProtocolError("event name was not a string")
	}
	s.handlersMu.RLock()
	h, ok := s.handlers[name]
	s.handlersMu.RUnlock()
	if !ok {
		return nil
	}
	// A single trailing argument decodes directly into the handler's typed
	// value; more than one is decoded as the full []any tail.
	var raw json.RawMessage
	var err error
	if len(args) == 2 {
		raw, err = json.Marshal(args[1])
	} else {
		raw, err = json.Marshal(args[1:])
	}
	if err != nil {
		return nil
	}
	ack := AckSender(noopAck)
	if packet.Id != nil {
		ack = &ackSender{s: s, id: packet.Id}
	}
	// A panicking handler is reported like an extraction failure and does
	// not take the socket down.
	func() {
		defer func() {
			if r := recover(); r != nil {
				socketLog.Debug("handler for %q on %s panicked: %v", name, s.id, r)
			}
		}()
		if err := h.handle(s, name, raw, ack); err != nil {
			socketLog.Debug("handler for %q on %s: %v", name, s.id, err)
		}
	}()
	return nil
}

func (s *Socket) recvAck(packet *parser.Packet) {
	if packet.Id == nil {
		return
	}
	// Ack payloads are always a JSON array on the wire; a single value
	// decodes directly into the awaiter's typed V, as with event data.
	var raw json.RawMessage
	if args, ok := packet.Data.([]any); ok && len(args) == 1 {
		raw, _ = json.Marshal(args[0])
	} else {
		raw, _ = json.Marshal(packet.Data)
	}
	s.acks.complete(*packet.Id, AckResponse{Data: raw})
}

// close idempotently tears the socket down: it removes the socket from the
// namespace and adapter, drains any outstanding ack waiters, and invokes the
// disconnect handler exactly once.
func (s *Socket) close(reason DisconnectReason) {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.nsp.removeSocket(s.id)
		s.nsp.adapter.DelAll(s.id)
		s.acks.drainOnClose()

		s.disconnectMu.Lock()
		fn := s.onDisconnect
		s.disconnectMu.Unlock()
		if fn != nil {
			fn(s, reason)
		}
	})
}

func newProtocolError(format string, args ...any) error {
	return &parser.PacketParsingError{Reason: fmt.Sprintf(format, args...)}
}
