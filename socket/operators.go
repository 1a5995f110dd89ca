package socket

import (
	"encoding/json"
	"time"

	"github.com/lattice-io/socketio-core/parser"
)

// Operators is the immutable broadcast-selection builder. Every method
// returns a new value with exactly one field changed; the receiver is never
// mutated, so intermediate values can be safely reused or handed to
// different call sites.
//
// To(rooms) marks exclude-self: the selection never includes Origin (the
// socket that started the chain, if any). Within(rooms) does not: a socket
// broadcasting Within a room it belongs to still receives the message.
// Except always subtracts its rooms regardless of how the chain started.
type Operators struct {
	nsp *Namespace

	origin      Sid
	hasOrigin   bool
	excludeSelf bool

	rooms  []Room
	except []Room
	local  bool

	bin     [][]byte
	timeout *time.Duration
}

func (o Operators) clone() Operators {
	o.rooms = append([]Room(nil), o.rooms...)
	o.except = append([]Room(nil), o.except...)
	return o
}

// To restricts the selection to rooms and excludes the originating socket,
// if there is one.
func (o Operators) To(rooms ...Room) Operators {
	n := o.clone()
	n.rooms = append(n.rooms, rooms...)
	n.excludeSelf = true
	return n
}

// Within restricts the selection to rooms without excluding the originating
// socket.
func (o Operators) Within(rooms ...Room) Operators {
	n := o.clone()
	n.rooms = append(n.rooms, rooms...)
	n.excludeSelf = false
	return n
}

// Except removes rooms from the eventual selection.
func (o Operators) Except(rooms ...Room) Operators {
	n := o.clone()
	n.except = append(n.except, rooms...)
	return n
}

// Local restricts the eventual broadcast to this node, meaningful only for
// a distributed Adapter.
func (o Operators) Local() Operators {
	n := o.clone()
	n.local = true
	return n
}

// Broadcast selects every socket in the namespace (besides Origin, if any).
func (o Operators) Broadcast() Operators {
	n := o.clone()
	n.rooms = nil
	n.excludeSelf = o.hasOrigin
	return n
}

// Bin attaches binary attachments to the eventual Emit.
func (o Operators) Bin(attachments [][]byte) Operators {
	n := o.clone()
	n.bin = attachments
	return n
}

// Timeout overrides the namespace's default ack wait for the eventual
// EmitWithAck call built from this chain.
func (o Operators) Timeout(d time.Duration) Operators {
	n := o.clone()
	n.timeout = &d
	return n
}

func (o Operators) opts() *BroadcastOptions {
	return &BroadcastOptions{
		Rooms:       o.rooms,
		Except:      o.except,
		Local:       o.local,
		ExcludeSelf: o.excludeSelf,
		Origin:      o.origin,
		Timeout:     o.timeout,
		Binary:      len(o.bin) > 0,
	}
}

// Emit broadcasts (event, data) to every socket the chain selects, with no
// acknowledgement requested.
func (o Operators) Emit(event string, data any) error {
	if _, err := json.Marshal(data); err != nil {
		return &SendError{Kind: SendSerialize, Err: err}
	}
	packet := o.buildPacket(event, data, nil)
	return o.nsp.adapter.Broadcast(packet, o.opts())
}

func (o Operators) buildPacket(event string, data any, id *uint64) *parser.Packet {
	args := []any{event, data}
	if len(o.bin) > 0 {
		// Binary attachments ride along as extra positional arguments; the
		// encoder's HasBinary/DeconstructPacket pass turns any []byte values
		// it finds anywhere in Data into placeholders automatically.
		for _, b := range o.bin {
			args = append(args, b)
		}
	}
	return &parser.Packet{Type: parser.EVENT, Id: id, Nsp: o.nsp.Name(), Data: args}
}

// EmitWithAck broadcasts (event, data) and returns a typed stream yielding
// one decoded acknowledgement per selected socket. It is a free function
// because Go methods cannot carry their own type parameters.
func EmitWithAck[V any](o Operators, event string, data any) (*AckStream[V], error) {
	if _, err := json.Marshal(data); err != nil {
		return nil, &AckError{Kind: AckSerialize, Err: err}
	}
	packet := o.buildPacket(event, data, nil)
	ch, total, err := o.nsp.adapter.BroadcastWithAck(packet, o.opts())
	if err != nil {
		return nil, &AdapterError{Err: err}
	}
	return NewAckStream[V](ch, total), nil
}

// FetchSockets enumerates the sockets the chain selects without sending
// anything.
func (o Operators) FetchSockets() ([]SocketDetails, error) {
	return o.nsp.adapter.FetchSockets(o.opts())
}

// DisconnectSockets closes every socket the chain selects.
func (o Operators) DisconnectSockets(closeTransport bool) error {
	return o.nsp.adapter.DisconnectSockets(o.opts(), closeTransport)
}
