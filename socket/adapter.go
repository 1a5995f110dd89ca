package socket

import (
	"time"

	"github.com/lattice-io/socketio-core/parser"
)

// SocketDetails is the read-only view of a socket an Adapter exposes to
// FetchSockets, independent of whether that socket lives on this node or a
// peer one in a distributed adapter.
type SocketDetails interface {
	Id() Sid
	Rooms() []Room
	Data() any
}

// BroadcastOptions is the selection descriptor threaded through every
// Adapter fan-out operation. The selected set is:
//
//	S = (Rooms ? union of Rooms : all sockets) − Except − (ExcludeSelf ? {Origin} : ∅)
type BroadcastOptions struct {
	// Rooms to include; empty means every socket in the namespace.
	Rooms []Room
	// Except excludes sockets that are members of any of these rooms.
	Except []Room
	// Local restricts the selection to this node (distributed adapters only;
	// the local adapter is always local).
	Local bool
	// ExcludeSelf drops Origin from the selection.
	ExcludeSelf bool
	// Origin is the sid excluded when ExcludeSelf is set.
	Origin Sid
	// Timeout overrides the namespace's default ack wait for this operation.
	Timeout *time.Duration
	// Binary hints that the payload carries binary attachments.
	Binary bool
}

// Adapter abstracts room membership and broadcast routing for one namespace.
// The local, single-process implementation (NewLocalAdapter) is authoritative
// and infallible; a distributed adapter additionally dispatches to peer
// nodes and can fail doing so (AdapterError), unless Local is set.
type Adapter interface {
	// AddAll idempotently joins sid to every room in rooms.
	AddAll(sid Sid, rooms []Room)
	// Del idempotently removes sid from every room in rooms.
	Del(sid Sid, rooms []Room)
	// DelAll removes sid from every room it belongs to.
	DelAll(sid Sid)
	// SocketRooms returns sid's current room memberships.
	SocketRooms(sid Sid) []Room

	// Broadcast delivers packet to every socket selected by opts.
	Broadcast(packet *parser.Packet, opts *BroadcastOptions) error
	// BroadcastWithAck delivers packet to every selected socket, allocating
	// one ack-id per recipient, and returns a fan-in channel together with
	// the number of outcomes it will yield (one per recipient at dispatch
	// time) so callers can wrap it in a typed AckStream.
	BroadcastWithAck(packet *parser.Packet, opts *BroadcastOptions) (chan AckOutcome, int, error)

	// FetchSockets enumerates the sockets selected by opts without sending
	// anything.
	FetchSockets(opts *BroadcastOptions) ([]SocketDetails, error)
	// DisconnectSockets closes every socket selected by opts with
	// ServerNSDisconnect. close selects whether the underlying transport is
	// also torn down.
	DisconnectSockets(opts *BroadcastOptions, close bool) error
}
