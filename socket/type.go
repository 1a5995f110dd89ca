// Package socket implements the Socket.IO application-protocol core: the
// Socket/Namespace/Adapter triad and the acknowledgement correlator that
// together multiplex many logical client sessions over the connections
// handed to it by an external Engine.IO-style transport layer (see
// EngineConn). The transport, HTTP/WebSocket framing, JSON wire codec
// plumbing below the packet header, and distributed adapter backends are
// all external collaborators; this package only depends on their contracts.
package socket

import "github.com/lattice-io/socketio-core/pkg/log"

// Sid is the opaque, process-unique session identifier assigned by the
// engine layer at handshake time and reused as the socket id.
type Sid string

// Room is a string label grouping sids within a namespace for broadcast
// selection. A room with zero members is indistinguishable from absent.
type Room string

var (
	socketLog    = log.NewLog("socket.io:socket")
	namespaceLog = log.NewLog("socket.io:namespace")
	adapterLog   = log.NewLog("socket.io:adapter")
	ackLog       = log.NewLog("socket.io:ack")
)

// set is a minimal thread-unsafe set of comparable values, used where the caller
// already holds whatever lock guards it.
type set[T comparable] map[T]struct{}

func newSet[T comparable](items ...T) set[T] {
	s := make(set[T], len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s set[T]) has(v T) bool {
	_, ok := s[v]
	return ok
}

func (s set[T]) add(v T) { s[v] = struct{}{} }

func (s set[T]) del(v T) { delete(s, v) }

func (s set[T]) keys() []T {
	out := make([]T, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
