package socket

import (
	"testing"

	"github.com/lattice-io/socketio-core/parser"
)

// mustEventPacket builds an EVENT packet as Namespace.Dispatch would hand it
// to a socket after the wire decoder has already parsed it: args[0] is the
// event name, the rest are positional arguments.
func mustEventPacket(t *testing.T, event string, args []any, id *uint64) *parser.Packet {
	t.Helper()
	data := append([]any{event}, args...)
	return &parser.Packet{Type: parser.EVENT, Nsp: "/", Data: data, Id: id}
}
