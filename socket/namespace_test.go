package socket

import (
	"errors"
	"strings"
	"testing"

	"github.com/lattice-io/socketio-core/parser"
)

func TestNamespaceConnectSendsConnectAck(t *testing.T) {
	_, nsp := newTestNamespace()
	conn := newFakeConn("a", 10)

	sock, err := nsp.Connect(conn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if sock.Id() != "a" {
		t.Fatalf("got id %q", sock.Id())
	}
	frames := conn.sentFrames()
	if len(frames) != 1 || !strings.HasPrefix(frames[0], "0") {
		t.Fatalf("expected a single CONNECT packet, got %v", frames)
	}
	if _, ok := nsp.getSocket("a"); !ok {
		t.Fatalf("connected socket must be registered on the namespace")
	}
}

func TestNamespaceConnectRejectedSendsConnectErrorAndDropsSocket(t *testing.T) {
	_, nsp := newTestNamespace()
	nsp.OnConnect(func(*Socket) error { return errors.New("unauthorized") })
	conn := newFakeConn("a", 10)

	sock, err := nsp.Connect(conn)
	if err == nil || sock != nil {
		t.Fatalf("expected the connection to be rejected")
	}
	frames := conn.sentFrames()
	if len(frames) != 1 || !strings.HasPrefix(frames[0], "4") {
		t.Fatalf("expected a single CONNECT_ERROR packet, got %v", frames)
	}
	if _, ok := nsp.getSocket("a"); ok {
		t.Fatalf("a rejected connection must never be registered")
	}
}

func TestNamespaceDispatchUnknownSidIsDropped(t *testing.T) {
	_, nsp := newTestNamespace()
	if err := nsp.Dispatch("ghost", mustEventPacket(t, "x", nil, nil)); err != nil {
		t.Fatalf("dispatch to an unknown sid must be a silent no-op: %v", err)
	}
}

func TestNamespaceDispatchClientDisconnect(t *testing.T) {
	_, nsp := newTestNamespace()
	sock, _ := connectSocket(t, nsp, "a", 10)

	var reason DisconnectReason
	sock.OnDisconnect(func(_ *Socket, r DisconnectReason) { reason = r })

	if err := nsp.Dispatch("a", &parser.Packet{Type: parser.DISCONNECT}); err != nil {
		t.Fatalf("dispatch disconnect: %v", err)
	}
	if reason != ClientNSDisconnect {
		t.Fatalf("got reason %v, want ClientNSDisconnect", reason)
	}
	if _, ok := nsp.getSocket("a"); ok {
		t.Fatalf("socket must be removed after a client disconnect packet")
	}
}
