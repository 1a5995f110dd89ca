package socket

import (
	"context"
	"testing"

	"github.com/lattice-io/socketio-core/parser"
)

func TestOperatorsEmitWithAckFansInOneOutcomePerRecipient(t *testing.T) {
	_, nsp := newTestNamespace()
	connectSocket(t, nsp, "a", 10)
	connectSocket(t, nsp, "b", 10)
	nsp.getSocketOrFail(t, "a").Join("room1")
	nsp.getSocketOrFail(t, "b").Join("room1")

	stream, err := EmitWithAck[string](nsp.To("room1"), "ping", "hi")
	if err != nil {
		t.Fatalf("emit with ack: %v", err)
	}
	if stream.Len() != 2 {
		t.Fatalf("expected 2 recipients, got %d", stream.Len())
	}

	one := uint64(1)
	for _, sid := range []Sid{"a", "b"} {
		ackPacket := &parser.Packet{Type: parser.ACK, Id: &one, Data: []any{"pong-from-" + string(sid)}}
		if err := nsp.Dispatch(sid, ackPacket); err != nil {
			t.Fatalf("dispatch ack from %s: %v", sid, err)
		}
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		v, err, ok := stream.Next(context.Background())
		if !ok {
			t.Fatalf("stream ended early at outcome %d", i)
		}
		if err != nil {
			t.Fatalf("unexpected outcome error: %v", err)
		}
		seen[v] = true
	}
	if !seen["pong-from-a"] || !seen["pong-from-b"] {
		t.Fatalf("missing expected acks, got %v", seen)
	}
	if _, _, ok := stream.Next(context.Background()); ok {
		t.Fatalf("stream must be exhausted after 2 outcomes")
	}
}

func TestOperatorsDisconnectSocketsClosesSelection(t *testing.T) {
	_, nsp := newTestNamespace()
	sockA, _ := connectSocket(t, nsp, "a", 10)
	connectSocket(t, nsp, "b", 10)
	sockA.Join("room1")

	var disconnected bool
	sockA.OnDisconnect(func(*Socket, DisconnectReason) { disconnected = true })

	if err := nsp.To("room1").DisconnectSockets(false); err != nil {
		t.Fatalf("disconnect sockets: %v", err)
	}
	if !disconnected {
		t.Fatalf("expected socket a's disconnect handler to run")
	}
	if _, ok := nsp.getSocket("a"); ok {
		t.Fatalf("socket a should have been removed from the namespace")
	}
	if _, ok := nsp.getSocket("b"); !ok {
		t.Fatalf("socket b was not selected and must remain connected")
	}
}

func TestOperatorsExceptExcludesOnlyTheNamedRoom(t *testing.T) {
	_, nsp := newTestNamespace()
	_, connA := connectSocket(t, nsp, "a", 10)
	sockB, _ := connectSocket(t, nsp, "b", 10)
	sockB.Join("vip")

	if err := nsp.Except("vip").Emit("announce", "hi"); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(connA.sentFrames()) != 2 { // connect ack + announce
		t.Fatalf("socket outside the excepted room should receive the broadcast, got %d frames", len(connA.sentFrames()))
	}
}
