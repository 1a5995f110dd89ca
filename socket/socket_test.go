package socket

import (
	"context"
	"testing"
	"time"
)

func TestSocketEmitReturnsErrChannelFullWhenQueueSaturated(t *testing.T) {
	_, nsp := newTestNamespace()
	conn := newFakeConn("a", 1) // capacity 1: the connect ack already fills it
	sock, err := nsp.Connect(conn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	err = sock.Emit("ping", "hi")
	sendErr, ok := err.(*SendError)
	if !ok || sendErr.Kind != SendInternalChannelFull {
		t.Fatalf("expected ErrChannelFull, got %v", err)
	}
}

func TestSocketDisconnectHandlerRunsExactlyOnce(t *testing.T) {
	_, nsp := newTestNamespace()
	sock, _ := connectSocket(t, nsp, "a", 10)

	var calls int
	var lastReason DisconnectReason
	sock.OnDisconnect(func(_ *Socket, reason DisconnectReason) {
		calls++
		lastReason = reason
	})

	sock.close(ClientNSDisconnect)
	sock.close(ServerNSDisconnect) // a second close must be a no-op

	if calls != 1 {
		t.Fatalf("expected disconnect handler to run exactly once, ran %d times", calls)
	}
	if lastReason != ClientNSDisconnect {
		t.Fatalf("expected the first close's reason to win, got %v", lastReason)
	}
	if _, ok := nsp.getSocket("a"); ok {
		t.Fatalf("socket must be removed from the namespace after close")
	}
}

func TestSocketCloseDrainsOutstandingAcks(t *testing.T) {
	_, nsp := newTestNamespace()
	sock, _ := connectSocket(t, nsp, "a", 10)

	future := EmitWithAck[string](sock, "ping", "hi")
	sock.close(TransportClose)

	_, _, err := future.Wait(context.Background())
	ackErr, ok := err.(*AckError)
	if !ok || ackErr.Kind != AckSocketClosed {
		t.Fatalf("expected AckSocketClosed once the socket is closed, got %v", err)
	}
}

func TestEventHandlerDispatchByTypedPayload(t *testing.T) {
	_, nsp := newTestNamespace()
	sock, _ := connectSocket(t, nsp, "a", 10)

	type payload struct {
		Name string `json:"name"`
	}
	received := make(chan payload, 1)
	sock.On("greet", On(func(_ *Socket, p payload) {
		received <- p
	}))

	id := uint64(1)
	if err := sock.recv(mustEventPacket(t, "greet", []any{payload{Name: "ada"}}, &id)); err != nil {
		t.Fatalf("recv: %v", err)
	}

	select {
	case p := <-received:
		if p.Name != "ada" {
			t.Fatalf("got %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatalf("handler was never invoked")
	}
}

func TestEventHandlerUnknownEventIsNoop(t *testing.T) {
	_, nsp := newTestNamespace()
	sock, _ := connectSocket(t, nsp, "a", 10)

	if err := sock.recv(mustEventPacket(t, "nobody-home", nil, nil)); err != nil {
		t.Fatalf("an unregistered event must not be a protocol error: %v", err)
	}
}
