package socket

import (
	"context"
	"testing"
	"time"
)

func TestAckCorrelatorCompleteDeliversToWaiter(t *testing.T) {
	c := newAckCorrelator()
	id := c.allocate()
	ch := make(chan AckOutcome, 1)
	if !c.register(id, ch) {
		t.Fatalf("register failed on a fresh correlator")
	}
	c.complete(id, AckResponse{Data: []byte(`"ok"`)})

	select {
	case out := <-ch:
		if out.Err != nil {
			t.Fatalf("unexpected error: %v", out.Err)
		}
		if string(out.Resp.Data) != `"ok"` {
			t.Fatalf("got %s, want \"ok\"", out.Resp.Data)
		}
	default:
		t.Fatalf("expected a buffered outcome")
	}
}

func TestAckCorrelatorLateCompleteIsDropped(t *testing.T) {
	c := newAckCorrelator()
	id := c.allocate()
	ch := make(chan AckOutcome, 1)
	c.register(id, ch)
	c.timeout(id)
	// A duplicate completion after the waiter already fired must not panic
	// or block on an unbuffered send to a channel nobody reads again.
	c.complete(id, AckResponse{Data: []byte("1")})

	select {
	case out := <-ch:
		if out.Err == nil || out.Err.Kind != AckTimeout {
			t.Fatalf("expected AckTimeout, got %+v", out)
		}
	default:
		t.Fatalf("expected the timeout outcome to be buffered")
	}
}

func TestAckCorrelatorDrainOnCloseFailsEveryWaiter(t *testing.T) {
	c := newAckCorrelator()
	var chans []chan AckOutcome
	for i := 0; i < 3; i++ {
		id := c.allocate()
		ch := make(chan AckOutcome, 1)
		c.register(id, ch)
		chans = append(chans, ch)
	}
	c.drainOnClose()
	for i, ch := range chans {
		out := <-ch
		if out.Err == nil || out.Err.Kind != AckSocketClosed {
			t.Fatalf("waiter %d: expected AckSocketClosed, got %+v", i, out)
		}
	}
	if c.register(c.allocate(), make(chan AckOutcome, 1)) {
		t.Fatalf("register must fail once the correlator is closed")
	}
}

func TestAckFutureWaitDecodesResponse(t *testing.T) {
	c := newAckCorrelator()
	id := c.allocate()
	ch := make(chan AckOutcome, 1)
	c.register(id, ch)

	f := &AckFuture[string]{id: id, correlator: c, ch: ch}
	c.complete(id, AckResponse{Data: []byte(`"pong"`)})

	_, v, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "pong" {
		t.Fatalf("got %q, want pong", v)
	}
}

func TestAckFutureWaitContextCancelReleasesWaiter(t *testing.T) {
	c := newAckCorrelator()
	id := c.allocate()
	ch := make(chan AckOutcome, 1)
	c.register(id, ch)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	f := &AckFuture[string]{id: id, correlator: c, ch: ch}
	_, _, err := f.Wait(ctx)
	if err == nil {
		t.Fatalf("expected ctx.Err() from an unresolved ack")
	}

	c.mu.Lock()
	_, stillRegistered := c.waiters[id]
	c.mu.Unlock()
	if stillRegistered {
		t.Fatalf("cancel must release the waiter slot")
	}
}

func TestAckStreamNextExhaustsAfterTotal(t *testing.T) {
	ch := make(chan AckOutcome, 2)
	ch <- AckOutcome{Resp: AckResponse{Data: []byte("1")}}
	ch <- AckOutcome{Resp: AckResponse{Data: []byte("2")}}

	s := NewAckStream[int](ch, 2)
	var got []int
	for {
		v, err, ok := s.Next(context.Background())
		if !ok {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, v)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}
	if _, _, ok := s.Next(context.Background()); ok {
		t.Fatalf("stream should be exhausted after total outcomes")
	}
}
