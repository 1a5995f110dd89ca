package socket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// AckResponse is the payload a client echoes back through an acknowledgement.
// Data holds the JSON value; binary attachments of a BINARY_ACK arrive
// already inlined into Data by the codec, and inbound ack dispatch leaves
// Bin empty.
type AckResponse struct {
	Data json.RawMessage
	Bin  [][]byte
}

type AckOutcome struct {
	Resp AckResponse
	Err  *AckError
}

// ackCorrelator tracks this socket's outstanding ack-id -> one-shot waiter
// mapping. Every registered waiter is removed exactly once: by complete,
// timeout, cancel, or drainOnClose.
type ackCorrelator struct {
	counter atomic.Uint64

	mu      sync.Mutex
	waiters map[uint64]chan AckOutcome
	closed  bool
}

func newAckCorrelator() *ackCorrelator {
	return &ackCorrelator{waiters: make(map[uint64]chan AckOutcome)}
}

// allocate returns a fresh, strictly increasing ack id.
func (c *ackCorrelator) allocate() uint64 {
	return c.counter.Add(1)
}

// register installs the one-shot delivery channel for id. Callers register
// just before sending the stamped packet and cancel the waiter if the send
// fails, so no waiter outlives a failed send. Returns
// false if the socket has already closed, in which case no waiter is
// installed and the caller should deliver AckSocketClosed itself.
func (c *ackCorrelator) register(id uint64, ch chan AckOutcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.waiters[id] = ch
	return true
}

// complete delivers resp to the waiter for id, if one is still installed. A
// late arrival for an id whose waiter already fired (timeout, close) is
// silently dropped.
func (c *ackCorrelator) complete(id uint64, resp AckResponse) {
	c.mu.Lock()
	ch, ok := c.waiters[id]
	if ok {
		delete(c.waiters, id)
	}
	c.mu.Unlock()
	if ok {
		ch <- AckOutcome{Resp: resp}
	} else {
		ackLog.Debug("late or unknown ack id %d", id)
	}
}

// timeout delivers an AckTimeout failure for id, if it is still outstanding.
func (c *ackCorrelator) timeout(id uint64) {
	c.mu.Lock()
	ch, ok := c.waiters[id]
	if ok {
		delete(c.waiters, id)
	}
	c.mu.Unlock()
	if ok {
		ch <- AckOutcome{Err: &AckError{Kind: AckTimeout}}
	}
}

// cancel drops the waiter for id, delivering outcome first if a waiter was
// still installed. A caller abandoning its own in-flight AckFuture (nobody
// left to read the channel) may pass nil; a caller cancelling on behalf of
// some other goroutine still blocked on the channel (e.g. a broadcast's
// per-recipient collector in LocalAdapter.BroadcastWithAck) must pass the
// outcome to deliver, mirroring timeout/drainOnClose, or that goroutine
// leaks forever waiting on a slot that will never otherwise be filled.
func (c *ackCorrelator) cancel(id uint64, outcome *AckOutcome) {
	c.mu.Lock()
	ch, ok := c.waiters[id]
	if ok {
		delete(c.waiters, id)
	}
	c.mu.Unlock()
	if ok && outcome != nil {
		ch <- *outcome
	}
}

// drainOnClose fails every outstanding waiter with AckSocketClosed and marks
// the correlator closed so no further waiter can be registered.
func (c *ackCorrelator) drainOnClose() {
	c.mu.Lock()
	c.closed = true
	waiters := c.waiters
	c.waiters = make(map[uint64]chan AckOutcome)
	c.mu.Unlock()
	for _, ch := range waiters {
		ch <- AckOutcome{Err: &AckError{Kind: AckSocketClosed}}
	}
}

// AckFuture is the single-shot handle returned by EmitWithAck for one
// socket. It is awaited exactly once via Wait.
type AckFuture[V any] struct {
	id         uint64
	correlator *ackCorrelator
	ch         chan AckOutcome
	timer      *time.Timer
	immediate  *AckError // set when send failed before any waiter was registered
}

func newFailedAckFuture[V any](err *AckError) *AckFuture[V] {
	return &AckFuture[V]{immediate: err}
}

// Wait blocks until the acknowledgement arrives, the timeout fires, the
// socket closes, or ctx is cancelled. On cancellation the waiter slot is
// released and ctx.Err() is returned as is, not wrapped in an AckError,
// since cancellation is not a protocol outcome.
func (f *AckFuture[V]) Wait(ctx context.Context) (AckResponse, V, error) {
	var zero V
	if f.immediate != nil {
		return AckResponse{}, zero, f.immediate
	}
	select {
	case out := <-f.ch:
		if f.timer != nil {
			f.timer.Stop()
		}
		if out.Err != nil {
			return AckResponse{}, zero, out.Err
		}
		v, err := decodeAck[V](out.Resp)
		if err != nil {
			return out.Resp, zero, err
		}
		return out.Resp, v, nil
	case <-ctx.Done():
		f.correlator.cancel(f.id, nil)
		if f.timer != nil {
			f.timer.Stop()
		}
		return AckResponse{}, zero, ctx.Err()
	}
}

func decodeAck[V any](resp AckResponse) (V, error) {
	var v V
	if len(resp.Data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(resp.Data, &v); err != nil {
		return v, &AckError{Kind: AckDecode, Err: err}
	}
	return v, nil
}

// AckStream is the finite, lazily-consumed handle returned by a broadcast's
// EmitWithAck: one outcome per recipient socket at dispatch time.
type AckStream[V any] struct {
	ch       chan AckOutcome
	total    int
	received int
}

// NewAckStream wraps a raw fan-in channel (as produced by an Adapter's
// BroadcastWithAck) into a typed, decoding stream of length total.
func NewAckStream[V any](ch chan AckOutcome, total int) *AckStream[V] {
	return &AckStream[V]{ch: ch, total: total}
}

// Next returns the next outcome, or ok=false once total outcomes have been
// delivered (the stream is exhausted).
func (s *AckStream[V]) Next(ctx context.Context) (V, error, bool) {
	var zero V
	if s.received >= s.total {
		return zero, nil, false
	}
	select {
	case out := <-s.ch:
		s.received++
		if out.Err != nil {
			return zero, out.Err, true
		}
		v, err := decodeAck[V](out.Resp)
		return v, err, true
	case <-ctx.Done():
		return zero, ctx.Err(), true
	}
}

// Len reports the total number of outcomes this stream will yield.
func (s *AckStream[V]) Len() int { return s.total }
