package socket

import (
	"encoding/json"
	"sync/atomic"

	"github.com/lattice-io/socketio-core/parser"
)

// EventHandler is the type-erased form every registered event handler is
// stored as. Concrete handlers are produced by the On/OnWithAck generic
// constructors below, which implement the typed-extraction capability set
// for handler dispatch: each turns the inbound (socket, data, ack?) tuple
// into a caller-declared argument pack, or reports an *ExtractError.
// Reconstructed binary attachments arrive already inlined into data at
// whatever argument position they originally occupied, so a handler's own
// struct fields (e.g. a []byte field) receive them directly; no separate
// attachment-carrying parameter is needed.
type EventHandler interface {
	handle(s *Socket, event string, data json.RawMessage, ack AckSender) error
}

type handlerFunc func(s *Socket, event string, data json.RawMessage, ack AckSender) error

func (f handlerFunc) handle(s *Socket, event string, data json.RawMessage, ack AckSender) error {
	return f(s, event, data, ack)
}

// extractData decodes an EVENT packet's trailing arguments into T.
func extractData[T any](event string, data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, &ExtractError{Event: event, Err: err}
	}
	return v, nil
}

// On registers a handler that only cares about the typed event data.
func On[T any](fn func(*Socket, T)) EventHandler {
	return handlerFunc(func(s *Socket, event string, data json.RawMessage, _ AckSender) error {
		v, err := extractData[T](event, data)
		if err != nil {
			return err
		}
		fn(s, v)
		return nil
	})
}

// OnWithAck registers a handler that may acknowledge the event. ack is
// always non-nil; calling Send on it when the client did not request an
// acknowledgement returns an error.
func OnWithAck[T any](fn func(*Socket, T, AckSender)) EventHandler {
	return handlerFunc(func(s *Socket, event string, data json.RawMessage, ack AckSender) error {
		v, err := extractData[T](event, data)
		if err != nil {
			return err
		}
		fn(s, v, ack)
		return nil
	})
}

// DisconnectHandler is invoked at most once per socket, when it closes.
type DisconnectHandler func(*Socket, DisconnectReason)

// AckSender lets an event handler acknowledge the event it was invoked for.
// Send is idempotent-guarded: only the first call has any effect.
type AckSender interface {
	// Requested reports whether the client attached an ack id to this event.
	Requested() bool
	// Send emits the acknowledgement. Calling it when Requested() is false,
	// or more than once, returns an error.
	Send(data any) error
}

type ackSender struct {
	s    *Socket
	id   *uint64
	sent atomic.Bool
}

func (a *ackSender) Requested() bool { return a.id != nil }

func (a *ackSender) Send(data any) error {
	if a.id == nil {
		return &AckError{Kind: AckSend, Err: errNoAckRequested}
	}
	if !a.sent.CompareAndSwap(false, true) {
		return &AckError{Kind: AckSend, Err: errAckAlreadySent}
	}
	packet := &parser.Packet{Type: parser.ACK, Id: a.id, Data: []any{data}}
	if err := a.s.deliver(packet); err != nil {
		return &AckError{Kind: AckSend, Err: err}
	}
	return nil
}

var noopAck = &ackSender{}
