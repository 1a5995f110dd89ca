package socket

import "errors"

// SendError is returned by Socket.Emit / Operators.Emit.
type SendError struct {
	Kind SendErrorKind
	Err  error // wrapped cause for Kind == SendSocketClosed or similar
}

type SendErrorKind int

const (
	// SendSerialize: the event data could not be JSON-encoded, or the event
	// name is a reserved protocol event.
	SendSerialize SendErrorKind = iota
	// SendInternalChannelFull: the engine's outbound queue had no capacity.
	SendInternalChannelFull
	// SendSocketClosed: the socket was already closed.
	SendSocketClosed
)

func (e *SendError) Error() string {
	switch e.Kind {
	case SendSerialize:
		return "send: data not JSON-encodable or event name reserved"
	case SendInternalChannelFull:
		return "send: outbound channel full"
	case SendSocketClosed:
		return "send: socket closed"
	default:
		return "send: unknown error"
	}
}

func (e *SendError) Unwrap() error { return e.Err }

var (
	ErrChannelFull = &SendError{Kind: SendInternalChannelFull}
)

// AckErrorKind distinguishes the ways an awaited acknowledgement can fail.
type AckErrorKind int

const (
	AckSerialize AckErrorKind = iota
	AckDecode
	AckTimeout
	AckSocketClosed
	AckSend
)

// AckError is the failure type yielded by AckFuture / AckStream.
type AckError struct {
	Kind AckErrorKind
	Err  error
}

func (e *AckError) Error() string {
	switch e.Kind {
	case AckSerialize:
		return "ack: data not JSON-encodable"
	case AckDecode:
		return "ack: response not decodable as requested type: " + errString(e.Err)
	case AckTimeout:
		return "ack: timed out waiting for acknowledgement"
	case AckSocketClosed:
		return "ack: socket closed before acknowledgement arrived"
	case AckSend:
		return "ack: " + errString(e.Err)
	default:
		return "ack: unknown error"
	}
}

func (e *AckError) Unwrap() error { return e.Err }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// AdapterError wraps a failure reaching peer nodes in a distributed adapter.
// The local adapter never produces one.
type AdapterError struct {
	Err error
}

func (e *AdapterError) Error() string { return "adapter: " + errString(e.Err) }
func (e *AdapterError) Unwrap() error { return e.Err }

// DisconnectError is returned by Socket.Disconnect when the best-effort
// disconnect packet could not be sent, or the adapter failed to propagate
// the disconnect to peer nodes.
type DisconnectError struct {
	ChannelFull bool
	Adapter     error
}

func (e *DisconnectError) Error() string {
	if e.ChannelFull {
		return "disconnect: outbound channel full"
	}
	return "disconnect: " + errString(e.Adapter)
}

// ExtractError is returned from a handler's typed-extraction step when the
// inbound packet's data does not match the handler's declared type. It is
// reported through the socket's error path but never closes the socket.
type ExtractError struct {
	Event string
	Err   error
}

func (e *ExtractError) Error() string {
	return "extract: event " + e.Event + ": " + errString(e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

var (
	errNoAckRequested = errors.New("no acknowledgement was requested for this event")
	errAckAlreadySent = errors.New("acknowledgement already sent")
)
