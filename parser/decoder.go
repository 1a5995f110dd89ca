package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lattice-io/socketio-core/pkg/log"
)

var decoderLog = log.NewLog("socket.io:parser:decoder")

// PacketParsingError is returned for any malformed frame: an invalid header,
// a non-binary frame received while attachments are still outstanding, or a
// placeholder index out of range. It is the trigger for closing a socket
// with the PacketParsingError disconnect reason.
type PacketParsingError struct {
	Reason string
}

func (e *PacketParsingError) Error() string { return "parser: " + e.Reason }

func newParsingError(format string, args ...any) error {
	return &PacketParsingError{Reason: fmt.Sprintf(format, args...)}
}

// Decoder is a single-packet-at-a-time state machine. A fresh Decoder starts
// in the AwaitingHeader state; feeding it a binary-typed header with a
// nonzero attachment count moves it into AwaitingAttachments until enough
// binary frames have arrived, at which point AddText/AddBinary returns the
// completed Packet and the Decoder returns to AwaitingHeader.
//
// A Decoder is not safe for concurrent use; each connection owns one.
type Decoder struct {
	partial   *Packet
	buffers   [][]byte
	remaining uint64
}

func NewDecoder() *Decoder { return &Decoder{} }

// Awaiting reports whether the decoder is mid binary-attachment reconstruction.
func (d *Decoder) Awaiting() bool { return d.partial != nil }

// AddText feeds a text frame to the decoder. It must only be called while
// Awaiting() is false. Returns the decoded packet immediately unless it is a
// binary-typed header announcing attachments, in which case nil is returned
// and the decoder transitions to AwaitingAttachments.
func (d *Decoder) AddText(data string) (*Packet, error) {
	if d.Awaiting() {
		return nil, newParsingError("got text data while reconstructing a binary packet")
	}
	packet, err := decodeHeader(data)
	if err != nil {
		decoderLog.Debug("decode error: %v", err)
		return nil, err
	}
	if packet.Type.IsBinary() {
		n := uint64(0)
		if packet.Attachments != nil {
			n = *packet.Attachments
		}
		if n == 0 {
			packet.Attachments = nil
			return packet, nil
		}
		d.partial = packet
		d.remaining = n
		d.buffers = nil
		return nil, nil
	}
	return packet, nil
}

// AddBinary feeds one binary attachment frame. It must only be called while
// Awaiting() is true. Returns the completed packet once the declared
// attachment count has been satisfied.
func (d *Decoder) AddBinary(data []byte) (*Packet, error) {
	if !d.Awaiting() {
		return nil, newParsingError("got binary data when not reconstructing a packet")
	}
	d.buffers = append(d.buffers, data)
	d.remaining--
	if d.remaining > 0 {
		return nil, nil
	}
	packet, buffers := d.partial, d.buffers
	d.partial, d.buffers, d.remaining = nil, nil, 0
	reconstructed, err := ReconstructPacket(packet, buffers)
	if err != nil {
		return nil, newParsingError("%v", err)
	}
	return reconstructed, nil
}

// Reset discards any in-flight reconstruction, returning the decoder to
// AwaitingHeader. Used when the owning connection closes mid-packet.
func (d *Decoder) Reset() {
	d.partial, d.buffers, d.remaining = nil, nil, 0
}

func decodeHeader(data string) (*Packet, error) {
	r := &reader{s: data}
	packet := &Packet{Nsp: "/"}

	typByte, ok := r.next()
	if !ok {
		return nil, newParsingError("empty payload")
	}
	packet.Type = PacketType(typByte)
	if !packet.Type.Valid() {
		return nil, newParsingError("unknown packet type %q", typByte)
	}

	if packet.Type.IsBinary() {
		idx := strings.IndexByte(r.rest(), '-')
		if idx < 0 {
			return nil, newParsingError("illegal attachment count")
		}
		countStr := r.rest()[:idx]
		n, err := strconv.ParseUint(countStr, 10, 64)
		if err != nil {
			return nil, newParsingError("illegal attachment count %q", countStr)
		}
		packet.Attachments = &n
		r.advance(idx + 1)
	}

	if b, ok := r.peek(); ok && b == '/' {
		idx := strings.IndexByte(r.rest(), ',')
		if idx < 0 {
			return nil, newParsingError("illegal namespace")
		}
		packet.Nsp = r.rest()[:idx]
		r.advance(idx + 1)
	}

	idStart := r.pos
	for {
		b, ok := r.peek()
		if !ok || b < '0' || b > '9' {
			break
		}
		r.advance(1)
	}
	if r.pos > idStart {
		id, err := strconv.ParseUint(r.s[idStart:r.pos], 10, 64)
		if err != nil {
			return nil, newParsingError("illegal ack id")
		}
		packet.Id = &id
	}

	if r.pos < len(r.s) {
		var payload any
		if err := json.Unmarshal([]byte(r.rest()), &payload); err != nil {
			return nil, newParsingError("invalid json payload: %v", err)
		}
		if !validPayload(packet.Type, payload) {
			return nil, newParsingError("payload shape invalid for packet type %d", packet.Type)
		}
		packet.Data = payload
	} else if packet.Type == EVENT || packet.Type == BINARY_EVENT {
		return nil, newParsingError("event packet missing data")
	}

	decoderLog.Debug("decoded %q as type=%d nsp=%s", data, packet.Type, packet.Nsp)
	return packet, nil
}

func validPayload(t PacketType, payload any) bool {
	switch t {
	case CONNECT:
		if payload == nil {
			return true
		}
		_, ok := payload.(map[string]any)
		return ok
	case DISCONNECT:
		return payload == nil
	case CONNECT_ERROR:
		if _, ok := payload.(map[string]any); ok {
			return true
		}
		_, ok := payload.(string)
		return ok
	case EVENT, BINARY_EVENT:
		data, ok := payload.([]any)
		return ok && len(data) > 0
	case ACK, BINARY_ACK:
		_, ok := payload.([]any)
		return ok
	}
	return false
}

// reader is a minimal forward-only cursor over a header string.
type reader struct {
	s   string
	pos int
}

func (r *reader) next() (byte, bool) {
	if r.pos >= len(r.s) {
		return 0, false
	}
	b := r.s[r.pos]
	r.pos++
	return b, true
}

func (r *reader) peek() (byte, bool) {
	if r.pos >= len(r.s) {
		return 0, false
	}
	return r.s[r.pos], true
}

func (r *reader) rest() string { return r.s[r.pos:] }

func (r *reader) advance(n int) { r.pos += n }
