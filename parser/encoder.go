package parser

import (
	"encoding/json"
	"strconv"

	"github.com/lattice-io/socketio-core/pkg/log"
)

var encoderLog = log.NewLog("socket.io:parser:encoder")

// Encoder serializes a logical Packet into one or more wire frames: a single
// text frame for non-binary packets, or a text header frame followed by one
// binary frame per attachment for BINARY_EVENT/BINARY_ACK packets.
type Encoder interface {
	Encode(*Packet) ([]string, [][]byte)
}

type encoder struct{}

func NewEncoder() Encoder { return &encoder{} }

// Encode returns the text frames to send (always at least one: the header)
// and the binary attachment frames to send immediately after it, in order.
func (e *encoder) Encode(packet *Packet) ([]string, [][]byte) {
	encoderLog.Debug("encoding packet type=%d nsp=%s", packet.Type, packet.Nsp)
	if packet.Type == EVENT || packet.Type == ACK {
		if HasBinary(packet.Data) {
			// Work on a copy so the caller's packet (possibly shared by
			// several broadcast recipients) keeps its original type and data.
			p := *packet
			if p.Type == EVENT {
				p.Type = BINARY_EVENT
			} else {
				p.Type = BINARY_ACK
			}
			return e.encodeAsBinary(&p)
		}
	}
	return []string{e.encodeHeader(packet)}, nil
}

func (e *encoder) encodeHeader(packet *Packet) string {
	var b []byte
	b = append(b, byte(packet.Type))
	if packet.Type.IsBinary() {
		n := uint64(0)
		if packet.Attachments != nil {
			n = *packet.Attachments
		}
		b = append(b, []byte(strconv.FormatUint(n, 10))...)
		b = append(b, '-')
	}
	if packet.Nsp != "" && packet.Nsp != "/" {
		b = append(b, []byte(packet.Nsp)...)
		b = append(b, ',')
	}
	if packet.Id != nil {
		b = append(b, []byte(strconv.FormatUint(*packet.Id, 10))...)
	}
	if packet.Data != nil {
		if encoded, err := json.Marshal(packet.Data); err == nil {
			b = append(b, encoded...)
		}
	}
	return string(b)
}

func (e *encoder) encodeAsBinary(packet *Packet) ([]string, [][]byte) {
	deconstructed, buffers := DeconstructPacket(packet)
	return []string{e.encodeHeader(deconstructed)}, buffers
}
