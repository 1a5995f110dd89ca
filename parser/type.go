// Package parser implements the Socket.IO v4 wire protocol: encoding and
// decoding of the packet header grammar described in the protocol spec, and
// the splicing of binary attachments out of (and back into) a packet's JSON
// data via `{"_placeholder":true,"num":N}` markers.
package parser

// PacketType is the single-byte header tag that begins every encoded packet.
type PacketType byte

const (
	CONNECT       PacketType = '0'
	DISCONNECT    PacketType = '1'
	EVENT         PacketType = '2'
	ACK           PacketType = '3'
	CONNECT_ERROR PacketType = '4'
	BINARY_EVENT  PacketType = '5'
	BINARY_ACK    PacketType = '6'
)

func (t PacketType) Valid() bool {
	return t >= CONNECT && t <= BINARY_ACK
}

func (t PacketType) IsBinary() bool {
	return t == BINARY_EVENT || t == BINARY_ACK
}

// Packet is the logical tagged union from the protocol's data model. Id is a
// pointer because 0 is a valid ack id and its absence (no ack requested) must
// be distinguishable from ack id 0.
type Packet struct {
	Type PacketType
	Nsp  string
	Data any
	Id   *uint64

	// Attachments is the binary-attachment count: set by DeconstructPacket
	// before encoding, parsed from the header while decoding, and nil once a
	// packet is fully reconstructed.
	Attachments *uint64
}

// Placeholder is the recognized shape of a binary-attachment marker embedded
// in packet Data in place of a raw byte blob.
type Placeholder struct {
	Placeholder bool `json:"_placeholder" mapstructure:"_placeholder"`
	Num         int  `json:"num" mapstructure:"num"`
}
