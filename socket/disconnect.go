package socket

// DisconnectReason enumerates why a socket was closed, surfaced verbatim to
// user disconnect handlers. The engine-layer reasons map one-to-one onto
// this set; ClientNSDisconnect and ServerNSDisconnect are the ones this
// package itself closes sockets with.
type DisconnectReason int

const (
	// TransportClose: the client gracefully closed the connection.
	TransportClose DisconnectReason = iota
	// TransportError: the connection was abruptly closed (network change, etc).
	TransportError
	// HeartbeatTimeout: no PONG within the configured ping timeout.
	HeartbeatTimeout
	// MultipleHttpPollingError: the client issued concurrent polling requests.
	MultipleHttpPollingError
	// PacketParsingError: an inbound frame could not be decoded.
	PacketParsingError
	// ClientNSDisconnect: the client sent an explicit DISCONNECT packet.
	ClientNSDisconnect
	// ServerNSDisconnect: the server called Socket.Disconnect or
	// Operators.DisconnectSockets.
	ServerNSDisconnect
	// ClosingServer: the whole server is shutting down.
	ClosingServer
)

func (r DisconnectReason) String() string {
	switch r {
	case TransportClose:
		return "transport close"
	case TransportError:
		return "transport error"
	case HeartbeatTimeout:
		return "ping timeout"
	case MultipleHttpPollingError:
		return "multiple http polling error"
	case PacketParsingError:
		return "parse error"
	case ClientNSDisconnect:
		return "client namespace disconnect"
	case ServerNSDisconnect:
		return "server namespace disconnect"
	case ClosingServer:
		return "server shutting down"
	default:
		return "unknown"
	}
}
