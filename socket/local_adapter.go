package socket

import (
	"sync"
	"time"

	"github.com/lattice-io/socketio-core/parser"
)

// LocalAdapter is the single-process Adapter: room membership lives in two
// in-memory maps (room -> sids, sid -> rooms) and every operation is
// synchronous and infallible, exactly as §4.2 requires of the authoritative
// local implementation.
type LocalAdapter struct {
	nsp *Namespace

	mu    sync.RWMutex
	rooms map[Room]set[Sid]
	sids  map[Sid]set[Room]
}

// NewLocalAdapter constructs the local adapter for one namespace.
func NewLocalAdapter(nsp *Namespace) *LocalAdapter {
	return &LocalAdapter{
		nsp:   nsp,
		rooms: make(map[Room]set[Sid]),
		sids:  make(map[Sid]set[Room]),
	}
}

func (a *LocalAdapter) AddAll(sid Sid, rooms []Room) {
	if len(rooms) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	sidRooms, ok := a.sids[sid]
	if !ok {
		sidRooms = newSet[Room]()
		a.sids[sid] = sidRooms
	}
	for _, room := range rooms {
		sidRooms.add(room)
		ids, ok := a.rooms[room]
		if !ok {
			ids = newSet[Sid]()
			a.rooms[room] = ids
		}
		ids.add(sid)
	}
}

func (a *LocalAdapter) Del(sid Sid, rooms []Room) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.del(sid, rooms)
}

// del assumes the caller already holds a.mu.
func (a *LocalAdapter) del(sid Sid, rooms []Room) {
	sidRooms, ok := a.sids[sid]
	for _, room := range rooms {
		if ok {
			sidRooms.del(room)
		}
		if ids, ok := a.rooms[room]; ok {
			ids.del(sid)
			if len(ids) == 0 {
				delete(a.rooms, room)
			}
		}
	}
}

func (a *LocalAdapter) DelAll(sid Sid) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sidRooms, ok := a.sids[sid]
	if !ok {
		return
	}
	a.del(sid, sidRooms.keys())
	delete(a.sids, sid)
}

func (a *LocalAdapter) SocketRooms(sid Sid) []Room {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rooms, ok := a.sids[sid]
	if !ok {
		return nil
	}
	return rooms.keys()
}

// selection computes the sids selected by opts per the §4.2 set algebra.
func (a *LocalAdapter) selection(opts *BroadcastOptions) set[Sid] {
	a.mu.RLock()
	defer a.mu.RUnlock()

	except := newSet[Sid]()
	if opts != nil {
		for _, room := range opts.Except {
			for sid := range a.rooms[room] {
				except.add(sid)
			}
		}
	}

	selected := newSet[Sid]()
	if opts != nil && len(opts.Rooms) > 0 {
		for _, room := range opts.Rooms {
			for sid := range a.rooms[room] {
				if !except.has(sid) {
					selected.add(sid)
				}
			}
		}
	} else {
		// No room filter: select every connected socket, not just those
		// that have joined a room (a.sids only tracks the latter).
		for _, sock := range a.nsp.Sockets() {
			if !except.has(sock.Id()) {
				selected.add(sock.Id())
			}
		}
	}

	if opts != nil && opts.ExcludeSelf {
		selected.del(opts.Origin)
	}
	return selected
}

func (a *LocalAdapter) apply(opts *BroadcastOptions, fn func(*Socket)) {
	for sid := range a.selection(opts) {
		if sock, ok := a.nsp.getSocket(sid); ok {
			fn(sock)
		}
	}
}

func (a *LocalAdapter) Broadcast(packet *parser.Packet, opts *BroadcastOptions) error {
	packet.Nsp = a.nsp.Name()
	a.apply(opts, func(sock *Socket) {
		if err := sock.deliver(packet); err != nil {
			adapterLog.Debug("broadcast delivery to %s failed: %v", sock.Id(), err)
		}
	})
	return nil
}

func (a *LocalAdapter) BroadcastWithAck(packet *parser.Packet, opts *BroadcastOptions) (chan AckOutcome, int, error) {
	packet.Nsp = a.nsp.Name()

	var recipients []*Socket
	a.apply(opts, func(sock *Socket) { recipients = append(recipients, sock) })

	timeout := a.nsp.server.opts.AckTimeout
	if opts != nil && opts.Timeout != nil {
		timeout = *opts.Timeout
	}

	merged := make(chan AckOutcome, len(recipients))
	for _, sock := range recipients {
		id := sock.acks.allocate()
		stamped := *packet
		stamped.Id = &id

		waiter := make(chan AckOutcome, 1)
		if !sock.acks.register(id, waiter) {
			merged <- AckOutcome{Err: &AckError{Kind: AckSocketClosed}}
			continue
		}
		timer := time.AfterFunc(timeout, func() { sock.acks.timeout(id) })

		go func(waiter chan AckOutcome, timer *time.Timer) {
			out := <-waiter
			timer.Stop()
			merged <- out
		}(waiter, timer)

		if err := sock.deliver(&stamped); err != nil {
			timer.Stop()
			// The collector goroutine above is already blocked on <-waiter;
			// deliver the failure through cancel rather than sending to
			// merged directly, or that goroutine leaks forever.
			sock.acks.cancel(id, &AckOutcome{Err: &AckError{Kind: AckSend, Err: err}})
		}
	}
	return merged, len(recipients), nil
}

func (a *LocalAdapter) FetchSockets(opts *BroadcastOptions) ([]SocketDetails, error) {
	var out []SocketDetails
	a.apply(opts, func(sock *Socket) { out = append(out, sock) })
	return out, nil
}

func (a *LocalAdapter) DisconnectSockets(opts *BroadcastOptions, close bool) error {
	a.apply(opts, func(sock *Socket) { sock.Disconnect(close) })
	return nil
}
