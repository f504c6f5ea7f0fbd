package session

import (
	"sync"

	"github.com/coder/quartz"

	"github.com/lox/pokertable/internal/auth"
)

// seatRef is where an authenticated identity currently sits, if
// anywhere. It is set by joinTable/observeTable and cleared on
// leaveTable or kick.
type seatRef struct {
	tableID string
	seat    int // -1 for an observer with no seat
}

// registryEntry is the sessionRegistry's per-identity record: the
// transport it currently owns, the seat it occupies (if any), and the
// pending grace-ladder timers armed by a drop.
type registryEntry struct {
	conn *Connection
	seat seatRef

	swapGraceTimer *quartz.Timer
	sitOutTimer    *quartz.Timer
}

// sessionRegistry maps an authenticated identity to the single
// transport it currently owns. Reconnection-as-swap means a new
// Connection for an already-registered identity silently displaces the
// old one without touching table state; a drop with no reconnect inside
// the configured grace windows degrades to an auto sit-out, and from
// there the table's own kick timer (armed by SitOut) takes over.
type sessionRegistry struct {
	mu      sync.Mutex
	clock   quartz.Clock
	cfg     Config
	entries map[string]*registryEntry
}

func newSessionRegistry(clock quartz.Clock, cfg Config) *sessionRegistry {
	return &sessionRegistry{
		clock:   clock,
		cfg:     cfg,
		entries: make(map[string]*registryEntry),
	}
}

func identityKey(id *auth.Identity) string {
	return string(id.ID)
}

// bind associates identity with conn. If the identity already owns a
// different live connection, that connection is closed (reconnect
// swap): the old transport is gone but the seat and table state are
// untouched. Any pending grace-ladder timers from a prior drop are
// cancelled.
func (r *sessionRegistry) bind(id *auth.Identity, conn *Connection) *registryEntry {
	key := identityKey(id)
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &registryEntry{seat: seatRef{seat: -1}}
		r.entries[key] = e
	}
	stale := e.conn
	e.conn = conn
	r.cancelTimersLocked(e)
	r.mu.Unlock()

	if stale != nil && stale != conn {
		_ = stale.Close()
	}
	return e
}

// connFor resolves an identity key to its current live Connection, or
// nil if that identity is currently disconnected. This is the lookup
// function TableSession and Manager use to address a broadcast.
func (r *sessionRegistry) connFor(key string) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e.conn
	}
	return nil
}

func (r *sessionRegistry) setSeat(id *auth.Identity, ref seatRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[identityKey(id)]; ok {
		e.seat = ref
	}
}

func (r *sessionRegistry) cancelTimersLocked(e *registryEntry) {
	if e.swapGraceTimer != nil {
		e.swapGraceTimer.Stop()
		e.swapGraceTimer = nil
	}
	if e.sitOutTimer != nil {
		e.sitOutTimer.Stop()
		e.sitOutTimer = nil
	}
}

// onDrop is called when conn's read pump exits. If conn is still the
// identity's registered transport (i.e. this isn't a stale pump from a
// connection already superseded by a swap), it arms the disconnect
// grace ladder: mark the seat disconnected after ReconnectSwapGrace,
// then auto sit-out after the further DisconnectGrace if still no
// reconnect. bind cancels both timers the moment a new connection
// claims the identity.
func (r *sessionRegistry) onDrop(id *auth.Identity, conn *Connection, onGraceExpired func(seatRef), onSitOut func(seatRef)) {
	r.mu.Lock()
	e, ok := r.entries[identityKey(id)]
	if !ok || e.conn != conn {
		r.mu.Unlock()
		return
	}
	ref := e.seat
	e.swapGraceTimer = r.clock.AfterFunc(r.cfg.ReconnectSwapGrace, func() {
		onGraceExpired(ref)
		r.mu.Lock()
		if cur, ok := r.entries[identityKey(id)]; ok && cur.conn == nil {
			cur.sitOutTimer = r.clock.AfterFunc(r.cfg.DisconnectGrace, func() {
				onSitOut(ref)
			})
		}
		r.mu.Unlock()
	})
	e.conn = nil
	r.mu.Unlock()
}

// unregister removes an identity's entry entirely, for an explicit
// leave-table-and-disconnect or an admin kick.
func (r *sessionRegistry) unregister(id *auth.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[identityKey(id)]; ok {
		r.cancelTimersLocked(e)
		delete(r.entries, identityKey(id))
	}
}
