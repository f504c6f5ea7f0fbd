package session

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokertable/internal/auth"
	"github.com/lox/pokertable/internal/deck"
	"github.com/lox/pokertable/internal/engineerror"
	"github.com/lox/pokertable/internal/protocol"
	"github.com/lox/pokertable/internal/table"
)

// occupant is one identity's relationship to a TableSession: either a
// seated player or a seatless observer.
type occupant struct {
	identity *auth.Identity
	seat     int // -1 for an observer
}

// TableSession owns one *table.Table and fans its Event stream out as
// personalised protocol.Envelope messages. It is the sole mutator of
// the underlying Table: every exported method here both drives the
// table and performs the broadcast the resulting events require, so
// callers never need to read table.Event themselves.
//
// Table itself now carries its own mutex (see internal/table's package
// doc), so concurrent calls into one TableSession from multiple
// connections are safe.
type TableSession struct {
	ID     string
	tbl    *table.Table
	logger *log.Logger

	lookup func(identityKey string) *Connection

	// onHandComplete and onTimeout are optional hooks into
	// internal/handhistory and internal/tablestats, wired by Manager.
	// TableSession has no dependency on either package directly, so a
	// table can be exercised in tests with neither set.
	onHandComplete func(ev table.HandComplete)
	onTimeout      func()

	mu        sync.Mutex
	occupants map[string]*occupant // identityKey -> occupant
}

// NewTableSession constructs a table and wires its event stream to
// broadcast. lookup resolves an identity key to its current live
// Connection (nil if currently disconnected); it is backed by the
// Coordinator's sessionRegistry so a TableSession never has to track
// transports itself.
func NewTableSession(id string, cfg table.Config, clock quartz.Clock, logger *log.Logger, lookup func(string) *Connection) *TableSession {
	ts := &TableSession{
		ID:        id,
		logger:    logger.WithPrefix("table").With("table_id", id),
		lookup:    lookup,
		occupants: make(map[string]*occupant),
	}
	ts.tbl = table.New(cfg, clock, ts.onEvent)
	return ts
}

// SetHandCompleteHook registers fn to be called, after broadcasting,
// whenever a hand finishes. Used by Manager to wire in hand-history
// archival.
func (ts *TableSession) SetHandCompleteHook(fn func(ev table.HandComplete)) { ts.onHandComplete = fn }

// SetTimeoutHook registers fn to be called whenever a forced auto-
// check/auto-fold fires. Used by Manager to wire in tablestats.
func (ts *TableSession) SetTimeoutHook(fn func()) { ts.onTimeout = fn }

func (ts *TableSession) Close() { ts.tbl.Close() }

func (ts *TableSession) identityKeyFor(id *auth.Identity) string { return string(id.ID) }

// Join seats identity and broadcasts the resulting state.
func (ts *TableSession) Join(identity *auth.Identity, preferredSeat, buyIn int) (int, error) {
	seat, err := ts.tbl.Join(identity.ID, identity.Handle, preferredSeat, buyIn)
	if err != nil {
		return -1, err
	}
	ts.mu.Lock()
	ts.occupants[ts.identityKeyFor(identity)] = &occupant{identity: identity, seat: seat}
	ts.mu.Unlock()

	if conn := ts.lookup(ts.identityKeyFor(identity)); conn != nil {
		conn.SendTyped(protocol.TypeSeatAssigned, protocol.SeatAssignedData{TableID: ts.ID, SeatNumber: seat})
	}
	ts.broadcastState()
	return seat, nil
}

// Observe registers identity as a seatless watcher and sends it the
// current state once.
func (ts *TableSession) Observe(identity *auth.Identity) {
	ts.mu.Lock()
	ts.occupants[ts.identityKeyFor(identity)] = &occupant{identity: identity, seat: -1}
	ts.mu.Unlock()
	if conn := ts.lookup(ts.identityKeyFor(identity)); conn != nil {
		conn.SendTyped(protocol.TypeGameState, ts.stateFor(identity))
	}
}

// dropOccupantByIdentity removes the occupant record for a seat the
// table itself just vacated (explicit leave already going through, or
// the kick timer firing), so a since-reconnected identity isn't shown
// as still seated once the table no longer agrees.
func (ts *TableSession) dropOccupantByIdentity(identity []byte) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for key, o := range ts.occupants {
		if sameIdentity(o.identity.ID, identity) {
			delete(ts.occupants, key)
			return
		}
	}
}

func (ts *TableSession) occupantSeat(identity *auth.Identity) (int, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	o, ok := ts.occupants[ts.identityKeyFor(identity)]
	if !ok || o.seat < 0 {
		return -1, false
	}
	return o.seat, true
}

func (ts *TableSession) Leave(identity *auth.Identity) error {
	seat, ok := ts.occupantSeat(identity)
	ts.mu.Lock()
	delete(ts.occupants, ts.identityKeyFor(identity))
	ts.mu.Unlock()
	if !ok {
		return nil
	}
	ts.tbl.Leave(seat)
	ts.broadcastState()
	return nil
}

func (ts *TableSession) Action(identity *auth.Identity, a table.Action) error {
	seat, ok := ts.occupantSeat(identity)
	if !ok {
		return engineerror.New(engineerror.NotInHand, "not seated at this table")
	}
	if err := ts.tbl.Action(seat, a); err != nil {
		return err
	}
	return nil
}

func (ts *TableSession) SitOut(identity *auth.Identity) error {
	seat, ok := ts.occupantSeat(identity)
	if !ok {
		return engineerror.New(engineerror.NotInHand, "not seated at this table")
	}
	return ts.tbl.SitOut(seat)
}

func (ts *TableSession) SitBackIn(identity *auth.Identity) error {
	seat, ok := ts.occupantSeat(identity)
	if !ok {
		return engineerror.New(engineerror.NotInHand, "not seated at this table")
	}
	return ts.tbl.SitBackIn(seat)
}

// Chat fans a chat line out to everyone present at the table,
// including observers; chat never touches table.Table state.
func (ts *TableSession) Chat(identity *auth.Identity, text string) {
	ts.broadcastTo(func(viewer *auth.Identity) (protocol.MessageType, interface{}, bool) {
		return protocol.TypeChatBroadcast, protocol.ChatBroadcastData{
			TableID: ts.ID, Handle: identity.Handle, Text: text,
		}, true
	})
}

func (ts *TableSession) Rebuy(identity *auth.Identity, amount int) error {
	seat, ok := ts.occupantSeat(identity)
	if !ok {
		return engineerror.New(engineerror.NotInHand, "not seated at this table")
	}
	return ts.tbl.Rebuy(seat, amount)
}

// SetDisconnected and AutoSitOut are called by the Coordinator's
// disconnect grace ladder (internal/session/registry.go), not by
// inbound client messages.
func (ts *TableSession) SetDisconnected(ref seatRef, disconnected bool) {
	if ref.seat < 0 {
		return
	}
	_ = ts.tbl.SetDisconnected(ref.seat, disconnected)
}

func (ts *TableSession) AutoSitOut(ref seatRef) {
	if ref.seat < 0 {
		return
	}
	_ = ts.tbl.SitOut(ref.seat)
}

// onEvent is the Table's Emit callback; it runs with the table's own
// mutex held, so every occupants-map read it triggers here is a
// consistent snapshot with no additional locking needed on the table
// side.
func (ts *TableSession) onEvent(e table.Event) {
	switch ev := e.(type) {
	case table.HandStarted:
		ts.broadcastState()
	case table.StreetChanged:
		ts.broadcastState()
	case table.ActionTimerStarted:
		ts.broadcastTo(func(identity *auth.Identity) (protocol.MessageType, interface{}, bool) {
			return protocol.TypeActionTimerStart, protocol.ActionTimerStartData{
				TableID: ts.ID, Seat: ev.Seat, Duration: ev.Duration.Milliseconds(),
			}, true
		})
	case table.TimeBankStarted:
		ts.broadcastTo(func(identity *auth.Identity) (protocol.MessageType, interface{}, bool) {
			return protocol.TypeTimeBankStart, protocol.TimeBankStartData{
				TableID: ts.ID, Seat: ev.Seat, Remaining: ev.Remaining.Milliseconds(),
			}, true
		})
	case table.PlayerActed:
		ts.broadcastState()
		if ev.Auto && ts.onTimeout != nil {
			ts.onTimeout()
		}
	case table.HandLog:
		ts.broadcastHandLog(ev)
	case table.HandComplete:
		ts.broadcastHandComplete(ev)
		ts.broadcastState()
		if ts.onHandComplete != nil {
			ts.onHandComplete(ev)
		}
	case table.SeatSatOut:
		ts.broadcastState()
	case table.SeatRemoved:
		ts.dropOccupantByIdentity(ev.Identity)
		ts.broadcastState()
	case table.Rebuy:
		ts.broadcastState()
	case table.SeatConnectionChanged:
		ts.broadcastState()
	}
}

func (ts *TableSession) broadcastTo(build func(*auth.Identity) (protocol.MessageType, interface{}, bool)) {
	ts.mu.Lock()
	occs := make([]*occupant, 0, len(ts.occupants))
	for _, o := range ts.occupants {
		occs = append(occs, o)
	}
	ts.mu.Unlock()

	for _, o := range occs {
		t, data, ok := build(o.identity)
		if !ok {
			continue
		}
		if conn := ts.lookup(ts.identityKeyFor(o.identity)); conn != nil {
			conn.SendTyped(t, data)
		}
	}
}

func (ts *TableSession) broadcastState() {
	ts.broadcastTo(func(identity *auth.Identity) (protocol.MessageType, interface{}, bool) {
		return protocol.TypeGameState, ts.stateFor(identity), true
	})
}

// stateFor builds the personalised snapshot for one viewer: hole cards
// are included only for the viewer's own seat, except once Phase is
// Showdown, when every not-folded participant's cards are public.
func (ts *TableSession) stateFor(viewer *auth.Identity) protocol.GameStateData {
	snap := ts.tbl.Snapshot()
	seats := make([]protocol.SeatView, 0, len(snap.Seats))
	for i, p := range snap.Seats {
		if p == nil {
			continue
		}
		sv := protocol.SeatView{
			Seat:           i,
			Handle:         p.Handle,
			Stack:          p.Stack,
			StreetBet:      p.StreetBet,
			TotalCommitted: p.TotalCommitted,
			Folded:         p.Folded,
			AllIn:          p.AllIn,
			SittingOut:     p.SittingOut,
			Disconnected:   p.Disconnected,
		}
		isOwner := sameIdentity(p.Identity, viewer.ID)
		reveal := isOwner || (snap.Phase == table.Showdown && !p.Folded)
		if reveal {
			sv.HoleCards = cardStrings(p.HoleCards)
		}
		seats = append(seats, sv)
	}
	return protocol.GameStateData{
		TableID:      ts.ID,
		HandNumber:   snap.HandNumber,
		Phase:        snap.Phase.String(),
		Community:    cardStrings(snap.Community),
		Pot:          snap.Pot,
		ChipPile:     snap.ChipPile,
		DealerSeat:   snap.DealerSeat,
		CurrentActor: snap.CurrentActor,
		Seats:        seats,
	}
}

func (ts *TableSession) broadcastHandLog(ev table.HandLog) {
	ts.broadcastTo(func(identity *auth.Identity) (protocol.MessageType, interface{}, bool) {
		lines := append([]string{}, ev.Public...)
		if seat, ok := ts.occupantSeat(identity); ok {
			if priv, ok := ev.Private[seat]; ok {
				lines = append(lines, priv)
			}
		}
		return protocol.TypeHandLog, protocol.HandLogData{TableID: ts.ID, Lines: lines}, true
	})
}

func (ts *TableSession) broadcastHandComplete(ev table.HandComplete) {
	won := make(map[int]int, len(ev.Awards))
	for _, a := range ev.Awards {
		won[a.Seat] += a.Amount
	}
	ts.broadcastTo(func(identity *auth.Identity) (protocol.MessageType, interface{}, bool) {
		viewerSeat, _ := ts.occupantSeat(identity)
		participants := make([]protocol.ParticipantSummary, 0, len(ev.Participants))
		for _, p := range ev.Participants {
			reveal := p.Seat == viewerSeat || !p.Folded
			summary := protocol.ParticipantSummary{
				Seat:          p.Seat,
				Handle:        p.Handle,
				StartingStack: p.StartingStack,
				EndingStack:   p.EndingStack,
				WonAmount:     p.WonAmount,
				Folded:        p.Folded,
			}
			if reveal {
				summary.FinalHandName = p.FinalHandName
			}
			participants = append(participants, summary)
		}
		return protocol.TypeHandComplete, protocol.HandCompleteData{
			TableID:      ts.ID,
			HandNumber:   ev.HandNumber,
			Community:    cardStrings(ev.CommunityEnd),
			Participants: participants,
		}, true
	})
}

func cardStrings(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func sameIdentity(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
