// Package table implements the per-table poker state machine: seating,
// blinds, dealing, betting rounds, side pots, showdown, hand history,
// sit-out/rebuy, and the action timer integration.
//
// A *Table guards its own state with a mutex: every exported method and
// the hand-start, kick, run-out and action-timeout callbacks take it, so
// no two of them run concurrently (see the Table type's doc).
package table

import (
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/pokertable/internal/acttimer"
	"github.com/lox/pokertable/internal/deck"
)

// Table is the authoritative state of one 6-seat (configurable) game.
//
// Every externally-reachable entry point (Join, Leave, Action, SitOut,
// SitBackIn, Rebuy, Snapshot, SetDisconnected, Close) and every
// quartz-scheduled callback (onActionTimerExpire, kickTimerFire,
// onHandStartTimer, runoutStep) takes mu, so the "one mutator at a
// time" guarantee holds even though quartz fires timer callbacks on its
// own goroutine in production (internal/session calls the former from
// its connection goroutines, so both sources of entry need this lock).
// Methods named in lowercase (leave, applyAction, ...) assume mu is
// already held and must never be called from outside one of the locked
// entry points above.
type Table struct {
	mu sync.Mutex

	Config Config

	Seats        []*SeatedPlayer
	Community    []deck.Card
	Pot          int
	ChipPile     []int
	DealerSeat   int
	CurrentActor int
	Phase        Phase
	HandNumber   int
	HandStartedAt time.Time
	Log          []string
	SBSeat       int
	BBSeat       int

	clock quartz.Clock
	emit  func(Event)

	deck  *deck.Deck
	round *bettingRound

	timer            *acttimer.ActionTimer
	pendingHandStart *quartz.Timer
	kickTimers       map[int]*quartz.Timer
	runoutTimer      *quartz.Timer

	handStart map[int]int // seat -> starting stack snapshot, for won_amount

	newDeck func() (*deck.Deck, error)

	recentLeaves map[string]leaveRecord // identity string -> last-leave record, for anti-ratholing
	privateLines map[int][]string       // seat -> this hand's private "dealt to" lines, for archive text
}

// New creates an idle table. clock is almost always quartz.NewReal() in
// production and quartz.NewMock(t) in tests; emit receives every Event
// the table produces, in order.
func New(cfg Config, clock quartz.Clock, emit func(Event)) *Table {
	if cfg.NumSeats <= 0 {
		cfg.NumSeats = 6
	}
	t := &Table{
		Config:       cfg,
		Seats:        make([]*SeatedPlayer, cfg.NumSeats),
		DealerSeat:   -1,
		CurrentActor: -1,
		Phase:        Idle,
		clock:        clock,
		emit:         emit,
		kickTimers:   make(map[int]*quartz.Timer),
		recentLeaves: make(map[string]leaveRecord),
	}
	t.newDeck = t.defaultNewDeck
	t.timer = acttimer.New(clock, cfg.BaseActionDuration, acttimer.Callbacks{
		HasCommitted:    t.seatHasCommitted,
		BankRemaining:   t.seatBankRemaining,
		DeductBank:      t.seatDeductBank,
		OnTimeBankStart: t.onTimeBankStart,
		OnExpire:        t.onActionTimerExpire,
	})
	return t
}

func (t *Table) defaultNewDeck() (*deck.Deck, error) {
	d := deck.NewDeck()
	if err := d.Shuffle(); err != nil {
		return nil, err
	}
	return d, nil
}

// SetDeckFactory overrides how the table obtains a fresh shuffled deck.
// Production code never calls this; it exists so tests can arrange
// specific hole/community cards without compromising the production
// path's use of crypto/rand.
func (t *Table) SetDeckFactory(fn func() (*deck.Deck, error)) {
	t.newDeck = fn
}

func (t *Table) emitEvent(e Event) {
	if t.emit != nil {
		t.emit(e)
	}
}

// Join seats a new player. preferredSeat selects a seat if it is empty
// and in range; otherwise (or if -1) the lowest-index empty seat is
// used. Returns the seat index.
func (t *Table) Join(identity []byte, handle string, preferredSeat, buyIn int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.Seats {
		if p != nil && sameIdentity(p.Identity, identity) {
			return -1, errAlreadySeated()
		}
	}

	seat := -1
	if preferredSeat >= 0 && preferredSeat < len(t.Seats) && t.Seats[preferredSeat] == nil {
		seat = preferredSeat
	} else {
		for i, p := range t.Seats {
			if p == nil {
				seat = i
				break
			}
		}
	}
	if seat == -1 {
		return -1, errTableFull()
	}

	buyIn = clamp(buyIn, t.Config.MinBuyin, t.Config.MaxBuyin)
	if rec, ok := t.recentLeaves[string(identity)]; ok {
		if t.clock.Now().Sub(rec.At) <= t.Config.RatholeWindow && rec.Stack > 0 {
			buyIn = maxInt(buyIn, rec.Stack)
		}
	}
	t.Seats[seat] = &SeatedPlayer{
		Identity:     identity,
		Handle:       handle,
		Stack:        buyIn,
		BankPreflop:  t.Config.DefaultTimeBank,
		BankPostflop: t.Config.DefaultTimeBank,
	}
	t.MaybeScheduleHandStart()
	return seat, nil
}

// Leave removes a seated player. If a hand is in progress the removal
// is deferred until the hand ends (pending-removal).
func (t *Table) Leave(seat int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leave(seat)
}

func (t *Table) leave(seat int) {
	p := t.seatAt(seat)
	if p == nil {
		return
	}
	if t.Phase != Idle && p.inHand() {
		p.PendingRemoval = true
		return
	}
	t.removeSeat(seat)
}

func (t *Table) removeSeat(seat int) {
	p := t.Seats[seat]
	if p == nil {
		return
	}
	if timer, ok := t.kickTimers[seat]; ok {
		timer.Stop()
		delete(t.kickTimers, seat)
	}
	p.LeftStack = p.Stack
	p.LeftAt = t.clock.Now()
	t.recentLeaves[string(p.Identity)] = leaveRecord{Stack: p.Stack, At: p.LeftAt}
	t.Seats[seat] = nil
	t.emitEvent(SeatRemoved{Seat: seat, Identity: p.Identity})
}

// Snapshot is a read-only copy of a Table's state taken under lock, safe
// to read from after the call returns without racing further table
// mutation. internal/session uses it to build personalised views.
type Snapshot struct {
	Seats        []*SeatedPlayer
	Community    []deck.Card
	Pot          int
	ChipPile     []int
	DealerSeat   int
	CurrentActor int
	Phase        Phase
	HandNumber   int
}

// Snapshot returns a deep-enough copy of the table's current state: the
// seat slice and each occupied seat are copied by value, so mutating the
// snapshot (or the live table, afterward) cannot affect the other.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	seats := make([]*SeatedPlayer, len(t.Seats))
	for i, p := range t.Seats {
		if p == nil {
			continue
		}
		cp := *p
		cp.HoleCards = append([]deck.Card{}, p.HoleCards...)
		seats[i] = &cp
	}
	return Snapshot{
		Seats:        seats,
		Community:    append([]deck.Card{}, t.Community...),
		Pot:          t.Pot,
		ChipPile:     append([]int{}, t.ChipPile...),
		DealerSeat:   t.DealerSeat,
		CurrentActor: t.CurrentActor,
		Phase:        t.Phase,
		HandNumber:   t.HandNumber,
	}
}

// SetDisconnected records a seat's transport connectivity for display
// purposes only; it never sits a player out or removes them. The
// disconnect grace ladder that decides when a drop becomes a sit-out
// lives in internal/session, which calls SitOut once its own timers
// expire; the kick that follows is this table's own sit-out kick timer.
func (t *Table) SetDisconnected(seat int, disconnected bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.seatAt(seat)
	if p == nil {
		return errInvalid("seat %d is empty", seat)
	}
	if p.Disconnected == disconnected {
		return nil
	}
	p.Disconnected = disconnected
	t.emitEvent(SeatConnectionChanged{Seat: seat, Disconnected: disconnected})
	return nil
}

func (t *Table) seatAt(seat int) *SeatedPlayer {
	if seat < 0 || seat >= len(t.Seats) {
		return nil
	}
	return t.Seats[seat]
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

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EligibleCount returns the number of seats currently eligible to be
// dealt into a hand (seated, not sitting out, stack > 0).
func (t *Table) EligibleCount() int {
	n := 0
	for _, p := range t.Seats {
		if p.eligible() {
			n++
		}
	}
	return n
}

func (t *Table) seatHasCommitted(seat int) bool {
	p := t.seatAt(seat)
	return p != nil && p.TotalCommitted > 0
}

func (t *Table) seatBankRemaining(seat int, pool acttimer.Pool) time.Duration {
	p := t.seatAt(seat)
	if p == nil {
		return 0
	}
	return *p.bankPool(pool == acttimer.PoolPreflop)
}

func (t *Table) seatDeductBank(seat int, pool acttimer.Pool, elapsed time.Duration) {
	p := t.seatAt(seat)
	if p == nil {
		return
	}
	b := p.bankPool(pool == acttimer.PoolPreflop)
	*b -= elapsed
	if *b < 0 {
		*b = 0
	}
}

func (t *Table) onTimeBankStart(seat int, remaining time.Duration) {
	t.emitEvent(TimeBankStarted{Seat: seat, Remaining: remaining})
}

func (t *Table) startActionTimerFor(seat int) {
	pool := acttimer.PoolPostflop
	if t.Phase == Preflop {
		pool = acttimer.PoolPreflop
	}
	t.timer.Start(seat, pool)
	t.emitEvent(ActionTimerStarted{Seat: seat, Duration: t.Config.BaseActionDuration})
}

