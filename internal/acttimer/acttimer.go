// Package acttimer implements the two-phase per-actor decision clock: a
// base timer, followed by a time-bank phase funded from a per-player,
// per-street-type pool, built on an injectable clock so tests can drive
// it deterministically instead of sleeping.
package acttimer

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Pool identifies which time-bank pool a street draws from.
type Pool int

const (
	PoolPreflop Pool = iota
	PoolPostflop
)

type phase int

const (
	phaseIdle phase = iota
	phaseBase
	phaseBank
)

// Callbacks are the hooks an ActionTimer invokes as a decision clock runs
// out. They are called without the timer's internal lock held, so they
// may safely call back into the timer (e.g. Cancel).
type Callbacks struct {
	// HasCommitted reports whether the seat already has chips committed
	// to the current hand. A player who hasn't committed anything yet
	// (e.g. facing their first decision with nothing invested) does not
	// get a time-bank phase.
	HasCommitted func(seat int) bool
	// BankRemaining returns how much time is left in the seat's pool for
	// the given street type.
	BankRemaining func(seat int, pool Pool) time.Duration
	// DeductBank subtracts elapsed time-bank usage from the seat's pool.
	DeductBank func(seat int, pool Pool, elapsed time.Duration)
	// OnTimeBankStart fires once, when the base timer expires and the
	// timer transitions into the time-bank phase.
	OnTimeBankStart func(seat int, remaining time.Duration)
	// OnExpire fires when the timer runs out with no action taken,
	// whether that's the base timer (no bank available) or the bank
	// timer. The caller is expected to force a default action.
	OnExpire func(seat int)
}

// ActionTimer runs the base-timer-then-time-bank clock for a single
// current actor at a time.
type ActionTimer struct {
	clock        quartz.Clock
	baseDuration time.Duration
	cb           Callbacks

	mu      sync.Mutex
	active  bool
	seat    int
	pool    Pool
	phase   phase
	started time.Time
	timer   *quartz.Timer
	gen     uint64
}

// New creates an ActionTimer. baseDuration is the base per-action timer
// (spec default 15s); clock is almost always quartz.NewReal() in
// production and quartz.NewMock(t) in tests.
func New(clock quartz.Clock, baseDuration time.Duration, cb Callbacks) *ActionTimer {
	return &ActionTimer{clock: clock, baseDuration: baseDuration, cb: cb}
}

// Start begins the base timer for seat's decision on the given pool
// (preflop or postflop, selected by current street). Starting a new
// timer implicitly invalidates any timer still running for a previous
// actor.
func (t *ActionTimer) Start(seat int, pool Pool) {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.active = true
	t.seat = seat
	t.pool = pool
	t.phase = phaseBase
	t.started = t.clock.Now()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = t.clock.AfterFunc(t.baseDuration, func() { t.onBaseExpiry(seat, pool, gen) })
	t.mu.Unlock()
}

// Cancel stops the running timer, e.g. because the actor's decision
// arrived. If the timer was in its time-bank phase, the elapsed bank
// time is deducted before returning.
func (t *ActionTimer) Cancel() {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	seat, pool, ph, started := t.seat, t.pool, t.phase, t.started
	if t.timer != nil {
		t.timer.Stop()
	}
	t.active = false
	t.gen++
	t.mu.Unlock()

	if ph == phaseBank {
		elapsed := t.clock.Now().Sub(started)
		t.cb.DeductBank(seat, pool, elapsed)
	}
}

// onBaseExpiry runs when the base timer fires. Per the stale-callback
// defence, it first checks that the timer is still waiting on the same
// actor and generation; a late-arriving callback from a cancelled or
// superseded timer is a no-op.
func (t *ActionTimer) onBaseExpiry(seat int, pool Pool, gen uint64) {
	t.mu.Lock()
	if !t.active || t.gen != gen || t.seat != seat {
		t.mu.Unlock()
		return
	}

	if t.cb.HasCommitted(seat) {
		remaining := t.cb.BankRemaining(seat, pool)
		if remaining > 0 {
			t.phase = phaseBank
			t.started = t.clock.Now()
			t.timer = t.clock.AfterFunc(remaining, func() { t.onBankExpiry(seat, pool, gen) })
			t.mu.Unlock()
			t.cb.OnTimeBankStart(seat, remaining)
			return
		}
	}

	t.active = false
	t.mu.Unlock()
	t.cb.OnExpire(seat)
}

// onBankExpiry runs when the time-bank timer fires with no action taken.
func (t *ActionTimer) onBankExpiry(seat int, pool Pool, gen uint64) {
	t.mu.Lock()
	if !t.active || t.gen != gen || t.seat != seat {
		t.mu.Unlock()
		return
	}
	elapsed := t.clock.Now().Sub(t.started)
	t.active = false
	t.mu.Unlock()

	t.cb.DeductBank(seat, pool, elapsed)
	t.cb.OnExpire(seat)
}

// Active reports whether a timer is currently running, and for which
// seat.
func (t *ActionTimer) Active() (seat int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seat, t.active
}
