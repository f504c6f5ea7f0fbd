package acttimer

import (
	"sync"
	"time"
)

// BankConfig controls the starting size of each time-bank pool and how
// it grows as a player sees more hands dealt at the table.
type BankConfig struct {
	StartingPreflop  time.Duration
	StartingPostflop time.Duration
	GrowthEveryHands int
	GrowthStep       time.Duration
	GrowthCap        time.Duration
}

type pools struct {
	preflop, postflop time.Duration
	handsDealt        int
}

// BankTracker owns each seat's time-bank pools and grows them every
// GrowthEveryHands hands dealt to that seat, clamped to GrowthCap.
type BankTracker struct {
	cfg BankConfig

	mu   sync.Mutex
	bank map[int]*pools
}

// NewBankTracker creates a tracker with the given configuration.
func NewBankTracker(cfg BankConfig) *BankTracker {
	return &BankTracker{cfg: cfg, bank: make(map[int]*pools)}
}

// AddSeat initializes a seat's pools to the starting configuration. It
// is a no-op if the seat already has pools (e.g. rejoining the same
// session rather than a fresh buy-in).
func (bt *BankTracker) AddSeat(seat int) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if _, ok := bt.bank[seat]; ok {
		return
	}
	bt.bank[seat] = &pools{preflop: bt.cfg.StartingPreflop, postflop: bt.cfg.StartingPostflop}
}

// RemoveSeat forgets a seat's pools, e.g. when the player leaves the
// table for good.
func (bt *BankTracker) RemoveSeat(seat int) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	delete(bt.bank, seat)
}

// HandDealt records that a hand was dealt to seat, growing its pools by
// GrowthStep (clamped to GrowthCap) every GrowthEveryHands hands.
func (bt *BankTracker) HandDealt(seat int) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	p, ok := bt.bank[seat]
	if !ok {
		p = &pools{preflop: bt.cfg.StartingPreflop, postflop: bt.cfg.StartingPostflop}
		bt.bank[seat] = p
	}
	p.handsDealt++
	if bt.cfg.GrowthEveryHands > 0 && p.handsDealt%bt.cfg.GrowthEveryHands == 0 {
		p.preflop = clampDuration(p.preflop+bt.cfg.GrowthStep, bt.cfg.GrowthCap)
		p.postflop = clampDuration(p.postflop+bt.cfg.GrowthStep, bt.cfg.GrowthCap)
	}
}

// Remaining returns the seat's remaining time for the given pool.
func (bt *BankTracker) Remaining(seat int, pool Pool) time.Duration {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	p, ok := bt.bank[seat]
	if !ok {
		return 0
	}
	if pool == PoolPreflop {
		return p.preflop
	}
	return p.postflop
}

// Deduct subtracts elapsed from the seat's pool, floored at zero.
func (bt *BankTracker) Deduct(seat int, pool Pool, elapsed time.Duration) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	p, ok := bt.bank[seat]
	if !ok {
		return
	}
	if pool == PoolPreflop {
		p.preflop -= elapsed
		if p.preflop < 0 {
			p.preflop = 0
		}
		return
	}
	p.postflop -= elapsed
	if p.postflop < 0 {
		p.postflop = 0
	}
}

func clampDuration(d, cap time.Duration) time.Duration {
	if cap > 0 && d > cap {
		return cap
	}
	return d
}
