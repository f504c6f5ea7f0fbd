package table

import "fmt"

// SitOut toggles sitting-out-next-hand. If the seat is not currently
// active in a hand in progress, the sit-out takes effect immediately
// and arms the kick timer.
func (t *Table) SitOut(seat int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.seatAt(seat)
	if p == nil {
		return errInvalid("seat %d is empty", seat)
	}
	p.SittingOutNextHand = true
	activeInHand := t.Phase != Idle && p.ParticipatedThisHand && !p.Folded
	if !activeInHand {
		p.SittingOut = true
		t.armKickTimer(seat)
	}
	t.emitEvent(SeatSatOut{Seat: seat, SittingOut: p.SittingOut})
	return nil
}

// SitBackIn clears sitting-out flags, cancels the pending kick, and
// re-arms the hand-start debounce if conditions now hold.
func (t *Table) SitBackIn(seat int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.seatAt(seat)
	if p == nil {
		return errInvalid("seat %d is empty", seat)
	}
	p.SittingOut = false
	p.SittingOutNextHand = false
	t.cancelKickTimer(seat)
	t.emitEvent(SeatSatOut{Seat: seat, SittingOut: false})
	t.MaybeScheduleHandStart()
	return nil
}

// Rebuy tops up a seated player's stack, clamped to [MinBuyin,
// MaxBuyin]. Only permitted when the player is not currently contesting
// a live hand (folded, or between hands).
func (t *Table) Rebuy(seat int, amount int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.seatAt(seat)
	if p == nil {
		return errInvalid("seat %d is empty", seat)
	}
	contesting := t.Phase != Idle && p.ParticipatedThisHand && !p.Folded
	if contesting {
		return errIllegal("cannot rebuy while contesting a live hand")
	}
	amount = clamp(amount, t.Config.MinBuyin, t.Config.MaxBuyin)
	p.Stack = amount
	p.Busted = false
	p.SittingOut = false
	t.cancelKickTimer(seat)
	t.emitEvent(Rebuy{Seat: seat, Identity: p.Identity, NewStack: p.Stack})
	t.MaybeScheduleHandStart()
	return nil
}

func (t *Table) armKickTimer(seat int) {
	t.cancelKickTimer(seat)
	t.kickTimers[seat] = t.clock.AfterFunc(t.Config.SitOutKick, func() { t.kickTimerFire(seat) })
}

func (t *Table) cancelKickTimer(seat int) {
	if tm, ok := t.kickTimers[seat]; ok {
		tm.Stop()
		delete(t.kickTimers, seat)
	}
}

// kickTimerFire removes a still-sitting-out player once the kick timer
// expires. A stale callback (the seat has since sat back in, rebought,
// or left) is a no-op.
func (t *Table) kickTimerFire(seat int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.kickTimers, seat)
	p := t.seatAt(seat)
	if p == nil || !p.SittingOut {
		return
	}
	t.leave(seat)
}

// onActionTimerExpire is the ActionTimer's OnExpire callback: the
// current actor failed to decide within base+time-bank. Per the spec,
// timeouts never surface a user-visible error; they auto-check when
// legal, otherwise auto-fold, and always impose a one-hand sit-out
// penalty.
func (t *Table) onActionTimerExpire(seat int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.seatAt(seat)
	if p == nil || t.CurrentActor != seat {
		return
	}

	var a Action
	if p.StreetBet == t.round.maxBet {
		a = Action{Kind: Check}
	} else {
		a = Action{Kind: Fold}
	}

	p.SittingOutNextHand = true
	t.logPublic(fmt.Sprintf("%s timed out", p.Handle))

	// Goes through the normal validation/mutation path so every
	// invariant the engine enforces for a voluntary action also holds
	// for a forced one. The timer has already expired, so its own
	// Cancel call inside applyAction is a harmless no-op.
	_ = t.applyAction(seat, a, true)
}
