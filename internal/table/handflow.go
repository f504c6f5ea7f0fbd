package table

import (
	"fmt"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/pokertable/internal/deck"
	"github.com/lox/pokertable/internal/evaluator"
	"github.com/lox/pokertable/internal/potengine"
)

type leaveRecord struct {
	Stack int
	At    time.Time
}

// MaybeScheduleHandStart arms the debounced "enough players" check. It is
// a no-op if a hand is already running or a start is already pending; a
// rapid burst of joins therefore collapses into a single scheduled
// start ~HandStartDebounce after the first one.
func (t *Table) MaybeScheduleHandStart() {
	if t.Phase != Idle || t.pendingHandStart != nil {
		return
	}
	if t.EligibleCount() < 2 {
		return
	}
	t.pendingHandStart = t.clock.AfterFunc(t.Config.HandStartDebounce, t.onHandStartTimer)
}

func (t *Table) onHandStartTimer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingHandStart = nil
	t.startHandNow()
}

// startHandNow applies sitting-out-next-hand flags, re-checks
// eligibility, and if still >=2 eligible seats deals a new hand.
func (t *Table) startHandNow() {
	for _, p := range t.Seats {
		if p != nil && p.SittingOutNextHand {
			p.SittingOut = true
			p.SittingOutNextHand = false
		}
	}
	if t.EligibleCount() < 2 {
		return
	}

	d, err := t.newDeck()
	if err != nil {
		panic(fmt.Sprintf("table: refusing to deal without cryptographic entropy: %v", err))
	}
	t.deck = d

	participants := make([]int, 0, len(t.Seats))
	for seat, p := range t.Seats {
		if p.eligible() {
			p.resetForHand()
			p.ParticipatedThisHand = true
			p.HandsDealt++
			t.growTimeBank(p)
			participants = append(participants, seat)
		} else if p != nil {
			p.ParticipatedThisHand = false
		}
	}

	t.advanceDealer()
	t.HandNumber++
	t.HandStartedAt = t.clock.Now()
	t.Community = nil
	t.Pot = 0
	t.ChipPile = nil
	t.Log = nil
	t.privateLines = nil
	t.handStart = make(map[int]int, len(participants))
	for _, seat := range participants {
		t.handStart[seat] = t.Seats[seat].Stack
	}

	participatesFn := func(p *SeatedPlayer) bool { return p != nil && p.ParticipatedThisHand }

	if len(participants) == 2 {
		t.SBSeat = t.DealerSeat
		t.BBSeat = t.nextSeatClockwise(t.DealerSeat, participatesFn)
	} else {
		t.SBSeat = t.nextSeatClockwise(t.DealerSeat, participatesFn)
		t.BBSeat = t.nextSeatClockwise(t.SBSeat, participatesFn)
	}

	t.logPublic(fmt.Sprintf("-- hand #%d started %s (blinds %d/%d) --",
		t.HandNumber, t.HandStartedAt.Format(time.RFC3339), t.Config.SmallBlind, t.Config.BigBlind))
	for _, seat := range participants {
		p := t.Seats[seat]
		t.logPublic(fmt.Sprintf("seat %d: %s (%d)", seat, p.Handle, p.Stack))
	}

	t.postBlind(t.SBSeat, t.Config.SmallBlind, "small blind")
	t.postBlind(t.BBSeat, t.Config.BigBlind, "big blind")

	t.round = newBettingRound(t.Config.BigBlind)
	t.round.maxBet = t.Seats[t.BBSeat].StreetBet
	t.round.bbOptionSeat = t.BBSeat

	t.dealHoleCards(participants)

	t.Phase = Preflop
	if len(participants) == 2 {
		t.CurrentActor = t.DealerSeat
	} else {
		t.CurrentActor = t.nextSeatClockwise(t.BBSeat, participatesFn)
	}

	t.emitEvent(HandStarted{
		HandNumber: t.HandNumber,
		DealerSeat: t.DealerSeat,
		SBSeat:     t.SBSeat,
		BBSeat:     t.BBSeat,
		StartedAt:  t.HandStartedAt,
	})
	t.logPublic(fmt.Sprintf("-- preflop --"))
	t.startActionTimerFor(t.CurrentActor)
}

func (t *Table) advanceDealer() {
	pred := func(p *SeatedPlayer) bool { return p.eligible() }
	if t.DealerSeat == -1 {
		t.DealerSeat = t.nextSeatClockwise(-1, pred)
		return
	}
	if next := t.nextSeatClockwise(t.DealerSeat, pred); next != -1 {
		t.DealerSeat = next
	}
}

// nextSeatClockwise returns the next seat strictly after from (wrapping)
// for which pred holds, or -1 if none does.
func (t *Table) nextSeatClockwise(from int, pred func(*SeatedPlayer) bool) int {
	n := len(t.Seats)
	if n == 0 {
		return -1
	}
	for i := 1; i <= n; i++ {
		s := ((from+i)%n + n) % n
		if pred(t.Seats[s]) {
			return s
		}
	}
	return -1
}

func (t *Table) postBlind(seat int, amount int, label string) {
	p := t.Seats[seat]
	post := minInt(amount, p.Stack)
	t.commit(p, post)
	t.logPublic(fmt.Sprintf("%s posts %s %d", p.Handle, label, post))
}

// growTimeBank applies the time-bank growth rule: every
// TimeBankGrowthHands hands dealt to a player, both pools grow by
// TimeBankGrowth, clamped to TimeBankCap.
func (t *Table) growTimeBank(p *SeatedPlayer) {
	if t.Config.TimeBankGrowthHands <= 0 {
		return
	}
	if p.HandsDealt%t.Config.TimeBankGrowthHands != 0 {
		return
	}
	p.BankPreflop = minDuration(p.BankPreflop+t.Config.TimeBankGrowth, t.Config.TimeBankCap)
	p.BankPostflop = minDuration(p.BankPostflop+t.Config.TimeBankGrowth, t.Config.TimeBankCap)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func (t *Table) dealHoleCards(participants []int) {
	order := make([]int, 0, len(participants))
	cur := t.SBSeat
	order = append(order, cur)
	for i := 1; i < len(participants); i++ {
		cur = t.nextSeatClockwise(cur, func(p *SeatedPlayer) bool { return p != nil && p.ParticipatedThisHand })
		order = append(order, cur)
	}

	for pass := 0; pass < 2; pass++ {
		for _, seat := range order {
			card, ok := t.deck.Deal()
			if !ok {
				continue
			}
			t.Seats[seat].HoleCards = append(t.Seats[seat].HoleCards, card)
		}
	}
	for _, seat := range order {
		p := t.Seats[seat]
		t.logPrivate(seat, fmt.Sprintf("dealt to %s [%s]", p.Handle, cardsString(p.HoleCards)))
	}
}

func cardsString(cards []deck.Card) string {
	s := ""
	for i, c := range cards {
		if i > 0 {
			s += " "
		}
		s += c.String()
	}
	return s
}

// Action validates and applies a single player decision, advancing the
// state machine as far as the result demands (next actor, street
// advance, immediate award, or dramatic run-out).
func (t *Table) Action(seat int, a Action) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyAction(seat, a, false)
}

func (t *Table) applyAction(seat int, a Action, auto bool) error {
	if err := t.validateAction(seat, a); err != nil {
		return err
	}

	t.timer.Cancel()
	p := t.Seats[seat]

	switch a.Kind {
	case Fold:
		p.Folded = true
		t.logPublic(fmt.Sprintf("%s folds", p.Handle))

	case Check:
		t.logPublic(fmt.Sprintf("%s checks", p.Handle))

	case Call:
		amt := minInt(t.round.maxBet-p.StreetBet, p.Stack)
		t.commit(p, amt)
		t.logPublic(fmt.Sprintf("%s calls %d", p.Handle, amt))

	case Raise:
		t.applyRaise(seat, p, a.Total)
	}

	t.round.markActed(seat)
	if t.Phase == Preflop && seat == t.BBSeat {
		t.round.bbActed = true
	}
	t.emitEvent(PlayerActed{Seat: seat, Action: a, Auto: auto})

	if t.countInHand() == 1 {
		t.awardUncontested()
		return nil
	}

	if t.roundDone() {
		t.advanceStreetOrShowdown()
		return nil
	}

	t.CurrentActor = t.nextActor(seat)
	t.startActionTimerFor(t.CurrentActor)
	return nil
}

func (t *Table) nextActor(from int) int {
	return t.nextSeatClockwise(from, func(p *SeatedPlayer) bool {
		return p != nil && p.ParticipatedThisHand && p.canAct()
	})
}

func (t *Table) commit(p *SeatedPlayer, amount int) {
	p.Stack -= amount
	p.StreetBet += amount
	p.TotalCommitted += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
}

func (t *Table) applyRaise(seat int, p *SeatedPlayer, requestedTotal int) {
	if t.uncontestedExcess(seat) {
		amt := minInt(t.round.maxBet-p.StreetBet, p.Stack)
		t.commit(p, amt)
		t.logPublic(fmt.Sprintf("%s calls %d (uncontested raise capped)", p.Handle, amt))
		return
	}

	maxTotal := p.Stack + p.StreetBet
	total := requestedTotal
	if total > maxTotal {
		total = maxTotal
	}
	delta := total - p.StreetBet
	t.commit(p, delta)

	legal := total >= t.round.maxBet+maxInt(t.Config.BigBlind, t.round.lastRaise)
	if legal {
		t.round.lastRaise = total - t.round.maxBet
		t.round.lastAggressor = seat
		t.round.actedThisRound = map[int]bool{}
	}
	t.round.maxBet = maxInt(t.round.maxBet, total)

	verb := "raises to"
	if p.AllIn {
		verb = "is all-in for"
	}
	t.logPublic(fmt.Sprintf("%s %s %d", p.Handle, verb, total))
}

// collectStreetBets moves every seat's current-street commitment into
// the pot and the visual chip pile, then clears street bets.
func (t *Table) collectStreetBets() {
	total := 0
	for _, p := range t.Seats {
		if p == nil || !p.ParticipatedThisHand {
			continue
		}
		if p.StreetBet > 0 {
			total += p.StreetBet
			p.StreetBet = 0
		}
	}
	if total > 0 {
		t.Pot += total
		t.addChips(total)
	}
}

var chipDenominations = []int{1000, 500, 100, 25, 5, 1}

// addChips appends a greedy high-to-low denomination breakdown of amount
// to the visual chip pile, purely for display animation; the sum of the
// pile always equals the scalar Pot.
func (t *Table) addChips(amount int) {
	remaining := amount
	for _, d := range chipDenominations {
		for remaining >= d {
			t.ChipPile = append(t.ChipPile, d)
			remaining -= d
		}
	}
	if remaining > 0 {
		t.ChipPile = append(t.ChipPile, remaining)
	}
}

func (t *Table) newStreetRound() {
	t.round = newBettingRound(t.Config.BigBlind)
}

// advanceStreetOrShowdown is called once a street's action is complete.
// It collects bets, and either awards immediately (one player left),
// enters the dramatic run-out if no further action is possible, or
// deals the next street.
func (t *Table) advanceStreetOrShowdown() {
	t.collectStreetBets()

	if t.countInHand() == 1 {
		t.awardUncontested()
		return
	}

	if t.countCanAct() <= 1 && t.Phase != River {
		t.Phase = Showdown
		t.CurrentActor = -1
		t.emitEvent(StreetChanged{Phase: Showdown, Community: copyCards(t.Community)})
		t.logPublic("-- all remaining players are all-in, revealing and running out the board --")
		t.scheduleDramaticRunout()
		return
	}

	switch t.Phase {
	case Preflop:
		t.dealFlop()
		t.Phase = Flop
	case Flop:
		t.dealTurn()
		t.Phase = Turn
	case Turn:
		t.dealRiver()
		t.Phase = River
	case River:
		t.doShowdownNow()
		return
	}

	t.newStreetRound()
	t.CurrentActor = t.nextSeatClockwise(t.DealerSeat, func(p *SeatedPlayer) bool {
		return p != nil && p.ParticipatedThisHand && p.canAct()
	})
	t.logPublic(fmt.Sprintf("-- %s [%s] --", t.Phase, cardsString(t.Community)))
	t.emitEvent(StreetChanged{Phase: t.Phase, Community: copyCards(t.Community)})
	if t.CurrentActor >= 0 {
		t.startActionTimerFor(t.CurrentActor)
	}
}

func (t *Table) dealFlop() {
	t.deck.Deal() // burn
	t.Community = append(t.Community, t.deck.DealN(3)...)
}

func (t *Table) dealTurn() {
	t.deck.Deal() // burn
	card, _ := t.deck.Deal()
	t.Community = append(t.Community, card)
}

func (t *Table) dealRiver() {
	t.deck.Deal() // burn
	card, _ := t.deck.Deal()
	t.Community = append(t.Community, card)
}

func copyCards(cards []deck.Card) []deck.Card {
	out := make([]deck.Card, len(cards))
	copy(out, cards)
	return out
}

// scheduleDramaticRunout deals the remaining streets on human-perceivable
// delays. It is cancellable: Close() stops the pending timer before it
// fires.
func (t *Table) scheduleDramaticRunout() {
	t.runoutTimer = t.clock.AfterFunc(t.Config.RunoutRevealDelay, t.runoutStep)
}

func (t *Table) runoutStep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case len(t.Community) < 3:
		t.dealFlop()
		t.logPublic(fmt.Sprintf("-- flop [%s] --", cardsString(t.Community)))
		t.emitEvent(StreetChanged{Phase: Showdown, Community: copyCards(t.Community)})
		t.runoutTimer = t.clock.AfterFunc(t.Config.RunoutFlopDelay, t.runoutStep)
	case len(t.Community) < 4:
		t.dealTurn()
		t.logPublic(fmt.Sprintf("-- turn [%s] --", cardsString(t.Community)))
		t.emitEvent(StreetChanged{Phase: Showdown, Community: copyCards(t.Community)})
		t.runoutTimer = t.clock.AfterFunc(t.Config.RunoutTurnDelay, t.runoutStep)
	case len(t.Community) < 5:
		t.dealRiver()
		t.logPublic(fmt.Sprintf("-- river [%s] --", cardsString(t.Community)))
		t.emitEvent(StreetChanged{Phase: Showdown, Community: copyCards(t.Community)})
		t.runoutTimer = t.clock.AfterFunc(t.Config.RunoutRiverDelay, t.runoutStep)
	default:
		t.doShowdownNow()
	}
}

// doShowdownNow evaluates every not-folded participant's hand, builds
// and distributes the side pots, and ends the hand.
func (t *Table) doShowdownNow() {
	t.Phase = Showdown
	t.CurrentActor = -1

	results := make(map[int]evaluator.Result, len(t.Seats))
	for seat, p := range t.Seats {
		if p == nil || !p.ParticipatedThisHand || p.Folded {
			continue
		}
		hand := append(append([]deck.Card{}, p.HoleCards...), t.Community...)
		res, err := evaluator.Evaluate(hand)
		if err == nil {
			results[seat] = res
			t.logPublic(fmt.Sprintf("%s shows [%s] (%s)", p.Handle, cardsString(p.HoleCards), res.Name))
		}
	}

	contributions := make([]potengine.Contribution, 0, len(t.Seats))
	for seat, p := range t.Seats {
		if p == nil || !p.ParticipatedThisHand {
			continue
		}
		contributions = append(contributions, potengine.Contribution{
			Seat: seat, Committed: p.TotalCommitted, Folded: p.Folded,
		})
	}
	pots := potengine.BuildPots(contributions)

	allSeats := make([]int, len(t.Seats))
	for i := range allSeats {
		allSeats[i] = i
	}
	clockwise := potengine.ClockwiseFromDealer(allSeats, t.DealerSeat)

	handOf := func(seat int) evaluator.Result { return results[seat] }
	distributions := potengine.Distribute(pots, handOf, clockwise)

	awards := make([]Award, 0, len(distributions))
	for _, d := range distributions {
		t.Seats[d.Seat].Stack += d.Amount
		awards = append(awards, Award{Seat: d.Seat, Amount: d.Amount})
		t.logPublic(fmt.Sprintf("%s collects %d", t.Seats[d.Seat].Handle, d.Amount))
	}

	t.finishHand(awards, results)
}

// awardUncontested handles the case where every opponent has folded:
// the lone remaining seat takes the whole pot without consulting the
// evaluator.
func (t *Table) awardUncontested() {
	t.collectStreetBets()
	var winner int = -1
	for seat, p := range t.Seats {
		if p != nil && p.ParticipatedThisHand && p.inHand() {
			winner = seat
			break
		}
	}
	if winner == -1 {
		t.resetToIdle()
		return
	}
	t.Seats[winner].Stack += t.Pot
	award := Award{Seat: winner, Amount: t.Pot}
	t.logPublic(fmt.Sprintf("%s wins %d (uncontested)", t.Seats[winner].Handle, t.Pot))
	t.finishHand([]Award{award}, nil)
}

// finishHand builds the per-participant persistence rows, emits
// HandComplete, tears down pending-removal seats, and returns the table
// to idle.
func (t *Table) finishHand(awards []Award, results map[int]evaluator.Result) {
	wonBySeat := make(map[int]int, len(awards))
	for _, a := range awards {
		wonBySeat[a.Seat] += a.Amount
	}

	var participants []ParticipantResult
	historyText := t.buildHistoryText()

	for seat, p := range t.Seats {
		if p == nil || !p.ParticipatedThisHand {
			continue
		}
		start := t.handStart[seat]
		end := p.Stack
		name := ""
		if res, ok := results[seat]; ok {
			name = res.Name
		}
		participants = append(participants, ParticipantResult{
			Seat:           seat,
			Identity:       p.Identity,
			Handle:         p.Handle,
			StartingStack:  start,
			EndingStack:    end,
			TotalCommitted: p.TotalCommitted,
			HoleCards:      copyCards(p.HoleCards),
			FinalHandName:  name,
			Folded:         p.Folded,
			WonAmount:      end - start + p.TotalCommitted,
		})
	}

	t.emitEvent(HandComplete{
		HandNumber:   t.HandNumber,
		Awards:       awards,
		Participants: participants,
		CommunityEnd: copyCards(t.Community),
		PotTotal:     t.Pot,
		HandHistory:  historyText,
	})

	t.Pot = 0
	t.ChipPile = nil
	t.resetToIdle()
}

func (t *Table) resetToIdle() {
	t.Phase = Idle
	t.CurrentActor = -1
	for seat, p := range t.Seats {
		if p == nil {
			continue
		}
		if p.PendingRemoval {
			t.removeSeat(seat)
			continue
		}
		if p.Stack == 0 && p.ParticipatedThisHand {
			p.Busted = true
		}
	}
	t.MaybeScheduleHandStart()
}

// Close cancels every pending scheduled callback owned by this table.
// Callers must call this before discarding a table.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	stop := func(tm *quartz.Timer) {
		if tm != nil {
			tm.Stop()
		}
	}
	stop(t.pendingHandStart)
	stop(t.runoutTimer)
	t.timer.Cancel()
	for _, tm := range t.kickTimers {
		stop(tm)
	}
}
