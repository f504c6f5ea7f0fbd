package table

import (
	"time"

	"github.com/lox/pokertable/internal/deck"
)

// SeatedPlayer is the essential state the spec assigns to an occupied
// seat. A nil entry in Table.Seats means the seat is empty.
type SeatedPlayer struct {
	Identity []byte
	Handle   string

	Stack     int
	HoleCards []deck.Card

	StreetBet      int
	TotalCommitted int

	Folded                bool
	AllIn                 bool
	SittingOut            bool
	SittingOutNextHand    bool
	Disconnected          bool
	PendingRemoval        bool
	Busted                bool
	ParticipatedThisHand  bool

	BankPreflop  time.Duration
	BankPostflop time.Duration
	HandsDealt   int

	// LeftStack and LeftAt record the stack and time at which the
	// player left the seat (by leave or kick). The anti-ratholing clamp
	// reads the copy removeSeat keeps in Table.recentLeaves: Join floors
	// a returning identity's buy-in at that stack within RatholeWindow.
	LeftStack int
	LeftAt    time.Time
}

// eligible reports whether the player counts toward the "enough players
// to start a hand" check: seated, not sitting out, has chips.
func (p *SeatedPlayer) eligible() bool {
	return p != nil && !p.SittingOut && !p.PendingRemoval && p.Stack > 0
}

// canAct reports whether the player can still make a betting decision
// this street.
func (p *SeatedPlayer) canAct() bool {
	return p != nil && !p.Folded && !p.AllIn && !p.SittingOut
}

// inHand reports whether the player is still contesting the pot.
func (p *SeatedPlayer) inHand() bool {
	return p != nil && !p.Folded
}

// resetForHand clears per-hand state before a new deal.
func (p *SeatedPlayer) resetForHand() {
	p.HoleCards = nil
	p.StreetBet = 0
	p.TotalCommitted = 0
	p.Folded = false
	p.AllIn = false
	p.ParticipatedThisHand = false
}

// resetForStreet clears per-street betting state.
func (p *SeatedPlayer) resetForStreet() {
	p.StreetBet = 0
}

// bankPool returns a pointer to the time-bank pool used by the given
// street (preflop uses BankPreflop; every other street uses
// BankPostflop).
func (p *SeatedPlayer) bankPool(preflop bool) *time.Duration {
	if preflop {
		return &p.BankPreflop
	}
	return &p.BankPostflop
}
