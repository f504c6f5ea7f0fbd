package table

import (
	"time"

	"github.com/lox/pokertable/internal/deck"
)

// Event is the sealed outbound notification type. The table emits one
// Event stream through its Emit callback; the session coordinator is the
// sole consumer, and is responsible for filtering and fanning each
// variant out to the right transports. This replaces the donor's many
// mutable callback fields (onStateChange, onTimerStart, onHandLog, ...)
// with one tagged union.
type Event interface {
	isTableEvent()
}

// HandStarted fires once dealing completes for a new hand.
type HandStarted struct {
	HandNumber int
	DealerSeat int
	SBSeat     int
	BBSeat     int
	StartedAt  time.Time
}

// StreetChanged fires whenever the phase advances to a new street.
type StreetChanged struct {
	Phase     Phase
	Community []deck.Card
}

// ActionTimerStarted fires when the base per-actor timer starts.
type ActionTimerStarted struct {
	Seat     int
	Duration time.Duration
}

// TimeBankStarted fires when a player's base timer expires and their
// time bank begins burning.
type TimeBankStarted struct {
	Seat      int
	Remaining time.Duration
}

// PlayerActed fires after any validated action mutates table state.
type PlayerActed struct {
	Seat   int
	Action Action
	Auto   bool // true if this was a forced auto-check/auto-fold on timeout
}

// HandLog carries log lines produced during the hand. Public holds
// lines visible to every subscriber; Private holds per-seat "dealt to"
// lines that must only reach the owning identity.
type HandLog struct {
	Public  []string
	Private map[int]string
}

// HandComplete fires once a hand's pots have been awarded, just before
// the table returns to idle, carrying everything the persistence
// adapter needs to archive the hand.
type HandComplete struct {
	HandNumber    int
	Awards        []Award
	Participants  []ParticipantResult
	CommunityEnd  []deck.Card
	PotTotal      int
	HandHistory   string
}

// Award is one chip award from the pot engine, already applied to
// stacks.
type Award struct {
	Seat   int
	Amount int
}

// ParticipantResult is one seat's row in the completed hand, ready for
// persistence. WonAmount is always EndingStack - StartingStack +
// TotalCommitted, computed in exactly one place (see DESIGN.md's
// resolution of the won_amount Open Question).
type ParticipantResult struct {
	Seat           int
	Identity       []byte
	Handle         string
	StartingStack  int
	EndingStack    int
	TotalCommitted int
	HoleCards      []deck.Card
	FinalHandName  string
	Folded         bool
	WonAmount      int
}

// SeatSatOut fires when a seat's sitting-out state changes (voluntary,
// timeout penalty, or sit-back-in), so the coordinator can refresh
// state.
type SeatSatOut struct {
	Seat      int
	SittingOut bool
}

// SeatRemoved fires when a player is actually removed from their seat,
// whether by explicit leave or by the kick timer.
type SeatRemoved struct {
	Seat     int
	Identity []byte
}

// Rebuy fires after a successful rebuy, so the coordinator can persist
// the new chip total.
type Rebuy struct {
	Seat      int
	Identity  []byte
	NewStack  int
}

// SeatConnectionChanged fires when a seat's transport connectivity
// changes, so the coordinator can refresh the "disconnected" badge
// shown to other seats. It carries no timing information: the grace
// ladder that decides when a disconnect becomes a sit-out is owned by
// internal/session, and the kick after a sit-out is the table's own
// kick timer.
type SeatConnectionChanged struct {
	Seat         int
	Disconnected bool
}

func (HandStarted) isTableEvent()       {}
func (StreetChanged) isTableEvent()     {}
func (ActionTimerStarted) isTableEvent() {}
func (TimeBankStarted) isTableEvent()   {}
func (PlayerActed) isTableEvent()       {}
func (HandLog) isTableEvent()           {}
func (HandComplete) isTableEvent()      {}
func (SeatSatOut) isTableEvent()        {}
func (SeatRemoved) isTableEvent()       {}
func (Rebuy) isTableEvent()             {}
func (SeatConnectionChanged) isTableEvent() {}
