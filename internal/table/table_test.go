package table

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/deck"
)

func advanceClock(t *testing.T, clock *quartz.Mock, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.Advance(d).MustWait(ctx))
}

func newTestTable(t *testing.T, cfg Config) (*Table, *quartz.Mock, *[]Event) {
	t.Helper()
	clock := quartz.NewMock(t)
	events := &[]Event{}
	tbl := New(cfg, clock, func(e Event) { *events = append(*events, e) })
	t.Cleanup(tbl.Close)
	return tbl, clock, events
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NumSeats = 6
	cfg.StartingStack = 2000
	cfg.SmallBlind = 50
	cfg.BigBlind = 100
	return cfg
}

func c(suit deck.Suit, rank deck.Rank) deck.Card { return deck.NewCard(suit, rank) }

func TestTwoPlayerFoldToBlinds(t *testing.T) {
	cfg := testConfig()
	tbl, clock, _ := newTestTable(t, cfg)

	_, err := tbl.Join([]byte("A"), "Alice", -1, 2000)
	require.NoError(t, err)
	_, err = tbl.Join([]byte("B"), "Bob", -1, 2000)
	require.NoError(t, err)

	advanceClock(t, clock, cfg.HandStartDebounce)

	require.Equal(t, Preflop, tbl.Phase)
	require.Equal(t, 0, tbl.DealerSeat)
	require.Equal(t, 0, tbl.SBSeat)
	require.Equal(t, 1, tbl.BBSeat)
	require.Equal(t, 0, tbl.CurrentActor) // heads-up: dealer/SB acts first

	require.NoError(t, tbl.Action(0, Action{Kind: Fold}))

	assert.Equal(t, Idle, tbl.Phase)
	assert.Equal(t, 2000-50, tbl.Seats[0].Stack) // A posted 50, lost it
	assert.Equal(t, 2000+50, tbl.Seats[1].Stack) // B nets the 50
}

func TestHeadsUpAllInRunout(t *testing.T) {
	cfg := testConfig()
	cfg.StartingStack = 2000
	tbl, clock, events := newTestTable(t, cfg)

	// A: pocket aces, B: pocket kings, dealt in SB(A),BB(B) order, two
	// passes; board never pairs either hand.
	stacked := []deck.Card{
		c(deck.Spades, deck.Ace), c(deck.Spades, deck.King), // pass 1
		c(deck.Hearts, deck.Ace), c(deck.Hearts, deck.King), // pass 2
		c(deck.Spades, deck.Two),                                           // flop burn
		c(deck.Clubs, deck.Two), c(deck.Diamonds, deck.Three), c(deck.Hearts, deck.Four), // flop
		c(deck.Diamonds, deck.Two), // turn burn
		c(deck.Clubs, deck.Seven),  // turn
		c(deck.Hearts, deck.Two),   // river burn
		c(deck.Diamonds, deck.Nine),
	}
	tbl.SetDeckFactory(func() (*deck.Deck, error) { return deck.NewStacked(stacked), nil })

	_, err := tbl.Join([]byte("A"), "Alice", -1, 2000)
	require.NoError(t, err)
	_, err = tbl.Join([]byte("B"), "Bob", -1, 2000)
	require.NoError(t, err)
	advanceClock(t, clock, cfg.HandStartDebounce)

	require.NoError(t, tbl.Action(0, Action{Kind: Raise, Total: 2000}))
	require.NoError(t, tbl.Action(1, Action{Kind: Call}))

	require.Equal(t, Showdown, tbl.Phase)
	assert.Equal(t, 4000, tbl.Pot)
	sum := 0
	for _, v := range tbl.ChipPile {
		sum += v
	}
	assert.Equal(t, 4000, sum)

	advanceClock(t, clock, cfg.RunoutRevealDelay)
	advanceClock(t, clock, cfg.RunoutFlopDelay)
	advanceClock(t, clock, cfg.RunoutTurnDelay)
	advanceClock(t, clock, cfg.RunoutRiverDelay)

	assert.Equal(t, Idle, tbl.Phase)
	assert.Equal(t, 4000, tbl.Seats[0].Stack) // A's pocket aces win it all
	assert.Equal(t, 0, tbl.Seats[1].Stack)
	assert.Equal(t, 0, tbl.Pot)
	assert.Empty(t, tbl.ChipPile)

	var complete *HandComplete
	for i := range *events {
		if hc, ok := (*events)[i].(HandComplete); ok {
			complete = &hc
		}
	}
	require.NotNil(t, complete)
	assert.Equal(t, 4000, complete.Awards[0].Amount)
	assertWonAmountIdentity(t, complete.Participants)
}

func TestThreeWaySidePot(t *testing.T) {
	cfg := testConfig()
	cfg.MinBuyin = 1000
	cfg.MaxBuyin = 3000
	tbl, clock, events := newTestTable(t, cfg)

	stacked := []deck.Card{
		// dealing order for 3 participants seated 0(dealer),1(SB),2(BB)
		// is [SB, BB, dealer]: B(seat1)=Queens, C(seat2)=Kings, A(seat0)=Aces
		c(deck.Spades, deck.Queen), c(deck.Spades, deck.King), c(deck.Spades, deck.Ace),
		c(deck.Diamonds, deck.Queen), c(deck.Diamonds, deck.King), c(deck.Diamonds, deck.Ace),
		c(deck.Clubs, deck.Four), // flop burn
		c(deck.Clubs, deck.Two), c(deck.Hearts, deck.Five), c(deck.Diamonds, deck.Eight),
		c(deck.Hearts, deck.Four), // turn burn
		c(deck.Spades, deck.Jack),
		c(deck.Diamonds, deck.Four), // river burn
		c(deck.Clubs, deck.Three),
	}
	tbl.SetDeckFactory(func() (*deck.Deck, error) { return deck.NewStacked(stacked), nil })

	_, err := tbl.Join([]byte("A"), "Alice", -1, 1000)
	require.NoError(t, err)
	_, err = tbl.Join([]byte("B"), "Bob", -1, 3000)
	require.NoError(t, err)
	_, err = tbl.Join([]byte("C"), "Carl", -1, 3000)
	require.NoError(t, err)
	advanceClock(t, clock, cfg.HandStartDebounce)

	require.Equal(t, 1, tbl.SBSeat)
	require.Equal(t, 2, tbl.BBSeat)
	require.Equal(t, 0, tbl.CurrentActor)

	require.NoError(t, tbl.Action(0, Action{Kind: Raise, Total: 1000})) // A all-in
	require.NoError(t, tbl.Action(1, Action{Kind: Raise, Total: 3000})) // B all-in
	require.NoError(t, tbl.Action(2, Action{Kind: Call}))               // C all-in

	require.Equal(t, Showdown, tbl.Phase)
	advanceClock(t, clock, cfg.RunoutRevealDelay)
	advanceClock(t, clock, cfg.RunoutFlopDelay)
	advanceClock(t, clock, cfg.RunoutTurnDelay)
	advanceClock(t, clock, cfg.RunoutRiverDelay)

	assert.Equal(t, Idle, tbl.Phase)
	assert.Equal(t, 3000, tbl.Seats[0].Stack) // A wins the 3000 main pot
	assert.Equal(t, 0, tbl.Seats[1].Stack)     // B wins nothing
	assert.Equal(t, 4000, tbl.Seats[2].Stack)  // C wins the 4000 side pot

	var complete *HandComplete
	for i := range *events {
		if hc, ok := (*events)[i].(HandComplete); ok {
			complete = &hc
		}
	}
	require.NotNil(t, complete)
	assertWonAmountIdentity(t, complete.Participants)
}

// assertWonAmountIdentity checks the invariant that holds for every
// participant of every hand: what a seat walked away with equals what
// it walked in with, plus or minus what changed hands, expressed as
// ending_stack - starting_stack + total_committed.
func assertWonAmountIdentity(t *testing.T, participants []ParticipantResult) {
	t.Helper()
	require.NotEmpty(t, participants)
	for _, p := range participants {
		assert.Equal(t, p.EndingStack-p.StartingStack+p.TotalCommitted, p.WonAmount,
			"seat %d: won_amount identity broken", p.Seat)
	}
}

func TestTimeoutWithNoInvestmentSkipsTimeBank(t *testing.T) {
	cfg := testConfig()
	tbl, clock, events := newTestTable(t, cfg)

	_, err := tbl.Join([]byte("dealer"), "Dealer", -1, 2000)
	require.NoError(t, err)
	_, err = tbl.Join([]byte("sb"), "SB", -1, 2000)
	require.NoError(t, err)
	_, err = tbl.Join([]byte("a"), "Alice", -1, 2000)
	require.NoError(t, err)
	advanceClock(t, clock, cfg.HandStartDebounce)

	require.Equal(t, 0, tbl.DealerSeat)
	require.Equal(t, 1, tbl.SBSeat)
	require.Equal(t, 2, tbl.BBSeat)
	require.Equal(t, 0, tbl.CurrentActor) // UTG wraps to the dealer 3-handed

	advanceClock(t, clock, cfg.BaseActionDuration)

	a := tbl.Seats[0]
	assert.True(t, a.Folded)
	assert.True(t, a.SittingOutNextHand)

	for _, e := range *events {
		if _, ok := e.(TimeBankStarted); ok {
			t.Fatalf("time bank should not start for a player with no investment")
		}
	}
}

func TestTimeoutWithInvestmentConsumesTimeBank(t *testing.T) {
	cfg := testConfig()
	tbl, clock, events := newTestTable(t, cfg)

	_, err := tbl.Join([]byte("dealer"), "Dealer", -1, 2000)
	require.NoError(t, err)
	_, err = tbl.Join([]byte("sb"), "SB", -1, 2000)
	require.NoError(t, err)
	_, err = tbl.Join([]byte("a"), "Alice", -1, 2000)
	require.NoError(t, err)
	advanceClock(t, clock, cfg.HandStartDebounce)

	require.Equal(t, 2, tbl.BBSeat) // Alice is the BB

	require.NoError(t, tbl.Action(0, Action{Kind: Raise, Total: 300}))
	require.NoError(t, tbl.Action(1, Action{Kind: Fold}))
	require.Equal(t, 2, tbl.CurrentActor)

	advanceClock(t, clock, cfg.BaseActionDuration)

	started := false
	for _, e := range *events {
		if tb, ok := e.(TimeBankStarted); ok && tb.Seat == 2 {
			started = true
		}
	}
	assert.True(t, started, "expected preflop time bank to start for the invested BB")

	advanceClock(t, clock, cfg.DefaultTimeBank)

	a := tbl.Seats[2]
	assert.Equal(t, time.Duration(0), a.BankPreflop)
	assert.True(t, a.Folded)
	assert.True(t, a.SittingOutNextHand)
}

func TestIllegalActionDoesNotMutateState(t *testing.T) {
	cfg := testConfig()
	tbl, clock, _ := newTestTable(t, cfg)

	_, _ = tbl.Join([]byte("A"), "Alice", -1, 2000)
	_, _ = tbl.Join([]byte("B"), "Bob", -1, 2000)
	advanceClock(t, clock, cfg.HandStartDebounce)

	before := tbl.Seats[0].Stack
	err := tbl.Action(0, Action{Kind: Check}) // facing the BB, cannot check
	require.Error(t, err)
	assert.Equal(t, before, tbl.Seats[0].Stack)
	assert.Equal(t, 0, tbl.CurrentActor)
}

func TestConservationAcrossAFoldedHand(t *testing.T) {
	cfg := testConfig()
	tbl, clock, _ := newTestTable(t, cfg)

	_, _ = tbl.Join([]byte("A"), "Alice", -1, 2000)
	_, _ = tbl.Join([]byte("B"), "Bob", -1, 2000)
	before := 0
	for _, p := range tbl.Seats {
		if p != nil {
			before += p.Stack
		}
	}

	advanceClock(t, clock, cfg.HandStartDebounce)
	require.NoError(t, tbl.Action(0, Action{Kind: Fold}))

	after := 0
	for _, p := range tbl.Seats {
		if p != nil {
			after += p.Stack
		}
	}
	assert.Equal(t, before, after)
}
