package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/deck"
	"github.com/lox/pokertable/internal/table"
)

func TestNewHandRecordCopiesWonAmountVerbatim(t *testing.T) {
	ev := table.HandComplete{
		HandNumber: 7,
		PotTotal:   500,
		CommunityEnd: []deck.Card{
			deck.NewCard(deck.Spades, deck.Ace),
			deck.NewCard(deck.Hearts, deck.King),
		},
		HandHistory: "hand #7 log",
		Participants: []table.ParticipantResult{
			{Seat: 0, Identity: []byte("alice"), Handle: "alice", StartingStack: 1000, EndingStack: 1500, TotalCommitted: 500, WonAmount: 1000, FinalHandName: "pair of aces"},
			{Seat: 1, Identity: []byte("bob"), Handle: "bob", StartingStack: 1000, EndingStack: 500, TotalCommitted: 500, WonAmount: -500, Folded: true},
		},
	}

	rec := NewHandRecord("t1", ev)
	require.Len(t, rec.Participants, 2)
	assert.Equal(t, "t1", rec.TableID)
	assert.Equal(t, 7, rec.HandNumber)
	assert.Equal(t, 500, rec.PotTotal)
	assert.Equal(t, []string{deck.NewCard(deck.Spades, deck.Ace).String(), deck.NewCard(deck.Hearts, deck.King).String()}, rec.Community)
	assert.Equal(t, 1000, rec.Participants[0].WonAmount)
	assert.Equal(t, -500, rec.Participants[1].WonAmount)
	assert.NotEmpty(t, rec.ID)
}
