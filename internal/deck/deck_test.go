package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckHas52DistinctCards(t *testing.T) {
	d := NewDeck()
	assert.Equal(t, 52, d.CardsRemaining())
	assert.False(t, d.IsEmpty())

	seen := make(map[Card]bool, 52)
	for !d.IsEmpty() {
		card, ok := d.Deal()
		require.True(t, ok)
		assert.False(t, seen[card], "duplicate card %s", card)
		seen[card] = true
	}
	assert.Len(t, seen, 52)
}

func TestShuffleIsAPermutation(t *testing.T) {
	d := NewDeck()
	before := make(map[Card]bool, 52)
	for _, c := range d.cards {
		before[c] = true
	}

	require.NoError(t, d.Shuffle())

	assert.Equal(t, 52, d.CardsRemaining())
	after := make(map[Card]bool, 52)
	for _, c := range d.cards {
		after[c] = true
	}
	assert.Equal(t, before, after)
}

func TestShuffleChangesOrderEventually(t *testing.T) {
	changed := false
	for i := 0; i < 20; i++ {
		d := NewDeck()
		original := append([]Card{}, d.cards...)
		require.NoError(t, d.Shuffle())
		for j := range original {
			if d.cards[j] != original[j] {
				changed = true
				break
			}
		}
		if changed {
			break
		}
	}
	assert.True(t, changed, "shuffle never altered card order across 20 attempts")
}

func TestDealEmptiesDeck(t *testing.T) {
	d := NewDeck()
	dealt := d.DealN(52)
	assert.Len(t, dealt, 52)
	assert.True(t, d.IsEmpty())

	_, ok := d.Deal()
	assert.False(t, ok)
}

func TestDealNClampsToRemaining(t *testing.T) {
	d := NewDeck()
	d.DealN(50)
	assert.Equal(t, 2, d.CardsRemaining())

	dealt := d.DealN(5)
	assert.Len(t, dealt, 2)
	assert.True(t, d.IsEmpty())
}

func TestPeekDoesNotRemoveCard(t *testing.T) {
	d := NewDeck()
	top, ok := d.Peek()
	require.True(t, ok)
	assert.Equal(t, 52, d.CardsRemaining())

	dealt, ok := d.Deal()
	require.True(t, ok)
	assert.Equal(t, top, dealt)
}

func TestPeekOnEmptyDeck(t *testing.T) {
	d := NewDeck()
	d.DealN(52)
	_, ok := d.Peek()
	assert.False(t, ok)
}

func TestResetRestoresFullDeck(t *testing.T) {
	d := NewDeck()
	d.DealN(30)
	require.Equal(t, 22, d.CardsRemaining())

	d.Reset()
	assert.Equal(t, 52, d.CardsRemaining())
}
