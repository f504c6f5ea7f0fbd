package deck

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Deck represents a deck of playing cards
type Deck struct {
	cards []Card
}

// NewDeck creates a new standard 52-card deck in canonical (unshuffled)
// order. Call Shuffle before dealing if randomized order is required.
func NewDeck() *Deck {
	deck := &Deck{cards: make([]Card, 0, 52)}
	deck.fill()
	return deck
}

func (d *Deck) fill() {
	d.cards = d.cards[:0]
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
}

// NewStacked builds a deck that deals the given cards in order, top
// first. It exists so callers that need a specific, reproducible deal
// (tests, deterministic replay) can bypass Shuffle's cryptographic
// randomness without touching the production NewDeck/Shuffle path.
func NewStacked(cards []Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

// Shuffle randomizes the order of cards in the deck using Fisher-Yates
// driven by a cryptographically secure random source. A biased modulo
// reduction is forbidden, so each draw is produced by crypto/rand.Int,
// which rejection-samples internally and is therefore unbiased for any
// bound. RNG failure is fatal to the caller: dealing without genuine
// entropy is not an acceptable degradation.
func (d *Deck) Shuffle() error {
	for i := len(d.cards) - 1; i > 0; i-- {
		j, err := cryptoIntn(i + 1)
		if err != nil {
			return fmt.Errorf("deck: shuffle: %w", err)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	return nil
}

func cryptoIntn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("deck: invalid bound %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// Deal removes and returns the top card from the deck
func (d *Deck) Deal() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// DealN deals n cards from the deck
func (d *Deck) DealN(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	
	cards := make([]Card, n)
	for i := 0; i < n; i++ {
		if card, ok := d.Deal(); ok {
			cards[i] = card
		}
	}
	
	return cards
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}

// IsEmpty returns true if the deck has no cards left
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}

// Reset restores the deck to a full, unshuffled 52-card deck. Callers
// must call Shuffle again before dealing.
func (d *Deck) Reset() {
	d.fill()
}

// Peek returns the top card without removing it from the deck
func (d *Deck) Peek() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	return d.cards[0], true
}