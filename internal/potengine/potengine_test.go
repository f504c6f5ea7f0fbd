package potengine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/pokertable/internal/evaluator"
)

func TestBuildPotsNoAllIn(t *testing.T) {
	pots := BuildPots([]Contribution{
		{Seat: 0, Committed: 100},
		{Seat: 1, Committed: 100},
		{Seat: 2, Committed: 100, Folded: true},
	})

	assert.Len(t, pots, 1)
	assert.Equal(t, 300, pots[0].Amount)
	assert.ElementsMatch(t, []int{0, 1}, pots[0].Eligible)
}

func TestBuildPotsWithSidePot(t *testing.T) {
	// Seat 0 shoves for 50, seat 1 and 2 call to 150, seat 3 folds having
	// put in 20.
	pots := BuildPots([]Contribution{
		{Seat: 0, Committed: 50},
		{Seat: 1, Committed: 150},
		{Seat: 2, Committed: 150},
		{Seat: 3, Committed: 20, Folded: true},
	})

	assert.Len(t, pots, 2)

	main := pots[0]
	assert.Equal(t, 50*3+20, main.Amount)
	assert.ElementsMatch(t, []int{0, 1, 2}, main.Eligible)

	side := pots[1]
	assert.Equal(t, 100*2, side.Amount)
	assert.ElementsMatch(t, []int{1, 2}, side.Eligible)
}

func TestClockwiseFromDealer(t *testing.T) {
	ordered := ClockwiseFromDealer([]int{0, 1, 2, 3, 4}, 2)
	assert.Equal(t, []int{3, 4, 0, 1, 2}, ordered)
}

func TestDistributeSinglePlayerSkipsEvaluator(t *testing.T) {
	pots := []Pot{{Amount: 75, Eligible: []int{3}}}
	called := false
	handOf := func(seat int) evaluator.Result {
		called = true
		return evaluator.Result{}
	}

	dist := Distribute(pots, handOf, []int{0, 1, 2, 3})

	assert.False(t, called)
	assert.Equal(t, []Distribution{{PotIndex: 0, Seat: 3, Amount: 75}}, dist)
}

func TestDistributeOddChipGoesClockwiseFromDealer(t *testing.T) {
	pots := []Pot{{Amount: 101, Eligible: []int{0, 2}}}
	hands := map[int]evaluator.Result{
		0: {Category: evaluator.Pair, Tiebreakers: []int{9}},
		2: {Category: evaluator.Pair, Tiebreakers: []int{9}},
	}
	handOf := func(seat int) evaluator.Result { return hands[seat] }

	// Dealer is seat 4, so clockwise order starting at dealer's left is
	// [0, 1, 2, 3, 4] rotated; seat 0 should receive the odd chip since it
	// comes first among winners in that order.
	clockwise := ClockwiseFromDealer([]int{0, 1, 2, 3, 4}, 4)
	dist := Distribute(pots, handOf, clockwise)

	amounts := map[int]int{}
	for _, d := range dist {
		amounts[d.Seat] = d.Amount
	}
	assert.Equal(t, 51, amounts[0])
	assert.Equal(t, 50, amounts[2])
}

func TestDistributeSplitsEvenlyOnTie(t *testing.T) {
	pots := []Pot{{Amount: 100, Eligible: []int{1, 3}}}
	hands := map[int]evaluator.Result{
		1: {Category: evaluator.Flush, Tiebreakers: []int{14, 10, 8, 5, 2}},
		3: {Category: evaluator.Flush, Tiebreakers: []int{14, 10, 8, 5, 2}},
	}
	handOf := func(seat int) evaluator.Result { return hands[seat] }

	dist := Distribute(pots, handOf, []int{0, 1, 2, 3})

	amounts := map[int]int{}
	for _, d := range dist {
		amounts[d.Seat] = d.Amount
	}
	assert.Equal(t, 50, amounts[1])
	assert.Equal(t, 50, amounts[3])
}

func TestDistributePicksOnlyBestHand(t *testing.T) {
	pots := []Pot{{Amount: 60, Eligible: []int{0, 1, 2}}}
	hands := map[int]evaluator.Result{
		0: {Category: evaluator.HighCard, Tiebreakers: []int{14, 10, 8, 5, 2}},
		1: {Category: evaluator.Straight, Tiebreakers: []int{10}},
		2: {Category: evaluator.Pair, Tiebreakers: []int{9, 12, 11, 3}},
	}
	handOf := func(seat int) evaluator.Result { return hands[seat] }

	dist := Distribute(pots, handOf, []int{0, 1, 2})

	assert.Equal(t, []Distribution{{PotIndex: 0, Seat: 1, Amount: 60}}, dist)
}
