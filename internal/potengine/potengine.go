// Package potengine splits committed chips into a main pot and side pots
// and distributes each to its eligible winners.
package potengine

import (
	"sort"

	"github.com/lox/pokertable/internal/evaluator"
)

// Contribution is one player's participation in a hand: how many chips
// they committed in total, and whether they folded.
type Contribution struct {
	Seat      int
	Committed int
	Folded    bool
}

// Pot is one tier of the pot: an amount and the seats eligible to win it.
type Pot struct {
	Amount   int
	Eligible []int
}

// Distribution is a single chip award: this many chips to this seat, from
// this pot.
type Distribution struct {
	PotIndex int
	Seat     int
	Amount   int
}

// BuildPots splits contributions into a main pot and zero or more side
// pots. Tiers are ordered lowest commitment level first (the main pot),
// then each higher tier as a side pot. Tiers with zero amount are
// dropped.
func BuildPots(contributions []Contribution) []Pot {
	levels := distinctActiveLevels(contributions)

	var pots []Pot
	prev := 0
	for _, level := range levels {
		pot := Pot{}
		for _, c := range contributions {
			capped := c.Committed
			if capped > level {
				capped = level
			}
			prevCapped := c.Committed
			if prevCapped > prev {
				prevCapped = prev
			}
			contribution := capped - prevCapped
			if contribution > 0 {
				pot.Amount += contribution
			}
			if !c.Folded && c.Committed >= level {
				pot.Eligible = append(pot.Eligible, c.Seat)
			}
		}
		if pot.Amount > 0 && len(pot.Eligible) > 0 {
			pots = append(pots, pot)
		}
		prev = level
	}
	return pots
}

// distinctActiveLevels returns the sorted, deduplicated commitment totals
// among not-folded players.
func distinctActiveLevels(contributions []Contribution) []int {
	seen := make(map[int]bool)
	for _, c := range contributions {
		if !c.Folded && c.Committed > 0 {
			seen[c.Committed] = true
		}
	}
	levels := make([]int, 0, len(seen))
	for level := range seen {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

// ClockwiseFromDealer returns seats in clockwise order starting from the
// dealer's left, given every seat at the table in clockwise seating
// order and the dealer's seat number.
func ClockwiseFromDealer(allSeats []int, dealerSeat int) []int {
	dealerIdx := -1
	for i, s := range allSeats {
		if s == dealerSeat {
			dealerIdx = i
			break
		}
	}
	if dealerIdx == -1 {
		return append([]int{}, allSeats...)
	}
	n := len(allSeats)
	ordered := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		ordered = append(ordered, allSeats[(dealerIdx+i)%n])
	}
	return ordered
}

// Distribute awards each pot to the eligible seats holding the best hand
// under evaluator.Result's total order. Integer division leaves a
// remainder of odd chips, one of which is awarded to each of the
// highest-ranked winners, in clockwise order starting from the dealer's
// left, until the remainder is exhausted. When a pot has a single
// eligible seat, that seat takes the whole pot without the hand
// evaluator being consulted.
func Distribute(pots []Pot, handOf func(seat int) evaluator.Result, clockwiseOrder []int) []Distribution {
	var out []Distribution
	for potIdx, pot := range pots {
		if len(pot.Eligible) == 1 {
			out = append(out, Distribution{PotIndex: potIdx, Seat: pot.Eligible[0], Amount: pot.Amount})
			continue
		}

		winners := bestHandSeats(pot.Eligible, handOf)
		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)

		awards := make(map[int]int, len(winners))
		for _, seat := range winners {
			awards[seat] = share
		}

		if remainder > 0 {
			winnerSet := make(map[int]bool, len(winners))
			for _, seat := range winners {
				winnerSet[seat] = true
			}
			for _, seat := range clockwiseOrder {
				if remainder == 0 {
					break
				}
				if winnerSet[seat] {
					awards[seat]++
					remainder--
				}
			}
		}

		for _, seat := range winners {
			if awards[seat] > 0 {
				out = append(out, Distribution{PotIndex: potIdx, Seat: seat, Amount: awards[seat]})
			}
		}
	}
	return out
}

func bestHandSeats(eligible []int, handOf func(seat int) evaluator.Result) []int {
	var best evaluator.Result
	var winners []int
	for i, seat := range eligible {
		result := handOf(seat)
		if i == 0 || result.Compare(best) > 0 {
			best = result
			winners = []int{seat}
		} else if result.Compare(best) == 0 {
			winners = append(winners, seat)
		}
	}
	return winners
}
