package game

import (
	"slices"
)

// Pot is the main pot or a side pot.
type Pot struct {
	Amount int `json:"amount"`
	// Eligible participant ids, in seat order.
	Eligible []string `json:"eligible"`
	// Cap is the per participant contribution level that closes this pot.
	Cap int `json:"cap"`
	// Uncalled marks chips only one participant put in. They go back to
	// their owner rather than being won.
	Uncalled bool `json:"uncalled,omitempty"`
}

// CalculatePots splits every chip committed so far into a main pot and side
// pots. Each all-in level of a live participant closes one tier; a tier is
// contested only by live participants who put in at least that much. Chips
// from folded participants are dead money in whichever tier they reached.
//
// The biggest contribution is split at the second biggest, folded or not, so
// the part nobody matched is its own uncalled pot.
//
// The sum of the returned amounts always equals the sum of TotalBet.
func CalculatePots(participants []*Participant) []Pot {
	var levels []int
	live, top, called := 0, 0, 0
	for _, p := range participants {
		switch {
		case p.TotalBet > top:
			top, called = p.TotalBet, top
		case p.TotalBet > called:
			called = p.TotalBet
		}
		if p.IsFolded || p.TotalBet == 0 {
			continue
		}
		live = max(live, p.TotalBet)
		if p.IsAllIn {
			levels = append(levels, p.TotalBet)
		}
	}
	levels = append(levels, live)
	if called > 0 && called < live {
		levels = append(levels, called)
	}
	slices.Sort(levels)
	levels = slices.Compact(levels)

	var (
		pots []Pot
		prev int
	)
	for _, level := range levels {
		if level <= prev {
			continue
		}
		pot := Pot{Cap: level}
		contributors := 0
		for _, p := range participants {
			if p.TotalBet > prev {
				pot.Amount += min(p.TotalBet, level) - prev
				contributors++
			}
			if !p.IsFolded && p.TotalBet >= level {
				pot.Eligible = append(pot.Eligible, p.ID)
			}
		}
		pot.Uncalled = contributors == 1
		prev = level
		if pot.Amount == 0 {
			continue
		}
		pots = append(pots, pot)
	}

	// folded money above the highest live level has nobody left to contest it
	// separately, so it rides with the last pot
	var dead int
	for _, p := range participants {
		if p.TotalBet > prev {
			dead += p.TotalBet - prev
		}
	}
	if dead > 0 {
		if len(pots) == 0 {
			pots = append(pots, Pot{Cap: prev})
		}
		pots[len(pots)-1].Amount += dead
		pots[len(pots)-1].Uncalled = false
	}
	return pots
}

// SumPots returns the total of the given pots.
func SumPots(pots []Pot) int {
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	return total
}
