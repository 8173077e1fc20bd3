package game

import (
	"fmt"
	"slices"

	"github.com/lox/cardroom/internal/deck"
	"github.com/lox/cardroom/internal/evaluator"
)

// Award is chips moved from one pot to one participant.
type Award struct {
	ParticipantID string `json:"participantId"`
	// Pot indexes the pot, 0 for the main pot.
	Pot    int `json:"pot"`
	Amount int `json:"amount"`
	// Returned marks an uncalled bet given back rather than won.
	Returned bool `json:"returned,omitempty"`
	// Hand is empty when the pot was won without a showdown.
	Hand      string      `json:"hand,omitempty"`
	HandCards []deck.Card `json:"handCards,omitempty"`
}

// Result is the settlement of a finished match.
type Result struct {
	Street   Street   `json:"street"`
	Pots     []Pot    `json:"pots"`
	Awards   []Award  `json:"awards"`
	Messages []string `json:"messages"`
	// Hands holds the best hand of every participant at showdown.
	Hands map[string]evaluator.Hand `json:"-"`
}

// Winners returns the ids of participants who won chips, in seat order of
// their first award. Returned bets do not count.
func (r *Result) Winners() []string {
	var out []string
	for _, a := range r.Awards {
		if !a.Returned && !slices.Contains(out, a.ParticipantID) {
			out = append(out, a.ParticipantID)
		}
	}
	return out
}

// Won returns the total each participant collected, returns included.
func (r *Result) Won() map[string]int {
	out := make(map[string]int)
	for _, a := range r.Awards {
		out[a.ParticipantID] += a.Amount
	}
	return out
}

func (r *Result) clone() *Result {
	c := *r
	c.Pots = clonePots(r.Pots)
	c.Awards = slices.Clone(r.Awards)
	c.Messages = slices.Clone(r.Messages)
	if r.Hands != nil {
		c.Hands = make(map[string]evaluator.Hand, len(r.Hands))
		for k, v := range r.Hands {
			c.Hands[k] = v
		}
	}
	return &c
}

func (m *Match) settleFoldedOut(winner *Participant) {
	m.collect()
	m.Street = FoldedOut
	m.turn = -1

	total := SumPots(m.pots)
	winner.Stack += total
	winner.LastAction = LastWinner

	m.result = &Result{
		Street:   FoldedOut,
		Pots:     clonePots(m.pots),
		Awards:   []Award{{ParticipantID: winner.ID, Amount: total}},
		Messages: []string{fmt.Sprintf("%s wins %d", winner.Name, total)},
	}
}

// settleShowdown evaluates each pot independently against its eligible
// participants. Ties split evenly; odd chips go one at a time to the tied
// winners closest to the left of the button.
func (m *Match) settleShowdown() {
	m.turn = -1
	board := m.board[:]

	res := &Result{
		Street: Showdown,
		Pots:   clonePots(m.pots),
		Hands:  make(map[string]evaluator.Hand),
	}
	for _, p := range m.Participants {
		if p.IsFolded {
			continue
		}
		cards := append([]deck.Card{p.HoleCards[0], p.HoleCards[1]}, board...)
		// a dealt hand always has seven distinct valid cards
		res.Hands[p.ID] = evaluator.MustEvaluate(cards)
	}

	for idx, pot := range m.pots {
		if pot.Uncalled {
			p, _ := m.Participant(pot.Eligible[0])
			p.Stack += pot.Amount
			res.Awards = append(res.Awards, Award{ParticipantID: p.ID, Pot: idx, Amount: pot.Amount, Returned: true})
			res.Messages = append(res.Messages, fmt.Sprintf("%d uncalled returned to %s", pot.Amount, p.Name))
			continue
		}

		var winners []string
		var best evaluator.Hand
		for _, id := range pot.Eligible {
			h := res.Hands[id]
			switch {
			case len(winners) == 0 || evaluator.Compare(h, best) > 0:
				winners, best = []string{id}, h
			case evaluator.Compare(h, best) == 0:
				winners = append(winners, id)
			}
		}
		m.sortFromButton(winners)

		share, odd := pot.Amount/len(winners), pot.Amount%len(winners)
		for k, id := range winners {
			amount := share
			if k < odd {
				amount++
			}
			p, _ := m.Participant(id)
			p.Stack += amount
			p.LastAction = LastWinner
			h := res.Hands[id]
			res.Awards = append(res.Awards, Award{
				ParticipantID: id,
				Pot:           idx,
				Amount:        amount,
				Hand:          h.Description(),
				HandCards:     slices.Clone(h.Cards[:]),
			})
			res.Messages = append(res.Messages, winMessage(p.Name, amount, idx, len(m.pots), h))
		}
	}
	m.result = res
}

func winMessage(name string, amount, pot, pots int, h evaluator.Hand) string {
	from := ""
	if pots > 1 {
		if pot == 0 {
			from = " from the main pot"
		} else {
			from = fmt.Sprintf(" from side pot %d", pot)
		}
	}
	return fmt.Sprintf("%s wins %d%s with %s", name, amount, from, h)
}

// sortFromButton orders participant ids by seat, starting left of the button.
func (m *Match) sortFromButton(ids []string) {
	n := len(m.Participants)
	button := m.indexOf(m.ButtonID)
	slices.SortFunc(ids, func(a, b string) int {
		return (m.indexOf(a)-button-1+n)%n - (m.indexOf(b)-button-1+n)%n
	})
}

// Highlights returns, for every participant still in at showdown, the five
// cards that make their best hand.
func (m *Match) Highlights() map[string][]deck.Card {
	if m.result == nil || m.result.Street != Showdown {
		return nil
	}
	out := make(map[string][]deck.Card, len(m.result.Hands))
	for id, h := range m.result.Hands {
		out[id] = slices.Clone(h.Cards[:])
	}
	return out
}

// HoleCards returns a participant's private cards.
func (m *Match) HoleCards(participantID string) ([2]deck.Card, bool) {
	p, ok := m.Participant(participantID)
	if !ok {
		return [2]deck.Card{}, false
	}
	return p.HoleCards, true
}
