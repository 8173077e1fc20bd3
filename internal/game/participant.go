package game

import "github.com/lox/cardroom/internal/deck"

// Participant is a seat's involvement in one match.
type Participant struct {
	ID     string
	SeatID string
	UserID string
	Name   string

	// Stack is what the seat has left behind the line during this hand.
	Stack int
	// Bet is committed this street, TotalBet this hand (antes included).
	Bet      int
	TotalBet int

	IsFolded   bool
	IsChecked  bool
	IsAllIn    bool
	LastAction LastAction

	HoleCards [2]deck.Card

	// acted is set once the participant acts, and cleared for everyone else
	// by a full raise. Posting a blind does not count.
	acted bool
}

// CanAct reports whether the participant still has decisions to make.
func (p *Participant) CanAct() bool {
	return !p.IsFolded && p.Stack > 0
}

func (p *Participant) commit(amount int) int {
	amount = min(amount, p.Stack)
	p.Stack -= amount
	p.Bet += amount
	p.TotalBet += amount
	if p.Stack == 0 {
		p.IsAllIn = true
	}
	return amount
}
