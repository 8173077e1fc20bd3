package deck

import (
	"errors"
	"fmt"
)

// BoardSize is the number of community cards dealt for a hand.
const BoardSize = 5

// ErrNotEnoughSeats is returned when fewer than two seats are dealt in.
var ErrNotEnoughSeats = errors.New("at least 2 seats required to deal")

// Deal is the complete set of cards for one hand: two hole cards per seat and
// the five board cards, revealed later as 3/1/1.
type Deal struct {
	Hole  map[string][2]Card
	Board [BoardSize]Card
}

// DealHand deals two cards to each seat in seat order, one at a time around
// the table, then the five board cards. No card is dealt twice.
func DealHand(d *Deck, seatIDs []string) (Deal, error) {
	if len(seatIDs) < 2 {
		return Deal{}, ErrNotEnoughSeats
	}
	if need := len(seatIDs)*2 + BoardSize; d.CardsRemaining() < need {
		return Deal{}, fmt.Errorf("%w: need %d cards for %d seats", ErrDeckExhausted, need, len(seatIDs))
	}

	out := Deal{Hole: make(map[string][2]Card, len(seatIDs))}
	for round := range 2 {
		for _, id := range seatIDs {
			if _, dup := out.Hole[id]; dup && round == 0 {
				return Deal{}, fmt.Errorf("seat %s listed twice", id)
			}
			cards, err := d.Deal(1)
			if err != nil {
				return Deal{}, err
			}
			hole := out.Hole[id]
			hole[round] = cards[0]
			out.Hole[id] = hole
		}
	}

	board, err := d.Deal(BoardSize)
	if err != nil {
		return Deal{}, err
	}
	copy(out.Board[:], board)
	return out, nil
}
