package evaluator

import (
	"fmt"

	"github.com/lox/cardroom/internal/deck"
)

var rankWords = map[deck.Rank]string{
	deck.Two: "Two", deck.Three: "Three", deck.Four: "Four", deck.Five: "Five",
	deck.Six: "Six", deck.Seven: "Seven", deck.Eight: "Eight", deck.Nine: "Nine",
	deck.Ten: "Ten", deck.Jack: "Jack", deck.Queen: "Queen", deck.King: "King", deck.Ace: "Ace",
}

// Description returns a human readable name such as "Full House, Twos full of Nines".
func (h Hand) Description() string {
	c := h.Cards
	switch h.Category() {
	case StraightFlush:
		if c[0].Rank == deck.Ace {
			return "Royal Flush"
		}
		return fmt.Sprintf("Straight Flush, %s high", rankWords[c[0].Rank])
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %s", c[0].Rank.Name())
	case FullHouse:
		return fmt.Sprintf("Full House, %s full of %s", c[0].Rank.Name(), c[3].Rank.Name())
	case Flush:
		return fmt.Sprintf("Flush, %s high", rankWords[c[0].Rank])
	case Straight:
		return fmt.Sprintf("Straight, %s high", rankWords[c[0].Rank])
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %s", c[0].Rank.Name())
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", c[0].Rank.Name(), c[2].Rank.Name())
	case OnePair:
		return fmt.Sprintf("Pair of %s", c[0].Rank.Name())
	default:
		return fmt.Sprintf("High Card, %s", rankWords[c[0].Rank])
	}
}
