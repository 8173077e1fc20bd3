package game

import "github.com/lox/cardroom/internal/deck"

// MatchOption configures a Match during creation.
type MatchOption func(*matchOptions)

type matchOptions struct {
	deck *deck.Deck
}

// WithDeck deals from a prepared deck instead of shuffling a new one. Hole
// cards come off the top one at a time around the table, then the board.
func WithDeck(d *deck.Deck) MatchOption {
	return func(o *matchOptions) {
		o.deck = d
	}
}
