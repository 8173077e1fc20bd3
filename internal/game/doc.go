// Package game implements one Texas Hold'em hand (a match) as a state machine.
//
// A Match is created from the seated players at a table. Creating it deals the
// cards, posts antes and blinds, and hands the turn to the first actor. From
// then on the only way to move the hand forward is Apply, which validates an
// action from the participant whose turn it is, mutates the match, and then
// decides whether the turn passes, the street advances, the remaining board is
// run out, or the hand ends.
//
// # Basic Usage
//
//	m, err := game.NewMatch(game.Config{
//	    ID:         "m1",
//	    Seats:      []game.Seat{{ID: "a", Name: "alice", Stack: 1000}, {ID: "b", Name: "bob", Stack: 1000}},
//	    ButtonID:   "a",
//	    SmallBlind: 5,
//	    BigBlind:   10,
//	}, randutil.New(42))
//	tr, err := m.Apply("a", game.Call())
//	if tr.Over {
//	    fmt.Println(m.Result().Messages)
//	}
//
// # Concurrency
//
// A Match is not safe for concurrent use. Callers serialize access, typically
// by owning the match from a single goroutine. Clone returns an independent
// copy so a caller can apply an action speculatively and discard it if
// persisting the result fails.
//
// # Chips
//
// Every chip a participant commits moves from Stack to Bet and TotalBet. Pots
// are derived from TotalBet, so the sum of all pots always equals the sum of
// all TotalBet values until the hand is settled.
package game
