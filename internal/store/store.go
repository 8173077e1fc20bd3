// Package store persists tables' seats, matches and hand history. Both
// implementations apply a Changeset atomically: either every part of it is
// visible afterwards or none is.
package store

import (
	"errors"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/statistics"
)

var (
	// ErrNotFound is returned when a seat, match or account does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientFunds is returned when a withdrawal or stack decrement
	// would go below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Seat is a player sitting at a table.
type Seat struct {
	ID      string `json:"id"`
	TableID string `json:"tableId"`
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	// Position orders seats around the table.
	Position       int  `json:"position"`
	Stack          int  `json:"stack"`
	PreviousStack  int  `json:"previousStack"`
	IsTurn         bool `json:"isTurn"`
	LeaveNextMatch bool `json:"leaveNextMatch"`
}

// Match is the persisted form of a match. State is the public snapshot at
// the time of the last commit.
type Match struct {
	ID      string
	TableID string
	Street  game.Street
	State   game.MatchState
}

// Participant is the persisted form of a participant.
type Participant struct {
	ID         string
	MatchID    string
	SeatID     string
	UserID     string
	Bet        int
	TotalBet   int
	IsFolded   bool
	IsChecked  bool
	IsAllIn    bool
	LastAction game.LastAction
	// HoleCards in wire form, e.g. "As Kd".
	HoleCards string
}

// SidePot is one pot of a match. Index 0 is the main pot.
type SidePot struct {
	MatchID  string
	Index    int
	Amount   int
	Eligible []string
}

// Record is one line of win or lose history.
type Record struct {
	MatchID string `json:"matchId"`
	TableID string `json:"tableId"`
	UserID  string `json:"userId"`
	Amount  int    `json:"amount"`
	Message string `json:"message,omitempty"`
}

// StackDelta is an atomic increment (or decrement, when negative) of a seat's stack.
type StackDelta struct {
	SeatID string
	Delta  int
}

// Changeset is everything one engine transition writes.
type Changeset struct {
	TableID     string
	StackDeltas []StackDelta
	// PreviousStacks snapshots seat stacks when a match starts.
	PreviousStacks map[string]int
	// Turn marks the seat holding the turn; every other seat at the table
	// loses it. Empty clears the turn.
	Turn         string
	Match        *Match
	Participants []Participant
	// SidePots replaces all pots of Match when non-nil.
	SidePots []SidePot
	Wins     []Record
	Losses   []Record
	Hands    []statistics.HandResult
}
