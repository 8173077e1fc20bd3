package game

import (
	"fmt"
	"strings"
)

// ActionKind is what a participant asks to do on their turn.
type ActionKind string

const (
	ActionFold  ActionKind = "fold"
	ActionCheck ActionKind = "check"
	ActionCall  ActionKind = "call"
	// ActionRaise carries the new street total in Amount, not the increment.
	ActionRaise ActionKind = "raise"
	// ActionAllIn raises (or calls) with the whole stack.
	ActionAllIn ActionKind = "allin"
)

// ParseActionKind accepts the wire names plus a few common aliases.
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold", "f":
		return ActionFold, nil
	case "check", "k":
		return ActionCheck, nil
	case "call", "c":
		return ActionCall, nil
	case "raise", "bet", "r", "b":
		return ActionRaise, nil
	case "allin", "all-in", "all_in", "a":
		return ActionAllIn, nil
	default:
		return "", &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", s)}
	}
}

// Action is one request from a participant.
type Action struct {
	Kind   ActionKind `json:"action"`
	Amount int        `json:"amount,omitempty"`
}

// Fold builds a fold.
func Fold() Action { return Action{Kind: ActionFold} }

// Check builds a check.
func Check() Action { return Action{Kind: ActionCheck} }

// Call builds a call of whatever is owed.
func Call() Action { return Action{Kind: ActionCall} }

// AllIn builds a shove of the whole stack.
func AllIn() Action { return Action{Kind: ActionAllIn} }

// Raise builds a raise to a street total of amount.
func Raise(amount int) Action { return Action{Kind: ActionRaise, Amount: amount} }

func (a Action) String() string {
	if a.Kind == ActionRaise {
		return fmt.Sprintf("raise %d", a.Amount)
	}
	return string(a.Kind)
}

// LastAction records the most recent thing a participant did this street.
// Bet, Raise and AllIn are the three kinds of raise.
type LastAction string

const (
	LastNone   LastAction = ""
	LastFold   LastAction = "FOLD"
	LastCheck  LastAction = "CHECK"
	LastCall   LastAction = "CALL"
	LastBet    LastAction = "BET"
	LastRaise  LastAction = "RAISE"
	LastAllIn  LastAction = "ALLIN"
	LastWinner LastAction = "WINNER"
)

// IsRaise reports whether the action put in more than the call amount.
func (l LastAction) IsRaise() bool {
	return l == LastBet || l == LastRaise || l == LastAllIn
}

// Legal describes what the participant on turn may do.
type Legal struct {
	Actions []ActionKind `json:"actions"`
	// ToCall is what a call would add to the participant's bet.
	ToCall int `json:"toCall"`
	// MinRaise and MaxRaise bound the street total of a raise. MaxRaise is
	// the all-in total. Both are zero when raising is not allowed.
	MinRaise int `json:"minRaise"`
	MaxRaise int `json:"maxRaise"`
}

// Can reports whether kind is among the legal actions.
func (l Legal) Can(kind ActionKind) bool {
	for _, k := range l.Actions {
		if k == kind {
			return true
		}
	}
	return false
}
