package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNotEnoughPlayers is returned when fewer than two seats can be dealt in.
	ErrNotEnoughPlayers = errors.New("not enough players to start a match")
	// ErrMatchOver is returned for any action after the hand has ended.
	ErrMatchOver = errors.New("match is over")
)

// ValidationError is a malformed request: an unknown id, a negative amount or
// a bad configuration. Nothing is mutated when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IllegalActionError is a well formed action that the rules do not allow in
// the current state, such as checking while a call is owed or acting out of
// turn. Nothing is mutated when one is returned.
type IllegalActionError struct {
	ParticipantID string
	Action        ActionKind
	Reason        string
}

func (e *IllegalActionError) Error() string {
	return fmt.Sprintf("illegal %s by %s: %s", e.Action, e.ParticipantID, e.Reason)
}

func illegal(p *Participant, kind ActionKind, format string, args ...any) error {
	return &IllegalActionError{ParticipantID: p.ID, Action: kind, Reason: fmt.Sprintf(format, args...)}
}
