package simulator

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/lox/cardroom/internal/game"
)

// Policy picks an action for the participant to act.
type Policy interface {
	Name() string
	Decide(rng *rand.Rand, st game.MatchState, legal game.Legal) game.Action
}

// Policies lists the built-in policy names.
var Policies = []string{"random", "call", "fold", "maniac"}

// NewPolicy returns a built-in policy by name.
func NewPolicy(name string) (Policy, error) {
	switch name {
	case "random":
		return randomPolicy{}, nil
	case "call":
		return callPolicy{}, nil
	case "fold":
		return foldPolicy{}, nil
	case "maniac":
		return maniacPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q (want one of %v)", name, Policies)
	}
}

// randomPolicy picks uniformly among the legal actions, with a uniform raise size.
type randomPolicy struct{}

func (randomPolicy) Name() string { return "random" }

func (randomPolicy) Decide(rng *rand.Rand, _ game.MatchState, legal game.Legal) game.Action {
	if len(legal.Actions) == 0 {
		return game.Fold()
	}
	kind := legal.Actions[rng.IntN(len(legal.Actions))]
	if kind == game.ActionRaise {
		return game.Raise(legal.MinRaise + rng.IntN(legal.MaxRaise-legal.MinRaise+1))
	}
	return game.Action{Kind: kind}
}

// callPolicy checks or calls down.
type callPolicy struct{}

func (callPolicy) Name() string { return "call" }

func (callPolicy) Decide(_ *rand.Rand, _ game.MatchState, legal game.Legal) game.Action {
	return prefer(legal, game.ActionCheck, game.ActionCall, game.ActionAllIn)
}

// foldPolicy checks when free and folds otherwise.
type foldPolicy struct{}

func (foldPolicy) Name() string { return "fold" }

func (foldPolicy) Decide(_ *rand.Rand, _ game.MatchState, legal game.Legal) game.Action {
	return prefer(legal, game.ActionCheck, game.ActionFold)
}

// maniacPolicy raises most of the time and shoves now and then.
type maniacPolicy struct{}

func (maniacPolicy) Name() string { return "maniac" }

func (maniacPolicy) Decide(rng *rand.Rand, st game.MatchState, legal game.Legal) game.Action {
	switch r := rng.Float64(); {
	case r < 0.1 && legal.Can(game.ActionAllIn):
		return game.AllIn()
	case r < 0.8 && legal.Can(game.ActionRaise):
		// pot sized when possible
		return game.Raise(min(max(legal.MinRaise, st.CallAmount+st.Pot), legal.MaxRaise))
	default:
		return prefer(legal, game.ActionCheck, game.ActionCall, game.ActionAllIn)
	}
}

// prefer returns the first of kinds that is legal, falling back to fold.
func prefer(legal game.Legal, kinds ...game.ActionKind) game.Action {
	for _, k := range kinds {
		if slices.Contains(legal.Actions, k) {
			return game.Action{Kind: k}
		}
	}
	return game.Fold()
}
