package simulator

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/randutil"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestSimulationConservesChips(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		players  int
		policies []string
		ante     int
	}{
		{"heads up random", 2, []string{"random"}, 0},
		{"six max mixed", 6, []string{"random", "call", "maniac", "fold"}, 0},
		{"full ring with antes", 9, []string{"maniac", "random", "call"}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sim, err := New(Config{
				Hands:    300,
				Players:  tt.players,
				Seed:     7,
				Policies: tt.policies,
				Ante:     tt.ante,
				Logger:   quietLogger(),
			})
			require.NoError(t, err)

			rep, err := sim.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 300, rep.Hands)
			assert.Equal(t, 300, rep.Showdowns+rep.FoldedOut)
			require.Len(t, rep.Players, tt.players)

			total, rebuys := 0, 0
			for _, p := range rep.Players {
				total += p.Stack
				rebuys += p.Rebuys
				assert.Equal(t, 300, p.Summary.Hands, p.Name)
			}
			assert.Equal(t, (tt.players+rebuys)*2000, total)
		})
	}
}

func TestSimulationIsDeterministic(t *testing.T) {
	t.Parallel()

	run := func() *Report {
		sim, err := New(Config{Hands: 100, Players: 4, Seed: 99, Policies: []string{"random", "maniac"}, Logger: quietLogger()})
		require.NoError(t, err)
		rep, err := sim.Run(context.Background())
		require.NoError(t, err)
		rep.Duration = 0
		return rep
	}
	assert.Equal(t, run(), run())
}

func TestCallingStationsReachShowdown(t *testing.T) {
	t.Parallel()
	sim, err := New(Config{Hands: 50, Players: 3, Seed: 1, Policies: []string{"call"}, Logger: quietLogger()})
	require.NoError(t, err)

	rep, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, rep.Showdowns)
	assert.Zero(t, rep.FoldedOut)
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Players: 1})
	require.Error(t, err)
	_, err = New(Config{Players: 11})
	require.Error(t, err)
	_, err = New(Config{Players: 2, MaxBuyIn: 100})
	require.Error(t, err)
	_, err = New(Config{Players: 2, Policies: []string{"bluffer"}})
	require.ErrorContains(t, err, "unknown policy")
}

func TestRunHonoursCancellation(t *testing.T) {
	t.Parallel()
	sim, err := New(Config{Hands: 10, Players: 2, Logger: quietLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sim.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPoliciesOnlyChooseLegalActions(t *testing.T) {
	t.Parallel()
	rng := randutil.New(3)

	legals := []game.Legal{
		{Actions: []game.ActionKind{game.ActionFold, game.ActionCheck, game.ActionRaise, game.ActionAllIn}, MinRaise: 20, MaxRaise: 1000},
		{Actions: []game.ActionKind{game.ActionFold, game.ActionCall, game.ActionRaise, game.ActionAllIn}, ToCall: 40, MinRaise: 80, MaxRaise: 500},
		{Actions: []game.ActionKind{game.ActionFold, game.ActionCall}, ToCall: 40},
		{Actions: []game.ActionKind{game.ActionFold, game.ActionCall, game.ActionAllIn}, ToCall: 30},
	}
	st := game.MatchState{Pot: 150, CallAmount: 40}

	for _, name := range Policies {
		p, err := NewPolicy(name)
		require.NoError(t, err)
		for _, legal := range legals {
			for range 50 {
				a := p.Decide(rng, st, legal)
				require.True(t, legal.Can(a.Kind), "%s chose %s from %v", name, a, legal.Actions)
				if a.Kind == game.ActionRaise {
					assert.GreaterOrEqual(t, a.Amount, legal.MinRaise)
					assert.LessOrEqual(t, a.Amount, legal.MaxRaise)
				}
			}
		}
	}
}
