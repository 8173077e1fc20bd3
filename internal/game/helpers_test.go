package game

import (
	"math/rand/v2"
	"testing"

	"github.com/lox/cardroom/internal/deck"
	"github.com/lox/cardroom/internal/randutil"
	"github.com/stretchr/testify/require"
)

type matchSetup struct {
	names  []string
	stacks []int
	button string
	sb, bb int
	ante   int
	cards  string
}

// newTestMatch seats the named players in order, each seat and participant
// id being the name itself.
func newTestMatch(t *testing.T, setup matchSetup) *Match {
	t.Helper()
	if setup.sb == 0 {
		setup.sb, setup.bb = 5, 10
	}
	if setup.button == "" {
		setup.button = setup.names[0]
	}
	seats := make([]Seat, len(setup.names))
	for i, n := range setup.names {
		stack := 1000
		if setup.stacks != nil {
			stack = setup.stacks[i]
		}
		seats[i] = Seat{ID: n, UserID: "u-" + n, Name: n, Stack: stack}
	}

	var opts []MatchOption
	if setup.cards != "" {
		opts = append(opts, WithDeck(deck.NewStackedDeck(deck.MustParseCards(setup.cards))))
	}
	m, err := NewMatch(Config{
		ID:         "m1",
		TableID:    "t1",
		Seats:      seats,
		ButtonID:   setup.button,
		SmallBlind: setup.sb,
		BigBlind:   setup.bb,
		Ante:       setup.ante,
	}, randutil.New(1), opts...)
	require.NoError(t, err)
	return m
}

func mustApply(t *testing.T, m *Match, id string, a Action) *Transition {
	t.Helper()
	tr, err := m.Apply(id, a)
	require.NoError(t, err, "%s %s", id, a)
	return tr
}

func chipsInPlay(m *Match) int {
	total := 0
	for _, p := range m.Participants {
		total += p.Stack + p.TotalBet
	}
	return total
}

func stacks(m *Match) map[string]int {
	out := make(map[string]int)
	for _, p := range m.Participants {
		out[p.ID] = p.Stack
	}
	return out
}

// randomAction picks uniformly among the legal actions.
func randomAction(rng *rand.Rand, l Legal) Action {
	kind := l.Actions[rng.IntN(len(l.Actions))]
	if kind == ActionRaise {
		return Raise(l.MinRaise + rng.IntN(l.MaxRaise-l.MinRaise+1))
	}
	return Action{Kind: kind}
}

// withoutHand strips the hand description so awards compare on chips alone.
func withoutHand(a Award) Award {
	a.Hand, a.HandCards = "", nil
	return a
}
