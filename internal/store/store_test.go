package store

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/statistics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend is the surface shared by both implementations.
type backend interface {
	SeatsByTable(ctx context.Context, tableID string) ([]Seat, error)
	SaveSeat(ctx context.Context, s Seat) error
	DeleteSeat(ctx context.Context, seatID string) error
	Commit(ctx context.Context, cs Changeset) error
	Match(ctx context.Context, matchID string) (Match, error)
	OpenMatches(ctx context.Context, tableID string) ([]Match, error)
	Participants(ctx context.Context, matchID string) ([]Participant, error)
	SidePots(ctx context.Context, matchID string) ([]SidePot, error)
	History(ctx context.Context, userID string) (wins, losses []Record, err error)
	Statistics(ctx context.Context, userID string) (statistics.Summary, error)
	EnsureAccount(ctx context.Context, userID string, opening int) (int, error)
	Balance(ctx context.Context, userID string) (int, error)
	Deposit(ctx context.Context, userID string, amount int) error
	Withdraw(ctx context.Context, userID string, amount int) error
	Close() error
}

func backends(t *testing.T) map[string]backend {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "cardroom.db"), log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]backend{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func seedSeats(t *testing.T, b backend) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, b.SaveSeat(ctx, Seat{ID: "s2", TableID: "t1", UserID: "u2", Name: "bob", Position: 2, Stack: 500}))
	require.NoError(t, b.SaveSeat(ctx, Seat{ID: "s1", TableID: "t1", UserID: "u1", Name: "alice", Position: 1, Stack: 1000}))
	require.NoError(t, b.SaveSeat(ctx, Seat{ID: "s9", TableID: "t2", UserID: "u9", Name: "zed", Position: 1, Stack: 10}))
}

func TestSeats(t *testing.T) {
	t.Parallel()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedSeats(t, b)

			seats, err := b.SeatsByTable(ctx, "t1")
			require.NoError(t, err)
			require.Len(t, seats, 2)
			assert.Equal(t, "s1", seats[0].ID, "ordered by position")
			assert.Equal(t, "alice", seats[0].Name)

			seats[1].LeaveNextMatch = true
			require.NoError(t, b.SaveSeat(ctx, seats[1]))
			seats, _ = b.SeatsByTable(ctx, "t1")
			assert.True(t, seats[1].LeaveNextMatch)

			require.NoError(t, b.DeleteSeat(ctx, "s1"))
			assert.ErrorIs(t, b.DeleteSeat(ctx, "s1"), ErrNotFound)
			seats, _ = b.SeatsByTable(ctx, "t1")
			assert.Len(t, seats, 1)
		})
	}
}

func TestCommit(t *testing.T) {
	t.Parallel()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedSeats(t, b)

			cs := Changeset{
				TableID:        "t1",
				StackDeltas:    []StackDelta{{SeatID: "s1", Delta: -50}, {SeatID: "s2", Delta: 50}},
				PreviousStacks: map[string]int{"s1": 1000, "s2": 500},
				Turn:           "s2",
				Match: &Match{ID: "m1", TableID: "t1", Street: game.Flop, State: game.MatchState{
					ID: "m1", TableID: "t1", Street: game.Flop, Pot: 100, CallAmount: 20,
				}},
				Participants: []Participant{
					{ID: "p1", MatchID: "m1", SeatID: "s1", UserID: "u1", TotalBet: 50, LastAction: game.LastCall, HoleCards: "As Kd"},
					{ID: "p2", MatchID: "m1", SeatID: "s2", UserID: "u2", TotalBet: 50, IsFolded: true, LastAction: game.LastFold, HoleCards: "2c 7d"},
				},
				SidePots: []SidePot{{MatchID: "m1", Index: 0, Amount: 100, Eligible: []string{"p1", "p2"}}},
				Wins:     []Record{{MatchID: "m1", TableID: "t1", UserID: "u2", Amount: 50, Message: "bob wins 100"}},
				Losses:   []Record{{MatchID: "m1", TableID: "t1", UserID: "u1", Amount: 50}},
				Hands: []statistics.HandResult{
					{UserID: "u1", Net: -50, BigBlind: 10, Pot: 100},
					{UserID: "u2", Net: 50, BigBlind: 10, Pot: 100, WentToShowdown: true},
				},
			}
			require.NoError(t, b.Commit(ctx, cs))

			seats, err := b.SeatsByTable(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, 950, seats[0].Stack)
			assert.Equal(t, 550, seats[1].Stack)
			assert.Equal(t, 1000, seats[0].PreviousStack)
			assert.False(t, seats[0].IsTurn)
			assert.True(t, seats[1].IsTurn)

			m, err := b.Match(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, game.Flop, m.Street)
			assert.Equal(t, 100, m.State.Pot)

			ps, err := b.Participants(ctx, "m1")
			require.NoError(t, err)
			require.Len(t, ps, 2)
			assert.True(t, ps[1].IsFolded)
			assert.Equal(t, game.LastFold, ps[1].LastAction)
			assert.Equal(t, "As Kd", ps[0].HoleCards)

			pots, err := b.SidePots(ctx, "m1")
			require.NoError(t, err)
			require.Len(t, pots, 1)
			assert.Equal(t, []string{"p1", "p2"}, pots[0].Eligible)

			wins, losses, err := b.History(ctx, "u2")
			require.NoError(t, err)
			assert.Len(t, wins, 1)
			assert.Empty(t, losses)
			assert.Equal(t, "bob wins 100", wins[0].Message)

			sum, err := b.Statistics(ctx, "u2")
			require.NoError(t, err)
			assert.Equal(t, 1, sum.Hands)
			assert.Equal(t, 1, sum.ShowdownWins)

			_, err = b.Match(ctx, "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestCommitIsAtomic(t *testing.T) {
	t.Parallel()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedSeats(t, b)

			err := b.Commit(ctx, Changeset{
				TableID:     "t1",
				StackDeltas: []StackDelta{{SeatID: "s1", Delta: -10}, {SeatID: "s2", Delta: -600}},
				Match:       &Match{ID: "m1", TableID: "t1", Street: game.Preflop},
			})
			require.ErrorIs(t, err, ErrInsufficientFunds)

			seats, _ := b.SeatsByTable(ctx, "t1")
			assert.Equal(t, 1000, seats[0].Stack, "first delta rolled back")
			_, err = b.Match(ctx, "m1")
			assert.ErrorIs(t, err, ErrNotFound)

			err = b.Commit(ctx, Changeset{StackDeltas: []StackDelta{{SeatID: "ghost", Delta: 1}}})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestOpenMatches(t *testing.T) {
	t.Parallel()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedSeats(t, b)

			for _, m := range []Match{
				{ID: "m1", TableID: "t1", Street: game.Showdown},
				{ID: "m2", TableID: "t1", Street: game.Turn},
				{ID: "m3", TableID: "t1", Street: game.Voided},
				{ID: "m4", TableID: "t2", Street: game.Preflop},
			} {
				m.State = game.MatchState{ID: m.ID, TableID: m.TableID, Street: m.Street}
				require.NoError(t, b.Commit(ctx, Changeset{TableID: m.TableID, Match: &m}))
			}

			open, err := b.OpenMatches(ctx, "t1")
			require.NoError(t, err)
			require.Len(t, open, 1)
			assert.Equal(t, "m2", open[0].ID)
			assert.Equal(t, game.Turn, open[0].Street)

			open, err = b.OpenMatches(ctx, "t3")
			require.NoError(t, err)
			assert.Empty(t, open)
		})
	}
}

func TestAccounts(t *testing.T) {
	t.Parallel()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			bal, err := b.EnsureAccount(ctx, "u1", 5000)
			require.NoError(t, err)
			assert.Equal(t, 5000, bal)
			bal, _ = b.EnsureAccount(ctx, "u1", 1)
			assert.Equal(t, 5000, bal, "opening balance only applies once")

			require.NoError(t, b.Withdraw(ctx, "u1", 2000))
			assert.ErrorIs(t, b.Withdraw(ctx, "u1", 4000), ErrInsufficientFunds)
			assert.ErrorIs(t, b.Withdraw(ctx, "nobody", 1), ErrNotFound)
			require.NoError(t, b.Deposit(ctx, "u1", 500))

			bal, err = b.Balance(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 3500, bal)
		})
	}
}
