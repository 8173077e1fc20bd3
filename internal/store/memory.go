package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/lox/cardroom/internal/statistics"
)

// Memory is an in-process store. The zero value is not usable; use NewMemory.
type Memory struct {
	mu           sync.Mutex
	seats        map[string]Seat
	matches      map[string]Match
	participants map[string]Participant
	pots         map[string][]SidePot
	wins         []Record
	losses       []Record
	hands        map[string][]statistics.HandResult
	accounts     map[string]int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		seats:        make(map[string]Seat),
		matches:      make(map[string]Match),
		participants: make(map[string]Participant),
		pots:         make(map[string][]SidePot),
		hands:        make(map[string][]statistics.HandResult),
		accounts:     make(map[string]int),
	}
}

func (m *Memory) SeatsByTable(_ context.Context, tableID string) ([]Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Seat
	for _, s := range m.seats {
		if s.TableID == tableID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b Seat) int { return a.Position - b.Position })
	return out, nil
}

func (m *Memory) SaveSeat(_ context.Context, s Seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seats[s.ID] = s
	return nil
}

func (m *Memory) DeleteSeat(_ context.Context, seatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seats[seatID]; !ok {
		return fmt.Errorf("seat %s: %w", seatID, ErrNotFound)
	}
	delete(m.seats, seatID)
	return nil
}

// Commit validates the whole changeset before applying any of it.
func (m *Memory) Commit(_ context.Context, cs Changeset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stacks := make(map[string]int)
	for _, d := range cs.StackDeltas {
		s, ok := m.seats[d.SeatID]
		if !ok {
			return fmt.Errorf("seat %s: %w", d.SeatID, ErrNotFound)
		}
		if _, seen := stacks[d.SeatID]; !seen {
			stacks[d.SeatID] = s.Stack
		}
		stacks[d.SeatID] += d.Delta
		if stacks[d.SeatID] < 0 {
			return fmt.Errorf("seat %s stack %d: %w", d.SeatID, stacks[d.SeatID], ErrInsufficientFunds)
		}
	}
	for id := range cs.PreviousStacks {
		if _, ok := m.seats[id]; !ok {
			return fmt.Errorf("seat %s: %w", id, ErrNotFound)
		}
	}

	for id, stack := range stacks {
		s := m.seats[id]
		s.Stack = stack
		m.seats[id] = s
	}
	for id, prev := range cs.PreviousStacks {
		s := m.seats[id]
		s.PreviousStack = prev
		m.seats[id] = s
	}
	if cs.TableID != "" {
		for id, s := range m.seats {
			if s.TableID == cs.TableID {
				s.IsTurn = id == cs.Turn
				m.seats[id] = s
			}
		}
	}
	if cs.Match != nil {
		m.matches[cs.Match.ID] = *cs.Match
		if cs.SidePots != nil {
			m.pots[cs.Match.ID] = slices.Clone(cs.SidePots)
		}
	}
	for _, p := range cs.Participants {
		m.participants[p.ID] = p
	}
	m.wins = append(m.wins, cs.Wins...)
	m.losses = append(m.losses, cs.Losses...)
	for _, h := range cs.Hands {
		m.hands[h.UserID] = append(m.hands[h.UserID], h)
	}
	return nil
}

func (m *Memory) Match(_ context.Context, matchID string) (Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[matchID]
	if !ok {
		return Match{}, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	return mt, nil
}

// OpenMatches returns the matches of a table that never reached a terminal
// street, oldest id first.
func (m *Memory) OpenMatches(_ context.Context, tableID string) ([]Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Match
	for _, mt := range m.matches {
		if mt.TableID == tableID && !mt.Street.IsTerminal() {
			out = append(out, mt)
		}
	}
	slices.SortFunc(out, func(a, b Match) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// Participants returns the participants of a match.
func (m *Memory) Participants(_ context.Context, matchID string) ([]Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Participant
	for _, p := range m.participants {
		if p.MatchID == matchID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Participant) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// SidePots returns the pots recorded for a match.
func (m *Memory) SidePots(_ context.Context, matchID string) ([]SidePot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.pots[matchID]), nil
}

// History returns a user's win and lose records, oldest first.
func (m *Memory) History(_ context.Context, userID string) (wins, losses []Record, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.wins {
		if r.UserID == userID {
			wins = append(wins, r)
		}
	}
	for _, r := range m.losses {
		if r.UserID == userID {
			losses = append(losses, r)
		}
	}
	return wins, losses, nil
}

func (m *Memory) Statistics(_ context.Context, userID string) (statistics.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := statistics.Summary{UserID: userID}
	for _, h := range m.hands[userID] {
		s.Add(h)
	}
	return s, nil
}

// EnsureAccount creates an account with the given opening balance if the
// user has none, and returns the balance.
func (m *Memory) EnsureAccount(_ context.Context, userID string, opening int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.accounts[userID]; ok {
		return b, nil
	}
	m.accounts[userID] = opening
	return opening, nil
}

func (m *Memory) Balance(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.accounts[userID]
	if !ok {
		return 0, fmt.Errorf("account %s: %w", userID, ErrNotFound)
	}
	return b, nil
}

func (m *Memory) Deposit(_ context.Context, userID string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] += amount
	return nil
}

func (m *Memory) Withdraw(_ context.Context, userID string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.accounts[userID]
	if !ok {
		return fmt.Errorf("account %s: %w", userID, ErrNotFound)
	}
	if b < amount {
		return fmt.Errorf("account %s has %d, needs %d: %w", userID, b, amount, ErrInsufficientFunds)
	}
	m.accounts[userID] = b - amount
	return nil
}

func (m *Memory) Close() error { return nil }
