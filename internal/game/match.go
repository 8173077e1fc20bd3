package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/lox/cardroom/internal/deck"
)

// Seat is a player sitting at the table when a match starts.
type Seat struct {
	ID     string
	UserID string
	Name   string
	Stack  int
	// ParticipantID defaults to ID when empty.
	ParticipantID string
}

// Config holds what a table supplies to start a match.
type Config struct {
	ID      string
	TableID string
	// Seats in seat order. Seats without chips sit the hand out.
	Seats []Seat
	// ButtonID is the seat holding the button for this hand.
	ButtonID   string
	SmallBlind int
	BigBlind   int
	Ante       int
}

// Match is one hand of Texas Hold'em.
type Match struct {
	ID      string
	TableID string

	Street       Street
	Participants []*Participant

	ButtonID     string
	SmallBlindID string
	BigBlindID   string

	SmallBlind int
	BigBlind   int
	Ante       int

	CallAmount int
	MinRaise   int

	lastRaiseSize int
	turn          int
	board         [deck.BoardSize]deck.Card
	pots          []Pot
	result        *Result
}

// NewMatch deals a new hand, posts antes and blinds and gives the turn to the
// first actor. Participants are created for every seat with chips, in seat
// order. rng shuffles the deck unless WithDeck is given.
func NewMatch(cfg Config, rng *rand.Rand, opts ...MatchOption) (*Match, error) {
	var o matchOptions
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.SmallBlind <= 0 || cfg.BigBlind < cfg.SmallBlind {
		return nil, &ValidationError{Field: "blinds", Reason: fmt.Sprintf("%d/%d", cfg.SmallBlind, cfg.BigBlind)}
	}
	if cfg.Ante < 0 {
		return nil, &ValidationError{Field: "ante", Reason: "must not be negative"}
	}

	m := &Match{
		ID:         cfg.ID,
		TableID:    cfg.TableID,
		Street:     Preflop,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
		Ante:       cfg.Ante,
		turn:       -1,
	}

	seen := make(map[string]bool, len(cfg.Seats))
	button := -1
	for _, s := range cfg.Seats {
		if s.Stack < 0 {
			return nil, &ValidationError{Field: "stack", Reason: fmt.Sprintf("seat %s has %d", s.ID, s.Stack)}
		}
		if s.Stack == 0 {
			continue
		}
		id := s.ParticipantID
		if id == "" {
			id = s.ID
		}
		if seen[id] || seen[s.ID] {
			return nil, &ValidationError{Field: "seats", Reason: fmt.Sprintf("seat %s listed twice", s.ID)}
		}
		seen[id], seen[s.ID] = true, true
		if s.ID == cfg.ButtonID {
			button = len(m.Participants)
		}
		m.Participants = append(m.Participants, &Participant{
			ID:     id,
			SeatID: s.ID,
			UserID: s.UserID,
			Name:   s.Name,
			Stack:  s.Stack,
		})
	}
	if len(m.Participants) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	if button < 0 {
		return nil, &ValidationError{Field: "button", Reason: fmt.Sprintf("seat %q is not dealt in", cfg.ButtonID)}
	}

	d := o.deck
	if d == nil {
		if rng == nil {
			return nil, &ValidationError{Field: "rng", Reason: "required without a prepared deck"}
		}
		d = deck.NewDeck(rng)
	}
	ids := make([]string, len(m.Participants))
	for i, p := range m.Participants {
		ids[i] = p.ID
	}
	dealt, err := deck.DealHand(d, ids)
	if err != nil {
		return nil, fmt.Errorf("dealing match %s: %w", m.ID, err)
	}
	for _, p := range m.Participants {
		p.HoleCards = dealt.Hole[p.ID]
	}
	m.board = dealt.Board

	m.postForcedBets(button)
	m.progress(m.indexOf(m.BigBlindID))
	return m, nil
}

func (m *Match) postForcedBets(button int) {
	n := len(m.Participants)
	sb, bb := (button+1)%n, (button+2)%n
	if n == 2 {
		// heads-up the button posts the small blind
		sb, bb = button, (button+1)%n
	}
	m.ButtonID = m.Participants[button].ID
	m.SmallBlindID = m.Participants[sb].ID
	m.BigBlindID = m.Participants[bb].ID

	if m.Ante > 0 {
		for _, p := range m.Participants {
			// antes are dead money: they count toward the pot but not the street bet
			paid := p.commit(m.Ante)
			p.Bet -= paid
		}
	}
	m.Participants[sb].commit(m.SmallBlind)
	m.Participants[bb].commit(m.BigBlind)

	m.CallAmount = m.BigBlind
	m.lastRaiseSize = m.BigBlind
	m.MinRaise = m.CallAmount + m.lastRaiseSize
}

// Participant returns the participant with the given id.
func (m *Match) Participant(id string) (*Participant, bool) {
	if i := m.indexOf(id); i >= 0 {
		return m.Participants[i], true
	}
	return nil, false
}

func (m *Match) indexOf(id string) int {
	for i, p := range m.Participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// CurrentActor returns the id of the participant whose turn it is, or "" when
// the hand is over or between rounds.
func (m *Match) CurrentActor() string {
	if m.turn < 0 {
		return ""
	}
	return m.Participants[m.turn].ID
}

// Board returns the community cards revealed so far.
func (m *Match) Board() []deck.Card {
	n := m.Street.BoardSize()
	if m.Street == FoldedOut {
		n = 0
	}
	out := make([]deck.Card, n)
	copy(out, m.board[:n])
	return out
}

// Pot returns every chip committed this hand, including bets on the current street.
func (m *Match) Pot() int {
	total := 0
	for _, p := range m.Participants {
		total += p.TotalBet
	}
	return total
}

// Pots returns the pots as of the last closed betting round.
func (m *Match) Pots() []Pot {
	return clonePots(m.pots)
}

// MainPot returns the amount in the main pot as of the last closed round.
func (m *Match) MainPot() int {
	if len(m.pots) == 0 {
		return 0
	}
	return m.pots[0].Amount
}

// SidePots returns the side pots as of the last closed round.
func (m *Match) SidePots() []Pot {
	if len(m.pots) < 2 {
		return nil
	}
	return clonePots(m.pots[1:])
}

// IsOver reports whether the hand has been settled.
func (m *Match) IsOver() bool {
	return m.Street.IsTerminal()
}

// Result returns the settlement, or nil while the hand is running.
func (m *Match) Result() *Result {
	return m.result
}

// FindNextActive returns the next participant after id, in seat order and
// wrapping, who has not folded and still has chips. The participant itself is
// returned last, so a lone actor finds themselves.
func (m *Match) FindNextActive(id string) (string, bool) {
	i := m.indexOf(id)
	if i < 0 {
		return "", false
	}
	if j := m.nextActive(i); j >= 0 {
		return m.Participants[j].ID, true
	}
	return "", false
}

func (m *Match) nextActive(from int) int {
	n := len(m.Participants)
	for k := 1; k <= n; k++ {
		i := (from + k) % n
		if m.Participants[i].CanAct() {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the match.
func (m *Match) Clone() *Match {
	c := *m
	c.Participants = make([]*Participant, len(m.Participants))
	for i, p := range m.Participants {
		cp := *p
		c.Participants[i] = &cp
	}
	c.pots = clonePots(m.pots)
	if m.result != nil {
		c.result = m.result.clone()
	}
	return &c
}

func clonePots(pots []Pot) []Pot {
	if pots == nil {
		return nil
	}
	out := make([]Pot, len(pots))
	for i, p := range pots {
		out[i] = Pot{Amount: p.Amount, Cap: p.Cap, Eligible: append([]string(nil), p.Eligible...), Uncalled: p.Uncalled}
	}
	return out
}
