package game

import (
	"slices"

	"github.com/lox/cardroom/internal/deck"
)

// ParticipantState is the public view of a participant.
type ParticipantState struct {
	ID         string      `json:"id"`
	SeatID     string      `json:"seatId"`
	UserID     string      `json:"userId"`
	Name       string      `json:"name"`
	Stack      int         `json:"stack"`
	Bet        int         `json:"bet"`
	TotalBet   int         `json:"totalBet"`
	IsFolded   bool        `json:"isFolded"`
	IsChecked  bool        `json:"isChecked"`
	IsAllIn    bool        `json:"isAllIn"`
	IsTurn     bool        `json:"isTurn"`
	LastAction LastAction  `json:"lastAction,omitempty"`
	HoleCards  []deck.Card `json:"holeCards,omitempty"`
}

// MatchState is a point in time snapshot of a match, safe to share.
type MatchState struct {
	ID           string             `json:"id"`
	TableID      string             `json:"tableId"`
	Street       Street             `json:"street"`
	Board        []deck.Card        `json:"board"`
	ButtonID     string             `json:"buttonId"`
	SmallBlindID string             `json:"smallBlindId"`
	BigBlindID   string             `json:"bigBlindId"`
	SmallBlind   int                `json:"smallBlind"`
	BigBlind     int                `json:"bigBlind"`
	Ante         int                `json:"ante,omitempty"`
	Pot          int                `json:"pot"`
	MainPot      int                `json:"mainPot"`
	SidePots     []Pot              `json:"sidePots,omitempty"`
	CallAmount   int                `json:"callAmount"`
	MinRaise     int                `json:"minRaise"`
	CurrentActor string             `json:"currentActor,omitempty"`
	Participants []ParticipantState `json:"participants"`
	Winners      []string           `json:"winners,omitempty"`
	Messages     []string           `json:"messages,omitempty"`
	Over         bool               `json:"over"`
}

// State returns the public snapshot. Hole cards are included only for
// participants who reached showdown.
func (m *Match) State() MatchState {
	s := MatchState{
		ID:           m.ID,
		TableID:      m.TableID,
		Street:       m.Street,
		Board:        m.Board(),
		ButtonID:     m.ButtonID,
		SmallBlindID: m.SmallBlindID,
		BigBlindID:   m.BigBlindID,
		SmallBlind:   m.SmallBlind,
		BigBlind:     m.BigBlind,
		Ante:         m.Ante,
		Pot:          m.Pot(),
		MainPot:      m.MainPot(),
		SidePots:     m.SidePots(),
		CallAmount:   m.CallAmount,
		MinRaise:     m.MinRaise,
		CurrentActor: m.CurrentActor(),
		Over:         m.IsOver(),
	}
	for i, p := range m.Participants {
		ps := ParticipantState{
			ID:         p.ID,
			SeatID:     p.SeatID,
			UserID:     p.UserID,
			Name:       p.Name,
			Stack:      p.Stack,
			Bet:        p.Bet,
			TotalBet:   p.TotalBet,
			IsFolded:   p.IsFolded,
			IsChecked:  p.IsChecked,
			IsAllIn:    p.IsAllIn,
			IsTurn:     i == m.turn,
			LastAction: p.LastAction,
		}
		if m.Street == Showdown && !p.IsFolded {
			ps.HoleCards = []deck.Card{p.HoleCards[0], p.HoleCards[1]}
		}
		s.Participants = append(s.Participants, ps)
	}
	if m.result != nil {
		s.Winners = m.result.Winners()
		s.Messages = slices.Clone(m.result.Messages)
	}
	return s
}

// ForParticipant returns a copy of the snapshot with the hole cards of one
// participant filled in.
func (s MatchState) ForParticipant(participantID string, hole [2]deck.Card) MatchState {
	out := s
	out.Participants = slices.Clone(s.Participants)
	for i := range out.Participants {
		if out.Participants[i].ID == participantID {
			out.Participants[i].HoleCards = []deck.Card{hole[0], hole[1]}
		}
	}
	return out
}

// Participant looks up a participant in the snapshot.
func (s MatchState) Participant(id string) (ParticipantState, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return ParticipantState{}, false
}
