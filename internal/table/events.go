package table

import (
	"context"

	"github.com/lox/cardroom/internal/deck"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/statistics"
	"github.com/lox/cardroom/internal/store"
)

// EventType names an outbound event.
type EventType string

const (
	EventMatchStarted      EventType = "match_started"
	EventPlayersUpdated    EventType = "players_updated"
	EventChangeTurn        EventType = "change_turn"
	EventHighlightCards    EventType = "highlight_cards"
	EventTableMessage      EventType = "table_message"
	EventStatisticsUpdated EventType = "statistics_updated"
)

// Event is one outbound notification. Data is one of the *Data types below.
type Event struct {
	Type EventType
	Data any
}

// MatchStartedData is sent privately to each seat: the snapshot carries only
// that seat's hole cards.
type MatchStartedData struct {
	Match game.MatchState `json:"match"`
}

type PlayersUpdatedData struct {
	TableID  string       `json:"tableId"`
	Seats    []store.Seat `json:"seats"`
	HandOver bool         `json:"handOver"`
}

type ChangeTurnData struct {
	Match game.MatchState `json:"match"`
	// Turn is the participant to act, empty once the hand is over.
	Turn  string     `json:"turn,omitempty"`
	Legal game.Legal `json:"legal"`
}

type HighlightCardsData struct {
	ParticipantID string      `json:"participantId"`
	Hand          string      `json:"hand"`
	Cards         []deck.Card `json:"cards"`
}

type TableMessageData struct {
	Message string `json:"message"`
	// From is set for chat, empty for dealer narration.
	From string `json:"from,omitempty"`
}

type StatisticsUpdatedData struct {
	UserID  string             `json:"userId"`
	Summary statistics.Summary `json:"summary"`
}

// Emitter delivers events to the connections of the given seats.
type Emitter interface {
	Emit(ctx context.Context, tableID string, seatIDs []string, ev Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, tableID string, seatIDs []string, ev Event)

func (f EmitterFunc) Emit(ctx context.Context, tableID string, seatIDs []string, ev Event) {
	f(ctx, tableID, seatIDs, ev)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, []string, Event) {}
