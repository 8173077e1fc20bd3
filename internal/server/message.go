package server

import (
	"encoding/json"
	"time"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/store"
	"github.com/lox/cardroom/internal/table"
)

// MessageType names a websocket message.
type MessageType string

func (t MessageType) String() string {
	return string(t)
}

// Client → Server
const (
	MessageTypeAuth       MessageType = "auth"
	MessageTypeJoinTable  MessageType = "join_table"
	MessageTypeLeaveTable MessageType = "leave_table"
	MessageTypeRebuy      MessageType = "rebuy"
	MessageTypeAction     MessageType = "action"
	MessageTypeMatchState MessageType = "match_state"
	MessageTypeListTables MessageType = "list_tables"
	MessageTypeChat       MessageType = "chat"
)

// Server → Client. Table events use their own type names.
const (
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeTableJoined  MessageType = "table_joined"
	MessageTypeTableLeft    MessageType = "table_left"
	MessageTypeTableList    MessageType = "table_list"
	MessageTypeSeatUpdated  MessageType = "seat_updated"
	MessageTypeError        MessageType = "error"
)

// Error codes
const (
	CodeInvalidMessage   = "invalid_message"
	CodeNotAuthenticated = "not_authenticated"
	CodeValidation       = "validation"
	CodeIllegalAction    = "illegal_action"
	CodeInternal         = "internal"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type JoinTableData struct {
	TableID string `json:"tableId"`
	BuyIn   int    `json:"buyIn"`
}

type LeaveTableData struct {
	TableID string `json:"tableId"`
}

type RebuyData struct {
	TableID string `json:"tableId"`
	Amount  int    `json:"amount"`
}

type ActionData struct {
	ParticipantID string `json:"participantId"`
	Action        string `json:"action"`
	Amount        int    `json:"amount,omitempty"`
}

type MatchStateData struct {
	MatchID string `json:"matchId"`
}

type ChatData struct {
	TableID string `json:"tableId"`
	Message string `json:"message"`
}

// Server → Client Messages

type AuthResponseData struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Balance int    `json:"balance"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TableJoinedData struct {
	TableID string       `json:"tableId"`
	Seat    store.Seat   `json:"seat"`
	Seats   []store.Seat `json:"seats"`
}

type TableLeftData struct {
	TableID string `json:"tableId"`
}

type TableListData struct {
	Tables []table.Info `json:"tables"`
}

type SeatUpdatedData struct {
	Seat store.Seat `json:"seat"`
}

// MatchStateReply answers match_state requests and accepted actions.
type MatchStateReply struct {
	Match game.MatchState `json:"match"`
}
