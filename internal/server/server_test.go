package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/store"
	"github.com/lox/cardroom/internal/table"
)

type harness struct {
	ctx     context.Context
	store   *store.Memory
	server  *Server
	manager *table.Manager
	http    *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{ctx: context.Background(), store: store.NewMemory()}
	logger := log.New(io.Discard)

	h.server = New(h.store, logger, WithStartingBalance(5000))
	h.manager = table.NewManager(table.Deps{
		Store:    h.store,
		Accounts: h.store,
		Emitter:  h.server,
		Clock:    quartz.NewMock(t),
		Logger:   logger,
		Seed:     5,
	})
	h.server.SetManager(h.manager)

	_, err := h.manager.CreateTable(h.ctx, table.Config{
		ID:         "tbl_main",
		Name:       "main",
		MaxPlayers: 6,
		MinBuyIn:   500,
		MaxBuyIn:   2000,
		HandDelay:  5 * time.Second,
	})
	require.NoError(t, err)

	h.http = httptest.NewServer(h.server.Handler())
	t.Cleanup(func() {
		h.server.Stop()
		h.http.Close()
		_ = h.manager.Close()
	})
	return h
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
	seq  int
}

func (h *harness) dial(t *testing.T) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

// send writes a request and returns its request id.
func (c *client) send(typ MessageType, data any) string {
	c.t.Helper()
	c.seq++
	msg, err := NewMessage(typ, data)
	require.NoError(c.t, err)
	msg.RequestID = fmt.Sprintf("req-%d", c.seq)
	require.NoError(c.t, c.conn.WriteJSON(msg))
	return msg.RequestID
}

// expect reads until a message of the given type arrives, skipping others.
func (c *client) expect(typ MessageType, into any) *Message {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg Message
		require.NoError(c.t, c.conn.ReadJSON(&msg), "waiting for %s", typ)
		if msg.Type != typ {
			continue
		}
		if into != nil {
			require.NoError(c.t, json.Unmarshal(msg.Data, into))
		}
		return &msg
	}
}

func (c *client) expectError(code string) ErrorData {
	c.t.Helper()
	var data ErrorData
	c.expect(MessageTypeError, &data)
	require.Equal(c.t, code, data.Code, data.Message)
	return data
}

func (c *client) auth(userID string) AuthResponseData {
	c.t.Helper()
	c.send(MessageTypeAuth, AuthData{UserID: userID, Name: userID})
	var data AuthResponseData
	c.expect(MessageTypeAuthResponse, &data)
	return data
}

func (c *client) join(tableID string, buyIn int) TableJoinedData {
	c.t.Helper()
	c.send(MessageTypeJoinTable, JoinTableData{TableID: tableID, BuyIn: buyIn})
	var data TableJoinedData
	c.expect(MessageTypeTableJoined, &data)
	return data
}

func TestHealth(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	resp, err := http.Get(h.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestTablesEndpoint(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	resp, err := http.Get(h.http.URL + "/tables")
	require.NoError(t, err)
	defer resp.Body.Close()

	var data TableListData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	require.Len(t, data.Tables, 1)
	assert.Equal(t, "tbl_main", data.Tables[0].ID)
	assert.Equal(t, 10, data.Tables[0].SmallBlind)
}

func TestAuthAndListTables(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	c := h.dial(t)

	c.send(MessageTypeListTables, nil)
	c.expectError(CodeNotAuthenticated)

	c.send(MessageTypeAuth, AuthData{})
	c.expectError(CodeValidation)

	resp := c.auth("alice")
	assert.Equal(t, 5000, resp.Balance)

	c.send(MessageTypeAuth, AuthData{UserID: "mallory"})
	c.expectError(CodeValidation)

	id := c.send(MessageTypeListTables, nil)
	var list TableListData
	msg := c.expect(MessageTypeTableList, &list)
	assert.Equal(t, id, msg.RequestID)
	require.Len(t, list.Tables, 1)
	assert.Equal(t, "main", list.Tables[0].Name)
}

func TestMalformedMessages(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	c := h.dial(t)
	c.auth("alice")

	c.send("shuffle_up", nil)
	c.expectError(CodeInvalidMessage)

	require.NoError(t, c.conn.WriteJSON(map[string]any{"type": "join_table", "data": "not an object"}))
	c.expectError(CodeInvalidMessage)

	c.send(MessageTypeJoinTable, JoinTableData{TableID: "tbl_nope", BuyIn: 1000})
	c.expectError(CodeValidation)

	c.send(MessageTypeJoinTable, JoinTableData{TableID: "tbl_main", BuyIn: 10})
	c.expectError(CodeValidation)

	c.send(MessageTypeMatchState, MatchStateData{MatchID: "mch_nope"})
	c.expectError(CodeValidation)
}

func TestPlayOverWebsocket(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	alice, bob := h.dial(t), h.dial(t)
	alice.auth("alice")
	bob.auth("bob")
	joined := alice.join("tbl_main", 1000)
	assert.Equal(t, 1000, joined.Seat.Stack)
	bob.join("tbl_main", 1000)

	_, err := h.manager.StartMatch(h.ctx, "tbl_main")
	require.NoError(t, err)

	var aliceStart, bobStart table.MatchStartedData
	alice.expect(MessageType(table.EventMatchStarted), &aliceStart)
	bob.expect(MessageType(table.EventMatchStarted), &bobStart)

	st := aliceStart.Match
	mine := func(st game.MatchState, user string) game.ParticipantState {
		for _, p := range st.Participants {
			if p.UserID == user {
				return p
			}
		}
		t.Fatalf("%s not dealt in", user)
		return game.ParticipantState{}
	}
	aliceP, bobP := mine(st, "alice"), mine(bobStart.Match, "bob")
	assert.Len(t, aliceP.HoleCards, 2)
	assert.Empty(t, mine(st, "bob").HoleCards, "alice cannot see bob's cards")

	actor, waiting := alice, bob
	actorP, waitingP := aliceP, bobP
	if st.CurrentActor == bobP.ID {
		actor, waiting = bob, alice
		actorP, waitingP = bobP, aliceP
	}

	// acting for someone else's participant
	waiting.send(MessageTypeAction, ActionData{ParticipantID: actorP.ID, Action: "call"})
	waiting.expectError(CodeValidation)

	// out of turn
	waiting.send(MessageTypeAction, ActionData{ParticipantID: waitingP.ID, Action: "check"})
	waiting.expectError(CodeIllegalAction)

	actor.send(MessageTypeAction, ActionData{ParticipantID: actorP.ID, Action: "dance"})
	actor.expectError(CodeValidation)

	id := actor.send(MessageTypeAction, ActionData{ParticipantID: actorP.ID, Action: "call"})
	var reply MatchStateReply
	msg := actor.expect(MessageTypeMatchState, &reply)
	assert.Equal(t, id, msg.RequestID)
	assert.Equal(t, waitingP.ID, reply.Match.CurrentActor)

	var turn table.ChangeTurnData
	waiting.expect(MessageType(table.EventChangeTurn), &turn)
	waiting.send(MessageTypeAction, ActionData{ParticipantID: waitingP.ID, Action: "check"})
	waiting.expect(MessageTypeMatchState, &reply)
	assert.Equal(t, game.Flop, reply.Match.Street)

	var text table.TableMessageData
	for text.Message != "--- Flop: "+deckString(reply.Match)+" ---" {
		actor.expect(MessageType(table.EventTableMessage), &text)
	}

	actor.send(MessageTypeMatchState, MatchStateData{MatchID: reply.Match.ID})
	var state MatchStateReply
	actor.expect(MessageTypeMatchState, &state)
	assert.Equal(t, reply.Match, state.Match)
}

func deckString(st game.MatchState) string {
	parts := make([]string, len(st.Board))
	for i, c := range st.Board {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func TestChatAndRebuy(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	alice, bob := h.dial(t), h.dial(t)
	alice.auth("alice")
	bob.auth("bob")
	alice.join("tbl_main", 1000)
	bob.join("tbl_main", 1000)

	alice.send(MessageTypeChat, ChatData{TableID: "tbl_main", Message: "good luck"})
	var text table.TableMessageData
	for text.From == "" {
		bob.expect(MessageType(table.EventTableMessage), &text)
	}
	assert.Equal(t, table.TableMessageData{Message: "good luck", From: "alice"}, text)

	alice.send(MessageTypeRebuy, RebuyData{TableID: "tbl_main", Amount: 500})
	var seat SeatUpdatedData
	alice.expect(MessageTypeSeatUpdated, &seat)
	assert.Equal(t, 1500, seat.Seat.Stack)

	alice.send(MessageTypeRebuy, RebuyData{TableID: "tbl_other", Amount: 500})
	alice.expectError(CodeValidation)
}

func TestLeaveAndDisconnect(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	alice, bob := h.dial(t), h.dial(t)
	alice.auth("alice")
	bob.auth("bob")
	alice.join("tbl_main", 1000)
	bob.join("tbl_main", 1500)

	alice.send(MessageTypeLeaveTable, LeaveTableData{TableID: "tbl_main"})
	var left TableLeftData
	alice.expect(MessageTypeTableLeft, &left)
	assert.Equal(t, "tbl_main", left.TableID)

	balance, err := h.store.Balance(h.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5000, balance)

	require.NoError(t, bob.conn.Close())
	tbl, err := h.manager.Table("tbl_main")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		seats, err := tbl.Seats(h.ctx)
		return err == nil && len(seats) == 0
	}, 5*time.Second, 10*time.Millisecond)

	balance, err = h.store.Balance(h.ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 5000, balance)
}

func TestErrorCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{&game.ValidationError{Field: "x", Reason: "y"}, CodeValidation},
		{fmt.Errorf("wrapped: %w", &game.IllegalActionError{ParticipantID: "p", Action: game.ActionCheck, Reason: "no"}), CodeIllegalAction},
		{game.ErrMatchOver, CodeIllegalAction},
		{table.ErrNoMatch, CodeIllegalAction},
		{table.ErrTableFull, CodeValidation},
		{fmt.Errorf("buy-in: %w", store.ErrInsufficientFunds), CodeValidation},
		{&table.InternalError{Op: "commit", Err: store.ErrNotFound}, CodeInternal},
		{&decodeError{err: errors.New("bad")}, CodeInvalidMessage},
		{errors.New("mystery"), CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorCode(tt.err), tt.err.Error())
	}
}
