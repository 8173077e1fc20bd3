package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/store"
	"github.com/lox/cardroom/internal/table"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// requestTimeout bounds how long one client request may wait on a table.
	requestTimeout = 15 * time.Second
)

var ErrConnectionClosed = errors.New("connection closed")

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu     sync.RWMutex
	userID string
	name   string
	// seats maps table id to the seat held there
	seats map[string]string
	// participants this connection may act for
	participants map[string]bool
}

// newConnection creates a new connection wrapper
func newConnection(conn *websocket.Conn, srv *Server) *Connection {
	ctx, cancel := context.WithCancel(srv.ctx)

	return &Connection{
		conn:         conn,
		send:         make(chan *Message, 256),
		server:       srv,
		logger:       srv.logger.WithPrefix("conn"),
		ctx:          ctx,
		cancel:       cancel,
		seats:        make(map[string]string),
		participants: make(map[string]bool),
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// Done is closed once the connection has shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// SendMessage queues a message for the client without blocking. A client
// that cannot keep up is disconnected.
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("Connection send buffer full, closing connection", "user", c.User())
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// User returns the authenticated user id, empty before auth.
func (c *Connection) User() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Connection) setUser(userID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID, c.name = userID, name
}

func (c *Connection) identity() (userID, name string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.name
}

func (c *Connection) seat(tableID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.seats[tableID]
	return id, ok
}

func (c *Connection) setSeat(tableID, seatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seatID == "" {
		delete(c.seats, tableID)
		return
	}
	c.seats[tableID] = seatID
}

func (c *Connection) tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.seats))
	for id := range c.seats {
		out = append(out, id)
	}
	return out
}

func (c *Connection) grantParticipant(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.participants[id] = true
}

func (c *Connection) owns(participantID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.participants[participantID]
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "user", c.User())

	if msg.Type != MessageTypeAuth && c.User() == "" {
		c.sendError(msg, CodeNotAuthenticated, "must authenticate first")
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err = decode(msg, &data); err == nil {
			err = c.handleAuth(ctx, msg, data)
		}

	case MessageTypeJoinTable:
		var data JoinTableData
		if err = decode(msg, &data); err == nil {
			err = c.handleJoinTable(ctx, msg, data)
		}

	case MessageTypeLeaveTable:
		var data LeaveTableData
		if err = decode(msg, &data); err == nil {
			err = c.handleLeaveTable(ctx, msg, data)
		}

	case MessageTypeRebuy:
		var data RebuyData
		if err = decode(msg, &data); err == nil {
			err = c.handleRebuy(ctx, msg, data)
		}

	case MessageTypeAction:
		var data ActionData
		if err = decode(msg, &data); err == nil {
			err = c.handleAction(ctx, msg, data)
		}

	case MessageTypeMatchState:
		var data MatchStateData
		if err = decode(msg, &data); err == nil {
			err = c.handleMatchState(ctx, msg, data)
		}

	case MessageTypeListTables:
		err = c.handleListTables(ctx, msg)

	case MessageTypeChat:
		var data ChatData
		if err = decode(msg, &data); err == nil {
			err = c.handleChat(ctx, msg, data)
		}

	default:
		c.sendError(msg, CodeInvalidMessage, "unknown message type: "+msg.Type.String())
		return
	}

	if err != nil {
		code := errorCode(err)
		if code == CodeInternal {
			c.logger.Error("Request failed", "type", msg.Type, "user", c.User(), "error", err)
		}
		c.sendError(msg, code, err.Error())
	}
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "malformed data: " + e.err.Error() }

func decode(msg *Message, v any) error {
	if len(msg.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

// errorCode classifies an error for the client.
func errorCode(err error) string {
	var (
		decErr      *decodeError
		validation  *game.ValidationError
		illegal     *game.IllegalActionError
		internalErr *table.InternalError
	)
	switch {
	case errors.As(err, &decErr):
		return CodeInvalidMessage
	case errors.As(err, &internalErr):
		return CodeInternal
	case errors.As(err, &illegal), errors.Is(err, game.ErrMatchOver), errors.Is(err, table.ErrNoMatch):
		return CodeIllegalAction
	case errors.As(err, &validation),
		errors.Is(err, game.ErrNotEnoughPlayers),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrInsufficientFunds),
		errors.Is(err, table.ErrTableFull),
		errors.Is(err, table.ErrAlreadySeated),
		errors.Is(err, table.ErrMatchInProgress),
		errors.Is(err, table.ErrChatBanned),
		errors.Is(err, table.ErrUnknownTable),
		errors.Is(err, table.ErrUnknownSeat),
		errors.Is(err, table.ErrTableClosed):
		return CodeValidation
	default:
		return CodeInternal
	}
}

// reply sends a response correlated with the request.
func (c *Connection) reply(req *Message, typ MessageType, data any) {
	msg, err := NewMessage(typ, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", typ, "error", err)
		return
	}
	msg.RequestID = req.RequestID
	_ = c.SendMessage(msg)
}

// sendError sends an error message to the client
func (c *Connection) sendError(req *Message, code, message string) {
	c.reply(req, MessageTypeError, ErrorData{Code: code, Message: message})
}

func (c *Connection) handleAuth(ctx context.Context, req *Message, data AuthData) error {
	if data.UserID == "" {
		return &game.ValidationError{Field: "userId", Reason: "required"}
	}
	if data.Name == "" {
		data.Name = data.UserID
	}
	if current := c.User(); current != "" && current != data.UserID {
		return &game.ValidationError{Field: "userId", Reason: "connection is already authenticated as " + current}
	}

	balance, err := c.server.accounts.EnsureAccount(ctx, data.UserID, c.server.startingBalance)
	if err != nil {
		return &table.InternalError{Op: "open account", Err: err}
	}
	c.setUser(data.UserID, data.Name)
	c.server.logger.Info("Authenticated", "user", data.UserID, "name", data.Name, "balance", balance)

	c.reply(req, MessageTypeAuthResponse, AuthResponseData{UserID: data.UserID, Name: data.Name, Balance: balance})
	return nil
}

func (c *Connection) handleJoinTable(ctx context.Context, req *Message, data JoinTableData) error {
	t, err := c.server.manager.Table(data.TableID)
	if err != nil {
		return err
	}
	userID, name := c.identity()
	s, err := t.Join(ctx, table.JoinRequest{UserID: userID, Name: name, BuyIn: data.BuyIn})
	if err != nil {
		return err
	}
	c.setSeat(t.ID(), s.ID)
	c.server.bindSeat(s.ID, c)

	seats, err := t.Seats(ctx)
	if err != nil {
		return err
	}
	c.reply(req, MessageTypeTableJoined, TableJoinedData{TableID: t.ID(), Seat: s, Seats: seats})
	return nil
}

func (c *Connection) handleLeaveTable(ctx context.Context, req *Message, data LeaveTableData) error {
	seatID, ok := c.seat(data.TableID)
	if !ok {
		return table.ErrUnknownSeat
	}
	t, err := c.server.manager.Table(data.TableID)
	if err != nil {
		return err
	}
	if err := t.Leave(ctx, seatID); err != nil {
		return err
	}
	c.setSeat(data.TableID, "")
	c.reply(req, MessageTypeTableLeft, TableLeftData{TableID: data.TableID})
	return nil
}

func (c *Connection) handleRebuy(ctx context.Context, req *Message, data RebuyData) error {
	seatID, ok := c.seat(data.TableID)
	if !ok {
		return table.ErrUnknownSeat
	}
	t, err := c.server.manager.Table(data.TableID)
	if err != nil {
		return err
	}
	s, err := t.Rebuy(ctx, seatID, data.Amount)
	if err != nil {
		return err
	}
	c.reply(req, MessageTypeSeatUpdated, SeatUpdatedData{Seat: s})
	return nil
}

func (c *Connection) handleAction(ctx context.Context, req *Message, data ActionData) error {
	kind, err := game.ParseActionKind(data.Action)
	if err != nil {
		return err
	}
	if !c.owns(data.ParticipantID) {
		return &game.ValidationError{Field: "participantId", Reason: "not dealt to this connection"}
	}
	st, err := c.server.manager.ApplyAction(ctx, data.ParticipantID, game.Action{Kind: kind, Amount: data.Amount})
	if err != nil {
		return err
	}
	c.reply(req, MessageTypeMatchState, MatchStateReply{Match: st})
	return nil
}

func (c *Connection) handleMatchState(ctx context.Context, req *Message, data MatchStateData) error {
	st, err := c.server.manager.MatchState(ctx, data.MatchID)
	if err != nil {
		return err
	}
	c.reply(req, MessageTypeMatchState, MatchStateReply{Match: st})
	return nil
}

func (c *Connection) handleListTables(ctx context.Context, req *Message) error {
	tables, err := c.server.manager.List(ctx)
	if err != nil {
		return err
	}
	c.reply(req, MessageTypeTableList, TableListData{Tables: tables})
	return nil
}

func (c *Connection) handleChat(ctx context.Context, req *Message, data ChatData) error {
	seatID, ok := c.seat(data.TableID)
	if !ok {
		return table.ErrUnknownSeat
	}
	t, err := c.server.manager.Table(data.TableID)
	if err != nil {
		return err
	}
	return t.Say(ctx, seatID, data.Message)
}
