// Package server exposes cardroom tables over websockets. It authenticates
// clients, forwards their requests to the table manager and fans table
// events out to the connections holding the addressed seats.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/cardroom/internal/table"
)

// Accounts opens and reads user balances.
type Accounts interface {
	EnsureAccount(ctx context.Context, userID string, opening int) (int, error)
}

// Option configures a Server.
type Option func(*Server)

// WithStartingBalance sets the balance new accounts open with.
func WithStartingBalance(amount int) Option {
	return func(s *Server) { s.startingBalance = amount }
}

// Server represents the WebSocket server
type Server struct {
	upgrader        websocket.Upgrader
	logger          *log.Logger
	manager         *table.Manager
	accounts        Accounts
	startingBalance int

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	connections map[*Connection]struct{}
	seats       map[string]*Connection
}

// New creates a websocket server. SetManager must be called before serving;
// the manager in turn takes the server as its event emitter.
func New(accounts Accounts, logger *log.Logger, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:          logger.WithPrefix("server"),
		accounts:        accounts,
		startingBalance: DefaultStartingBalance,
		ctx:             ctx,
		cancel:          cancel,
		connections:     make(map[*Connection]struct{}),
		seats:           make(map[string]*Connection),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetManager sets the table manager requests are routed to.
func (s *Server) SetManager(m *table.Manager) {
	s.manager = m
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/tables", s.handleTables)
	return mux
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting WebSocket server", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	s.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes every connection.
func (s *Server) Stop() {
	s.cancel()

	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.manager == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	c := newConnection(ws, s)
	s.mu.Lock()
	s.connections[c] = struct{}{}
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "remote", r.RemoteAddr, "total", total)

	c.Start()
	go func() {
		<-c.Done()
		s.unregister(c)
	}()
}

// unregister forgets a closed connection and releases its seats.
func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	delete(s.connections, c)
	for seatID, owner := range s.seats {
		if owner == c {
			delete(s.seats, seatID)
		}
	}
	total := len(s.connections)
	s.mu.Unlock()

	userID := c.User()
	s.logger.Info("Client disconnected", "user", userID, "total", total)
	if userID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	for _, tableID := range c.tables() {
		t, err := s.manager.Table(tableID)
		if err != nil {
			continue
		}
		if err := t.Disconnect(ctx, userID); err != nil && !errors.Is(err, table.ErrTableClosed) {
			s.logger.Error("Failed to release seat", "user", userID, "table", tableID, "error", err)
		}
	}
}

func (s *Server) bindSeat(seatID string, c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats[seatID] = c
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// handleTables lists tables as JSON for dashboards and bots that poll.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	if s.manager == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	tables, err := s.manager.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(TableListData{Tables: tables})
}

// Emit implements table.Emitter: it delivers ev to whichever connections
// hold the given seats. Seats without a live connection are skipped.
func (s *Server) Emit(_ context.Context, tableID string, seatIDs []string, ev table.Event) {
	msg, err := NewMessage(MessageType(ev.Type), ev.Data)
	if err != nil {
		s.logger.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}

	s.mu.RLock()
	targets := make(map[string]*Connection, len(seatIDs))
	for _, id := range seatIDs {
		if c, ok := s.seats[id]; ok {
			targets[id] = c
		}
	}
	s.mu.RUnlock()

	for seatID, c := range targets {
		if started, ok := ev.Data.(table.MatchStartedData); ok {
			for _, p := range started.Match.Participants {
				if p.SeatID == seatID {
					c.grantParticipant(p.ID)
				}
			}
		}
		if err := c.SendMessage(msg); err != nil {
			s.logger.Debug("Dropped event", "type", ev.Type, "table", tableID, "seat", seatID, "error", err)
		}
	}
}
