// Package table runs cardroom tables. Each table is an actor: one goroutine
// owns its seats and current match and processes requests from a mailbox, so
// every transition observes a consistent snapshot. Actions are applied to a
// clone of the match and committed to the store in one transaction; the clone
// replaces the live match only after the commit succeeds.
package table

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/cardroom/internal/deck"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/gameid"
	"github.com/lox/cardroom/internal/statistics"
	"github.com/lox/cardroom/internal/store"
)

// Store is the persistence a table needs.
type Store interface {
	SeatsByTable(ctx context.Context, tableID string) ([]store.Seat, error)
	SaveSeat(ctx context.Context, s store.Seat) error
	DeleteSeat(ctx context.Context, seatID string) error
	Commit(ctx context.Context, cs store.Changeset) error
	Match(ctx context.Context, matchID string) (store.Match, error)
	OpenMatches(ctx context.Context, tableID string) ([]store.Match, error)
	Participants(ctx context.Context, matchID string) ([]store.Participant, error)
	Statistics(ctx context.Context, userID string) (statistics.Summary, error)
}

// Accounts holds the balances chips are bought in from and cashed out to.
type Accounts interface {
	Deposit(ctx context.Context, userID string, amount int) error
	Withdraw(ctx context.Context, userID string, amount int) error
}

// storeTimeout bounds persistence calls made from timers.
const storeTimeout = 10 * time.Second

// Info summarises a table for listings.
type Info struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	MinBuyIn   int    `json:"minBuyIn"`
	MaxBuyIn   int    `json:"maxBuyIn"`
	SmallBlind int    `json:"smallBlind"`
	BigBlind   int    `json:"bigBlind"`
	Ante       int    `json:"ante,omitempty"`
	HandOver   bool   `json:"handOver"`
	MatchID    string `json:"matchId,omitempty"`
}

// hooks lets the manager keep its participant and match indexes current.
type hooks struct {
	matchStarted func(tableID, matchID string, participantIDs []string)
	matchEnded   func(tableID, matchID string, participantIDs []string)
}

// Table is a single table actor.
type Table struct {
	cfg      Config
	store    Store
	accounts Accounts
	emitter  Emitter
	clock    quartz.Clock
	logger   *log.Logger
	rng      *rand.Rand
	newDeck  func() *deck.Deck
	hooks    hooks

	mailbox  chan func()
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc

	// owned by the actor goroutine
	seats        []*store.Seat
	nextPosition int
	button       string
	// buttonPosition survives the button seat leaving
	buttonPosition int
	match        *game.Match
	pendingStart *quartz.Timer
	startGen     int
	turnTimer    *quartz.Timer
	turnGen      int
}

func newTable(cfg Config, d Deps, rng *rand.Rand, h hooks) *Table {
	ctx, cancel := context.WithCancel(context.Background())
	return &Table{
		cfg:      cfg,
		store:    d.Store,
		accounts: d.Accounts,
		emitter:  d.Emitter,
		clock:    d.Clock,
		logger:   d.Logger.WithPrefix("table").With("table", cfg.ID),
		rng:      rng,
		newDeck:  d.Deck,
		hooks:    h,
		mailbox:  make(chan func()),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// start loads persisted seats and launches the actor goroutine.
func (t *Table) start(ctx context.Context) error {
	seats, err := t.store.SeatsByTable(ctx, t.cfg.ID)
	if err != nil {
		return &InternalError{Op: "load seats", Err: err}
	}
	for i := range seats {
		s := seats[i]
		s.IsTurn = false
		t.seats = append(t.seats, &s)
		t.nextPosition = max(t.nextPosition, s.Position+1)
	}
	if err := t.voidOpenMatches(ctx); err != nil {
		return err
	}
	go t.run()
	t.logger.Info("Table started", "seats", len(t.seats))
	return nil
}

// voidOpenMatches settles hands a previous run stopped in the middle of.
// Stacks are committed on every action, so each participant's bets for the
// hand are returned to their seat and the match is marked voided.
func (t *Table) voidOpenMatches(ctx context.Context) error {
	open, err := t.store.OpenMatches(ctx, t.cfg.ID)
	if err != nil {
		return &InternalError{Op: "load open matches", Err: err}
	}
	for _, mt := range open {
		parts, err := t.store.Participants(ctx, mt.ID)
		if err != nil {
			return &InternalError{Op: "load participants", Err: err}
		}

		cs := store.Changeset{TableID: t.cfg.ID, SidePots: []store.SidePot{}}
		var orphaned []store.Participant
		refunded := 0
		for _, p := range parts {
			if p.TotalBet == 0 {
				continue
			}
			refunded += p.TotalBet
			if t.seat(p.SeatID) == nil {
				orphaned = append(orphaned, p)
				continue
			}
			cs.StackDeltas = append(cs.StackDeltas, store.StackDelta{SeatID: p.SeatID, Delta: p.TotalBet})
		}
		was := mt.Street
		mt.Street = game.Voided
		mt.State.Street = game.Voided
		mt.State.CurrentActor = ""
		mt.State.Pot, mt.State.MainPot, mt.State.SidePots = 0, 0, nil
		mt.State.Over = true
		cs.Match = &mt

		if err := t.store.Commit(ctx, cs); err != nil {
			return &InternalError{Op: "void match", Err: err}
		}
		for _, d := range cs.StackDeltas {
			t.seat(d.SeatID).Stack += d.Delta
		}
		for _, p := range orphaned {
			if err := t.accounts.Deposit(ctx, p.UserID, p.TotalBet); err != nil {
				t.logger.Error("Failed to return bets", "user", p.UserID, "amount", p.TotalBet, "error", err)
			}
		}
		t.logger.Warn("Voided unfinished match", "match", mt.ID, "street", was, "refunded", refunded)
	}
	return nil
}

func (t *Table) run() {
	defer close(t.done)
	for {
		select {
		case fn := <-t.mailbox:
			fn()
		case <-t.stopCh:
			t.cancelPendingStart()
			t.stopTurnTimer()
			return
		}
	}
}

// Close stops the actor and waits for it to exit.
func (t *Table) Close() error {
	t.stopOnce.Do(func() {
		close(t.stopCh)
		t.cancel()
	})
	<-t.done
	t.logger.Info("Table stopped")
	return nil
}

// do runs fn on the actor goroutine and waits for its result.
func (t *Table) do(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	select {
	case t.mailbox <- func() { errCh <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopCh:
		return ErrTableClosed
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn from a timer goroutine.
func (t *Table) post(fn func()) {
	select {
	case t.mailbox <- fn:
	case <-t.stopCh:
	}
}

// ID returns the table id
func (t *Table) ID() string {
	return t.cfg.ID
}

// Config returns the table's configuration
func (t *Table) Config() Config {
	return t.cfg
}

// Info returns a listing summary.
func (t *Table) Info(ctx context.Context) (Info, error) {
	var info Info
	err := t.do(ctx, func() error {
		info = t.info()
		return nil
	})
	return info, err
}

func (t *Table) info() Info {
	sb, bb := t.cfg.Blinds()
	info := Info{
		ID:         t.cfg.ID,
		Name:       t.cfg.Name,
		Players:    len(t.seats),
		MaxPlayers: t.cfg.MaxPlayers,
		MinBuyIn:   t.cfg.MinBuyIn,
		MaxBuyIn:   t.cfg.MaxBuyIn,
		SmallBlind: sb,
		BigBlind:   bb,
		Ante:       t.cfg.Ante,
		HandOver:   t.handOver(),
	}
	if t.match != nil {
		info.MatchID = t.match.ID
	}
	return info
}

// Seats returns a copy of the seats in seat order.
func (t *Table) Seats(ctx context.Context) ([]store.Seat, error) {
	var out []store.Seat
	err := t.do(ctx, func() error {
		out = t.seatList()
		return nil
	})
	return out, err
}

func (t *Table) seatList() []store.Seat {
	out := make([]store.Seat, len(t.seats))
	for i, s := range t.seats {
		out[i] = *s
	}
	return out
}

func (t *Table) seatIDs() []string {
	ids := make([]string, len(t.seats))
	for i, s := range t.seats {
		ids[i] = s.ID
	}
	return ids
}

func (t *Table) seat(id string) *store.Seat {
	for _, s := range t.seats {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// buttonAnchor returns the seat the button rotates on from. When the button
// seat has left, that is the last seat placed before it, so the button still
// moves to the next seat after where it was.
func (t *Table) buttonAnchor() string {
	if t.button == "" || t.seat(t.button) != nil || len(t.seats) == 0 {
		return t.button
	}
	anchor := t.seats[len(t.seats)-1].ID
	for _, s := range t.seats {
		if s.Position < t.buttonPosition {
			anchor = s.ID
		}
	}
	return anchor
}

func (t *Table) seatForUser(userID string) *store.Seat {
	for _, s := range t.seats {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

func (t *Table) handOver() bool {
	return t.match == nil || t.match.IsOver()
}

// inMatch reports whether the seat was dealt into the running match.
func (t *Table) inMatch(seatID string) bool {
	if t.handOver() {
		return false
	}
	for _, p := range t.match.Participants {
		if p.SeatID == seatID {
			return true
		}
	}
	return false
}

func (t *Table) readySeats() int {
	n := 0
	for _, s := range t.seats {
		if s.Stack > 0 && !s.LeaveNextMatch {
			n++
		}
	}
	return n
}

// JoinRequest buys a user into a seat.
type JoinRequest struct {
	UserID string
	Name   string
	BuyIn  int
}

// Join seats a user, withdrawing the buy-in from their account.
func (t *Table) Join(ctx context.Context, req JoinRequest) (store.Seat, error) {
	var seat store.Seat
	err := t.do(ctx, func() error {
		if req.UserID == "" {
			return &game.ValidationError{Field: "user", Reason: "required"}
		}
		if req.BuyIn < t.cfg.MinBuyIn || req.BuyIn > t.cfg.MaxBuyIn {
			return &game.ValidationError{Field: "buy-in", Reason: fmt.Sprintf("must be between %d and %d", t.cfg.MinBuyIn, t.cfg.MaxBuyIn)}
		}
		if t.seatForUser(req.UserID) != nil {
			return ErrAlreadySeated
		}
		if len(t.seats) >= t.cfg.MaxPlayers {
			return ErrTableFull
		}

		if err := t.accounts.Withdraw(ctx, req.UserID, req.BuyIn); err != nil {
			return fmt.Errorf("buy-in: %w", err)
		}
		s := &store.Seat{
			ID:       gameid.New(gameid.Seat),
			TableID:  t.cfg.ID,
			UserID:   req.UserID,
			Name:     req.Name,
			Position: t.nextPosition,
			Stack:    req.BuyIn,
		}
		if err := t.store.SaveSeat(ctx, *s); err != nil {
			if derr := t.accounts.Deposit(ctx, req.UserID, req.BuyIn); derr != nil {
				t.logger.Error("Failed to refund buy-in", "user", req.UserID, "amount", req.BuyIn, "error", derr)
			}
			return &InternalError{Op: "save seat", Err: err}
		}
		t.nextPosition++
		t.seats = append(t.seats, s)
		seat = *s

		t.logger.Info("Player joined", "seat", s.ID, "user", s.UserID, "buy_in", req.BuyIn)
		t.emitPlayers(ctx)
		t.narrate(ctx, fmt.Sprintf("%s joined the table", s.Name))
		t.maybeScheduleStart(ctx)
		return nil
	})
	return seat, err
}

// Leave removes a seat, or marks it to leave once the running match ends.
func (t *Table) Leave(ctx context.Context, seatID string) error {
	return t.do(ctx, func() error {
		s := t.seat(seatID)
		if s == nil {
			return ErrUnknownSeat
		}
		return t.leave(ctx, s)
	})
}

// Disconnect treats a dropped connection like a leave for every seat the
// user holds at this table.
func (t *Table) Disconnect(ctx context.Context, userID string) error {
	return t.do(ctx, func() error {
		s := t.seatForUser(userID)
		if s == nil {
			return nil
		}
		t.logger.Info("Player disconnected", "seat", s.ID, "user", userID)
		return t.leave(ctx, s)
	})
}

func (t *Table) leave(ctx context.Context, s *store.Seat) error {
	if t.inMatch(s.ID) {
		if s.LeaveNextMatch {
			return nil
		}
		s.LeaveNextMatch = true
		if err := t.store.SaveSeat(ctx, *s); err != nil {
			s.LeaveNextMatch = false
			return &InternalError{Op: "save seat", Err: err}
		}
		t.narrate(ctx, fmt.Sprintf("%s will leave after this hand", s.Name))
		t.emitPlayers(ctx)
		return nil
	}
	if err := t.removeSeat(ctx, s); err != nil {
		return err
	}
	t.emitPlayers(ctx)
	t.maybeScheduleStart(ctx)
	return nil
}

// removeSeat cashes the stack out to the owner's account and deletes the seat.
func (t *Table) removeSeat(ctx context.Context, s *store.Seat) error {
	if err := t.store.DeleteSeat(ctx, s.ID); err != nil {
		return &InternalError{Op: "delete seat", Err: err}
	}
	if s.Stack > 0 {
		if err := t.accounts.Deposit(ctx, s.UserID, s.Stack); err != nil {
			// the seat is gone; log loudly so the balance can be repaired
			t.logger.Error("Failed to return stack", "user", s.UserID, "amount", s.Stack, "error", err)
		}
	}
	t.seats = slices.DeleteFunc(t.seats, func(o *store.Seat) bool { return o.ID == s.ID })
	t.logger.Info("Player left", "seat", s.ID, "user", s.UserID, "cashed_out", s.Stack)
	t.narrate(ctx, fmt.Sprintf("%s left the table", s.Name))
	return nil
}

// Rebuy adds chips to a seat between hands, up to the buy-in ceiling.
func (t *Table) Rebuy(ctx context.Context, seatID string, amount int) (store.Seat, error) {
	var seat store.Seat
	err := t.do(ctx, func() error {
		s := t.seat(seatID)
		if s == nil {
			return ErrUnknownSeat
		}
		if t.inMatch(seatID) {
			return ErrMatchInProgress
		}
		if amount <= 0 || s.Stack+amount > t.cfg.MaxBuyIn {
			return &game.ValidationError{Field: "rebuy", Reason: fmt.Sprintf("stack may not exceed %d", t.cfg.MaxBuyIn)}
		}
		if err := t.accounts.Withdraw(ctx, s.UserID, amount); err != nil {
			return fmt.Errorf("rebuy: %w", err)
		}
		cs := store.Changeset{StackDeltas: []store.StackDelta{{SeatID: s.ID, Delta: amount}}}
		if err := t.store.Commit(ctx, cs); err != nil {
			if derr := t.accounts.Deposit(ctx, s.UserID, amount); derr != nil {
				t.logger.Error("Failed to refund rebuy", "user", s.UserID, "amount", amount, "error", derr)
			}
			return &InternalError{Op: "rebuy", Err: err}
		}
		s.Stack += amount
		seat = *s
		t.logger.Info("Player rebought", "seat", s.ID, "amount", amount, "stack", s.Stack)
		t.emitPlayers(ctx)
		t.narrate(ctx, fmt.Sprintf("%s added %d chips", s.Name, amount))
		t.maybeScheduleStart(ctx)
		return nil
	})
	return seat, err
}

// Say posts a chat line to the table.
func (t *Table) Say(ctx context.Context, seatID, text string) error {
	return t.do(ctx, func() error {
		if t.cfg.ChatBanned {
			return ErrChatBanned
		}
		s := t.seat(seatID)
		if s == nil {
			return ErrUnknownSeat
		}
		t.emit(ctx, t.seatIDs(), Event{Type: EventTableMessage, Data: TableMessageData{Message: text, From: s.Name}})
		return nil
	})
}

// StartMatch starts a match immediately, cancelling any scheduled start.
func (t *Table) StartMatch(ctx context.Context) (game.MatchState, error) {
	var st game.MatchState
	err := t.do(ctx, func() error {
		t.cancelPendingStart()
		if err := t.startMatch(ctx); err != nil {
			return err
		}
		st = t.match.State()
		return nil
	})
	return st, err
}

// ApplyAction applies a participant's action to the running match.
func (t *Table) ApplyAction(ctx context.Context, participantID string, a game.Action) (game.MatchState, error) {
	var st game.MatchState
	err := t.do(ctx, func() error {
		if t.match == nil {
			return ErrNoMatch
		}
		if err := t.apply(ctx, participantID, a); err != nil {
			return err
		}
		st = t.match.State()
		return nil
	})
	return st, err
}

// MatchState returns the snapshot of the running match or a persisted one.
func (t *Table) MatchState(ctx context.Context, matchID string) (game.MatchState, error) {
	var st game.MatchState
	err := t.do(ctx, func() error {
		if t.match != nil && t.match.ID == matchID {
			st = t.match.State()
			return nil
		}
		m, err := t.store.Match(ctx, matchID)
		if err != nil {
			return fmt.Errorf("match %s: %w", matchID, err)
		}
		st = m.State
		return nil
	})
	return st, err
}

func (t *Table) gameSeats() []game.Seat {
	out := make([]game.Seat, 0, len(t.seats))
	for _, s := range t.seats {
		if s.LeaveNextMatch {
			continue
		}
		out = append(out, game.Seat{
			ID:            s.ID,
			UserID:        s.UserID,
			Name:          s.Name,
			Stack:         s.Stack,
			ParticipantID: gameid.New(gameid.Participant),
		})
	}
	return out
}

func (t *Table) startMatch(ctx context.Context) error {
	if !t.handOver() {
		return ErrMatchInProgress
	}
	seats := t.gameSeats()
	if t.readySeats() < 2 {
		return game.ErrNotEnoughPlayers
	}

	button := game.NextButton(seats, t.buttonAnchor())
	sb, bb := t.cfg.Blinds()
	cfg := game.Config{
		ID:         gameid.New(gameid.Match),
		TableID:    t.cfg.ID,
		Seats:      seats,
		ButtonID:   button,
		SmallBlind: sb,
		BigBlind:   bb,
		Ante:       t.cfg.Ante,
	}
	var opts []game.MatchOption
	if t.newDeck != nil {
		opts = append(opts, game.WithDeck(t.newDeck()))
	}
	m, err := game.NewMatch(cfg, t.rng, opts...)
	if err != nil {
		return err
	}

	prev := make(map[string]int, len(m.Participants))
	for _, p := range m.Participants {
		prev[p.SeatID] = t.seat(p.SeatID).Stack
	}
	cs := t.changeset(nil, m)
	cs.PreviousStacks = prev
	if err := t.store.Commit(ctx, cs); err != nil {
		return &InternalError{Op: "commit match start", Err: err}
	}

	t.button = button
	t.buttonPosition = t.seat(button).Position
	t.match = m
	for id, stack := range prev {
		t.seat(id).PreviousStack = stack
	}
	t.syncSeats()

	ids := make([]string, len(m.Participants))
	for i, p := range m.Participants {
		ids[i] = p.ID
	}
	if t.hooks.matchStarted != nil {
		t.hooks.matchStarted(t.cfg.ID, m.ID, ids)
	}
	t.logger.Info("Match started", "match", m.ID, "players", len(m.Participants), "button", button, "blinds", fmt.Sprintf("%d/%d", sb, bb))

	st := m.State()
	for _, p := range m.Participants {
		t.emit(ctx, []string{p.SeatID}, Event{Type: EventMatchStarted, Data: MatchStartedData{Match: st.ForParticipant(p.ID, p.HoleCards)}})
	}
	// seated players sitting this one out see the table without cards
	var watching []string
	for _, s := range t.seats {
		if _, ok := prev[s.ID]; !ok {
			watching = append(watching, s.ID)
		}
	}
	if len(watching) > 0 {
		t.emit(ctx, watching, Event{Type: EventMatchStarted, Data: MatchStartedData{Match: st}})
	}
	t.emitPlayers(ctx)

	if m.IsOver() {
		t.finish(ctx)
		return nil
	}
	t.emitTurn(ctx)
	return nil
}

// apply runs one action through clone, commit, swap.
func (t *Table) apply(ctx context.Context, participantID string, a game.Action) error {
	next := t.match.Clone()
	tr, err := next.Apply(participantID, a)
	if err != nil {
		return err
	}
	if err := t.store.Commit(ctx, t.changeset(t.match, next)); err != nil {
		t.logger.Error("Rolled back action", "match", next.ID, "participant", participantID, "action", a, "error", err)
		return &InternalError{Op: "commit action", Err: err}
	}

	t.match = next
	t.syncSeats()
	t.logger.Debug("Action applied", "match", next.ID, "participant", participantID, "action", tr.Action, "street", next.Street)

	t.narrate(ctx, tr.Message)
	for _, s := range tr.Dealt {
		t.narrate(ctx, fmt.Sprintf("--- %s: %s ---", s, deck.FormatCards(next.Board()[:s.BoardSize()])))
	}
	t.emitPlayers(ctx)
	if tr.Over {
		t.finish(ctx)
		return nil
	}
	t.emitTurn(ctx)
	return nil
}

// changeset describes the move from before to after. before is nil when the
// match is new; it is then measured against the seat stacks.
func (t *Table) changeset(before, after *game.Match) store.Changeset {
	cs := store.Changeset{TableID: t.cfg.ID}

	for _, p := range after.Participants {
		was := t.seat(p.SeatID).Stack
		if before != nil {
			if bp, ok := before.Participant(p.ID); ok {
				was = bp.Stack
			}
		}
		if d := p.Stack - was; d != 0 {
			cs.StackDeltas = append(cs.StackDeltas, store.StackDelta{SeatID: p.SeatID, Delta: d})
		}
		hole := deck.FormatCodes(p.HoleCards[:])
		cs.Participants = append(cs.Participants, store.Participant{
			ID:         p.ID,
			MatchID:    after.ID,
			SeatID:     p.SeatID,
			UserID:     p.UserID,
			Bet:        p.Bet,
			TotalBet:   p.TotalBet,
			IsFolded:   p.IsFolded,
			IsChecked:  p.IsChecked,
			IsAllIn:    p.IsAllIn,
			LastAction: p.LastAction,
			HoleCards:  hole,
		})
	}
	if actor, ok := after.Participant(after.CurrentActor()); ok {
		cs.Turn = actor.SeatID
	}

	cs.Match = &store.Match{ID: after.ID, TableID: after.TableID, Street: after.Street, State: after.State()}
	cs.SidePots = []store.SidePot{}
	for i, p := range after.Pots() {
		cs.SidePots = append(cs.SidePots, store.SidePot{MatchID: after.ID, Index: i, Amount: p.Amount, Eligible: p.Eligible})
	}

	if res := after.Result(); res != nil {
		t.recordResult(&cs, before == nil, after, res)
	}
	return cs
}

// recordResult adds win and lose history plus per-user hand results. A match
// that ends as it starts is measured against the seat stacks; otherwise
// against the stacks snapshotted at its start.
func (t *Table) recordResult(cs *store.Changeset, starting bool, m *game.Match, res *game.Result) {
	for i, a := range res.Awards {
		if a.Returned {
			continue
		}
		p, _ := m.Participant(a.ParticipantID)
		msg := ""
		if i < len(res.Messages) {
			msg = res.Messages[i]
		}
		cs.Wins = append(cs.Wins, store.Record{MatchID: m.ID, TableID: m.TableID, UserID: p.UserID, Amount: a.Amount, Message: msg})
	}
	_, bb := t.cfg.Blinds()
	for _, p := range m.Participants {
		s := t.seat(p.SeatID)
		prev := s.PreviousStack
		if starting {
			prev = s.Stack
		}
		net := p.Stack - prev
		if net < 0 {
			cs.Losses = append(cs.Losses, store.Record{
				MatchID: m.ID, TableID: m.TableID, UserID: p.UserID, Amount: -net,
				Message: fmt.Sprintf("%s lost %d", p.Name, -net),
			})
		}
		cs.Hands = append(cs.Hands, statistics.HandResult{
			UserID:         p.UserID,
			Net:            net,
			BigBlind:       bb,
			WentToShowdown: res.Street == game.Showdown && !p.IsFolded,
			Pot:            m.Pot(),
		})
	}
}

// syncSeats mirrors participant stacks and the turn onto the seats.
func (t *Table) syncSeats() {
	actor := t.match.CurrentActor()
	for _, s := range t.seats {
		s.IsTurn = false
	}
	for _, p := range t.match.Participants {
		s := t.seat(p.SeatID)
		s.Stack = p.Stack
		s.IsTurn = p.ID == actor && actor != ""
	}
}

// finish runs once a committed transition ended the match.
func (t *Table) finish(ctx context.Context) {
	m := t.match
	res := m.Result()
	t.stopTurnTimer()

	for id, cards := range m.Highlights() {
		h := res.Hands[id]
		t.emit(ctx, t.seatIDs(), Event{Type: EventHighlightCards, Data: HighlightCardsData{ParticipantID: id, Hand: h.Description(), Cards: cards}})
	}
	for _, msg := range res.Messages {
		t.narrate(ctx, msg)
	}
	t.emitTurn(ctx)
	t.logger.Info("Match finished", "match", m.ID, "street", res.Street, "pot", m.Pot(), "winners", res.Winners())

	for _, p := range m.Participants {
		sum, err := t.store.Statistics(ctx, p.UserID)
		if err != nil {
			t.logger.Warn("Failed to load statistics", "user", p.UserID, "error", err)
			continue
		}
		t.emit(ctx, []string{p.SeatID}, Event{Type: EventStatisticsUpdated, Data: StatisticsUpdatedData{UserID: p.UserID, Summary: sum}})
	}

	ids := make([]string, len(m.Participants))
	for i, p := range m.Participants {
		ids[i] = p.ID
	}
	if t.hooks.matchEnded != nil {
		t.hooks.matchEnded(t.cfg.ID, m.ID, ids)
	}

	for _, s := range slices.Clone(t.seats) {
		if s.LeaveNextMatch {
			if err := t.removeSeat(ctx, s); err != nil {
				t.logger.Error("Failed to remove leaving seat", "seat", s.ID, "error", err)
			}
		}
	}
	t.emitPlayers(ctx)
	t.maybeScheduleStart(ctx)
}

// maybeScheduleStart queues the next match after the hand delay when the
// table is idle and has enough players.
func (t *Table) maybeScheduleStart(ctx context.Context) {
	if !t.handOver() {
		return
	}
	if t.readySeats() < 2 {
		t.cancelPendingStart()
		t.narrate(ctx, "Waiting for more players")
		return
	}
	t.scheduleStart(ctx)
}

// scheduleStart replaces any pending start so a table never double-starts.
func (t *Table) scheduleStart(ctx context.Context) {
	t.cancelPendingStart()
	gen := t.startGen
	delay := t.cfg.HandDelay
	t.narrate(ctx, fmt.Sprintf("--- New match starting in %s ---", delay))
	t.pendingStart = t.clock.AfterFunc(delay, func() {
		t.post(func() {
			if gen != t.startGen {
				return
			}
			t.pendingStart = nil
			ctx, cancel := context.WithTimeout(t.ctx, storeTimeout)
			defer cancel()
			if err := t.startMatch(ctx); err != nil {
				t.logger.Warn("Scheduled match did not start", "error", err)
			}
		})
	})
}

func (t *Table) cancelPendingStart() {
	t.startGen++
	if t.pendingStart != nil {
		t.pendingStart.Stop()
		t.pendingStart = nil
	}
}

// armTurnTimer starts the idle timer for the current actor.
func (t *Table) armTurnTimer() {
	t.stopTurnTimer()
	if t.cfg.TurnTimeout <= 0 || t.match == nil {
		return
	}
	actor := t.match.CurrentActor()
	if actor == "" {
		return
	}
	gen, matchID := t.turnGen, t.match.ID
	t.turnTimer = t.clock.AfterFunc(t.cfg.TurnTimeout, func() {
		t.post(func() {
			if gen != t.turnGen || t.match == nil || t.match.ID != matchID || t.match.CurrentActor() != actor {
				return
			}
			t.turnTimer = nil
			t.timeout(actor)
		})
	})
}

func (t *Table) stopTurnTimer() {
	t.turnGen++
	if t.turnTimer != nil {
		t.turnTimer.Stop()
		t.turnTimer = nil
	}
}

// timeout checks for the idle actor when that is free, and folds otherwise.
func (t *Table) timeout(participantID string) {
	ctx, cancel := context.WithTimeout(t.ctx, storeTimeout)
	defer cancel()

	a := game.Fold()
	if t.match.Legal(participantID).Can(game.ActionCheck) {
		a = game.Check()
	}
	t.logger.Info("Turn timed out", "match", t.match.ID, "participant", participantID, "action", a)
	if err := t.apply(ctx, participantID, a); err != nil {
		t.logger.Error("Failed to apply timeout action", "participant", participantID, "error", err)
		// try again after another timeout rather than stalling the table
		t.armTurnTimer()
	}
}

func (t *Table) emit(ctx context.Context, seatIDs []string, ev Event) {
	if len(seatIDs) == 0 {
		return
	}
	t.emitter.Emit(ctx, t.cfg.ID, seatIDs, ev)
}

func (t *Table) emitPlayers(ctx context.Context) {
	t.emit(ctx, t.seatIDs(), Event{Type: EventPlayersUpdated, Data: PlayersUpdatedData{
		TableID:  t.cfg.ID,
		Seats:    t.seatList(),
		HandOver: t.handOver(),
	}})
}

// emitTurn broadcasts the snapshot and re-arms the turn timer.
func (t *Table) emitTurn(ctx context.Context) {
	m := t.match
	actor := m.CurrentActor()
	t.emit(ctx, t.seatIDs(), Event{Type: EventChangeTurn, Data: ChangeTurnData{
		Match: m.State(),
		Turn:  actor,
		Legal: m.Legal(actor),
	}})
	t.armTurnTimer()
}

func (t *Table) narrate(ctx context.Context, msg string) {
	t.emit(ctx, t.seatIDs(), Event{Type: EventTableMessage, Data: TableMessageData{Message: msg}})
}
