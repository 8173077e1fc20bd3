package table

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/cardroom/internal/deck"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/randutil"
)

// Deps are the collaborators shared by every table of a manager.
type Deps struct {
	Store    Store
	Accounts Accounts
	Emitter  Emitter
	Clock    quartz.Clock
	Logger   *log.Logger
	// Seed makes shuffles reproducible. Zero seeds each table from crypto/rand.
	Seed uint64
	// Deck, when set, supplies the deck for every match. Tests use it to
	// stack the cards.
	Deck func() *deck.Deck
}

func (d *Deps) defaults() {
	if d.Emitter == nil {
		d.Emitter = nopEmitter{}
	}
	if d.Clock == nil {
		d.Clock = quartz.NewReal()
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
}

// Manager owns the tables of a cardroom and routes match and participant ids
// to the table running them.
type Manager struct {
	deps   Deps
	logger *log.Logger

	mu           sync.RWMutex
	tables       map[string]*Table
	order        []string
	participants map[string]string
	matches      map[string]string
	seeded       uint64
}

// NewManager creates an empty manager.
func NewManager(deps Deps) *Manager {
	deps.defaults()
	return &Manager{
		deps:         deps,
		logger:       deps.Logger.WithPrefix("manager"),
		tables:       make(map[string]*Table),
		participants: make(map[string]string),
		matches:      make(map[string]string),
	}
}

func (m *Manager) rng() *rand.Rand {
	if m.deps.Seed == 0 {
		return randutil.Secure()
	}
	m.seeded++
	return randutil.New(int64(m.deps.Seed + m.seeded))
}

// CreateTable validates cfg, restores its persisted seats and starts the
// table actor.
func (m *Manager) CreateTable(ctx context.Context, cfg Config) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &game.ValidationError{Field: "table", Reason: err.Error()}
	}

	m.mu.Lock()
	if _, exists := m.tables[cfg.ID]; exists {
		m.mu.Unlock()
		return nil, &game.ValidationError{Field: "table", Reason: fmt.Sprintf("%s already exists", cfg.ID)}
	}
	rng := m.rng()
	m.mu.Unlock()

	t := newTable(cfg, m.deps, rng, hooks{
		matchStarted: m.indexMatch,
		matchEnded:   m.unindexMatch,
	})
	if err := t.start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.tables[cfg.ID] = t
	m.order = append(m.order, cfg.ID)
	m.mu.Unlock()

	m.logger.Info("Created table", "id", cfg.ID, "name", cfg.Name, "max_players", cfg.MaxPlayers, "buy_in", fmt.Sprintf("%d-%d", cfg.MinBuyIn, cfg.MaxBuyIn))
	return t, nil
}

// Table returns a table by id.
func (m *Manager) Table(id string) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, ErrUnknownTable
	}
	return t, nil
}

// Tables returns every table in creation order.
func (m *Manager) Tables() []*Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Table, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tables[id])
	}
	return out
}

// List returns table summaries sorted by name.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	var out []Info
	for _, t := range m.Tables() {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// StartMatch starts a match at a table now.
func (m *Manager) StartMatch(ctx context.Context, tableID string) (game.MatchState, error) {
	t, err := m.Table(tableID)
	if err != nil {
		return game.MatchState{}, err
	}
	return t.StartMatch(ctx)
}

// ApplyAction routes an action to the table running the participant's match.
func (m *Manager) ApplyAction(ctx context.Context, participantID string, a game.Action) (game.MatchState, error) {
	m.mu.RLock()
	tableID, ok := m.participants[participantID]
	m.mu.RUnlock()
	if !ok {
		return game.MatchState{}, &game.ValidationError{Field: "participant", Reason: fmt.Sprintf("%q is not in a running match", participantID)}
	}
	t, err := m.Table(tableID)
	if err != nil {
		return game.MatchState{}, err
	}
	return t.ApplyAction(ctx, participantID, a)
}

// MatchState returns a match snapshot, live or persisted.
func (m *Manager) MatchState(ctx context.Context, matchID string) (game.MatchState, error) {
	m.mu.RLock()
	tableID, ok := m.matches[matchID]
	m.mu.RUnlock()
	if ok {
		t, err := m.Table(tableID)
		if err != nil {
			return game.MatchState{}, err
		}
		return t.MatchState(ctx, matchID)
	}
	m2, err := m.deps.Store.Match(ctx, matchID)
	if err != nil {
		return game.MatchState{}, fmt.Errorf("match %s: %w", matchID, err)
	}
	return m2.State, nil
}

// Disconnect releases every seat the user holds across all tables.
func (m *Manager) Disconnect(ctx context.Context, userID string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range m.Tables() {
		g.Go(func() error {
			return t.Disconnect(ctx, userID)
		})
	}
	return g.Wait()
}

// Close stops every table.
func (m *Manager) Close() error {
	var g errgroup.Group
	for _, t := range m.Tables() {
		g.Go(t.Close)
	}
	return g.Wait()
}

func (m *Manager) indexMatch(tableID, matchID string, participantIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[matchID] = tableID
	for _, id := range participantIDs {
		m.participants[id] = tableID
	}
}

// unindexMatch forgets the participants of a finished match. The match id
// stays routed to its table only until the next match there.
func (m *Manager) unindexMatch(tableID, matchID string, participantIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, tid := range m.matches {
		if tid == tableID && id != matchID {
			delete(m.matches, id)
		}
	}
	for _, id := range participantIDs {
		delete(m.participants, id)
	}
}
