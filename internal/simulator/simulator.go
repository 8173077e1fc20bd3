// Package simulator plays headless hands between built-in policies. Every
// transition is checked for chip conservation, so long runs double as a
// soak test of the engine.
package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/randutil"
	"github.com/lox/cardroom/internal/statistics"
)

// maxActionsPerHand guards against a betting round that never closes.
const maxActionsPerHand = 500

// Config holds configuration for running simulations
type Config struct {
	Hands   int
	Players int
	Seed    int64
	// Policies are assigned to seats round robin. Empty means all random.
	Policies []string
	// MaxBuyIn derives the blinds; every seat starts with it and rebuys to
	// it when busted.
	MaxBuyIn int
	Ante     int
	Timeout  time.Duration
	Logger   *log.Logger
}

func (c *Config) defaults() {
	if c.Players == 0 {
		c.Players = 6
	}
	if c.MaxBuyIn == 0 {
		c.MaxBuyIn = 2000
	}
	if len(c.Policies) == 0 {
		c.Policies = []string{"random"}
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
}

// PlayerReport is the outcome for one seat.
type PlayerReport struct {
	Name    string
	Policy  string
	Stack   int
	Rebuys  int
	Summary statistics.Summary
}

// Report summarises a simulation run.
type Report struct {
	Hands      int
	Showdowns  int
	FoldedOut  int
	SplitPots  int
	Actions    int
	BiggestPot int
	Players    []PlayerReport
	Duration   time.Duration
}

type player struct {
	seat   game.Seat
	policy Policy
	rebuys int
	stats  statistics.Summary
}

// Simulator runs poker hand simulations
type Simulator struct {
	config  Config
	logger  *log.Logger
	players []*player
	button  string
}

// New creates a new simulator with the given configuration
func New(config Config) (*Simulator, error) {
	config.defaults()
	if config.Players < 2 || config.Players > 10 {
		return nil, fmt.Errorf("players must be between 2 and 10, got %d", config.Players)
	}
	if sb, _ := game.Blinds(config.MaxBuyIn); sb <= 0 {
		return nil, fmt.Errorf("max buy-in %d is too small to derive blinds", config.MaxBuyIn)
	}

	s := &Simulator{config: config, logger: config.Logger.WithPrefix("simulator")}
	for i := range config.Players {
		policy, err := NewPolicy(config.Policies[i%len(config.Policies)])
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%s-%d", policy.Name(), i+1)
		s.players = append(s.players, &player{
			seat: game.Seat{
				ID:     fmt.Sprintf("seat-%d", i+1),
				UserID: name,
				Name:   name,
				Stack:  config.MaxBuyIn,
			},
			policy: policy,
		})
	}
	return s, nil
}

// Run plays the configured number of hands and returns the report.
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	rep := &Report{}

	for hand := range s.config.Hands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		handSeed := s.config.Seed + int64(hand)
		if err := s.playHandWithTimeout(ctx, hand, handSeed, rep); err != nil {
			return nil, fmt.Errorf("hand %d (seed %d): %w", hand+1, handSeed, err)
		}
		rep.Hands++
	}

	for _, p := range s.players {
		if err := p.stats.Validate(); err != nil {
			return nil, fmt.Errorf("statistics for %s: %w", p.seat.Name, err)
		}
		rep.Players = append(rep.Players, PlayerReport{
			Name:    p.seat.Name,
			Policy:  p.policy.Name(),
			Stack:   p.seat.Stack,
			Rebuys:  p.rebuys,
			Summary: p.stats,
		})
	}
	rep.Duration = time.Since(start)
	s.logger.Info("Simulation complete", "hands", rep.Hands, "showdowns", rep.Showdowns, "duration", rep.Duration)
	return rep, nil
}

// playHandWithTimeout runs a single hand with timeout protection
func (s *Simulator) playHandWithTimeout(ctx context.Context, hand int, seed int64, rep *Report) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.playHand(ctx, hand, seed, rep)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("hand timed out after %v", s.config.Timeout)
	}
}

// playHand plays one hand to completion and folds its outcome into rep.
func (s *Simulator) playHand(ctx context.Context, hand int, seed int64, rep *Report) error {
	rng := randutil.New(seed)

	for _, p := range s.players {
		if p.seat.Stack == 0 {
			p.seat.Stack = s.config.MaxBuyIn
			p.rebuys++
		}
	}
	seats := make([]game.Seat, len(s.players))
	before := 0
	for i, p := range s.players {
		seats[i] = p.seat
		before += p.seat.Stack
	}

	s.button = game.NextButton(seats, s.button)
	sb, bb := game.Blinds(s.config.MaxBuyIn)
	m, err := game.NewMatch(game.Config{
		ID:         fmt.Sprintf("hand-%d", hand+1),
		TableID:    "simulation",
		Seats:      seats,
		ButtonID:   s.button,
		SmallBlind: sb,
		BigBlind:   bb,
		Ante:       s.config.Ante,
	}, rng)
	if err != nil {
		return err
	}
	if err := checkChips(m, before); err != nil {
		return fmt.Errorf("after forced bets: %w", err)
	}

	actions := 0
	for !m.IsOver() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if actions >= maxActionsPerHand {
			return fmt.Errorf("no result after %d actions", actions)
		}
		actor := m.CurrentActor()
		p, ok := s.player(actor)
		if !ok {
			return fmt.Errorf("no player for actor %q", actor)
		}
		legal := m.Legal(actor)
		a := p.policy.Decide(rng, m.State(), legal)
		if _, err := m.Apply(actor, a); err != nil {
			return fmt.Errorf("%s %s: %w", p.seat.Name, a, err)
		}
		actions++
		if err := checkChips(m, before); err != nil {
			return fmt.Errorf("after %s %s: %w", p.seat.Name, a, err)
		}
	}

	res := m.Result()
	if got, want := game.SumPots(res.Pots), m.Pot(); got != want {
		return fmt.Errorf("pots sum to %d, %d was bet", got, want)
	}
	won := res.Won()
	awarded := 0
	for _, amount := range won {
		awarded += amount
	}
	if awarded != m.Pot() {
		return fmt.Errorf("awarded %d of a %d pot", awarded, m.Pot())
	}
	for _, part := range m.Participants {
		p, _ := s.player(part.ID)
		if net := won[part.ID] - part.TotalBet; part.Stack-p.seat.Stack != net {
			return fmt.Errorf("%s finished with %d, expected %d", p.seat.Name, part.Stack, p.seat.Stack+net)
		}
	}

	switch res.Street {
	case game.Showdown:
		rep.Showdowns++
	case game.FoldedOut:
		rep.FoldedOut++
	}
	if len(res.Winners()) > 1 {
		rep.SplitPots++
	}
	rep.Actions += actions
	rep.BiggestPot = max(rep.BiggestPot, m.Pot())

	for _, part := range m.Participants {
		p, _ := s.player(part.ID)
		p.stats.Add(statistics.HandResult{
			UserID:         p.seat.UserID,
			Net:            part.Stack - p.seat.Stack,
			BigBlind:       bb,
			WentToShowdown: res.Street == game.Showdown && !part.IsFolded,
			Pot:            m.Pot(),
		})
		p.seat.Stack = part.Stack
	}

	s.logger.Debug("Hand complete", "hand", hand+1, "street", res.Street, "pot", m.Pot(), "winners", res.Winners())
	return nil
}

// player finds a player by participant id, which is its seat id here.
func (s *Simulator) player(id string) (*player, bool) {
	for _, p := range s.players {
		if p.seat.ID == id {
			return p, true
		}
	}
	return nil, false
}

// checkChips verifies no chips were created or destroyed.
func checkChips(m *game.Match, want int) error {
	got := 0
	for _, p := range m.Participants {
		if p.Stack < 0 || p.Bet < 0 {
			return fmt.Errorf("%s has stack %d bet %d", p.Name, p.Stack, p.Bet)
		}
		got += p.Stack
		if !m.IsOver() {
			got += p.TotalBet
		}
	}
	if got != want {
		return fmt.Errorf("chip count is %d, want %d", got, want)
	}
	return nil
}
