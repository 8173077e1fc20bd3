package table

import (
	"fmt"
	"time"

	"github.com/lox/cardroom/internal/game"
)

// MaxSeats is the most players any table can seat.
const MaxSeats = 10

// Config is the static configuration of one table.
type Config struct {
	ID         string
	Name       string
	MaxPlayers int
	MinBuyIn   int
	MaxBuyIn   int
	Ante       int
	ChatBanned bool
	// HandDelay separates the end of one match from the start of the next.
	HandDelay time.Duration
	// TurnTimeout auto-checks or folds an idle actor. Zero disables it.
	TurnTimeout time.Duration
}

// Blinds returns the small and big blind derived from the buy-in ceiling.
func (c Config) Blinds() (small, big int) {
	return game.Blinds(c.MaxBuyIn)
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("table id is required")
	}
	if c.MaxPlayers < 2 || c.MaxPlayers > MaxSeats {
		return fmt.Errorf("table %s: max players must be between 2 and %d", c.ID, MaxSeats)
	}
	if c.MinBuyIn <= 0 || c.MinBuyIn > c.MaxBuyIn {
		return fmt.Errorf("table %s: buy-in range %d-%d is invalid", c.ID, c.MinBuyIn, c.MaxBuyIn)
	}
	if sb, _ := c.Blinds(); sb <= 0 {
		return fmt.Errorf("table %s: max buy-in %d is too small to derive blinds", c.ID, c.MaxBuyIn)
	}
	if c.Ante < 0 {
		return fmt.Errorf("table %s: ante must not be negative", c.ID)
	}
	if c.HandDelay < 0 || c.TurnTimeout < 0 {
		return fmt.Errorf("table %s: durations must not be negative", c.ID)
	}
	return nil
}
