package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/cardroom/internal/gameid"
	"github.com/lox/cardroom/internal/table"
)

// DefaultStartingBalance is credited to accounts on first login.
const DefaultStartingBalance = 10000

// Config represents the complete server configuration
type Config struct {
	Server          *ServerSettings `hcl:"server,block"`
	Store           *StoreSettings  `hcl:"store,block"`
	Tables          []TableConfig   `hcl:"table,block"`
	StartingBalance int             `hcl:"starting_balance,optional"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// StoreSettings selects the persistence backend.
type StoreSettings struct {
	Driver string `hcl:"driver,optional"`
	Path   string `hcl:"path,optional"`
}

// TableConfig defines a poker table configuration
type TableConfig struct {
	Name        string `hcl:"name,label"`
	MaxPlayers  int    `hcl:"max_players,optional"`
	MinBuyIn    int    `hcl:"min_buy_in,optional"`
	MaxBuyIn    int    `hcl:"max_buy_in,optional"`
	Ante        int    `hcl:"ante,optional"`
	ChatBanned  bool   `hcl:"chat_banned,optional"`
	HandDelay   string `hcl:"hand_delay,optional"`
	TurnTimeout string `hcl:"turn_timeout,optional"`
}

// Store drivers
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	c := &Config{
		Tables: []TableConfig{{Name: "main"}},
	}
	c.applyDefaults()
	return c
}

// LoadConfig loads server configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	src, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(src, filename)
}

// ParseConfig decodes HCL source, applies defaults and validates the result.
func ParseConfig(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Store == nil {
		c.Store = &StoreSettings{}
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.Path == "" && c.Store.Driver == DriverSQLite {
		c.Store.Path = "cardroom.db"
	}

	if c.StartingBalance == 0 {
		c.StartingBalance = DefaultStartingBalance
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		if t.MaxPlayers == 0 {
			t.MaxPlayers = 6
		}
		if t.MaxBuyIn == 0 {
			t.MaxBuyIn = 2000
		}
		if t.MinBuyIn == 0 {
			t.MinBuyIn = t.MaxBuyIn / 2
		}
		if t.HandDelay == "" {
			t.HandDelay = "5s"
		}
		if t.TurnTimeout == "" {
			t.TurnTimeout = "30s"
		}
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.Server.LogLevel)
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.StartingBalance < 0 {
		return fmt.Errorf("starting balance must not be negative")
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}

	seen := make(map[string]bool)
	for _, t := range c.Tables {
		if seen[t.Name] {
			return fmt.Errorf("table %s: defined twice", t.Name)
		}
		seen[t.Name] = true
		tc, err := t.TableConfig()
		if err != nil {
			return err
		}
		if err := tc.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ServerAddress returns the full server address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TableConfigs converts every table block into a table configuration.
func (c *Config) TableConfigs() ([]table.Config, error) {
	out := make([]table.Config, 0, len(c.Tables))
	for _, t := range c.Tables {
		tc, err := t.TableConfig()
		if err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, nil
}

// TableConfig converts the block. The table id derives from its name so
// persisted seats find their table again after a restart.
func (t TableConfig) TableConfig() (table.Config, error) {
	delay, err := time.ParseDuration(t.HandDelay)
	if err != nil {
		return table.Config{}, fmt.Errorf("table %s: hand_delay: %w", t.Name, err)
	}
	timeout, err := time.ParseDuration(t.TurnTimeout)
	if err != nil {
		return table.Config{}, fmt.Errorf("table %s: turn_timeout: %w", t.Name, err)
	}
	return table.Config{
		ID:          gameid.Table + "_" + t.Name,
		Name:        t.Name,
		MaxPlayers:  t.MaxPlayers,
		MinBuyIn:    t.MinBuyIn,
		MaxBuyIn:    t.MaxBuyIn,
		Ante:        t.Ante,
		ChatBanned:  t.ChatBanned,
		HandDelay:   delay,
		TurnTimeout: timeout,
	}, nil
}
