package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/cardroom/internal/server"
	"github.com/lox/cardroom/internal/store"
	"github.com/lox/cardroom/internal/table"
)

// ServeCmd runs the websocket server
type ServeCmd struct {
	Config string `default:"cardroom.hcl" type:"path" help:"HCL configuration file"`
	Addr   string `help:"Listen address; overrides the config file"`
	Store  string `enum:",sqlite,memory" default:"" help:"Store driver; overrides the config file"`
	DB     string `name:"db" type:"path" help:"SQLite database path; overrides the config file"`
	Seed   uint64 `help:"Deterministic shuffle seed (testing only)"`
}

// backend is what both store implementations provide.
type backend interface {
	table.Store
	table.Accounts
	server.Accounts
	Close() error
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if cli.LogLevel != "" {
		cfg.Server.LogLevel = cli.LogLevel
	}
	if c.Store != "" {
		cfg.Store.Driver = c.Store
	}
	if c.DB != "" {
		cfg.Store.Path = c.DB
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	addr := cfg.ServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	logger, err := setupLogger(cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	db, err := openStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	srv := server.New(db, logger, server.WithStartingBalance(cfg.StartingBalance))
	manager := table.NewManager(table.Deps{
		Store:    db,
		Accounts: db,
		Emitter:  srv,
		Logger:   logger,
		Seed:     c.Seed,
	})
	srv.SetManager(manager)

	tables, err := cfg.TableConfigs()
	if err != nil {
		return err
	}
	for _, tc := range tables {
		if _, err := manager.CreateTable(ctx, tc); err != nil {
			_ = manager.Close()
			return fmt.Errorf("creating table %s: %w", tc.Name, err)
		}
	}

	logger.Info("Starting cardroom",
		"address", addr,
		"tables", len(tables),
		"store", cfg.Store.Driver,
		"starting_balance", cfg.StartingBalance)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx, addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		return manager.Close()
	})
	return g.Wait()
}

func openStore(cfg *server.StoreSettings, logger *log.Logger) (backend, error) {
	switch cfg.Driver {
	case server.DriverMemory:
		logger.Warn("Using in-memory store; nothing survives a restart")
		return store.NewMemory(), nil
	default:
		s, err := store.OpenSQLite(cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", cfg.Path, err)
		}
		return s, nil
	}
}
