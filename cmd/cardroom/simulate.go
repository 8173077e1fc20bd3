package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/cardroom/internal/fileutil"
	"github.com/lox/cardroom/internal/randutil"
	"github.com/lox/cardroom/internal/simulator"
)

// SimulateCmd plays hands between built-in policies and reports the results
type SimulateCmd struct {
	Hands    int           `default:"10000" help:"Number of hands to simulate"`
	Players  int           `default:"6" help:"Players at the table (2-10)"`
	Seed     int64         `default:"0" help:"RNG seed (0 for random)"`
	Policies []string      `default:"random,call,maniac" help:"Policies assigned to seats round robin: random, call, fold, maniac"`
	MaxBuyIn int           `default:"2000" help:"Buy-in ceiling; blinds derive from it"`
	Ante     int           `default:"0" help:"Ante posted by every player"`
	Timeout  time.Duration `default:"5s" help:"Per-hand timeout"`
	JSON     string        `name:"json" type:"path" help:"Also write the report as JSON to this file"`
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

func (c *SimulateCmd) Run(cli *CLI) error {
	logger, err := setupLogger(cli.LogLevel)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	seed := c.Seed
	if seed == 0 {
		seed = randutil.Seed()
	}
	logger.Info("Starting simulation", "hands", c.Hands, "players", c.Players, "seed", seed, "policies", strings.Join(c.Policies, ","))

	sim, err := simulator.New(simulator.Config{
		Hands:    c.Hands,
		Players:  c.Players,
		Seed:     seed,
		Policies: c.Policies,
		MaxBuyIn: c.MaxBuyIn,
		Ante:     c.Ante,
		Timeout:  c.Timeout,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	rep, err := sim.Run(ctx)
	if err != nil {
		return err
	}

	printReport(os.Stdout, rep, seed)

	if c.JSON != "" {
		if err := fileutil.WriteJSONAtomic(c.JSON, rep, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		logger.Info("Wrote report", "path", c.JSON)
	}
	return nil
}

// printReport renders the simulation report for a terminal.
func printReport(w io.Writer, rep *simulator.Report, seed int64) {
	pct := func(n int) float64 {
		if rep.Hands == 0 {
			return 0
		}
		return float64(n) / float64(rep.Hands) * 100
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("=== %d hands in %s (seed %d) ===", rep.Hands, rep.Duration.Round(time.Millisecond), seed)))
	fmt.Fprintf(w, "Showdowns: %d (%.1f%%)  Folded out: %d (%.1f%%)  Split pots: %d\n",
		rep.Showdowns, pct(rep.Showdowns), rep.FoldedOut, pct(rep.FoldedOut), rep.SplitPots)
	fmt.Fprintf(w, "Actions: %d  Biggest pot: %d\n\n", rep.Actions, rep.BiggestPot)

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-12s %8s %8s %8s %10s %22s %7s", "Player", "Stack", "Won", "Lost", "bb/100", "95% CI (bb/hand)", "Rebuys")))
	for _, p := range rep.Players {
		s := p.Summary
		low, high := s.ConfidenceInterval95()
		rate := fmt.Sprintf("%10.2f", s.BBPer100())
		if s.BBPer100() >= 0 {
			rate = winStyle.Render(rate)
		} else {
			rate = lossStyle.Render(rate)
		}
		fmt.Fprintf(w, "%s %8d %8d %8d %s %s %7d\n",
			nameStyle.Render(fmt.Sprintf("%-12s", p.Name)),
			p.Stack, s.Wins, s.Losses, rate,
			dimStyle.Render(fmt.Sprintf("%22s", fmt.Sprintf("[%.3f, %.3f]", low, high))),
			p.Rebuys)
	}
}
