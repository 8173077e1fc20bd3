package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/statistics"
)

// SQLite is a store backed by a SQLite database file.
type SQLite struct {
	db     *sql.DB
	logger *log.Logger
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS seats (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		position INTEGER NOT NULL,
		stack INTEGER NOT NULL CHECK (stack >= 0),
		previous_stack INTEGER NOT NULL DEFAULT 0,
		is_turn INTEGER NOT NULL DEFAULT 0,
		leave_next_match INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS seats_table ON seats (table_id, position)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL,
		street TEXT NOT NULL,
		state TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		id TEXT PRIMARY KEY,
		match_id TEXT NOT NULL,
		seat_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		bet INTEGER NOT NULL,
		total_bet INTEGER NOT NULL,
		is_folded INTEGER NOT NULL,
		is_checked INTEGER NOT NULL,
		is_all_in INTEGER NOT NULL,
		last_action TEXT NOT NULL,
		hole_cards TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS side_pots (
		match_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		eligible TEXT NOT NULL,
		PRIMARY KEY (match_id, idx)
	)`,
	`CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		match_id TEXT NOT NULL,
		table_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS history_user ON history (user_id)`,
	`CREATE TABLE IF NOT EXISTS hand_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		net INTEGER NOT NULL,
		big_blind INTEGER NOT NULL,
		showdown INTEGER NOT NULL,
		pot INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS hand_results_user ON hand_results (user_id)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL CHECK (balance >= 0)
	)`,
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string, logger *log.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" coherent
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("store")
	logger.Info("Opened database", "path", path)
	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) SeatsByTable(ctx context.Context, tableID string) ([]Seat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_id, user_id, name, position, stack, previous_stack, is_turn, leave_next_match
		FROM seats WHERE table_id = ? ORDER BY position`, tableID)
	if err != nil {
		return nil, fmt.Errorf("query seats: %w", err)
	}
	defer rows.Close()

	var out []Seat
	for rows.Next() {
		var st Seat
		if err := rows.Scan(&st.ID, &st.TableID, &st.UserID, &st.Name, &st.Position,
			&st.Stack, &st.PreviousStack, &st.IsTurn, &st.LeaveNextMatch); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLite) SaveSeat(ctx context.Context, st Seat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seats (id, table_id, user_id, name, position, stack, previous_stack, is_turn, leave_next_match)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			table_id = excluded.table_id, user_id = excluded.user_id, name = excluded.name,
			position = excluded.position, stack = excluded.stack, previous_stack = excluded.previous_stack,
			is_turn = excluded.is_turn, leave_next_match = excluded.leave_next_match`,
		st.ID, st.TableID, st.UserID, st.Name, st.Position, st.Stack, st.PreviousStack, st.IsTurn, st.LeaveNextMatch)
	if err != nil {
		return fmt.Errorf("save seat %s: %w", st.ID, err)
	}
	return nil
}

func (s *SQLite) DeleteSeat(ctx context.Context, seatID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM seats WHERE id = ?`, seatID)
	if err != nil {
		return fmt.Errorf("delete seat %s: %w", seatID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("seat %s: %w", seatID, ErrNotFound)
	}
	return nil
}

// Commit writes the changeset in one transaction.
func (s *SQLite) Commit(ctx context.Context, cs Changeset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := commitTx(ctx, tx, cs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func commitTx(ctx context.Context, tx *sql.Tx, cs Changeset) error {
	for _, d := range cs.StackDeltas {
		var stack int
		err := tx.QueryRowContext(ctx, `UPDATE seats SET stack = stack + ? WHERE id = ? RETURNING stack`, d.Delta, d.SeatID).Scan(&stack)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("seat %s: %w", d.SeatID, ErrNotFound)
		}
		if err != nil {
			if strings.Contains(err.Error(), "CHECK constraint failed") {
				return fmt.Errorf("seat %s: %w", d.SeatID, ErrInsufficientFunds)
			}
			return fmt.Errorf("update stack %s: %w", d.SeatID, err)
		}
	}
	for id, prev := range cs.PreviousStacks {
		res, err := tx.ExecContext(ctx, `UPDATE seats SET previous_stack = ? WHERE id = ?`, prev, id)
		if err != nil {
			return fmt.Errorf("update previous stack %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("seat %s: %w", id, ErrNotFound)
		}
	}
	if cs.TableID != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE seats SET is_turn = (id = ?) WHERE table_id = ?`, cs.Turn, cs.TableID); err != nil {
			return fmt.Errorf("update turn: %w", err)
		}
	}

	if m := cs.Match; m != nil {
		state, err := json.Marshal(m.State)
		if err != nil {
			return fmt.Errorf("encode match state: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO matches (id, table_id, street, state) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET street = excluded.street, state = excluded.state, updated_at = CURRENT_TIMESTAMP`,
			m.ID, m.TableID, m.Street.String(), string(state))
		if err != nil {
			return fmt.Errorf("upsert match %s: %w", m.ID, err)
		}
		if cs.SidePots != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM side_pots WHERE match_id = ?`, m.ID); err != nil {
				return fmt.Errorf("clear side pots: %w", err)
			}
			for _, p := range cs.SidePots {
				_, err := tx.ExecContext(ctx, `INSERT INTO side_pots (match_id, idx, amount, eligible) VALUES (?, ?, ?, ?)`,
					m.ID, p.Index, p.Amount, strings.Join(p.Eligible, ","))
				if err != nil {
					return fmt.Errorf("insert side pot: %w", err)
				}
			}
		}
	}

	for _, p := range cs.Participants {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO participants (id, match_id, seat_id, user_id, bet, total_bet, is_folded, is_checked, is_all_in, last_action, hole_cards)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				bet = excluded.bet, total_bet = excluded.total_bet, is_folded = excluded.is_folded,
				is_checked = excluded.is_checked, is_all_in = excluded.is_all_in,
				last_action = excluded.last_action, hole_cards = excluded.hole_cards`,
			p.ID, p.MatchID, p.SeatID, p.UserID, p.Bet, p.TotalBet, p.IsFolded, p.IsChecked, p.IsAllIn, string(p.LastAction), p.HoleCards)
		if err != nil {
			return fmt.Errorf("upsert participant %s: %w", p.ID, err)
		}
	}

	for kind, records := range map[string][]Record{"win": cs.Wins, "lose": cs.Losses} {
		for _, r := range records {
			_, err := tx.ExecContext(ctx, `INSERT INTO history (kind, match_id, table_id, user_id, amount, message) VALUES (?, ?, ?, ?, ?, ?)`,
				kind, r.MatchID, r.TableID, r.UserID, r.Amount, r.Message)
			if err != nil {
				return fmt.Errorf("insert %s record: %w", kind, err)
			}
		}
	}

	for _, h := range cs.Hands {
		_, err := tx.ExecContext(ctx, `INSERT INTO hand_results (user_id, net, big_blind, showdown, pot) VALUES (?, ?, ?, ?, ?)`,
			h.UserID, h.Net, h.BigBlind, h.WentToShowdown, h.Pot)
		if err != nil {
			return fmt.Errorf("insert hand result: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Match(ctx context.Context, matchID string) (Match, error) {
	var (
		m      Match
		street string
		state  string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, table_id, street, state FROM matches WHERE id = ?`, matchID).
		Scan(&m.ID, &m.TableID, &street, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return Match{}, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return Match{}, fmt.Errorf("query match %s: %w", matchID, err)
	}
	if m.Street, err = game.ParseStreet(street); err != nil {
		return Match{}, err
	}
	if err := json.Unmarshal([]byte(state), &m.State); err != nil {
		return Match{}, fmt.Errorf("decode match state: %w", err)
	}
	return m, nil
}

// OpenMatches returns the matches of a table that never reached a terminal
// street, oldest id first.
func (s *SQLite) OpenMatches(ctx context.Context, tableID string) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM matches WHERE table_id = ? AND street NOT IN (?, ?, ?) ORDER BY id`,
		tableID, game.Showdown.String(), game.FoldedOut.String(), game.Voided.String())
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan match: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}

	out := make([]Match, 0, len(ids))
	for _, id := range ids {
		m, err := s.Match(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Participants returns the participants of a match.
func (s *SQLite) Participants(ctx context.Context, matchID string) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, seat_id, user_id, bet, total_bet, is_folded, is_checked, is_all_in, last_action, hole_cards
		FROM participants WHERE match_id = ? ORDER BY id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var (
			p    Participant
			last string
		)
		if err := rows.Scan(&p.ID, &p.MatchID, &p.SeatID, &p.UserID, &p.Bet, &p.TotalBet,
			&p.IsFolded, &p.IsChecked, &p.IsAllIn, &last, &p.HoleCards); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.LastAction = game.LastAction(last)
		out = append(out, p)
	}
	return out, rows.Err()
}

// SidePots returns the pots recorded for a match.
func (s *SQLite) SidePots(ctx context.Context, matchID string) ([]SidePot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx, amount, eligible FROM side_pots WHERE match_id = ? ORDER BY idx`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query side pots: %w", err)
	}
	defer rows.Close()

	var out []SidePot
	for rows.Next() {
		p := SidePot{MatchID: matchID}
		var eligible string
		if err := rows.Scan(&p.Index, &p.Amount, &eligible); err != nil {
			return nil, fmt.Errorf("scan side pot: %w", err)
		}
		if eligible != "" {
			p.Eligible = strings.Split(eligible, ",")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// History returns a user's win and lose records, oldest first.
func (s *SQLite) History(ctx context.Context, userID string) (wins, losses []Record, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, match_id, table_id, user_id, amount, message FROM history WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind string
			r    Record
		)
		if err := rows.Scan(&kind, &r.MatchID, &r.TableID, &r.UserID, &r.Amount, &r.Message); err != nil {
			return nil, nil, fmt.Errorf("scan history: %w", err)
		}
		if kind == "win" {
			wins = append(wins, r)
		} else {
			losses = append(losses, r)
		}
	}
	return wins, losses, rows.Err()
}

func (s *SQLite) Statistics(ctx context.Context, userID string) (statistics.Summary, error) {
	sum := statistics.Summary{UserID: userID}
	rows, err := s.db.QueryContext(ctx, `SELECT net, big_blind, showdown, pot FROM hand_results WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return sum, fmt.Errorf("query hand results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		h := statistics.HandResult{UserID: userID}
		if err := rows.Scan(&h.Net, &h.BigBlind, &h.WentToShowdown, &h.Pot); err != nil {
			return sum, fmt.Errorf("scan hand result: %w", err)
		}
		sum.Add(h)
	}
	return sum, rows.Err()
}

// EnsureAccount creates an account with the given opening balance if the
// user has none, and returns the balance.
func (s *SQLite) EnsureAccount(ctx context.Context, userID string, opening int) (int, error) {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO accounts (user_id, balance) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`, userID, opening); err != nil {
		return 0, fmt.Errorf("ensure account %s: %w", userID, err)
	}
	return s.Balance(ctx, userID)
}

func (s *SQLite) Balance(ctx context.Context, userID string) (int, error) {
	var b int
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE user_id = ?`, userID).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("account %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return b, nil
}

func (s *SQLite) Deposit(ctx context.Context, userID string, amount int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET balance = balance + excluded.balance`, userID, amount)
	if err != nil {
		return fmt.Errorf("deposit %s: %w", userID, err)
	}
	return nil
}

func (s *SQLite) Withdraw(ctx context.Context, userID string, amount int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET balance = balance - ? WHERE user_id = ? AND balance >= ?`, amount, userID, amount)
	if err != nil {
		return fmt.Errorf("withdraw %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Balance(ctx, userID); err != nil {
			return err
		}
		return fmt.Errorf("account %s: %w", userID, ErrInsufficientFunds)
	}
	return nil
}
