package storage

// sqlite.go — append-only trade archive.
//
// Two tables, both insert-only:
//   - `positions`: one row per terminal position (Closed or Failed).
//   - `risk_breaches`: one row per crossed hard threshold.
// Nothing is ever updated or deleted; reporting reads straight off these.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MrShimp/polymarket-robot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
    id            TEXT PRIMARY KEY,
    contract_id   TEXT     NOT NULL,
    side_token    TEXT     NOT NULL,
    question      TEXT,
    entry_price   REAL     NOT NULL,
    exit_price    REAL     NOT NULL DEFAULT 0,
    size_usdc     REAL     NOT NULL,
    shares        REAL     NOT NULL,
    opened_at     DATETIME NOT NULL,
    closed_at     DATETIME NOT NULL,
    realized_pnl  REAL     NOT NULL,
    final_state   TEXT     NOT NULL,
    exit_reason   TEXT,
    exit_attempts INTEGER  NOT NULL DEFAULT 0,
    unreconciled  INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS risk_breaches (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    reason      TEXT     NOT NULL,
    daily_pnl   REAL     NOT NULL,
    losses      INTEGER  NOT NULL,
    occurred_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_positions_closed ON positions(closed_at DESC);
CREATE INDEX IF NOT EXISTS idx_positions_state  ON positions(final_state);
`

// SQLiteStorage implements ports.TradeStorage using SQLite (pure Go, no CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at the given path and
// applies the schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveTerminalPosition archives a position that reached a terminal state.
// Inserting the same position ID twice is an invariant violation and fails.
func (s *SQLiteStorage) SaveTerminalPosition(ctx context.Context, p domain.Position) error {
	if !p.State.Terminal() {
		return fmt.Errorf("storage.SaveTerminalPosition: position %s in non-terminal state %s", p.ID, p.State)
	}

	unrec := 0
	if p.Unreconciled {
		unrec = 1
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO positions
			(id, contract_id, side_token, question, entry_price, exit_price,
			 size_usdc, shares, opened_at, closed_at, realized_pnl,
			 final_state, exit_reason, exit_attempts, unreconciled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ContractID, p.SideToken, p.Question, p.EntryPrice, p.ExitPrice,
		p.Size, p.Shares, p.OpenedAt.UTC(), p.ClosedAt.UTC(), p.RealizedPnL,
		string(p.State), string(p.ExitReason), p.ExitAttempts, unrec,
	); err != nil {
		return fmt.Errorf("storage.SaveTerminalPosition: insert %s: %w", p.ID, err)
	}
	return nil
}

// SaveRiskBreach records one crossed hard threshold.
func (s *SQLiteStorage) SaveRiskBreach(ctx context.Context, e domain.BreachEvent) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_breaches (reason, daily_pnl, losses, occurred_at)
		VALUES (?, ?, ?, ?)`,
		e.Reason, e.PnL, e.Losses, e.OccurredAt.UTC(),
	); err != nil {
		return fmt.Errorf("storage.SaveRiskBreach: insert: %w", err)
	}
	return nil
}

// GetPositions returns archived positions closed in [from, to], newest first.
func (s *SQLiteStorage) GetPositions(ctx context.Context, from, to time.Time) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, side_token, question, entry_price, exit_price,
		       size_usdc, shares, opened_at, closed_at, realized_pnl,
		       final_state, exit_reason, exit_attempts, unreconciled
		FROM positions
		WHERE closed_at BETWEEN ? AND ?
		ORDER BY closed_at DESC`,
		from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetPositions: query: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.GetPositions: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// GetRiskBreaches returns every recorded breach event, newest first.
func (s *SQLiteStorage) GetRiskBreaches(ctx context.Context) ([]domain.BreachEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reason, daily_pnl, losses, occurred_at
		FROM risk_breaches
		ORDER BY occurred_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRiskBreaches: query: %w", err)
	}
	defer rows.Close()

	var events []domain.BreachEvent
	for rows.Next() {
		var e domain.BreachEvent
		var occurred string
		if err := rows.Scan(&e.Reason, &e.PnL, &e.Losses, &occurred); err != nil {
			return nil, fmt.Errorf("storage.GetRiskBreaches: scan: %w", err)
		}
		e.OccurredAt = parseStoredTime(occurred)
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetSessionStats aggregates the archive into summary numbers.
func (s *SQLiteStorage) GetSessionStats(ctx context.Context) (domain.SessionStats, error) {
	var stats domain.SessionStats
	var first, last sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN final_state = 'CLOSED' AND realized_pnl > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN final_state = 'CLOSED' AND realized_pnl < 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN final_state = 'FAILED' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(unreconciled), 0),
		       COALESCE(SUM(realized_pnl), 0),
		       MIN(closed_at),
		       MAX(closed_at)
		FROM positions`,
	).Scan(&stats.TotalTrades, &stats.Wins, &stats.Losses, &stats.Failed,
		&stats.Unreconciled, &stats.NetPnL, &first, &last)
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("storage.GetSessionStats: %w", err)
	}

	if first.Valid {
		stats.FirstClosed = parseStoredTime(first.String)
	}
	if last.Valid {
		stats.LastClosed = parseStoredTime(last.String)
	}
	return stats, nil
}

// Close closes the database cleanly.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// positionScanner matches both *sql.Row and *sql.Rows.
type positionScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row positionScanner) (domain.Position, error) {
	var p domain.Position
	var opened, closed, state, reason string
	var unrec int

	if err := row.Scan(&p.ID, &p.ContractID, &p.SideToken, &p.Question,
		&p.EntryPrice, &p.ExitPrice, &p.Size, &p.Shares,
		&opened, &closed, &p.RealizedPnL, &state, &reason, &p.ExitAttempts, &unrec,
	); err != nil {
		return domain.Position{}, fmt.Errorf("scan row: %w", err)
	}

	p.OpenedAt = parseStoredTime(opened)
	p.ClosedAt = parseStoredTime(closed)
	p.State = domain.PositionState(state)
	p.ExitReason = domain.ExitReason(reason)
	p.Unreconciled = unrec == 1
	return p, nil
}

// parseStoredTime tolerates the formats the sqlite driver emits.
func parseStoredTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
