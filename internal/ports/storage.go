package ports

import (
	"context"
	"time"

	"github.com/MrShimp/polymarket-robot/internal/domain"
)

// TradeStorage persists trading outcomes for external reporting.
// Both tables are append-only: one row per terminal position, one row per
// risk-breach event.
type TradeStorage interface {
	// SaveTerminalPosition archives a position that reached Closed or Failed.
	SaveTerminalPosition(ctx context.Context, p domain.Position) error

	// SaveRiskBreach records a crossed hard threshold.
	SaveRiskBreach(ctx context.Context, e domain.BreachEvent) error

	// GetPositions returns archived positions closed in the given range,
	// newest first.
	GetPositions(ctx context.Context, from, to time.Time) ([]domain.Position, error)

	// GetRiskBreaches returns all recorded breach events, newest first.
	GetRiskBreaches(ctx context.Context) ([]domain.BreachEvent, error)

	// GetSessionStats aggregates archived trades into summary numbers.
	GetSessionStats(ctx context.Context) (domain.SessionStats, error)

	// Close closes the underlying database cleanly.
	Close() error
}
