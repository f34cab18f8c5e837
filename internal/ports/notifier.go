package ports

import (
	"context"

	"github.com/MrShimp/polymarket-robot/internal/domain"
)

// Notifier surfaces engine activity to the operator.
type Notifier interface {
	// NotifyTick presents the per-tick summary: open positions and ledger state.
	NotifyTick(ctx context.Context, open []domain.Position, risk domain.RiskSnapshot) error

	// NotifyTerminal announces one position reaching Closed or Failed.
	// Unreconciled failures must be visually distinct from normal closes.
	NotifyTerminal(ctx context.Context, p domain.Position) error
}
