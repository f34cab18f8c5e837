package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrShimp/polymarket-robot/internal/domain"
)

// Daily counters, and a halt latched by them, clear when the UTC date
// changes between ticks and not before.
func TestRolloverResetsLedgerOnNewDay(t *testing.T) {
	e := &Engine{ledger: domain.NewRiskLedger(domain.RiskLimits{
		MaxOpenPositions:     3,
		DailyLossLimit:       1,
		MaxConsecutiveLosses: 5,
	})}

	morning := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	e.rolloverIfNewDay(morning)

	require.True(t, e.ledger.TryReserve())
	e.ledger.Release(-2.5) // breaches the $1 daily limit
	require.False(t, e.ledger.TradingEnabled())

	// Later the same day the halt stays latched.
	e.rolloverIfNewDay(morning.Add(4 * time.Hour))
	assert.False(t, e.ledger.TradingEnabled())

	// Past midnight UTC the ledger starts fresh.
	e.rolloverIfNewDay(morning.Add(16 * time.Hour))
	assert.True(t, e.ledger.TradingEnabled())
	assert.Zero(t, e.ledger.Snapshot().DailyRealizedPnL)
}
