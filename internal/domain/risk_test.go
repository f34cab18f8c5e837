package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger() *RiskLedger {
	return NewRiskLedger(RiskLimits{
		MaxOpenPositions:     3,
		DailyLossLimit:       500,
		MaxConsecutiveLosses: 3,
	})
}

func TestRiskLedger_ReserveUpToCap(t *testing.T) {
	l := newTestLedger()

	assert.True(t, l.TryReserve())
	assert.True(t, l.TryReserve())
	assert.True(t, l.TryReserve())
	assert.False(t, l.TryReserve(), "fourth reserve must be refused at cap 3")

	l.Release(1.0)
	assert.True(t, l.TryReserve(), "capacity returns after release")
}

func TestRiskLedger_DailyLossLimitHalts(t *testing.T) {
	l := newTestLedger()

	require.True(t, l.TryReserve())
	l.Release(-500)

	// Scenario: dailyRealizedPnL = -500, limit = 500 → no new positions.
	assert.False(t, l.CanOpen())
	assert.False(t, l.TryReserve())
	assert.False(t, l.TradingEnabled())

	snap := l.Snapshot()
	assert.InDelta(t, -500.0, snap.DailyRealizedPnL, 0.001)
	assert.Contains(t, snap.HaltReason, "daily loss limit")
}

func TestRiskLedger_ConsecutiveLossesHalt(t *testing.T) {
	l := newTestLedger()

	for i := 0; i < 3; i++ {
		require.True(t, l.TryReserve())
		l.Release(-10)
	}

	assert.False(t, l.TradingEnabled())
	assert.Equal(t, 3, l.Snapshot().ConsecutiveLosses)
}

func TestRiskLedger_WinResetsLossStreak(t *testing.T) {
	l := newTestLedger()

	require.True(t, l.TryReserve())
	l.Release(-10)
	require.True(t, l.TryReserve())
	l.Release(-10)
	require.True(t, l.TryReserve())
	l.Release(5)

	assert.True(t, l.TradingEnabled())
	assert.Equal(t, 0, l.Snapshot().ConsecutiveLosses)
}

func TestRiskLedger_ZeroOutcomeIsNeutral(t *testing.T) {
	l := newTestLedger()

	require.True(t, l.TryReserve())
	l.Release(-10)
	require.True(t, l.TryReserve())
	l.Release(0) // entry never filled

	snap := l.Snapshot()
	assert.Equal(t, 1, snap.ConsecutiveLosses, "zero outcome must not touch the streak")
	assert.True(t, l.TradingEnabled())
}

func TestRiskLedger_HaltNeverAutoLifts(t *testing.T) {
	l := newTestLedger()

	require.True(t, l.TryReserve())
	l.Release(-500)
	require.False(t, l.TradingEnabled())

	// Winning afterwards must not re-enable trading.
	// (The slot for the win was reserved before the halt.)
	snap := l.Snapshot()
	assert.False(t, snap.TradingEnabled)

	l.Reset()
	assert.True(t, l.TradingEnabled())
	assert.Equal(t, 0.0, l.Snapshot().DailyRealizedPnL)
}

func TestRiskLedger_ReleaseWithoutReservePanics(t *testing.T) {
	l := newTestLedger()
	assert.Panics(t, func() { l.Release(1.0) })
}

func TestRiskLedger_BreachHandlerFiresOnce(t *testing.T) {
	l := newTestLedger()

	var events []BreachEvent
	l.SetBreachHandler(func(e BreachEvent) { events = append(events, e) })

	require.True(t, l.TryReserve())
	require.True(t, l.TryReserve())
	l.Release(-600)
	l.Release(-50) // already halted, no second event

	require.Len(t, events, 1)
	assert.Contains(t, events[0].Reason, "daily loss limit")
}

// The handler runs with the ledger lock released, so it can read the ledger
// (or persist the event) without deadlocking the counters.
func TestRiskLedger_BreachHandlerMayUseLedger(t *testing.T) {
	l := newTestLedger()

	var snap RiskSnapshot
	l.SetBreachHandler(func(BreachEvent) { snap = l.Snapshot() })

	require.True(t, l.TryReserve())
	l.Release(-600)

	assert.False(t, snap.TradingEnabled)
	assert.Equal(t, -600.0, snap.DailyRealizedPnL)
}

func TestRiskLedger_ConcurrentReserveNeverOversubscribes(t *testing.T) {
	l := newTestLedger()

	var wg sync.WaitGroup
	granted := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted <- l.TryReserve()
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for ok := range granted {
		if ok {
			count++
		}
	}
	assert.Equal(t, 3, count, "exactly MaxOpenPositions reservations may win the race")
	assert.Equal(t, 3, l.Snapshot().OpenPositions)
}
