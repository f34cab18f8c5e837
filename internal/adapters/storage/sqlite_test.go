package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrShimp/polymarket-robot/internal/adapters/storage"
	"github.com/MrShimp/polymarket-robot/internal/domain"
)

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	s, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func terminalPosition(id string, pnl float64, closedAt time.Time) domain.Position {
	state := domain.StateClosed
	reason := domain.ExitTakeProfit
	if pnl < 0 {
		reason = domain.ExitStopLoss
	}
	return domain.Position{
		ID:          id,
		ContractID:  "0xmarket",
		SideToken:   "token-yes",
		Question:    "Will it settle yes?",
		EntryPrice:  0.93,
		ExitPrice:   0.93 + pnl/10,
		Size:        9.30,
		Shares:      10,
		OpenedAt:    closedAt.Add(-4 * time.Minute),
		ClosedAt:    closedAt,
		State:       state,
		ExitReason:  reason,
		RealizedPnL: pnl,
	}
}

func TestSaveAndGetPositions(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveTerminalPosition(ctx, terminalPosition("pos-1", 0.40, base)))
	require.NoError(t, s.SaveTerminalPosition(ctx, terminalPosition("pos-2", -0.30, base.Add(10*time.Minute))))

	got, err := s.GetPositions(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	assert.Equal(t, "pos-2", got[0].ID)
	assert.Equal(t, "pos-1", got[1].ID)
	assert.Equal(t, domain.StateClosed, got[0].State)
	assert.Equal(t, domain.ExitStopLoss, got[0].ExitReason)
	assert.InDelta(t, -0.30, got[0].RealizedPnL, 1e-9)
	assert.Equal(t, base, got[1].ClosedAt)
}

func TestGetPositionsRangeFilter(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveTerminalPosition(ctx, terminalPosition("in-range", 0.10, base)))
	require.NoError(t, s.SaveTerminalPosition(ctx, terminalPosition("too-old", 0.10, base.Add(-48*time.Hour))))

	got, err := s.GetPositions(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "in-range", got[0].ID)
}

func TestSaveNonTerminalRejected(t *testing.T) {
	s := newTestStorage(t)

	p := terminalPosition("pos-open", 0, time.Now().UTC())
	p.State = domain.StateOpen

	err := s.SaveTerminalPosition(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-terminal")
}

func TestDuplicatePositionIDRejected(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	p := terminalPosition("pos-dup", 0.10, time.Now().UTC())

	require.NoError(t, s.SaveTerminalPosition(ctx, p))
	require.Error(t, s.SaveTerminalPosition(ctx, p))
}

func TestRiskBreaches(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRiskBreach(ctx, domain.BreachEvent{
		Reason: "daily loss limit: $-25.10 <= -$25.00", PnL: -25.10, Losses: 2, OccurredAt: base,
	}))
	require.NoError(t, s.SaveRiskBreach(ctx, domain.BreachEvent{
		Reason: "consecutive losses: 3 >= 3", PnL: -12.00, Losses: 3, OccurredAt: base.Add(time.Hour),
	}))

	got, err := s.GetRiskBreaches(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "consecutive losses: 3 >= 3", got[0].Reason)
	assert.Equal(t, 3, got[0].Losses)
	assert.InDelta(t, -25.10, got[1].PnL, 1e-9)
}

func TestSessionStats(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveTerminalPosition(ctx, terminalPosition("w1", 0.40, base)))
	require.NoError(t, s.SaveTerminalPosition(ctx, terminalPosition("w2", 0.35, base.Add(5*time.Minute))))
	require.NoError(t, s.SaveTerminalPosition(ctx, terminalPosition("l1", -0.90, base.Add(10*time.Minute))))

	failed := terminalPosition("f1", -9.30, base.Add(15*time.Minute))
	failed.State = domain.StateFailed
	failed.ExitReason = domain.ExitDeadline
	failed.Unreconciled = true
	require.NoError(t, s.SaveTerminalPosition(ctx, failed))

	stats, err := s.GetSessionStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Unreconciled)
	assert.InDelta(t, 0.40+0.35-0.90-9.30, stats.NetPnL, 1e-9)
	assert.Equal(t, base, stats.FirstClosed)
	assert.Equal(t, base.Add(15*time.Minute), stats.LastClosed)
	assert.InDelta(t, 2.0/3.0, stats.WinRate(), 1e-9)
}

func TestSessionStatsEmpty(t *testing.T) {
	s := newTestStorage(t)

	stats, err := s.GetSessionStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.Zero(t, stats.NetPnL)
	assert.True(t, stats.FirstClosed.IsZero())
	assert.Zero(t, stats.WinRate())
}
