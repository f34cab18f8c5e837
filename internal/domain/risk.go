package domain

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RiskLimits are the hard thresholds the ledger enforces.
type RiskLimits struct {
	MaxOpenPositions     int
	DailyLossLimit       float64 // positive number; halt at PnL <= -DailyLossLimit
	MaxConsecutiveLosses int
}

// RiskSnapshot is a point-in-time copy of the ledger for reporting.
type RiskSnapshot struct {
	DailyRealizedPnL  float64
	ConsecutiveLosses int
	OpenPositions     int
	TradingEnabled    bool
	HaltReason        string
	HaltedAt          time.Time
}

// BreachEvent is emitted once when a hard threshold is crossed.
type BreachEvent struct {
	Reason     string
	PnL        float64
	Losses     int
	OccurredAt time.Time
}

// RiskLedger is the process-wide risk gate. All counters live behind one
// mutex so check-then-reserve is a single critical section: two callers can
// never both observe spare capacity and both reserve the last slot.
//
// None of its operations do I/O. A release without a matching reserve is a
// logic defect and panics after logging.
type RiskLedger struct {
	mu sync.Mutex

	limits            RiskLimits
	dailyRealizedPnL  float64
	consecutiveLosses int
	openPositions     int
	tradingEnabled    bool
	haltReason        string
	haltedAt          time.Time

	onBreach func(BreachEvent) // optional, dispatched outside the lock so it may do I/O
}

// NewRiskLedger creates a ledger with trading enabled.
func NewRiskLedger(limits RiskLimits) *RiskLedger {
	return &RiskLedger{limits: limits, tradingEnabled: true}
}

// SetBreachHandler registers a callback invoked exactly once per halt.
func (l *RiskLedger) SetBreachHandler(fn func(BreachEvent)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onBreach = fn
}

// TradingEnabled reports whether intake is allowed. Once false it stays
// false until an explicit Reset (new trading day).
func (l *RiskLedger) TradingEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tradingEnabled
}

// TryReserve atomically checks capacity and, if granted, reserves one open
// slot. The caller must pair every granted reservation with exactly one
// Release, even when the subsequent order submission fails.
func (l *RiskLedger) TryReserve() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.canOpenLocked() {
		return false
	}
	l.openPositions++
	return true
}

// CanOpen reports whether a reservation would currently be granted. Purely
// advisory — the answer can be stale by the time the caller acts, so intake
// paths must still use TryReserve.
func (l *RiskLedger) CanOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canOpenLocked()
}

func (l *RiskLedger) canOpenLocked() bool {
	return l.tradingEnabled &&
		l.openPositions < l.limits.MaxOpenPositions &&
		l.dailyRealizedPnL > -l.limits.DailyLossLimit &&
		l.consecutiveLosses < l.limits.MaxConsecutiveLosses
}

// Release returns one reserved slot and books the realized outcome.
// outcome 0 (entry never filled) neither counts as win nor loss.
// Threshold breaches latch tradingEnabled to false in the same critical
// section, so no later reservation can slip through. The breach handler
// itself runs after the lock is dropped: a handler that persists the event
// or reads the ledger must not stall TryReserve and Release.
func (l *RiskLedger) Release(outcome float64) {
	event, fn := l.release(outcome)
	if event != nil && fn != nil {
		fn(*event)
	}
}

func (l *RiskLedger) release(outcome float64) (*BreachEvent, func(BreachEvent)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.openPositions <= 0 {
		slog.Error("risk: release without matching reserve", "open", l.openPositions)
		panic("risk: release without matching reserve")
	}
	l.openPositions--
	l.dailyRealizedPnL += outcome

	switch {
	case outcome < 0:
		l.consecutiveLosses++
	case outcome > 0:
		l.consecutiveLosses = 0
	}

	return l.haltIfBreachedLocked(), l.onBreach
}

// haltIfBreachedLocked latches the halt flag on the first crossed threshold
// and returns the event for the caller to dispatch once the lock is gone.
func (l *RiskLedger) haltIfBreachedLocked() *BreachEvent {
	if !l.tradingEnabled {
		return nil
	}

	var reason string
	switch {
	case l.dailyRealizedPnL <= -l.limits.DailyLossLimit:
		reason = fmt.Sprintf("daily loss limit: $%.2f <= -$%.2f", l.dailyRealizedPnL, l.limits.DailyLossLimit)
	case l.consecutiveLosses >= l.limits.MaxConsecutiveLosses:
		reason = fmt.Sprintf("consecutive losses: %d >= %d", l.consecutiveLosses, l.limits.MaxConsecutiveLosses)
	default:
		return nil
	}

	l.tradingEnabled = false
	l.haltReason = reason
	l.haltedAt = time.Now().UTC()

	slog.Error("risk: TRADING HALTED", "reason", reason,
		"daily_pnl", fmt.Sprintf("$%.2f", l.dailyRealizedPnL),
		"consecutive_losses", l.consecutiveLosses)

	return &BreachEvent{
		Reason:     reason,
		PnL:        l.dailyRealizedPnL,
		Losses:     l.consecutiveLosses,
		OccurredAt: l.haltedAt,
	}
}

// Reset starts a new trading day: counters cleared, halt lifted. Open
// positions are untouched — they belong to lifecycles still in flight.
func (l *RiskLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dailyRealizedPnL = 0
	l.consecutiveLosses = 0
	l.tradingEnabled = true
	l.haltReason = ""
	l.haltedAt = time.Time{}
	slog.Info("risk: ledger reset for new trading day", "open_positions", l.openPositions)
}

// Snapshot returns a consistent copy of the ledger state.
func (l *RiskLedger) Snapshot() RiskSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return RiskSnapshot{
		DailyRealizedPnL:  l.dailyRealizedPnL,
		ConsecutiveLosses: l.consecutiveLosses,
		OpenPositions:     l.openPositions,
		TradingEnabled:    l.tradingEnabled,
		HaltReason:        l.haltReason,
		HaltedAt:          l.haltedAt,
	}
}
