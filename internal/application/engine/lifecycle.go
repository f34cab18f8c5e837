package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrShimp/polymarket-robot/internal/domain"
	"github.com/MrShimp/polymarket-robot/internal/ports"
)

// Lifecycle owns exactly one position from candidate to terminal state.
// It runs as a single goroutine: enter, monitor, exit. Nothing else mutates
// the position; the mutex only guards Snapshot readers.
//
// The contract lock and the ledger reservation are both taken by the scan
// loop before the goroutine starts. The lifecycle is responsible for
// releasing both exactly once, whatever path the position takes.
type Lifecycle struct {
	cfg       Config
	candidate domain.MarketCandidate
	gateway   ports.OrderGateway
	prices    ports.PriceProvider
	ledger    *domain.RiskLedger
	storage   ports.TradeStorage
	notifier  ports.Notifier
	locks     *contractLocks
	slots     chan struct{}

	mu        sync.Mutex
	pos       domain.Position
	lastPrice float64

	plateau *domain.PlateauTracker
}

func newLifecycle(e *Engine, c domain.MarketCandidate) *Lifecycle {
	return &Lifecycle{
		cfg:       e.cfg,
		candidate: c,
		gateway:   e.gateway,
		prices:    e.prices,
		ledger:    e.ledger,
		storage:   e.storage,
		notifier:  e.notifier,
		locks:     e.locks,
		slots:     e.slots,
		plateau:   domain.NewPlateauTracker(e.cfg.ExitRules),
		pos: domain.Position{
			ID:         uuid.NewString(),
			ContractID: c.ContractID,
			SideToken:  c.SideToken,
			Question:   c.Question,
			State:      domain.StatePending,
		},
		lastPrice: c.Price,
	}
}

// ID returns the position ID.
func (lf *Lifecycle) ID() string {
	return lf.pos.ID
}

// Snapshot returns a copy of the position for reporting.
func (lf *Lifecycle) Snapshot() domain.Position {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return lf.pos
}

// Run drives the position to a terminal state. It owns the contract lock
// and one ledger reservation on entry and releases both before returning.
// On shutdown any in-flight order attempt is allowed to finish and the
// position is archived in its last known state with the alarm raised.
func (lf *Lifecycle) Run(ctx context.Context) {
	defer lf.locks.Release(lf.candidate.ContractID)

	if !lf.enter(ctx) {
		return
	}

	reason := lf.monitor(ctx)
	if reason == domain.ExitNone {
		lf.abandon(ctx)
		return
	}

	lf.exit(ctx, reason)
}

// enter submits the entry order and reports whether the position opened.
// Every failure path releases the ledger reservation with a zero outcome.
func (lf *Lifecycle) enter(ctx context.Context) bool {
	c := lf.candidate
	req := domain.OrderRequest{
		ClientID:   uuid.NewString(),
		ContractID: c.ContractID,
		SideToken:  c.SideToken,
		Side:       domain.SideBuy,
		Quantity:   lf.cfg.OrderSize / c.Price,
		LimitPrice: c.Price,
	}

	res, err := lf.submit(ctx, req)
	switch {
	case err == nil && res.Filled():
		// opened below
	case err != nil && domain.IsAmbiguous(err):
		// Submission timed out and reconciliation could not settle it.
		// Capital may be committed on the venue.
		slog.Error("entry unresolved after reconciliation, check venue manually",
			"position", lf.pos.ID, "contract", c.ContractID, "client_id", req.ClientID)
		lf.failEntry(ctx, true)
		return false
	default:
		reason := "not filled"
		if err != nil {
			reason = err.Error()
		} else if res.FailureReason != "" {
			reason = res.FailureReason
		}
		slog.Info("entry rejected", "position", lf.pos.ID, "contract", c.ContractID, "reason", reason)
		lf.failEntry(ctx, false)
		return false
	}

	now := time.Now().UTC()

	lf.mu.Lock()
	lf.pos.Transition(domain.StateOpen)
	lf.pos.EntryPrice = res.AveragePrice
	lf.pos.Shares = res.FilledQuantity
	lf.pos.Size = res.FilledQuantity * res.AveragePrice
	lf.pos.OpenedAt = now
	lf.pos.TargetPrice = capPrice(res.AveragePrice * (1 + lf.cfg.TargetPct))
	lf.pos.StopPrice = res.AveragePrice * (1 - lf.cfg.StopPct)
	lf.pos.Deadline = now.Add(lf.cfg.Deadline)
	pos := lf.pos
	lf.mu.Unlock()

	slog.Info("position opened",
		"position", pos.ID,
		"contract", pos.ContractID,
		"entry", pos.EntryPrice,
		"shares", pos.Shares,
		"target", pos.TargetPrice,
		"stop", pos.StopPrice,
		"deadline", pos.Deadline.Format("15:04:05"),
	)
	return true
}

// failEntry moves Pending to Failed and releases the reservation with zero
// outcome: an unfilled entry is neither a win nor a loss.
func (lf *Lifecycle) failEntry(ctx context.Context, unreconciled bool) {
	lf.mu.Lock()
	lf.pos.Transition(domain.StateFailed)
	lf.pos.ClosedAt = time.Now().UTC()
	lf.pos.Unreconciled = unreconciled
	pos := lf.pos
	lf.mu.Unlock()

	lf.finalize(ctx, pos, 0)
}

// monitor polls the current price until an exit rule triggers or the
// context ends. Returns ExitNone only on cancellation.
func (lf *Lifecycle) monitor(ctx context.Context) domain.ExitReason {
	ticker := time.NewTicker(lf.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.ExitNone
		case <-ticker.C:
		}

		price, err := lf.prices.Price(ctx, lf.pos.SideToken)
		if err != nil {
			slog.Debug("price poll failed", "position", lf.pos.ID, "err", err)
			continue
		}

		now := time.Now().UTC()
		plateau := lf.plateau.Observe(price, now)

		lf.mu.Lock()
		lf.lastPrice = price
		reason := domain.EvaluateExit(&lf.pos, price, now, plateau)
		lf.mu.Unlock()

		if reason != domain.ExitNone {
			slog.Info("exit triggered",
				"position", lf.pos.ID, "reason", reason,
				"price", price, "entry", lf.pos.EntryPrice)
			return reason
		}
	}
}

// exit works the position from Exiting to Closed, retrying transient
// failures with exponential backoff. Exhausting the retry budget moves the
// position to Failed with the unreconciled alarm set: capital is still at
// risk and the operator must intervene.
func (lf *Lifecycle) exit(ctx context.Context, reason domain.ExitReason) {
	lf.mu.Lock()
	lf.pos.Transition(domain.StateExiting)
	lf.pos.ExitReason = reason
	shares := lf.pos.Shares
	lf.mu.Unlock()

	for {
		lf.mu.Lock()
		limit := lf.lastPrice
		lf.mu.Unlock()

		req := domain.OrderRequest{
			ClientID:   uuid.NewString(),
			ContractID: lf.pos.ContractID,
			SideToken:  lf.pos.SideToken,
			Side:       domain.SideSell,
			Quantity:   shares,
			LimitPrice: limit,
		}

		res, err := lf.submit(ctx, req)
		if err == nil && res.Filled() {
			lf.close(ctx, res.AveragePrice)
			return
		}

		if err != nil && domain.IsAmbiguous(err) {
			// Reconciliation inside submit already failed. The sell may have
			// landed; resubmitting now risks a double execution, so give up
			// and raise the alarm.
			lf.failExit(ctx, "exit ambiguous after reconciliation")
			return
		}

		attemptErr := "not filled"
		if err != nil {
			attemptErr = err.Error()
		} else if res.FailureReason != "" {
			attemptErr = res.FailureReason
		}

		lf.mu.Lock()
		lf.pos.Transition(domain.StateExiting) // self-loop
		lf.pos.ExitAttempts++
		attempts := lf.pos.ExitAttempts
		lf.mu.Unlock()

		if lf.cfg.ExitRetry.Exhausted(attempts) {
			lf.failExit(ctx, attemptErr)
			return
		}

		delay := lf.cfg.ExitRetry.Delay(attempts - 1)
		slog.Warn("exit attempt failed, retrying",
			"position", lf.pos.ID, "attempt", attempts, "err", attemptErr, "backoff", delay)

		select {
		case <-ctx.Done():
			lf.abandon(ctx)
			return
		case <-time.After(delay):
		}
	}
}

// close books a successful exit and releases the reservation exactly once.
func (lf *Lifecycle) close(ctx context.Context, fillPrice float64) {
	lf.mu.Lock()
	lf.pos.Transition(domain.StateClosed)
	lf.pos.ExitPrice = fillPrice
	lf.pos.ClosedAt = time.Now().UTC()
	lf.pos.RealizedPnL = lf.pos.PnL(fillPrice)
	pos := lf.pos
	lf.mu.Unlock()

	slog.Info("position closed",
		"position", pos.ID, "reason", pos.ExitReason,
		"entry", pos.EntryPrice, "exit", pos.ExitPrice,
		"pnl", pos.RealizedPnL)

	lf.finalize(ctx, pos, pos.RealizedPnL)
}

// failExit books an exit that gave up. The ledger is still released, valued
// at the last observed price, so its counts stay consistent; the position
// is flagged unreconciled because the venue-side truth is unknown.
func (lf *Lifecycle) failExit(ctx context.Context, lastErr string) {
	lf.mu.Lock()
	lf.pos.Transition(domain.StateFailed)
	lf.pos.ExitPrice = lf.lastPrice
	lf.pos.ClosedAt = time.Now().UTC()
	lf.pos.RealizedPnL = lf.pos.PnL(lf.lastPrice)
	lf.pos.Unreconciled = true
	pos := lf.pos
	lf.mu.Unlock()

	slog.Error("EXIT FAILED, capital may remain at risk",
		"position", pos.ID, "contract", pos.ContractID,
		"attempts", pos.ExitAttempts, "last_err", lastErr,
		"valuation", pos.RealizedPnL)

	lf.finalize(ctx, pos, pos.RealizedPnL)
}

// finalize releases the ledger reservation, archives the terminal position
// and announces it. Called exactly once per lifecycle. Archival must
// survive run-context cancellation: a terminal position with no durable
// record would be invisible to the operator.
func (lf *Lifecycle) finalize(ctx context.Context, pos domain.Position, outcome float64) {
	ctx = context.WithoutCancel(ctx)
	lf.ledger.Release(outcome)

	if err := lf.storage.SaveTerminalPosition(ctx, pos); err != nil {
		slog.Warn("archive failed", "position", pos.ID, "err", err)
	}
	if err := lf.notifier.NotifyTerminal(ctx, pos); err != nil {
		slog.Warn("notifier error", "position", pos.ID, "err", err)
	}
}

// abandon is the shutdown path: the process is exiting with the position
// still live on the venue. The last known state is archived as Failed with
// the unreconciled alarm, valued at the last observed price, so the next
// session has a durable record of the capital left behind.
func (lf *Lifecycle) abandon(ctx context.Context) {
	lf.mu.Lock()
	if lf.pos.State == domain.StateOpen {
		lf.pos.Transition(domain.StateExiting)
		lf.pos.ExitReason = domain.ExitShutdown
	}
	lf.pos.Transition(domain.StateFailed)
	lf.pos.ExitPrice = lf.lastPrice
	lf.pos.ClosedAt = time.Now().UTC()
	lf.pos.RealizedPnL = lf.pos.PnL(lf.lastPrice)
	lf.pos.Unreconciled = true
	pos := lf.pos
	lf.mu.Unlock()

	slog.Warn("shutdown with position still open on venue",
		"position", pos.ID, "contract", pos.ContractID,
		"reason", pos.ExitReason, "entry", pos.EntryPrice, "shares", pos.Shares)

	lf.finalize(ctx, pos, pos.RealizedPnL)
}

// submit performs one gateway call under the in-flight order cap, with the
// configured timeout. Ambiguous outcomes are reconciled via status queries
// before being surfaced to the caller.
func (lf *Lifecycle) submit(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	select {
	case lf.slots <- struct{}{}:
	case <-ctx.Done():
		return domain.OrderResult{}, ctx.Err()
	}
	defer func() { <-lf.slots }()

	// An attempt that has started keeps its own timeout even if the run
	// context is cancelled mid-flight: killing an order already sent to the
	// venue would leave its outcome unknown. Reconciliation of that attempt
	// runs under the same detached context.
	callCtx := context.WithoutCancel(ctx)
	tctx, cancel := context.WithTimeout(callCtx, lf.cfg.OrderTimeout)
	res, err := lf.gateway.SubmitOrder(tctx, req)
	cancel()

	if err != nil && domain.IsAmbiguous(err) {
		return lf.reconcile(callCtx, req.ClientID)
	}
	return res, err
}

// reconcile resolves an ambiguous submission through status queries.
// ErrOrderNotFound means the order never landed and the attempt can be
// treated as a clean failure. Returning ErrTimeout means the truth is still
// unknown after the query budget.
func (lf *Lifecycle) reconcile(ctx context.Context, clientID string) (domain.OrderResult, error) {
	for i := 0; i < lf.cfg.ReconcileAttempts; i++ {
		select {
		case <-ctx.Done():
			return domain.OrderResult{}, ctx.Err()
		case <-time.After(lf.cfg.ExitRetry.Delay(i)):
		}

		tctx, cancel := context.WithTimeout(ctx, lf.cfg.OrderTimeout)
		res, err := lf.gateway.OrderStatus(tctx, clientID)
		cancel()

		if err == nil {
			slog.Info("ambiguous order reconciled",
				"position", lf.pos.ID, "client_id", clientID, "filled", res.FilledQuantity)
			return res, nil
		}
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.OrderResult{}, domain.ErrOrderNotFound
		}
		slog.Debug("status query failed", "position", lf.pos.ID, "attempt", i+1, "err", err)
	}
	return domain.OrderResult{}, domain.ErrTimeout
}

// capPrice keeps a computed limit inside the venue's valid (0, 1) range.
func capPrice(p float64) float64 {
	if p > 0.99 {
		return 0.99
	}
	return p
}
