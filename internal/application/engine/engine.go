package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrShimp/polymarket-robot/internal/application/scanner"
	"github.com/MrShimp/polymarket-robot/internal/domain"
	"github.com/MrShimp/polymarket-robot/internal/ports"
)

// Config holds everything the engine and its lifecycles need.
type Config struct {
	ScanInterval time.Duration
	PollInterval time.Duration // exit-monitor cadence; defaults to ScanInterval

	OrderSize float64 // USDC per entry
	TargetPct float64 // take-profit over entry
	StopPct   float64 // stop-loss under entry
	Deadline  time.Duration

	ExitRules domain.ExitRules     // plateau early take-profit
	ExitRetry domain.RetrySchedule // exit retry budget and backoff

	OrderTimeout        time.Duration
	ReconcileAttempts   int // status queries after an ambiguous submission
	MaxConcurrentOrders int // in-flight gateway calls across all lifecycles
}

// Engine is the top-level scan loop. Each tick it pulls candidates, filters
// them, reserves risk capacity and spawns one lifecycle goroutine per
// accepted candidate. Monitoring and exits run inside the lifecycles; the
// loop itself never blocks on an order.
type Engine struct {
	cfg      Config
	feed     ports.CandidateFeed
	prices   ports.PriceProvider
	gateway  ports.OrderGateway
	ledger   *domain.RiskLedger
	storage  ports.TradeStorage
	notifier ports.Notifier
	filter   *scanner.Filter

	locks *contractLocks
	slots chan struct{}

	mu   sync.Mutex
	live map[string]*Lifecycle

	wg sync.WaitGroup

	haltLogged bool
	day        string // UTC date of the last tick
}

// New creates an Engine with all dependencies injected.
func New(
	cfg Config,
	feed ports.CandidateFeed,
	prices ports.PriceProvider,
	gateway ports.OrderGateway,
	ledger *domain.RiskLedger,
	storage ports.TradeStorage,
	notifier ports.Notifier,
	filter *scanner.Filter,
) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = cfg.ScanInterval
	}
	if cfg.MaxConcurrentOrders <= 0 {
		cfg.MaxConcurrentOrders = 4
	}

	return &Engine{
		cfg:      cfg,
		feed:     feed,
		prices:   prices,
		gateway:  gateway,
		ledger:   ledger,
		storage:  storage,
		notifier: notifier,
		filter:   filter,
		locks:    newContractLocks(),
		slots:    make(chan struct{}, cfg.MaxConcurrentOrders),
		live:     make(map[string]*Lifecycle),
	}
}

// Run drives ticks until the context is cancelled, then waits for the
// lifecycle goroutines to wind down.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting",
		"scan_interval", e.cfg.ScanInterval,
		"order_size", e.cfg.OrderSize,
		"max_in_flight", e.cfg.MaxConcurrentOrders,
	)

	e.tick(ctx)

	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return nil
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// RunOnce performs a single intake tick and then manages any opened
// positions to their terminal state before returning.
func (e *Engine) RunOnce(ctx context.Context) error {
	e.tick(ctx)
	e.wg.Wait()
	return nil
}

// tick is one pass of the loop: prune finished lifecycles, take in new
// candidates while the ledger allows, report.
func (e *Engine) tick(ctx context.Context) {
	start := time.Now()
	e.rolloverIfNewDay(start)
	e.prune()

	var accepted, rejected int
	if e.ledger.TradingEnabled() {
		e.haltLogged = false
		accepted, rejected = e.intake(ctx)
	} else if !e.haltLogged {
		// Intake stops but live positions keep being monitored so they
		// can still close.
		slog.Warn("trading halted, monitoring open positions only",
			"reason", e.ledger.Snapshot().HaltReason)
		e.haltLogged = true
	}

	open := e.openSnapshots()
	risk := e.ledger.Snapshot()

	if err := e.notifier.NotifyTick(ctx, open, risk); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	slog.Info("tick complete",
		"accepted", accepted,
		"rejected", rejected,
		"open", len(open),
		"daily_pnl", risk.DailyRealizedPnL,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// rolloverIfNewDay resets the daily ledger counters, and with them any
// latched halt, when the UTC date changes between ticks. Open positions
// carry over untouched.
func (e *Engine) rolloverIfNewDay(now time.Time) {
	day := now.UTC().Format("2006-01-02")
	if e.day == day {
		return
	}
	if e.day != "" {
		slog.Info("new trading day", "date", day)
		e.ledger.Reset()
	}
	e.day = day
}

// intake fetches candidates and spawns a lifecycle per acceptance. The
// contract lock is taken before the reservation so a duplicated contract
// never consumes ledger capacity.
func (e *Engine) intake(ctx context.Context) (accepted, rejected int) {
	candidates, err := e.feed.FetchCandidates(ctx)
	if err != nil {
		slog.Error("candidate fetch failed", "err", err)
		return 0, 0
	}

	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			slog.Debug("malformed candidate dropped", "contract", c.ContractID, "err", err)
			continue
		}
		if reason := e.filter.Reject(c); reason != "" {
			slog.Debug("candidate rejected", "contract", c.ContractID, "reason", reason)
			rejected++
			continue
		}
		if !e.locks.TryAcquire(c.ContractID) {
			continue // already managed by a live lifecycle
		}
		if !e.ledger.TryReserve() {
			e.locks.Release(c.ContractID)
			slog.Debug("no risk capacity, intake stopped for this tick")
			break
		}

		lf := newLifecycle(e, c)
		e.mu.Lock()
		e.live[lf.ID()] = lf
		e.mu.Unlock()

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			lf.Run(ctx)
		}()

		slog.Info("candidate accepted",
			"contract", c.ContractID,
			"question", c.Question,
			"price", c.Price,
			"seconds_to_end", c.SecondsToExpiry,
		)
		accepted++
	}
	return accepted, rejected
}

// prune drops lifecycles whose position reached a terminal state.
func (e *Engine) prune() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, lf := range e.live {
		if lf.Snapshot().State.Terminal() {
			delete(e.live, id)
		}
	}
}

// openSnapshots returns a copy of every non-terminal position.
func (e *Engine) openSnapshots() []domain.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	open := make([]domain.Position, 0, len(e.live))
	for _, lf := range e.live {
		if pos := lf.Snapshot(); !pos.State.Terminal() {
			open = append(open, pos)
		}
	}
	return open
}

// shutdown logs every position still live and waits for the lifecycle
// goroutines. Each lifecycle finishes any order attempt already in flight
// and archives its position before returning.
func (e *Engine) shutdown() {
	open := e.openSnapshots()
	for _, pos := range open {
		slog.Warn("stopping with unmanaged position",
			"position", pos.ID, "contract", pos.ContractID, "state", pos.State)
	}

	e.wg.Wait()
	slog.Info("engine stopped", "open_at_stop", len(open))
}
