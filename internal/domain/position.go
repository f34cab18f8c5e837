package domain

import (
	"fmt"
	"time"
)

// PositionState is a node in the lifecycle state machine.
//
//	Pending → Open → Exiting → {Closed, Failed}
//	Pending → Failed
//
// Closed and Failed are terminal. Only Open and Exiting count as "open"
// against the risk ledger.
type PositionState string

const (
	StatePending PositionState = "PENDING"
	StateOpen    PositionState = "OPEN"
	StateExiting PositionState = "EXITING"
	StateClosed  PositionState = "CLOSED"
	StateFailed  PositionState = "FAILED"
)

// Terminal reports whether the state accepts no further transitions.
func (s PositionState) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// CountsAsOpen reports whether the state is reflected in the ledger's
// open-position count.
func (s PositionState) CountsAsOpen() bool {
	return s == StateOpen || s == StateExiting
}

// validTransitions encodes every edge of the machine. Anything not listed
// here is a logic defect, not an environmental fault.
var validTransitions = map[PositionState][]PositionState{
	StatePending: {StateOpen, StateFailed},
	StateOpen:    {StateExiting},
	StateExiting: {StateExiting, StateClosed, StateFailed},
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to PositionState) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ExitReason records which rule triggered a managed exit.
type ExitReason string

const (
	ExitNone       ExitReason = ""
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitDeadline   ExitReason = "DEADLINE"
	ExitPlateau    ExitReason = "PLATEAU"
	ExitShutdown   ExitReason = "SHUTDOWN" // process stopped with the position still open
)

// Position is the unit of risk. It is owned exclusively by one lifecycle
// task; nothing else mutates it.
type Position struct {
	ID           string
	ContractID   string
	SideToken    string
	Question     string
	EntryPrice   float64 // average fill price, not the requested price
	Size         float64 // USDC committed at entry
	Shares       float64
	OpenedAt     time.Time
	TargetPrice  float64
	StopPrice    float64
	Deadline     time.Time
	State        PositionState
	ExitReason   ExitReason
	ExitAttempts int
	ExitPrice    float64
	ClosedAt     time.Time
	RealizedPnL  float64 // set only on terminal states
	Unreconciled bool    // exit gave up with capital possibly still at risk
}

// Transition moves the position to the next state, panicking on any edge
// the machine does not allow. A bad edge means the engine is broken;
// continuing would corrupt the ledger.
func (p *Position) Transition(to PositionState) {
	if !CanTransition(p.State, to) {
		panic(fmt.Sprintf("position %s: illegal transition %s -> %s", p.ID, p.State, to))
	}
	p.State = to
}

// PnL returns the realized profit for an exit at the given fill price.
func (p *Position) PnL(exitPrice float64) float64 {
	return (exitPrice - p.EntryPrice) * p.Shares
}

// ExitRules are the thresholds the monitor evaluates each tick.
// Plateau parameters mirror the source strategy's "special take-profit":
// once the price sits at or above Threshold and drifts less than Tolerance
// for Sustain, take the win early rather than wait for the primary target.
type ExitRules struct {
	PlateauThreshold float64
	PlateauTolerance float64
	PlateauSustain   time.Duration
}

// PlateauTracker watches for a sustained near-certainty price band.
// It is owned by a single lifecycle task and needs no locking.
type PlateauTracker struct {
	rules   ExitRules
	anchor  float64
	since   time.Time
	armed   bool
}

// NewPlateauTracker creates a tracker for the given rules.
func NewPlateauTracker(rules ExitRules) *PlateauTracker {
	return &PlateauTracker{rules: rules}
}

// Observe feeds one price sample and reports whether the plateau condition
// is now met. A sample below the threshold, or drifting outside the
// tolerance band, re-arms the tracker from scratch.
func (pt *PlateauTracker) Observe(price float64, now time.Time) bool {
	if pt.rules.PlateauThreshold <= 0 || pt.rules.PlateauSustain <= 0 {
		return false
	}
	if price < pt.rules.PlateauThreshold {
		pt.armed = false
		return false
	}
	if !pt.armed || absDiff(price, pt.anchor) > pt.rules.PlateauTolerance {
		pt.armed = true
		pt.anchor = price
		pt.since = now
		return false
	}
	return now.Sub(pt.since) >= pt.rules.PlateauSustain
}

// EvaluateExit is the pure monitoring step: given the latest market price
// and the clock, decide whether an Open position should start exiting and
// why. Plateau detection is passed in pre-computed so this stays
// deterministic for tests.
func EvaluateExit(p *Position, currentPrice float64, now time.Time, plateau bool) ExitReason {
	if p.State != StateOpen {
		return ExitNone
	}
	switch {
	case currentPrice >= p.TargetPrice:
		return ExitTakeProfit
	case currentPrice <= p.StopPrice:
		return ExitStopLoss
	case !now.Before(p.Deadline):
		return ExitDeadline
	case plateau:
		return ExitPlateau
	}
	return ExitNone
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
