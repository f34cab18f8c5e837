package domain

import (
	"fmt"
	"time"
)

// MarketCandidate is an immutable market snapshot used for an entry decision.
// One is produced per contract per scan; the engine never mutates it.
type MarketCandidate struct {
	ContractID        string
	SideToken         string // token ID of the outcome we would buy
	SideLabel         string // "Up"/"Down", "Yes"/"No" — display only
	Question          string
	Price             float64 // best ask for SideToken, 0 < price < 1
	ImpliedConfidence float64 // venue-implied win probability
	Liquidity         float64 // USDC resting in the book
	Spread            float64 // best ask - best bid
	SecondsToExpiry   float64
	ObservedAt        time.Time
}

// Validate rejects snapshots the engine must never act on.
func (c MarketCandidate) Validate() error {
	if c.ContractID == "" {
		return fmt.Errorf("candidate: empty contract ID")
	}
	if c.SideToken == "" {
		return fmt.Errorf("candidate %s: empty side token", c.ContractID)
	}
	if c.Price <= 0 || c.Price >= 1 {
		return fmt.Errorf("candidate %s: price %v outside (0, 1)", c.ContractID, c.Price)
	}
	if c.SecondsToExpiry <= 0 {
		return fmt.Errorf("candidate %s: already expired", c.ContractID)
	}
	return nil
}
