package ports

import (
	"context"

	"github.com/MrShimp/polymarket-robot/internal/domain"
)

// CandidateFeed delivers normalized entry candidates from the market venue.
// The engine never touches raw market data.
type CandidateFeed interface {
	// FetchCandidates returns one snapshot per eligible contract,
	// no older than one scan interval.
	FetchCandidates(ctx context.Context) ([]domain.MarketCandidate, error)
}

// PriceProvider returns the current tradeable price for an outcome token.
// Used by the monitor loop to evaluate exit triggers.
type PriceProvider interface {
	// Price returns the current best bid for the token — the price a
	// managed exit could realistically sell at.
	Price(ctx context.Context, sideToken string) (float64, error)
}
