package scanner

import (
	"github.com/MrShimp/polymarket-robot/internal/domain"
)

// FilterConfig holds the configurable acceptance thresholds. Everything is
// supplied from outside; the filter hardcodes nothing.
type FilterConfig struct {
	// MinPrice and MaxPrice bound the entry band. Below MinPrice the outcome
	// is not likely enough; above MaxPrice there is no profit left in the move.
	MinPrice float64
	MaxPrice float64
	// MinConfidence is the implied win probability floor.
	MinConfidence float64
	// MaxSpread rejects books too wide to exit through.
	MaxSpread float64
	// MinLiquidity rejects books too thin to absorb the order.
	MinLiquidity float64
	// MinSecondsToExpiry rejects contracts about to resolve; an exit order
	// needs time to work.
	MinSecondsToExpiry float64
	// MaxSecondsToExpiry rejects slow-moving capital.
	MaxSecondsToExpiry float64
}

// Filter decides whether a market snapshot qualifies as an entry candidate.
// Pure and deterministic: same snapshot, same answer.
type Filter struct {
	cfg FilterConfig
}

// NewFilter creates a Filter with the given thresholds.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Accept reports whether the candidate passes every criterion.
func (f *Filter) Accept(c domain.MarketCandidate) bool {
	return f.Reject(c) == ""
}

// Reject returns the name of the first failed criterion, or "" when the
// candidate passes. The reason feeds per-tick debug logging.
func (f *Filter) Reject(c domain.MarketCandidate) string {
	if c.Price < f.cfg.MinPrice || c.Price > f.cfg.MaxPrice {
		return "price_band"
	}
	if c.ImpliedConfidence < f.cfg.MinConfidence {
		return "confidence"
	}
	if c.Spread > f.cfg.MaxSpread {
		return "spread"
	}
	if c.Liquidity < f.cfg.MinLiquidity {
		return "liquidity"
	}
	if c.SecondsToExpiry < f.cfg.MinSecondsToExpiry {
		return "expiring"
	}
	if c.SecondsToExpiry > f.cfg.MaxSecondsToExpiry {
		return "too_far_out"
	}
	return ""
}

// Apply returns the candidates that pass all filters, preserving order.
func (f *Filter) Apply(candidates []domain.MarketCandidate) []domain.MarketCandidate {
	result := make([]domain.MarketCandidate, 0, len(candidates))
	for _, c := range candidates {
		if f.Accept(c) {
			result = append(result, c)
		}
	}
	return result
}
