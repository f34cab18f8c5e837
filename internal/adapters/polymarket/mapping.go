package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrShimp/polymarket-robot/internal/domain"
)

// mapCandidate builds a MarketCandidate from a Gamma market, choosing the
// leading outcome (highest implied probability) as the side to buy.
// Price, spread, and liquidity are filled in later from the CLOB book;
// outcome prices here only pick the side and set the implied confidence.
func mapCandidate(gm gammaMarket, now time.Time) (domain.MarketCandidate, error) {
	if gm.Closed || !gm.AcceptingOrders {
		return domain.MarketCandidate{}, fmt.Errorf("market %s not accepting orders", gm.Slug)
	}

	prices, err := parseStringArrayFloats(gm.OutcomePrices)
	if err != nil {
		return domain.MarketCandidate{}, fmt.Errorf("outcome prices: %w", err)
	}
	tokens, err := parseStringArray(gm.CLOBTokenIDs)
	if err != nil {
		return domain.MarketCandidate{}, fmt.Errorf("token ids: %w", err)
	}
	labels, err := parseStringArray(gm.Outcomes)
	if err != nil {
		labels = nil // display only, not worth rejecting the market
	}
	if len(prices) < 2 || len(tokens) < 2 {
		return domain.MarketCandidate{}, fmt.Errorf("market %s: need 2 outcomes, got %d/%d", gm.Slug, len(prices), len(tokens))
	}

	lead := 0
	if prices[1] > prices[0] {
		lead = 1
	}

	endAt, err := time.Parse(time.RFC3339, gm.EndDate)
	if err != nil {
		return domain.MarketCandidate{}, fmt.Errorf("end date %q: %w", gm.EndDate, err)
	}

	cand := domain.MarketCandidate{
		ContractID:        gm.ConditionID,
		SideToken:         tokens[lead],
		Question:          gm.Question,
		Price:             prices[lead],
		ImpliedConfidence: prices[lead],
		SecondsToExpiry:   endAt.Sub(now).Seconds(),
		ObservedAt:        now,
	}
	if lead < len(labels) {
		cand.SideLabel = labels[lead]
	}
	if v, err := gm.Liquidity.Float64(); err == nil {
		cand.Liquidity = v
	}
	return cand, nil
}

// summarizeBook reduces a CLOB book to best bid/ask and USDC depth.
func summarizeBook(book clobBook) bookSummary {
	var s bookSummary
	for _, lvl := range book.Bids {
		p, errP := parseDecimal(lvl.Price)
		q, errQ := parseDecimal(lvl.Size)
		if errP != nil || errQ != nil {
			continue
		}
		if p > s.bestBid {
			s.bestBid = p
		}
		s.depthUSDC += p * q
	}
	for _, lvl := range book.Asks {
		p, errP := parseDecimal(lvl.Price)
		q, errQ := parseDecimal(lvl.Size)
		if errP != nil || errQ != nil {
			continue
		}
		if s.bestAsk == 0 || p < s.bestAsk {
			s.bestAsk = p
		}
		s.depthUSDC += p * q
	}
	return s
}

// parseStringArray decodes Gamma's JSON-string-encoded arrays like
// `"[\"Up\", \"Down\"]"`.
func parseStringArray(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty array field")
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// parseStringArrayFloats decodes arrays of numeric strings like
// `"[\"0.955\", \"0.045\"]"`.
func parseStringArrayFloats(raw string) ([]float64, error) {
	strs, err := parseStringArray(raw)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(strs))
	for _, s := range strs {
		v, err := parseDecimal(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// classifyClientError maps 4xx venue responses onto the domain taxonomy by
// matching the error strings the CLOB actually returns.
func classifyClientError(status int, body string) error {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "balance") || strings.Contains(lower, "allowance"):
		return fmt.Errorf("status %d: %s: %w", status, body, domain.ErrInsufficientBalance)
	case strings.Contains(lower, "price"), strings.Contains(lower, "tick size"):
		return fmt.Errorf("status %d: %s: %w", status, body, domain.ErrInvalidPrice)
	case strings.Contains(lower, "closed"), strings.Contains(lower, "not accepting"), strings.Contains(lower, "resolved"):
		return fmt.Errorf("status %d: %s: %w", status, body, domain.ErrMarketClosed)
	default:
		return fmt.Errorf("status %d: %s: %w", status, body, domain.ErrVenueUnknown)
	}
}
