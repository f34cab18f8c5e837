package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/MrShimp/polymarket-robot/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageLimit   = 100
)

// FeedConfig bounds the expiry window the feed scans.
type FeedConfig struct {
	MinSecondsToEnd int
	MaxSecondsToEnd int
	TagSlug         string // optional Gamma tag filter, e.g. "crypto"
}

// Feed implements ports.CandidateFeed and ports.PriceProvider on top of the
// Gamma and CLOB APIs. It normalizes raw markets into MarketCandidate
// snapshots; the engine never sees venue DTOs.
type Feed struct {
	client *Client
	cfg    FeedConfig
}

// NewFeed creates a candidate feed over the given client.
func NewFeed(client *Client, cfg FeedConfig) *Feed {
	return &Feed{client: client, cfg: cfg}
}

// FetchCandidates returns one snapshot per open market resolving inside the
// configured window. The leading outcome (highest implied probability) is
// the side a snapshot proposes to buy; spread and liquidity come from that
// token's CLOB book.
func (f *Feed) FetchCandidates(ctx context.Context) ([]domain.MarketCandidate, error) {
	now := time.Now().UTC()
	markets, err := f.fetchEndingMarkets(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("feed.FetchCandidates: %w", err)
	}

	candidates := make([]domain.MarketCandidate, 0, len(markets))
	for _, gm := range markets {
		cand, err := mapCandidate(gm, now)
		if err != nil {
			slog.Debug("feed: skipping market", "market", gm.Slug, "err", err)
			continue
		}

		book, err := f.fetchBook(ctx, cand.SideToken)
		if err != nil {
			slog.Debug("feed: book fetch failed", "token", cand.SideToken, "err", err)
			continue
		}
		cand.Price = book.bestAsk
		cand.Spread = book.spread()
		cand.Liquidity = book.depthUSDC

		if err := cand.Validate(); err != nil {
			slog.Debug("feed: invalid candidate", "market", gm.Slug, "err", err)
			continue
		}
		candidates = append(candidates, cand)
	}

	slog.Debug("feed: scan complete", "markets", len(markets), "candidates", len(candidates))
	return candidates, nil
}

// Price returns the current best bid for a token — what an exit could sell at.
func (f *Feed) Price(ctx context.Context, sideToken string) (float64, error) {
	u := fmt.Sprintf("%s/price?token_id=%s&side=sell", f.client.clobBase, url.QueryEscape(sideToken))

	var resp clobPrice
	if err := f.client.get(ctx, f.client.dataLimiter, u, &resp); err != nil {
		return 0, fmt.Errorf("feed.Price: %w", err)
	}
	p, err := parseDecimal(resp.Price)
	if err != nil || p <= 0 {
		return 0, fmt.Errorf("feed.Price: bad price %q for token %s", resp.Price, sideToken)
	}
	return p, nil
}

// fetchEndingMarkets pages through Gamma markets resolving inside the window.
func (f *Feed) fetchEndingMarkets(ctx context.Context, now time.Time) ([]gammaMarket, error) {
	minEnd := now.Add(time.Duration(f.cfg.MinSecondsToEnd) * time.Second)
	maxEnd := now.Add(time.Duration(f.cfg.MaxSecondsToEnd) * time.Second)

	q := url.Values{}
	q.Set("closed", "false")
	q.Set("active", "true")
	q.Set("end_date_min", minEnd.Format(time.RFC3339))
	q.Set("end_date_max", maxEnd.Format(time.RFC3339))
	q.Set("order", "endDate")
	q.Set("ascending", "true")
	q.Set("limit", fmt.Sprintf("%d", gammaPageLimit))
	if f.cfg.TagSlug != "" {
		q.Set("tag_slug", f.cfg.TagSlug)
	}

	var all []gammaMarket
	for offset := 0; ; offset += gammaPageLimit {
		q.Set("offset", fmt.Sprintf("%d", offset))
		u := f.client.gammaBase + gammaMarketsPath + "?" + q.Encode()

		var page []gammaMarket
		if err := f.client.get(ctx, f.client.gammaLimiter, u, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < gammaPageLimit {
			break
		}
	}
	return all, nil
}

// bookSummary is what the feed needs from one CLOB book.
type bookSummary struct {
	bestBid   float64
	bestAsk   float64
	depthUSDC float64
}

func (b bookSummary) spread() float64 {
	if b.bestBid == 0 || b.bestAsk == 0 {
		return 1 // empty side: worst possible spread, filter will reject
	}
	return b.bestAsk - b.bestBid
}

// fetchBook retrieves and summarizes the CLOB book for one token.
func (f *Feed) fetchBook(ctx context.Context, tokenID string) (bookSummary, error) {
	u := fmt.Sprintf("%s/book?token_id=%s", f.client.clobBase, url.QueryEscape(tokenID))

	var book clobBook
	if err := f.client.get(ctx, f.client.dataLimiter, u, &book); err != nil {
		return bookSummary{}, err
	}
	return summarizeBook(book), nil
}
