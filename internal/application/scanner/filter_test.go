package scanner_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrShimp/polymarket-robot/internal/application/scanner"
	"github.com/MrShimp/polymarket-robot/internal/domain"
)

func testFilterConfig() scanner.FilterConfig {
	return scanner.FilterConfig{
		MinPrice:           0.90,
		MaxPrice:           0.97,
		MinConfidence:      0.90,
		MaxSpread:          0.03,
		MinLiquidity:       1000,
		MinSecondsToExpiry: 60,
		MaxSecondsToExpiry: 600,
	}
}

func goodCandidate() domain.MarketCandidate {
	return domain.MarketCandidate{
		ContractID:        "0xmarket",
		SideToken:         "token-yes",
		SideLabel:         "Yes",
		Question:          "Bitcoin up this hour?",
		Price:             0.95,
		ImpliedConfidence: 0.97,
		Liquidity:         50000,
		Spread:            0.01,
		SecondsToExpiry:   300,
		ObservedAt:        time.Now().UTC(),
	}
}

func TestAcceptInBandCandidate(t *testing.T) {
	f := scanner.NewFilter(testFilterConfig())
	assert.True(t, f.Accept(goodCandidate()))
	assert.Empty(t, f.Reject(goodCandidate()))
}

func TestRejectReasons(t *testing.T) {
	f := scanner.NewFilter(testFilterConfig())

	cases := []struct {
		name   string
		mutate func(*domain.MarketCandidate)
		want   string
	}{
		{"price below band", func(c *domain.MarketCandidate) { c.Price = 0.85 }, "price_band"},
		{"price above band", func(c *domain.MarketCandidate) { c.Price = 0.99 }, "price_band"},
		{"low confidence", func(c *domain.MarketCandidate) { c.ImpliedConfidence = 0.80 }, "confidence"},
		{"wide spread", func(c *domain.MarketCandidate) { c.Spread = 0.05 }, "spread"},
		{"thin book", func(c *domain.MarketCandidate) { c.Liquidity = 200 }, "liquidity"},
		{"about to resolve", func(c *domain.MarketCandidate) { c.SecondsToExpiry = 30 }, "expiring"},
		{"too far out", func(c *domain.MarketCandidate) { c.SecondsToExpiry = 7200 }, "too_far_out"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := goodCandidate()
			tc.mutate(&c)
			assert.False(t, f.Accept(c))
			assert.Equal(t, tc.want, f.Reject(c))
		})
	}
}

func TestBandEdgesInclusive(t *testing.T) {
	f := scanner.NewFilter(testFilterConfig())

	c := goodCandidate()
	c.Price = 0.90
	assert.True(t, f.Accept(c))

	c.Price = 0.97
	assert.True(t, f.Accept(c))
}

func TestFilterIsDeterministic(t *testing.T) {
	f := scanner.NewFilter(testFilterConfig())
	c := goodCandidate()
	first := f.Accept(c)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, f.Accept(c))
	}
}

func TestApplyPreservesOrder(t *testing.T) {
	f := scanner.NewFilter(testFilterConfig())

	a := goodCandidate()
	a.ContractID = "0xa"
	bad := goodCandidate()
	bad.ContractID = "0xbad"
	bad.Liquidity = 10
	b := goodCandidate()
	b.ContractID = "0xb"

	got := f.Apply([]domain.MarketCandidate{a, bad, b})
	assert.Len(t, got, 2)
	assert.Equal(t, "0xa", got[0].ContractID)
	assert.Equal(t, "0xb", got[1].ContractID)
}
