package paper

// Simulated order gateway for dry runs: same interface as the live CLOB
// gateway, no real money. Buys fill at the limit price plus configured
// slippage; sells fill at the current feed price. Every fill is recorded so
// status queries behave like the venue's.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrShimp/polymarket-robot/internal/domain"
	"github.com/MrShimp/polymarket-robot/internal/ports"
)

// Config controls the simulation.
type Config struct {
	StartingBalance float64
	SlippagePct     float64 // applied against the taker on buys, e.g. 0.002
}

// Gateway implements ports.OrderGateway against an in-memory book of fills.
type Gateway struct {
	prices ports.PriceProvider
	cfg    Config

	mu      sync.Mutex
	balance float64
	orders  map[string]domain.OrderResult // clientID → result
	seq     int
}

// NewGateway creates a paper gateway that prices sells off the given provider.
func NewGateway(prices ports.PriceProvider, cfg Config) *Gateway {
	if cfg.StartingBalance <= 0 {
		cfg.StartingBalance = 100
	}
	return &Gateway{
		prices:  prices,
		cfg:     cfg,
		balance: cfg.StartingBalance,
		orders:  make(map[string]domain.OrderResult),
	}
}

// SubmitOrder fills the order immediately. Resubmitting a client ID already
// on file returns the recorded result instead of filling twice, matching
// the venue's idempotency contract.
func (g *Gateway) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.orders[req.ClientID]; ok {
		return prev, nil
	}

	var fillPrice float64
	switch req.Side {
	case domain.SideBuy:
		fillPrice = req.LimitPrice * (1 + g.cfg.SlippagePct)
		if fillPrice > 0.999 {
			fillPrice = 0.999
		}
		cost := fillPrice * req.Quantity
		if cost > g.balance {
			return domain.OrderResult{}, fmt.Errorf("paper.SubmitOrder: %w", domain.ErrInsufficientBalance)
		}
		g.balance -= cost
	case domain.SideSell:
		p, err := g.prices.Price(ctx, req.SideToken)
		if err != nil {
			return domain.OrderResult{}, fmt.Errorf("paper.SubmitOrder: mark price: %w", err)
		}
		fillPrice = p
		g.balance += fillPrice * req.Quantity
	default:
		return domain.OrderResult{}, fmt.Errorf("paper.SubmitOrder: unknown side %q", req.Side)
	}

	g.seq++
	result := domain.OrderResult{
		Accepted:       true,
		OrderID:        fmt.Sprintf("paper-%04d", g.seq),
		FilledQuantity: req.Quantity,
		AveragePrice:   fillPrice,
	}
	g.orders[req.ClientID] = result

	slog.Debug("paper: order filled",
		"client_id", req.ClientID,
		"side", req.Side,
		"qty", fmt.Sprintf("%.2f", req.Quantity),
		"price", fmt.Sprintf("%.4f", fillPrice),
		"balance", fmt.Sprintf("$%.2f", g.balance),
	)
	return result, nil
}

// CancelOrder is a no-op: paper fills are immediate, nothing rests.
func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

// OrderStatus returns the recorded fill for a client ID.
func (g *Gateway) OrderStatus(ctx context.Context, clientID string) (domain.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	result, ok := g.orders[clientID]
	if !ok {
		return domain.OrderResult{}, fmt.Errorf("paper.OrderStatus: %s: %w", clientID, domain.ErrOrderNotFound)
	}
	return result, nil
}

// Balance returns the simulated USDC balance.
func (g *Gateway) Balance(ctx context.Context) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balance, nil
}
