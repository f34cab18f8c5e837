package paper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrShimp/polymarket-robot/internal/adapters/paper"
	"github.com/MrShimp/polymarket-robot/internal/domain"
)

type fixedPrices struct{ price float64 }

func (f fixedPrices) Price(_ context.Context, _ string) (float64, error) {
	return f.price, nil
}

func TestPaperGateway_BuyThenSell(t *testing.T) {
	gw := paper.NewGateway(fixedPrices{price: 0.99}, paper.Config{StartingBalance: 100})
	ctx := context.Background()

	buy, err := gw.SubmitOrder(ctx, domain.OrderRequest{
		ClientID: "b1", SideToken: "tok", Side: domain.SideBuy, Quantity: 10, LimitPrice: 0.95,
	})
	require.NoError(t, err)
	assert.True(t, buy.Filled())
	assert.InDelta(t, 0.95, buy.AveragePrice, 0.0001, "no slippage configured")

	balance, err := gw.Balance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 100-9.5, balance, 0.001)

	sell, err := gw.SubmitOrder(ctx, domain.OrderRequest{
		ClientID: "s1", SideToken: "tok", Side: domain.SideSell, Quantity: 10,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.99, sell.AveragePrice, 0.0001, "sells fill at the mark price")

	balance, _ = gw.Balance(ctx)
	assert.InDelta(t, 100-9.5+9.9, balance, 0.001)
}

func TestPaperGateway_BuySlippage(t *testing.T) {
	gw := paper.NewGateway(fixedPrices{price: 0.99}, paper.Config{StartingBalance: 100, SlippagePct: 0.01})

	buy, err := gw.SubmitOrder(context.Background(), domain.OrderRequest{
		ClientID: "b1", SideToken: "tok", Side: domain.SideBuy, Quantity: 10, LimitPrice: 0.90,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.909, buy.AveragePrice, 0.0001)
}

func TestPaperGateway_InsufficientBalance(t *testing.T) {
	gw := paper.NewGateway(fixedPrices{price: 0.99}, paper.Config{StartingBalance: 1})

	_, err := gw.SubmitOrder(context.Background(), domain.OrderRequest{
		ClientID: "b1", SideToken: "tok", Side: domain.SideBuy, Quantity: 10, LimitPrice: 0.95,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestPaperGateway_IdempotentResubmission(t *testing.T) {
	gw := paper.NewGateway(fixedPrices{price: 0.99}, paper.Config{StartingBalance: 100})
	ctx := context.Background()

	req := domain.OrderRequest{ClientID: "b1", SideToken: "tok", Side: domain.SideBuy, Quantity: 10, LimitPrice: 0.95}
	first, err := gw.SubmitOrder(ctx, req)
	require.NoError(t, err)
	second, err := gw.SubmitOrder(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID, "same client ID must not fill twice")

	balance, _ := gw.Balance(ctx)
	assert.InDelta(t, 100-9.5, balance, 0.001, "balance debited once")
}

func TestPaperGateway_OrderStatus(t *testing.T) {
	gw := paper.NewGateway(fixedPrices{price: 0.99}, paper.Config{StartingBalance: 100})
	ctx := context.Background()

	_, err := gw.OrderStatus(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	req := domain.OrderRequest{ClientID: "b1", SideToken: "tok", Side: domain.SideBuy, Quantity: 10, LimitPrice: 0.95}
	submitted, err := gw.SubmitOrder(ctx, req)
	require.NoError(t, err)

	status, err := gw.OrderStatus(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, submitted, status)
}
