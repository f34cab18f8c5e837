package polymarket

// gateway.go — ports.OrderGateway over the CLOB REST API.
//
// The gateway is a thin boundary: one request per call, no retries, no
// state. Idempotency relies on forwarding the caller's client order ID;
// the venue deduplicates resubmissions that carry the same one.

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/MrShimp/polymarket-robot/internal/domain"
)

const (
	orderPath   = "/order"
	balancePath = "/balance-allowance"
)

// Gateway implements ports.OrderGateway.
type Gateway struct {
	client *Client
}

// NewGateway creates a Gateway over the given client.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

// SubmitOrder sends one fill-or-kill order. A response with success=false
// is an explicit rejection: Accepted=false, nil error. Transport failures
// surface through the domain taxonomy; on ErrTimeout the caller must
// reconcile via OrderStatus before concluding anything.
func (g *Gateway) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	body := clobOrderRequest{
		ClientID:  req.ClientID,
		TokenID:   req.SideToken,
		Side:      string(req.Side),
		Size:      req.Quantity,
		Price:     req.LimitPrice,
		OrderType: "FOK",
	}

	var resp clobOrderResponse
	u := g.client.clobBase + orderPath
	if err := g.client.post(ctx, g.client.orderLimiter, u, body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("gateway.SubmitOrder: %w", err)
	}
	return mapOrderResponse(resp), nil
}

// CancelOrder cancels a resting order by venue order ID.
func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	u := fmt.Sprintf("%s%s?id=%s", g.client.clobBase, orderPath, url.QueryEscape(orderID))
	if err := g.client.del(ctx, g.client.orderLimiter, u); err != nil {
		return fmt.Errorf("gateway.CancelOrder: %w", err)
	}
	return nil
}

// OrderStatus looks up an order by the client ID it was submitted with.
// Used to reconcile ambiguous timeouts: ErrOrderNotFound means the
// submission never reached the venue.
func (g *Gateway) OrderStatus(ctx context.Context, clientID string) (domain.OrderResult, error) {
	u := fmt.Sprintf("%s%s?client_order_id=%s", g.client.clobBase, orderPath, url.QueryEscape(clientID))

	var resp clobOrderResponse
	if err := g.client.get(ctx, g.client.dataLimiter, u, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("gateway.OrderStatus: %w", err)
	}
	return mapOrderResponse(resp), nil
}

// Balance returns the available USDC balance on the CLOB.
func (g *Gateway) Balance(ctx context.Context) (float64, error) {
	u := g.client.clobBase + balancePath + "?asset_type=COLLATERAL"

	var resp clobBalanceResponse
	if err := g.client.get(ctx, g.client.dataLimiter, u, &resp); err != nil {
		return 0, fmt.Errorf("gateway.Balance: %w", err)
	}
	v, err := parseDecimal(resp.Balance)
	if err != nil {
		return 0, fmt.Errorf("gateway.Balance: bad balance %q", resp.Balance)
	}
	// CLOB reports collateral in micro-USDC.
	return v / 1e6, nil
}

// mapOrderResponse converts the venue DTO into a domain OrderResult.
func mapOrderResponse(resp clobOrderResponse) domain.OrderResult {
	result := domain.OrderResult{
		Accepted:      resp.Success && !strings.EqualFold(resp.Status, "unmatched"),
		OrderID:       resp.OrderID,
		FailureReason: resp.ErrorMsg,
	}
	if v, err := parseDecimal(resp.MatchedSize); err == nil {
		result.FilledQuantity = v
	}
	if v, err := parseDecimal(resp.AveragePrice); err == nil {
		result.AveragePrice = v
	}
	return result
}
