package ports

import (
	"context"

	"github.com/MrShimp/polymarket-robot/internal/domain"
)

// OrderGateway submits orders to the venue. It is an opaque remote call
// boundary: no signing or routing logic leaks into the engine.
//
// The gateway itself never retries — retry policy belongs to the caller.
// Callers must not double-submit: on an ambiguous failure they either query
// OrderStatus first or resubmit with the same request ClientID, which the
// venue treats as idempotent.
type OrderGateway interface {
	// SubmitOrder sends one order and reports the outcome. A nil error with
	// Accepted=false is an explicit venue rejection (FailureReason set).
	// A non-nil error is classified by the domain taxonomy; on
	// domain.ErrTimeout the order may or may not have landed.
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)

	// CancelOrder cancels a resting order by venue order ID.
	CancelOrder(ctx context.Context, orderID string) error

	// OrderStatus resolves the current venue-side state of an order placed
	// with the given client ID. Returns domain.ErrOrderNotFound if the venue
	// never saw it.
	OrderStatus(ctx context.Context, clientID string) (domain.OrderResult, error)

	// Balance returns the available quote-currency balance.
	Balance(ctx context.Context) (float64, error)
}
