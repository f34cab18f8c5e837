package domain

import "errors"

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderRequest is submitted to the venue gateway.
// ClientID doubles as the idempotency token: resubmitting the same ClientID
// must not create a second order on venues that honor it.
type OrderRequest struct {
	ClientID   string
	ContractID string
	SideToken  string
	Side       OrderSide
	Quantity   float64  // shares
	LimitPrice float64  // 0 = market
}

// OrderResult is what the gateway reports back for a submission or a status query.
type OrderResult struct {
	Accepted       bool
	OrderID        string
	FilledQuantity float64
	AveragePrice   float64
	FailureReason  string
}

// Filled reports whether the order got any execution.
func (r OrderResult) Filled() bool {
	return r.Accepted && r.FilledQuantity > 0
}

// Venue error taxonomy. Callers branch with errors.Is; everything the
// adapter cannot classify surfaces as ErrVenueUnknown.
var (
	ErrInsufficientBalance = errors.New("venue: insufficient balance")
	ErrInvalidPrice        = errors.New("venue: invalid price")
	ErrMarketClosed        = errors.New("venue: market closed")
	ErrRateLimited         = errors.New("venue: rate limited")
	ErrTimeout             = errors.New("venue: timeout")
	ErrVenueUnknown        = errors.New("venue: unknown error")

	// ErrOrderNotFound is returned by status queries for IDs the venue
	// does not know. During reconciliation it means the submission never landed.
	ErrOrderNotFound = errors.New("venue: order not found")
)

// IsTransient reports whether the error is worth retrying: network-ish
// failures where the venue may well accept the same order a moment later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrVenueUnknown)
}

// IsRejection reports whether the venue explicitly refused the order.
// Rejections are terminal for the attempt: retrying a rejected order is
// futile and risks repeated fees.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrMarketClosed)
}

// IsAmbiguous reports whether the outcome of a submission is unknown:
// the request may or may not have landed. The caller must reconcile via a
// status query before any state transition.
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrTimeout)
}
