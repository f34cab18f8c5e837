package polymarket

import "encoding/json"

// gammaMarket is the Gamma /markets DTO, trimmed to the fields the feed uses.
// outcomePrices and clobTokenIds arrive as JSON-encoded strings inside the
// JSON document, so they are decoded in a second pass.
type gammaMarket struct {
	ID              string      `json:"id"`
	ConditionID     string      `json:"conditionId"`
	Question        string      `json:"question"`
	Slug            string      `json:"slug"`
	EndDate         string      `json:"endDate"`
	Outcomes        string      `json:"outcomes"`
	OutcomePrices   string      `json:"outcomePrices"`
	CLOBTokenIDs    string      `json:"clobTokenIds"`
	Liquidity       json.Number `json:"liquidityNum"`
	Closed          bool        `json:"closed"`
	AcceptingOrders bool        `json:"acceptingOrders"`
}

// clobBook is the CLOB /book DTO.
type clobBook struct {
	AssetID string          `json:"asset_id"`
	Bids    []clobBookLevel `json:"bids"`
	Asks    []clobBookLevel `json:"asks"`
}

type clobBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// clobPrice is the CLOB /price DTO.
type clobPrice struct {
	Price string `json:"price"`
}

// clobOrderRequest is the body for POST /order. The client-supplied ID is
// forwarded so resubmissions of the same logical order are idempotent.
type clobOrderRequest struct {
	ClientID  string  `json:"client_order_id"`
	TokenID   string  `json:"token_id"`
	Side      string  `json:"side"`
	Size      float64 `json:"size"`
	Price     float64 `json:"price,omitempty"`
	OrderType string  `json:"order_type"` // FOK for entries/exits
}

// clobOrderResponse is the body returned by POST /order and status queries.
type clobOrderResponse struct {
	Success      bool   `json:"success"`
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	Status       string `json:"status"`
	MatchedSize  string `json:"size_matched"`
	AveragePrice string `json:"average_price"`
}

// clobBalanceResponse is the body of GET /balance-allowance.
type clobBalanceResponse struct {
	Balance string `json:"balance"`
}
