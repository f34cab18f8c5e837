package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, IsTransient(ErrRateLimited))
	assert.True(t, IsTransient(ErrTimeout))
	assert.True(t, IsTransient(fmt.Errorf("submit: %w", ErrVenueUnknown)))
	assert.False(t, IsTransient(ErrInvalidPrice))

	assert.True(t, IsRejection(ErrInsufficientBalance))
	assert.True(t, IsRejection(ErrMarketClosed))
	assert.False(t, IsRejection(ErrTimeout))

	assert.True(t, IsAmbiguous(fmt.Errorf("submit: %w", ErrTimeout)))
	assert.False(t, IsAmbiguous(ErrRateLimited), "rate limit means the order never landed")
}

func TestOrderResult_Filled(t *testing.T) {
	assert.True(t, OrderResult{Accepted: true, FilledQuantity: 3}.Filled())
	assert.False(t, OrderResult{Accepted: true, FilledQuantity: 0}.Filled())
	assert.False(t, OrderResult{Accepted: false, FilledQuantity: 3}.Filled())
}

func TestMarketCandidate_Validate(t *testing.T) {
	good := MarketCandidate{
		ContractID:      "0xabc",
		SideToken:       "tok",
		Price:           0.95,
		SecondsToExpiry: 300,
		ObservedAt:      time.Now(),
	}
	assert.NoError(t, good.Validate())

	bad := good
	bad.Price = 1.0
	assert.Error(t, bad.Validate())

	bad = good
	bad.Price = 0
	assert.Error(t, bad.Validate())

	bad = good
	bad.SideToken = ""
	assert.Error(t, bad.Validate())

	bad = good
	bad.SecondsToExpiry = 0
	assert.Error(t, bad.Validate())
}
