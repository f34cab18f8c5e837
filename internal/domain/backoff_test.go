package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrySchedule_ExponentialDelays(t *testing.T) {
	s := RetrySchedule{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}

	assert.Equal(t, 500*time.Millisecond, s.Delay(0))
	assert.Equal(t, time.Second, s.Delay(1))
	assert.Equal(t, 2*time.Second, s.Delay(2))
	assert.Equal(t, 4*time.Second, s.Delay(3))
}

func TestRetrySchedule_CapsAtMaxDelay(t *testing.T) {
	s := RetrySchedule{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, 5*time.Second, s.Delay(6))
}

func TestRetrySchedule_Exhausted(t *testing.T) {
	s := RetrySchedule{MaxAttempts: 3}
	assert.False(t, s.Exhausted(2))
	assert.True(t, s.Exhausted(3))
	assert.True(t, s.Exhausted(4))
}
