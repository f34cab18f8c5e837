package domain

import "time"

// RetrySchedule models retry-with-backoff as data: given an attempt number
// it yields the delay before that attempt. No timers live here, so tests
// exercise the schedule without waiting.
type RetrySchedule struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Exhausted reports whether the given attempt count has used up the budget.
func (s RetrySchedule) Exhausted(attempts int) bool {
	return attempts >= s.MaxAttempts
}

// Delay returns the wait before attempt n (0-based): base, 2×base, 4×base...
// capped at MaxDelay.
func (s RetrySchedule) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return s.BaseDelay
	}
	d := s.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if s.MaxDelay > 0 && d >= s.MaxDelay {
			return s.MaxDelay
		}
	}
	return d
}
