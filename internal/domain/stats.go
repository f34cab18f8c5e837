package domain

import "time"

// SessionStats aggregates archived trades for reporting.
type SessionStats struct {
	TotalTrades  int
	Wins         int
	Losses       int
	Failed       int // positions that ended in Failed
	Unreconciled int // Failed with capital possibly still at risk
	NetPnL       float64
	FirstClosed  time.Time
	LastClosed   time.Time
}

// WinRate returns wins over decided trades, 0 when nothing is decided yet.
func (s SessionStats) WinRate() float64 {
	decided := s.Wins + s.Losses
	if decided == 0 {
		return 0
	}
	return float64(s.Wins) / float64(decided)
}
