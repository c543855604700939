package domain

import "time"

// PriceQuote is the latest known price of one instrument.
type PriceQuote struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// ThresholdCounts carries the monotonic crossing counters for one threshold.
type ThresholdCounts struct {
	Threshold float64 `json:"threshold"`
	Up        uint64  `json:"up"`
	Down      uint64  `json:"down"`
}

// RatioSnapshot is one pair's ratio at the snapshot instant. Available is
// false until both legs have reported a price; Value is meaningless then.
type RatioSnapshot struct {
	PairID    string            `json:"pair"`
	Value     float64           `json:"value"`
	Available bool              `json:"available"`
	Counters  []ThresholdCounts `json:"counters"`
}

// StateSnapshot is an immutable, internally consistent copy of the full
// monitor state. Sinks only ever see snapshots, never the live store.
type StateSnapshot struct {
	Prices       map[string]PriceQuote `json:"prices"`
	Ratios       []RatioSnapshot       `json:"ratios"`
	DroppedTicks uint64                `json:"dropped_ticks"`
	LastTick     time.Time             `json:"last_tick"` // zero before first tick
	TakenAt      time.Time             `json:"taken_at"`
}

// Ratio returns the snapshot entry for a pair id.
func (s *StateSnapshot) Ratio(pairID string) (RatioSnapshot, bool) {
	for _, r := range s.Ratios {
		if r.PairID == pairID {
			return r, true
		}
	}
	return RatioSnapshot{}, false
}

// Price returns the quote for an instrument id.
func (s *StateSnapshot) Price(instrumentID string) (PriceQuote, bool) {
	q, ok := s.Prices[instrumentID]
	return q, ok
}

// Age reports time since the last tick, so consumers can tell a quiet
// market from a dead feed. Returns false before the first tick.
func (s *StateSnapshot) Age(now time.Time) (time.Duration, bool) {
	if s.LastTick.IsZero() {
		return 0, false
	}
	return now.Sub(s.LastTick), true
}
