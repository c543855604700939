package usecase

import "github.com/vitos/index_ratio_monitor/internal/domain"

// RatioValue is a ratio that may not exist yet (one leg unpriced).
type RatioValue struct {
	Value float64
	Valid bool
}

// DetectCrossings reports every threshold crossed between prev and next.
//
// Rules:
//   - no previous ratio -> no crossings (a baseline must exist first)
//   - upward: prev strictly below T and next at-or-above T, reported in
//     ascending threshold order
//   - downward: prev strictly above T and next at-or-below T, reported in
//     descending threshold order
//   - equal consecutive ratios report nothing, so landing exactly on a
//     threshold and staying there never double-counts
//
// Comparisons are exact float64: feed prices are exchange-rounded decimals,
// so an epsilon would only blur the counting rule.
// Thresholds must be sorted ascending.
func DetectCrossings(prev RatioValue, next float64, thresholds []float64) []domain.Crossing {
	if !prev.Valid || prev.Value == next {
		return nil
	}

	var hits []domain.Crossing
	if next > prev.Value {
		for _, t := range thresholds {
			if prev.Value < t && next >= t {
				hits = append(hits, domain.Crossing{
					Threshold: t,
					Direction: domain.DirectionUp,
					Ratio:     next,
				})
			}
		}
		return hits
	}

	for i := len(thresholds) - 1; i >= 0; i-- {
		t := thresholds[i]
		if prev.Value > t && next <= t {
			hits = append(hits, domain.Crossing{
				Threshold: t,
				Direction: domain.DirectionDown,
				Ratio:     next,
			})
		}
	}
	return hits
}
