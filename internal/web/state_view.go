package web

import (
	"time"

	"github.com/vitos/index_ratio_monitor/internal/domain"
)

// stateView is the wire shape of /api/state: the original dashboard fields
// plus counters and staleness. Unavailable values are null, never zero.
type stateView struct {
	NiftyFut     *float64      `json:"nifty_fut"`
	SensexFut    *float64      `json:"sensex_fut"`
	FutRatio     *float64      `json:"fut_ratio"`
	NiftyCash    *float64      `json:"nifty_cash"`
	SensexCash   *float64      `json:"sensex_cash"`
	CashRatio    *float64      `json:"cash_ratio"`
	Counters     []counterView `json:"counters"`
	DroppedTicks uint64        `json:"dropped_ticks"`
	LastUpdate   *time.Time    `json:"last_update"`
	AgeSeconds   *float64      `json:"age_seconds"`
}

type counterView struct {
	Pair      string  `json:"pair"`
	Threshold float64 `json:"threshold"`
	Up        uint64  `json:"up"`
	Down      uint64  `json:"down"`
}

func buildStateView(snap *domain.StateSnapshot) stateView {
	v := stateView{
		NiftyFut:     priceValue(snap, domain.InstrumentNiftyFut),
		SensexFut:    priceValue(snap, domain.InstrumentSensexFut),
		FutRatio:     ratioValue(snap, domain.PairFutures),
		NiftyCash:    priceValue(snap, domain.InstrumentNiftyCash),
		SensexCash:   priceValue(snap, domain.InstrumentSensexCash),
		CashRatio:    ratioValue(snap, domain.PairCash),
		DroppedTicks: snap.DroppedTicks,
	}
	for _, r := range snap.Ratios {
		for _, c := range r.Counters {
			v.Counters = append(v.Counters, counterView{
				Pair:      r.PairID,
				Threshold: c.Threshold,
				Up:        c.Up,
				Down:      c.Down,
			})
		}
	}
	if !snap.LastTick.IsZero() {
		t := snap.LastTick
		v.LastUpdate = &t
		if age, ok := snap.Age(time.Now()); ok {
			secs := age.Seconds()
			v.AgeSeconds = &secs
		}
	}
	return v
}

func priceValue(snap *domain.StateSnapshot, id string) *float64 {
	if q, ok := snap.Price(id); ok {
		val := q.Value
		return &val
	}
	return nil
}

func ratioValue(snap *domain.StateSnapshot, pairID string) *float64 {
	if r, ok := snap.Ratio(pairID); ok && r.Available {
		val := r.Value
		return &val
	}
	return nil
}
