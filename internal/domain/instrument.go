package domain

import "time"

type Kind string

const (
	KindFuture Kind = "future"
	KindCash   Kind = "cash"
)

// Canonical instrument ids used across the process. Resolved once at startup.
const (
	InstrumentNiftyFut   = "nifty_fut"
	InstrumentSensexFut  = "sensex_fut"
	InstrumentNiftyCash  = "nifty_cash"
	InstrumentSensexCash = "sensex_cash"
)

// Instrument identifies one subscribable contract or index on the feed.
type Instrument struct {
	ID            string `json:"id"`
	Exchange      string `json:"exchange"` // NSE or BSE
	Segment       string `json:"segment"`  // CASH or FNO
	ExchangeToken string `json:"exchange_token"`
	Kind          Kind   `json:"kind"`
	Index         string `json:"index"` // NIFTY or SENSEX
}

// PriceUpdate is one normalized tick. The timestamp is the event time as
// reported by the feed and is used for display only; ordering correctness
// relies on arrival order into the store.
type PriceUpdate struct {
	InstrumentID string
	Price        float64
	At           time.Time
}
