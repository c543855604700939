package domain

import "time"

// Canonical ratio pair ids.
const (
	PairFutures = "fut"
	PairCash    = "cash"
)

// RatioPair tracks numerator.price / denominator.price for two instruments.
// Thresholds must be distinct; the store sorts them ascending at startup.
type RatioPair struct {
	ID            string
	NumeratorID   string
	DenominatorID string
	Thresholds    []float64
}

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Crossing records one threshold transition of a ratio.
type Crossing struct {
	PairID    string    `json:"pair"`
	Threshold float64   `json:"threshold"`
	Direction Direction `json:"direction"`
	Ratio     float64   `json:"ratio"`
	At        time.Time `json:"at"`
}
