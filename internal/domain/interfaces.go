package domain

import "context"

// Feed delivers a stream of normalized ticks from the market-data transport.
type Feed interface {
	Start(ctx context.Context) error
	Updates() <-chan PriceUpdate
	Close() error
}

// SnapshotPusher delivers a snapshot to an external sink (e.g. a spreadsheet).
// Implementations must respect ctx cancellation; the dispatcher bounds every
// push with a timeout.
type SnapshotPusher interface {
	Push(ctx context.Context, snap *StateSnapshot) error
}

// CrossingRepository defines storage operations for the crossing journal.
type CrossingRepository interface {
	SaveCrossing(ctx context.Context, c *Crossing) error
	ListCrossings(ctx context.Context, limit int) ([]*Crossing, error)
}
