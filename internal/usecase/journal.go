package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vitos/index_ratio_monitor/internal/domain"
	"go.uber.org/zap"
)

const journalBuffer = 256

// CrossingJournal persists crossing events to the repository off the
// ingestion path. Record never blocks: when the buffer is full the event is
// dropped and counted, because persistence must not stall ticks.
type CrossingJournal struct {
	repo    domain.CrossingRepository
	logger  *zap.Logger
	events  chan domain.Crossing
	dropped atomic.Uint64
	wg      sync.WaitGroup
	once    sync.Once
}

func NewCrossingJournal(repo domain.CrossingRepository, logger *zap.Logger) *CrossingJournal {
	return &CrossingJournal{
		repo:   repo,
		logger: logger,
		events: make(chan domain.Crossing, journalBuffer),
	}
}

// Start launches the writer goroutine. It drains until Close.
func (j *CrossingJournal) Start() {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for c := range j.events {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := j.repo.SaveCrossing(ctx, &c)
			cancel()
			if err != nil {
				j.logger.Error("failed to persist crossing",
					zap.String("pair", c.PairID),
					zap.Float64("threshold", c.Threshold),
					zap.Error(err))
			}
		}
	}()
}

// Record enqueues crossings without blocking.
func (j *CrossingJournal) Record(crossings []domain.Crossing) {
	for _, c := range crossings {
		select {
		case j.events <- c:
		default:
			j.dropped.Add(1)
		}
	}
}

// Dropped reports how many events were lost to a full buffer.
func (j *CrossingJournal) Dropped() uint64 {
	return j.dropped.Load()
}

// Close flushes the buffer and stops the writer. Record must not be called
// after Close; stop the feed first.
func (j *CrossingJournal) Close() {
	j.once.Do(func() {
		close(j.events)
	})
	j.wg.Wait()
}
