package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/index_ratio_monitor/internal/domain"
	"github.com/vitos/index_ratio_monitor/internal/usecase"
	"go.uber.org/zap"
)

type memoryCrossingRepo struct {
	mu    sync.Mutex
	saved []domain.Crossing
	block chan struct{}
}

func (r *memoryCrossingRepo) SaveCrossing(_ context.Context, c *domain.Crossing) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.saved = append(r.saved, *c)
	r.mu.Unlock()
	return nil
}

func (r *memoryCrossingRepo) ListCrossings(_ context.Context, limit int) ([]*domain.Crossing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Crossing, 0, limit)
	for i := len(r.saved) - 1; i >= 0 && len(out) < limit; i-- {
		c := r.saved[i]
		out = append(out, &c)
	}
	return out, nil
}

func (r *memoryCrossingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

func TestCrossingJournal_PersistsRecordedEvents(t *testing.T) {
	repo := &memoryCrossingRepo{}
	j := usecase.NewCrossingJournal(repo, zap.NewNop())
	j.Start()

	j.Record([]domain.Crossing{
		{PairID: domain.PairFutures, Threshold: 3.25, Direction: domain.DirectionUp, Ratio: 3.27, At: time.Now()},
		{PairID: domain.PairFutures, Threshold: 3.26, Direction: domain.DirectionUp, Ratio: 3.27, At: time.Now()},
	})
	j.Close()

	require.Equal(t, 2, repo.count())
	assert.Equal(t, 3.25, repo.saved[0].Threshold)
	assert.Equal(t, 3.26, repo.saved[1].Threshold)
	assert.Equal(t, uint64(0), j.Dropped())
}

func TestCrossingJournal_RecordNeverBlocks(t *testing.T) {
	repo := &memoryCrossingRepo{block: make(chan struct{})}
	j := usecase.NewCrossingJournal(repo, zap.NewNop())
	j.Start()

	// Writer is stuck on the first save; flood well past the buffer.
	events := []domain.Crossing{{PairID: domain.PairCash, Threshold: 3.25, Direction: domain.DirectionDown, Ratio: 3.2}}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 2000; i++ {
			j.Record(events)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Record blocked on a full journal buffer")
	}

	assert.Greater(t, j.Dropped(), uint64(0))

	close(repo.block)
	j.Close()
}

func TestCrossingJournal_CloseIsIdempotent(t *testing.T) {
	repo := &memoryCrossingRepo{}
	j := usecase.NewCrossingJournal(repo, zap.NewNop())
	j.Start()
	j.Close()
	j.Close()
}
