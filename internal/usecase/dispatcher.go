package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vitos/index_ratio_monitor/internal/domain"
	"go.uber.org/zap"
)

// Snapshotter is the read side of the store the dispatcher fans out from.
type Snapshotter interface {
	Snapshot() *domain.StateSnapshot
}

// Mailbox is a capacity-one snapshot channel for a push-on-change consumer.
// A slow consumer only ever sees the latest snapshot; intermediates are
// dropped silently and delivery never blocks ingestion.
type Mailbox struct {
	ch chan *domain.StateSnapshot
}

// Snapshots returns the delivery channel. It is closed on Unsubscribe and on
// dispatcher shutdown.
func (m *Mailbox) Snapshots() <-chan *domain.StateSnapshot {
	return m.ch
}

type throttledSink struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	pusher   domain.SnapshotPusher
	dirty    atomic.Bool
}

// Dispatcher fans snapshots out to heterogeneous consumers: latest-wins
// mailboxes for push-on-change subscribers and independent timer loops for
// throttled external sinks. Notify is wired as the store's change hook and
// never blocks.
type Dispatcher struct {
	source Snapshotter
	logger *zap.Logger

	mu        sync.Mutex
	mailboxes map[*Mailbox]struct{}
	sinks     []*throttledSink
	started   atomic.Bool
	wg        sync.WaitGroup
}

func NewDispatcher(source Snapshotter, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		source:    source,
		logger:    logger,
		mailboxes: make(map[*Mailbox]struct{}),
	}
}

// Subscribe registers a push-on-change consumer and returns its mailbox.
// Call the store's Snapshot directly for the initial paint.
func (d *Dispatcher) Subscribe() *Mailbox {
	m := &Mailbox{ch: make(chan *domain.StateSnapshot, 1)}
	d.mu.Lock()
	d.mailboxes[m] = struct{}{}
	d.mu.Unlock()
	return m
}

// Unsubscribe removes the mailbox and closes its channel.
func (d *Dispatcher) Unsubscribe(m *Mailbox) {
	d.mu.Lock()
	if _, ok := d.mailboxes[m]; ok {
		delete(d.mailboxes, m)
		close(m.ch)
	}
	d.mu.Unlock()
}

// AddThrottledSink registers an external sink pushed at most once per
// interval, always with the snapshot current at push time. Must be called
// before Start.
func (d *Dispatcher) AddThrottledSink(name string, interval, timeout time.Duration, pusher domain.SnapshotPusher) {
	d.mu.Lock()
	d.sinks = append(d.sinks, &throttledSink{
		name:     name,
		interval: interval,
		timeout:  timeout,
		pusher:   pusher,
	})
	d.mu.Unlock()
}

// Start launches one timer loop per throttled sink. Cancelling ctx stops the
// loops; Wait blocks until they have drained.
func (d *Dispatcher) Start(ctx context.Context) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	d.mu.Lock()
	sinks := d.sinks
	d.mu.Unlock()
	for _, s := range sinks {
		d.wg.Add(1)
		go func(s *throttledSink) {
			defer d.wg.Done()
			d.runSink(ctx, s)
		}(s)
	}
}

// Wait blocks until all sink loops have stopped, then closes every mailbox.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
	d.mu.Lock()
	for m := range d.mailboxes {
		delete(d.mailboxes, m)
		close(m.ch)
	}
	d.mu.Unlock()
}

// Notify marks every registered consumer. It takes one snapshot, fills the
// mailboxes with latest-wins semantics, and flags the throttled sinks dirty.
// All sends are non-blocking; this is safe to call from the ingestion path.
func (d *Dispatcher) Notify() {
	snap := d.source.Snapshot()

	d.mu.Lock()
	for m := range d.mailboxes {
		select {
		case m.ch <- snap:
		default:
			// Slot occupied: drop the stale snapshot, keep the newest.
			select {
			case <-m.ch:
			default:
			}
			select {
			case m.ch <- snap:
			default:
			}
		}
	}
	sinks := d.sinks
	d.mu.Unlock()

	for _, s := range sinks {
		s.dirty.Store(true)
	}
}

func (d *Dispatcher) runSink(ctx context.Context, s *throttledSink) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.dirty.CompareAndSwap(true, false) {
				continue
			}
			// Snapshot taken at push time, never a buffered intermediate.
			snap := d.source.Snapshot()
			pushCtx, cancel := context.WithTimeout(ctx, s.timeout)
			err := s.pusher.Push(pushCtx, snap)
			cancel()
			if err != nil {
				d.logger.Warn("sink push failed, will retry on next tick",
					zap.String("sink", s.name), zap.Error(err))
				s.dirty.Store(true)
			}
		}
	}
}
