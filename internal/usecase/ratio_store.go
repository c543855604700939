package usecase

import (
	"sort"
	"sync"
	"time"

	"github.com/vitos/index_ratio_monitor/internal/domain"
	"go.uber.org/zap"
)

// RatioStore is the single authoritative mutable state: latest prices,
// derived ratios and crossing counters. It is written by one ingestion
// goroutine and read concurrently through Snapshot(); no caller ever gets a
// live reference.
type RatioStore struct {
	mu          sync.Mutex
	instruments map[string]domain.Instrument
	pairs       []domain.RatioPair
	prices      map[string]domain.PriceQuote
	ratios      map[string]RatioValue
	counters    map[string][]domain.ThresholdCounts // aligned with pair.Thresholds
	dropped     uint64
	lastTick    time.Time

	notify func()
	logger *zap.Logger
}

func NewRatioStore(instruments []domain.Instrument, pairs []domain.RatioPair, logger *zap.Logger) *RatioStore {
	s := &RatioStore{
		instruments: make(map[string]domain.Instrument, len(instruments)),
		pairs:       make([]domain.RatioPair, len(pairs)),
		prices:      make(map[string]domain.PriceQuote),
		ratios:      make(map[string]RatioValue),
		counters:    make(map[string][]domain.ThresholdCounts),
		logger:      logger,
	}
	for _, inst := range instruments {
		s.instruments[inst.ID] = inst
	}
	copy(s.pairs, pairs)
	for i := range s.pairs {
		p := &s.pairs[i]
		ts := make([]float64, len(p.Thresholds))
		copy(ts, p.Thresholds)
		sort.Float64s(ts)
		p.Thresholds = ts

		counts := make([]domain.ThresholdCounts, len(ts))
		for j, t := range ts {
			counts[j] = domain.ThresholdCounts{Threshold: t}
		}
		s.counters[p.ID] = counts
	}
	return s
}

// OnChange registers a hook invoked after every mutation, outside the lock.
// The hook must not block; the dispatcher's Notify satisfies that.
func (s *RatioStore) OnChange(fn func()) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// ApplyPriceUpdate records a tick and recomputes every ratio pair touching
// the instrument, as one atomic unit. Crossings found while recomputing are
// counted and returned so the caller can journal them off the ingestion path.
func (s *RatioStore) ApplyPriceUpdate(u domain.PriceUpdate) []domain.Crossing {
	s.mu.Lock()
	if _, ok := s.instruments[u.InstrumentID]; !ok || u.Price <= 0 {
		s.dropped++
		s.mu.Unlock()
		s.logger.Debug("Dropping tick",
			zap.String("instrument", u.InstrumentID),
			zap.Float64("price", u.Price))
		return nil
	}

	now := time.Now()
	s.prices[u.InstrumentID] = domain.PriceQuote{Value: u.Price, At: u.At}
	s.lastTick = now

	var crossed []domain.Crossing
	for i := range s.pairs {
		p := &s.pairs[i]
		if p.NumeratorID != u.InstrumentID && p.DenominatorID != u.InstrumentID {
			continue
		}
		num, okNum := s.prices[p.NumeratorID]
		den, okDen := s.prices[p.DenominatorID]
		if !okNum || !okDen {
			// Other leg unpriced: the ratio stays unavailable, never zero.
			continue
		}

		next := num.Value / den.Value
		hits := DetectCrossings(s.ratios[p.ID], next, p.Thresholds)
		counts := s.counters[p.ID]
		for _, h := range hits {
			for j := range counts {
				if counts[j].Threshold == h.Threshold {
					if h.Direction == domain.DirectionUp {
						counts[j].Up++
					} else {
						counts[j].Down++
					}
					break
				}
			}
			h.PairID = p.ID
			h.At = now
			crossed = append(crossed, h)
		}
		s.ratios[p.ID] = RatioValue{Value: next, Valid: true}
	}
	notify := s.notify
	s.mu.Unlock()

	for _, c := range crossed {
		s.logger.Info("Threshold crossed",
			zap.String("pair", c.PairID),
			zap.Float64("threshold", c.Threshold),
			zap.String("direction", string(c.Direction)),
			zap.Float64("ratio", c.Ratio))
	}

	if notify != nil {
		notify()
	}
	return crossed
}

// NoteDroppedTick counts a tick discarded before reaching the store
// (unknown instrument, malformed payload, overflow).
func (s *RatioStore) NoteDroppedTick() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the state at one consistent instant.
func (s *RatioStore) Snapshot() *domain.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &domain.StateSnapshot{
		Prices:       make(map[string]domain.PriceQuote, len(s.prices)),
		Ratios:       make([]domain.RatioSnapshot, 0, len(s.pairs)),
		DroppedTicks: s.dropped,
		LastTick:     s.lastTick,
		TakenAt:      time.Now(),
	}
	for id, q := range s.prices {
		snap.Prices[id] = q
	}
	for i := range s.pairs {
		p := &s.pairs[i]
		r := s.ratios[p.ID]
		counts := make([]domain.ThresholdCounts, len(s.counters[p.ID]))
		copy(counts, s.counters[p.ID])
		snap.Ratios = append(snap.Ratios, domain.RatioSnapshot{
			PairID:    p.ID,
			Value:     r.Value,
			Available: r.Valid,
			Counters:  counts,
		})
	}
	return snap
}
