package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/vitos/index_ratio_monitor/internal/domain"
)

// Feed frame types.
const (
	frameLTP        = "ltp"
	frameIndexValue = "index_value"
)

// feedFrame is the raw wire shape: a frame type plus a nested
// exchange -> segment -> exchange_token map of price nodes.
type feedFrame struct {
	FeedType    string                                           `json:"feed_type"`
	FeedTypeAlt string                                           `json:"feedType"`
	LTP         map[string]map[string]map[string]json.RawMessage `json:"ltp"`
	IndexValue  map[string]map[string]map[string]json.RawMessage `json:"index_value"`
	Timestamp   int64                                            `json:"tsInMillis"`
}

// Normalizer converts raw feed frames into PriceUpdates for subscribed
// instruments. Pure transform, no I/O; unsubscribed tokens and invalid
// prices are discarded and counted.
type Normalizer struct {
	byKey   map[string]domain.Instrument
	unknown atomic.Uint64
	invalid atomic.Uint64
}

func NewNormalizer(instruments []domain.Instrument) *Normalizer {
	n := &Normalizer{byKey: make(map[string]domain.Instrument, len(instruments))}
	for _, inst := range instruments {
		n.byKey[instrumentKey(inst.Exchange, inst.Segment, inst.ExchangeToken)] = inst
	}
	return n
}

func instrumentKey(exchange, segment, token string) string {
	return exchange + "|" + segment + "|" + token
}

// UnknownDropped counts frames for tokens we never subscribed to.
func (n *Normalizer) UnknownDropped() uint64 { return n.unknown.Load() }

// InvalidDropped counts frames with missing or non-positive prices.
func (n *Normalizer) InvalidDropped() uint64 { return n.invalid.Load() }

// Normalize parses one raw frame. A frame can carry several instruments;
// each valid one yields a PriceUpdate.
func (n *Normalizer) Normalize(raw []byte) ([]domain.PriceUpdate, error) {
	var frame feedFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("malformed feed frame: %w", err)
	}

	frameType := frame.FeedType
	if frameType == "" {
		frameType = frame.FeedTypeAlt
	}

	at := time.Now()
	if frame.Timestamp > 0 {
		at = time.UnixMilli(frame.Timestamp)
	}

	var nodes map[string]map[string]map[string]json.RawMessage
	switch frameType {
	case frameLTP:
		nodes = frame.LTP
	case frameIndexValue:
		nodes = frame.IndexValue
	default:
		// Heartbeats, subscription acks and the like.
		return nil, nil
	}

	var updates []domain.PriceUpdate
	for exchange, segments := range nodes {
		for segment, tokens := range segments {
			for token, node := range tokens {
				inst, ok := n.byKey[instrumentKey(exchange, segment, token)]
				if !ok {
					n.unknown.Add(1)
					continue
				}
				price, ok := extractPrice(node, frameType)
				if !ok || price <= 0 {
					n.invalid.Add(1)
					continue
				}
				updates = append(updates, domain.PriceUpdate{
					InstrumentID: inst.ID,
					Price:        price,
					At:           at,
				})
			}
		}
	}
	return updates, nil
}

// ltpKeys are the price field names seen on ltp frames, in preference order.
var ltpKeys = []string{"ltp", "lastPrice", "last_price", "last", "close"}

// extractPrice reads the price from a token node. The node is usually an
// object keyed by frame type, but the BSE variant sends a bare number.
func extractPrice(node json.RawMessage, frameType string) (float64, bool) {
	var direct float64
	if err := json.Unmarshal(node, &direct); err == nil {
		return direct, true
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(node, &fields); err != nil {
		return 0, false
	}

	keys := ltpKeys
	if frameType == frameIndexValue {
		keys = []string{"value"}
	}
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		if v, ok := parseNumber(raw); ok {
			return v, true
		}
	}
	return 0, false
}

// parseNumber accepts a JSON number or a numeric string.
func parseNumber(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
