package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vitos/index_ratio_monitor/internal/domain"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://sheets.googleapis.com"

// Pusher writes the snapshot into a Google Sheet as Metric/Value rows via
// the values.update endpoint. It implements domain.SnapshotPusher; the
// dispatcher throttles and retries, this type only does one bounded PUT.
type Pusher struct {
	client  *http.Client
	baseURL string
	sheetID string
	rng     string
	token   string
	logger  *zap.Logger
}

func NewPusher(baseURL, sheetID, rng, token string, timeout time.Duration, logger *zap.Logger) *Pusher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if rng == "" {
		rng = "Sheet1!A1:B16"
	}
	return &Pusher{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		sheetID: sheetID,
		rng:     rng,
		token:   token,
		logger:  logger,
	}
}

func (p *Pusher) Push(ctx context.Context, snap *domain.StateSnapshot) error {
	body, err := json.Marshal(map[string]interface{}{
		"values": rows(snap),
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?valueInputOption=USER_ENTERED",
		p.baseURL, url.PathEscape(p.sheetID), url.PathEscape(p.rng))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sheets update failed: %s: %s", resp.Status, string(msg))
	}
	return nil
}

// rows lays the snapshot out in the fixed tabular shape the sheet expects.
// Unavailable values become empty cells, never zeros.
func rows(snap *domain.StateSnapshot) [][]interface{} {
	out := [][]interface{}{{"Metric", "Value"}}

	price := func(label, id string) {
		if q, ok := snap.Price(id); ok {
			out = append(out, []interface{}{label, q.Value})
		} else {
			out = append(out, []interface{}{label, ""})
		}
	}
	ratio := func(label, pairID string) {
		if r, ok := snap.Ratio(pairID); ok && r.Available {
			out = append(out, []interface{}{label, r.Value})
		} else {
			out = append(out, []interface{}{label, ""})
		}
	}

	price("Nifty Fut", domain.InstrumentNiftyFut)
	price("Sensex Fut", domain.InstrumentSensexFut)
	ratio("Fut Ratio", domain.PairFutures)
	price("Nifty Cash", domain.InstrumentNiftyCash)
	price("Sensex Cash", domain.InstrumentSensexCash)
	ratio("Cash Ratio", domain.PairCash)

	for _, r := range snap.Ratios {
		for _, c := range r.Counters {
			out = append(out,
				[]interface{}{fmt.Sprintf("%s above %.2f", r.PairID, c.Threshold), c.Up},
				[]interface{}{fmt.Sprintf("%s below %.2f", r.PairID, c.Threshold), c.Down},
			)
		}
	}

	if !snap.LastTick.IsZero() {
		out = append(out, []interface{}{"Last Update", snap.LastTick.Format(time.RFC3339)})
	} else {
		out = append(out, []interface{}{"Last Update", ""})
	}
	return out
}
