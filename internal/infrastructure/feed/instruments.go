package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/vitos/index_ratio_monitor/internal/domain"
	"go.uber.org/zap"
)

const DefaultInstrumentCSVURL = "https://growwapi-assets.groww.in/instruments/instrument.csv"

// The two index legs are fixed identifiers on the feed.
var (
	niftyIndex = domain.Instrument{
		ID: domain.InstrumentNiftyCash, Exchange: "NSE", Segment: "CASH",
		ExchangeToken: "NIFTY", Kind: domain.KindCash, Index: "NIFTY",
	}
	sensexIndex = domain.Instrument{
		ID: domain.InstrumentSensexCash, Exchange: "BSE", Segment: "CASH",
		ExchangeToken: "1", Kind: domain.KindCash, Index: "SENSEX",
	}
)

// ContractRow is one row of the exchange instrument CSV.
type ContractRow struct {
	Exchange      string
	Segment       string
	TradingSymbol string
	ExchangeToken string
	Expiry        time.Time
}

// Overrides short-circuit contract resolution with fixed exchange tokens.
type Overrides struct {
	NiftyFutToken  string
	SensexFutToken string
}

// Resolver determines the four subscribable instruments: the two fixed cash
// indices plus the nearest-expiry futures contract per index, selected from
// the instrument CSV unless overridden.
type Resolver struct {
	client *http.Client
	url    string
	logger *zap.Logger
}

func NewResolver(url string, logger *zap.Logger) *Resolver {
	if url == "" {
		url = DefaultInstrumentCSVURL
	}
	return &Resolver{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    url,
		logger: logger,
	}
}

// Resolve returns the full instrument set. The CSV is only downloaded when
// at least one futures token is not overridden.
func (r *Resolver) Resolve(ctx context.Context, ov Overrides) ([]domain.Instrument, error) {
	niftyTok := ov.NiftyFutToken
	sensexTok := ov.SensexFutToken
	sensexExchange := "NSE"

	if niftyTok == "" || sensexTok == "" {
		rows, err := r.download(ctx)
		if err != nil {
			return nil, fmt.Errorf("download instrument csv: %w", err)
		}
		today := time.Now()
		if niftyTok == "" {
			niftyTok, err = NearestFuture(rows, []string{"NIFTY"}, "NSE", today)
			if err != nil {
				return nil, fmt.Errorf("resolve NIFTY future: %w", err)
			}
		}
		if sensexTok == "" {
			sensexTok, err = NearestFuture(rows, []string{"SENSEX", "BFSENSEX"}, "NSE", today)
			if err != nil {
				// Sensex futures trade on BSE when not listed on NSE.
				sensexTok, err = NearestFuture(rows, []string{"SENSEX", "BFSENSEX"}, "BSE", today)
				if err != nil {
					return nil, fmt.Errorf("resolve SENSEX future: %w", err)
				}
				sensexExchange = "BSE"
			}
		}
	}

	r.logger.Info("resolved futures contracts",
		zap.String("nifty_fut_token", niftyTok),
		zap.String("sensex_fut_token", sensexTok),
		zap.String("sensex_fut_exchange", sensexExchange))

	return []domain.Instrument{
		{
			ID: domain.InstrumentNiftyFut, Exchange: "NSE", Segment: "FNO",
			ExchangeToken: niftyTok, Kind: domain.KindFuture, Index: "NIFTY",
		},
		{
			ID: domain.InstrumentSensexFut, Exchange: sensexExchange, Segment: "FNO",
			ExchangeToken: sensexTok, Kind: domain.KindFuture, Index: "SENSEX",
		},
		niftyIndex,
		sensexIndex,
	}, nil
}

func (r *Resolver) download(ctx context.Context) ([]ContractRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return ParseContractCSV(resp.Body)
}

// ParseContractCSV reads the instrument CSV, keeping only FNO rows with a
// parseable expiry. Rows with missing columns are skipped, not fatal.
func ParseContractCSV(in io.Reader) ([]ContractRow, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"exchange", "segment", "trading_symbol", "exchange_token", "expiry_date"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv missing column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i := col[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []ContractRow
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if field(rec, "segment") != "FNO" {
			continue
		}
		expiry, err := parseExpiry(field(rec, "expiry_date"))
		if err != nil {
			continue
		}
		rows = append(rows, ContractRow{
			Exchange:      field(rec, "exchange"),
			Segment:       "FNO",
			TradingSymbol: field(rec, "trading_symbol"),
			ExchangeToken: field(rec, "exchange_token"),
			Expiry:        expiry,
		})
	}
	return rows, nil
}

func parseExpiry(s string) (time.Time, error) {
	if len(s) < 10 {
		return time.Time{}, fmt.Errorf("expiry too short: %q", s)
	}
	return time.Parse("2006-01-02", s[:10])
}

// NearestFuture picks the exchange token of the nearest-expiry non-expired
// futures contract whose trading symbol starts with one of the prefixes.
func NearestFuture(rows []ContractRow, prefixes []string, exchange string, today time.Time) (string, error) {
	day := today.Truncate(24 * time.Hour)

	var candidates []ContractRow
	for _, row := range rows {
		if row.Exchange != exchange || row.Segment != "FNO" {
			continue
		}
		if row.Expiry.Before(day) {
			continue
		}
		sym := row.TradingSymbol
		if !strings.Contains(strings.ToUpper(sym), "FUT") {
			continue
		}
		matched := false
		for _, p := range prefixes {
			if strings.HasPrefix(sym, p) {
				matched = true
				break
			}
		}
		if matched {
			candidates = append(candidates, row)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no %v futures found on %s", prefixes, exchange)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Expiry.Before(candidates[j].Expiry)
	})
	return candidates[0].ExchangeToken, nil
}
