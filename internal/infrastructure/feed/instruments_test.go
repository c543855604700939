package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/index_ratio_monitor/internal/domain"
	"go.uber.org/zap"
)

const contractCSV = `exchange,segment,trading_symbol,exchange_token,expiry_date,lot_size
NSE,FNO,NIFTY25SEPFUT,54452,2025-09-25,75
NSE,FNO,NIFTY25OCTFUT,54453,2025-10-30,75
NSE,FNO,NIFTY25SEP24800CE,54001,2025-09-25,75
NSE,CASH,RELIANCE,2885,,1
BSE,FNO,SENSEX25SEPFUT,874059,2025-09-18,10
BSE,FNO,SENSEX25OCTFUT,874060,2025-10-16,10
BSE,FNO,BADEXPIRY,874099,not-a-date,10
`

func parseRows(t *testing.T) []ContractRow {
	t.Helper()
	rows, err := ParseContractCSV(strings.NewReader(contractCSV))
	require.NoError(t, err)
	return rows
}

func TestParseContractCSV(t *testing.T) {
	rows := parseRows(t)

	// CASH rows and rows with unparseable expiry are skipped.
	require.Len(t, rows, 5)
	for _, row := range rows {
		assert.Equal(t, "FNO", row.Segment)
		assert.False(t, row.Expiry.IsZero())
	}
}

func TestParseContractCSV_MissingColumn(t *testing.T) {
	_, err := ParseContractCSV(strings.NewReader("exchange,segment\nNSE,FNO\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trading_symbol")
}

func TestNearestFuture(t *testing.T) {
	rows := parseRows(t)
	today := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)

	tok, err := NearestFuture(rows, []string{"NIFTY"}, "NSE", today)
	require.NoError(t, err)
	assert.Equal(t, "54452", tok, "nearest expiry wins")

	tok, err = NearestFuture(rows, []string{"SENSEX", "BFSENSEX"}, "BSE", today)
	require.NoError(t, err)
	assert.Equal(t, "874059", tok)
}

func TestNearestFuture_SkipsExpiredAndOptions(t *testing.T) {
	rows := parseRows(t)

	// After the September expiry only the October contracts remain.
	today := time.Date(2025, 10, 1, 10, 0, 0, 0, time.UTC)
	tok, err := NearestFuture(rows, []string{"NIFTY"}, "NSE", today)
	require.NoError(t, err)
	assert.Equal(t, "54453", tok)

	// Option symbols carry the prefix but not FUT and must never match.
	optionOnly := []ContractRow{{
		Exchange: "NSE", Segment: "FNO",
		TradingSymbol: "NIFTY25SEP24800CE", ExchangeToken: "54001",
		Expiry: time.Date(2025, 9, 25, 0, 0, 0, 0, time.UTC),
	}}
	_, err = NearestFuture(optionOnly, []string{"NIFTY"}, "NSE", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestResolver_OverridesSkipDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("csv must not be downloaded when both tokens are overridden")
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, zap.NewNop())
	instruments, err := r.Resolve(context.Background(), Overrides{
		NiftyFutToken:  "11111",
		SensexFutToken: "22222",
	})
	require.NoError(t, err)
	require.Len(t, instruments, 4)

	byID := map[string]domain.Instrument{}
	for _, inst := range instruments {
		byID[inst.ID] = inst
	}
	assert.Equal(t, "11111", byID[domain.InstrumentNiftyFut].ExchangeToken)
	assert.Equal(t, "22222", byID[domain.InstrumentSensexFut].ExchangeToken)
	assert.Equal(t, "NIFTY", byID[domain.InstrumentNiftyCash].ExchangeToken)
	assert.Equal(t, "1", byID[domain.InstrumentSensexCash].ExchangeToken)
}

func TestResolver_ResolvesFromCSV(t *testing.T) {
	// Resolve filters against the current date, so the fixture expiries must
	// lie in the future.
	near := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	far := time.Now().AddDate(0, 2, 0).Format("2006-01-02")
	csvBody := "exchange,segment,trading_symbol,exchange_token,expiry_date,lot_size\n" +
		"NSE,FNO,NIFTYFUT1,54452," + near + ",75\n" +
		"NSE,FNO,NIFTYFUT2,54453," + far + ",75\n" +
		"BSE,FNO,SENSEXFUT1,874059," + near + ",10\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, zap.NewNop())
	instruments, err := r.Resolve(context.Background(), Overrides{})
	require.NoError(t, err)

	byID := map[string]domain.Instrument{}
	for _, inst := range instruments {
		byID[inst.ID] = inst
	}
	assert.Equal(t, "54452", byID[domain.InstrumentNiftyFut].ExchangeToken)
	// Sensex futures in the fixture live on BSE only.
	assert.Equal(t, "BSE", byID[domain.InstrumentSensexFut].Exchange)
	assert.Equal(t, "874059", byID[domain.InstrumentSensexFut].ExchangeToken)
}
