package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/vitos/index_ratio_monitor/internal/domain"
	"github.com/vitos/index_ratio_monitor/internal/infrastructure/feed"
	"github.com/vitos/index_ratio_monitor/internal/infrastructure/logger"
	"github.com/vitos/index_ratio_monitor/internal/infrastructure/sheets"
	"github.com/vitos/index_ratio_monitor/internal/infrastructure/storage"
	"github.com/vitos/index_ratio_monitor/internal/usecase"
	"github.com/vitos/index_ratio_monitor/internal/web"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Feed struct {
		WSEndpoint       string `yaml:"ws_endpoint"`
		InstrumentCSVURL string `yaml:"instrument_csv_url"`
	} `yaml:"feed"`
	Ratio struct {
		Thresholds []float64 `yaml:"thresholds"`
	} `yaml:"ratio"`
	Sheets struct {
		PushIntervalMs int    `yaml:"push_interval_ms"`
		PushTimeoutMs  int    `yaml:"push_timeout_ms"`
		Range          string `yaml:"range"`
	} `yaml:"sheets"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"` // empty means stderr
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

// Secrets come from the environment (or a .env file), never from yaml.
type Secrets struct {
	AccessToken    string `envconfig:"GROWW_ACCESS_TOKEN" required:"true"`
	SheetID        string `envconfig:"GOOGLE_SHEET_ID"`
	SheetsToken    string `envconfig:"GOOGLE_SHEETS_TOKEN"`
	NiftyFutToken  string `envconfig:"NIFTY_FUT_EXCHANGE_TOKEN"`
	SensexFutToken string `envconfig:"SENSEX_FUT_EXCHANGE_TOKEN"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// 1. Load Config + Secrets
	_ = godotenv.Load()

	var secrets Secrets
	if err := envconfig.Process("", &secrets); err != nil {
		fmt.Printf("Failed to load environment: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "monitor.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Resolve Instruments
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolver := feed.NewResolver(cfg.Feed.InstrumentCSVURL, log)
	instruments, err := resolver.Resolve(ctx, feed.Overrides{
		NiftyFutToken:  secrets.NiftyFutToken,
		SensexFutToken: secrets.SensexFutToken,
	})
	if err != nil {
		log.Fatal("Failed to resolve instruments", zap.Error(err))
	}

	thresholds := cfg.Ratio.Thresholds
	if len(thresholds) == 0 {
		thresholds = []float64{3.25, 3.26}
	}
	pairs := []domain.RatioPair{
		{
			ID:            domain.PairFutures,
			NumeratorID:   domain.InstrumentSensexFut,
			DenominatorID: domain.InstrumentNiftyFut,
			Thresholds:    thresholds,
		},
		{
			ID:            domain.PairCash,
			NumeratorID:   domain.InstrumentSensexCash,
			DenominatorID: domain.InstrumentNiftyCash,
			Thresholds:    thresholds,
		},
	}

	// 5. Init State Store, Journal, Dispatcher
	ratioStore := usecase.NewRatioStore(instruments, pairs, log)

	journal := usecase.NewCrossingJournal(store, log)
	journal.Start()

	dispatcher := usecase.NewDispatcher(ratioStore, log)
	ratioStore.OnChange(dispatcher.Notify)

	if secrets.SheetID != "" && secrets.SheetsToken != "" {
		interval := time.Duration(cfg.Sheets.PushIntervalMs) * time.Millisecond
		if interval <= 0 {
			interval = 2 * time.Second
		}
		timeout := time.Duration(cfg.Sheets.PushTimeoutMs) * time.Millisecond
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		pusher := sheets.NewPusher("", secrets.SheetID, cfg.Sheets.Range, secrets.SheetsToken, timeout, log)
		dispatcher.AddThrottledSink("sheets", interval, timeout, pusher)
		log.Info("Sheets push enabled", zap.Duration("interval", interval))
	}
	dispatcher.Start(ctx)

	// 6. Connect Feed and Start Ingestion
	adapter := feed.NewGrowwAdapter(cfg.Feed.WSEndpoint, secrets.AccessToken, instruments, log)
	if err := adapter.Start(ctx); err != nil {
		log.Fatal("Failed to start feed", zap.Error(err))
	}

	ingestDone := make(chan struct{})
	go func() {
		defer close(ingestDone)
		for update := range adapter.Updates() {
			crossings := ratioStore.ApplyPriceUpdate(update)
			journal.Record(crossings)
		}
	}()

	// 7. Init Web Server
	if err := web.InitTemplates("internal/web/templates"); err != nil {
		log.Fatal("Failed to initialize templates", zap.Error(err))
	}
	port := cfg.Server.Port
	if port == 0 {
		port = 8002 // Default
	}
	server := web.NewServer(port, ratioStore, dispatcher, store, log)

	// 8. Start Server
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 9. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	adapter.Close()
	<-ingestDone
	journal.Close()
	cancel()
	dispatcher.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}
