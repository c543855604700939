package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/vitos/index_ratio_monitor/internal/infrastructure/feed"
	"github.com/vitos/index_ratio_monitor/internal/infrastructure/logger"
)

// Prints the instrument set the monitor would subscribe to, including the
// resolved nearest-expiry futures tokens. Useful before market open.
func main() {
	_ = godotenv.Load()

	var overrides struct {
		NiftyFutToken  string `envconfig:"NIFTY_FUT_EXCHANGE_TOKEN"`
		SensexFutToken string `envconfig:"SENSEX_FUT_EXCHANGE_TOKEN"`
	}
	if err := envconfig.Process("", &overrides); err != nil {
		fmt.Printf("Failed to load environment: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger("info")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	resolver := feed.NewResolver("", log)
	instruments, err := resolver.Resolve(context.Background(), feed.Overrides{
		NiftyFutToken:  overrides.NiftyFutToken,
		SensexFutToken: overrides.SensexFutToken,
	})
	if err != nil {
		fmt.Printf("Resolve failed: %v\n", err)
		os.Exit(1)
	}

	for _, inst := range instruments {
		fmt.Printf("%-12s %-4s %-5s token=%s (%s %s)\n",
			inst.ID, inst.Exchange, inst.Segment, inst.ExchangeToken, inst.Index, inst.Kind)
	}
}
