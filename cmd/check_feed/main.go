package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/vitos/index_ratio_monitor/internal/infrastructure/feed"
	"github.com/vitos/index_ratio_monitor/internal/infrastructure/logger"
)

// Connects to the live feed and prints normalized ticks until interrupted.
func main() {
	_ = godotenv.Load()

	var env struct {
		AccessToken    string `envconfig:"GROWW_ACCESS_TOKEN" required:"true"`
		NiftyFutToken  string `envconfig:"NIFTY_FUT_EXCHANGE_TOKEN"`
		SensexFutToken string `envconfig:"SENSEX_FUT_EXCHANGE_TOKEN"`
	}
	if err := envconfig.Process("", &env); err != nil {
		fmt.Printf("Failed to load environment: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger("debug")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolver := feed.NewResolver("", log)
	instruments, err := resolver.Resolve(ctx, feed.Overrides{
		NiftyFutToken:  env.NiftyFutToken,
		SensexFutToken: env.SensexFutToken,
	})
	if err != nil {
		fmt.Printf("Resolve failed: %v\n", err)
		os.Exit(1)
	}

	adapter := feed.NewGrowwAdapter("", env.AccessToken, instruments, log)
	if err := adapter.Start(ctx); err != nil {
		fmt.Printf("Feed start failed: %v\n", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-stop
		adapter.Close()
	}()

	for u := range adapter.Updates() {
		fmt.Printf("%s  %-12s %12.2f\n", u.At.Format("15:04:05.000"), u.InstrumentID, u.Price)
	}
	fmt.Printf("feed closed, dropped ticks: %d\n", adapter.DroppedTicks())
}
