package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/petctl/internal/logging"
	"github.com/danmuck/petctl/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "config path (defaults to $"+envConfigPath+" or "+defaultConfigPath+")")
	flag.Parse()

	logging.ConfigureRuntime()
	observability.InitLogger("petctl")

	cfg, err := loadConfig(resolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "petctl: %v\n", err)
		os.Exit(1)
	}
	applyLogLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "petctl: %v\n", err)
		os.Exit(1)
	}
}
