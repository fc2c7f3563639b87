package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"wpnav/internal/config"
	"wpnav/internal/logging"
	"wpnav/internal/web"
)

func main() {
	var configPath string
	var summarize string
	flag.StringVar(&configPath, "config", "./wpnav.yaml", "Path to YAML config")
	flag.StringVar(&summarize, "summarize", "", "Print a summary of a recorded state log and exit")
	flag.Parse()

	if summarize != "" {
		if err := printLogSummary(summarize); err != nil {
			log.Fatalf("summarize failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(2000)
	logger, err := logging.New("wpnav", cfg.Log.Level, cfg.Log.JSON, logs)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Infof("wpnav starting")
	if err := run(ctx, cfg, logger, logs, nil); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("wpnav failed: %v", err)
	}
	logger.Infof("wpnav stopping")
}
