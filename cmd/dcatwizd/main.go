package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"dcatwiz/internal/config"
	"dcatwiz/internal/logging"
	"dcatwiz/internal/server"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	components, err := buildComponents(cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		return
	}

	daemon, err := server.New(cfg, components, logger)
	if err != nil {
		logger.Error("create daemon", "error", err)
		return
	}
	defer daemon.Close()

	if err := daemon.Start(ctx); err != nil {
		logger.Error("daemon start", "error", err)
		return
	}

	<-ctx.Done()
	logger.Info("dcatwizd shutting down")
}
