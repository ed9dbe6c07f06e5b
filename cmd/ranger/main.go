package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/HerbHall/wavesight/internal/ranger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to ranger config file (YAML)")
	serverURL := flag.String("server", "", "WaveSight server base URL (overrides config)")
	agentKey := flag.String("key", "", "Agent API key (overrides config; prefer RANGER_AGENT_KEY)")
	agentID := flag.String("agent-id", "", "Agent identifier (overrides config)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := ranger.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *agentKey != "" {
		cfg.AgentKey = *agentKey
	}
	if *agentID != "" {
		cfg.AgentID = *agentID
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	agent := ranger.NewAgent(cfg, logger)
	if err := agent.Run(ctx); err != nil {
		logger.Fatal("agent error", zap.Error(err))
	}

	logger.Info("ranger agent stopped")
}
