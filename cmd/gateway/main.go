package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lei/build-notify/pkg/gateway"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	// Load .env file (ignore error if file doesn't exist - env vars might be set externally)
	_ = godotenv.Load()

	// Determine config paths from environment or use defaults
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/gateway.yaml"
	}
	formattersFile := os.Getenv("FORMATTERS_FILE")
	if formattersFile == "" {
		formattersFile = "configs/formatters.yaml"
	}

	// Create gateway from file configuration
	gw, err := gateway.NewFromEnv(configFile, formattersFile)
	if err != nil {
		return err
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the gateway (blocks until shutdown)
	return gw.Start(ctx)
}
