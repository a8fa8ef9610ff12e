package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/xraph/udhaar/internal/cli"
	"github.com/xraph/udhaar/internal/config"
	"github.com/xraph/udhaar/internal/logger"
)

func main() {
	// A missing .env is normal; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.WithComponent("main").Debug().
		Str("data_file", cfg.DataFile).
		Str("currency", cfg.Currency).
		Msg("Starting udhaar")

	cli.Execute(cfg)
}
