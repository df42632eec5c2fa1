package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/seat-market/docs"
	"github.com/kirinyoku/seat-market/internal/app"
	"github.com/kirinyoku/seat-market/internal/config"
)

// @title Seat Market API
// @version 1.0
// @description Seat and hub contracts: instantiate, execute, query and migrate.
// @host localhost:8080
// @BasePath /
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
