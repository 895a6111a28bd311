package main

import (
	"log/slog"
	"os"

	"github.com/Anvoria/scanly/internal/config"
	"github.com/Anvoria/scanly/internal/server"
)

func main() {
	env := config.LoadEnv()
	if err := env.Validate(); err != nil {
		slog.Error("Invalid environment", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := server.Start(cfg, env); err != nil {
		os.Exit(1)
	}
}
