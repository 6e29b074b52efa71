package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		telemetry.Error("telemetry.init_failed", map[string]any{"error": err})
	}
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		telemetry.Error("bootstrap.failed", map[string]any{"error": err})
		os.Exit(1)
	}
	if err := bootstrap.Serve(ctx, app); err != nil {
		telemetry.Error("server.error", map[string]any{"error": err})
		os.Exit(1)
	}
}
