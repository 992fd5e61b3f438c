// Command cleanse-server runs the SalesCleanse HTTP service: the cleansing
// API under /api/v1, health probes, Prometheus metrics and the WebSocket
// progress feed. Configuration is layered from defaults, an optional
// config.yaml and CLEANSE_* environment variables.
package main

import (
	"log/slog"
	"os"

	"salescleanse/internal/app"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
