package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querypilot/querypilot/internal/agent"
	"github.com/querypilot/querypilot/internal/cli"
	"github.com/querypilot/querypilot/internal/config"
	"github.com/querypilot/querypilot/internal/database"
	"github.com/querypilot/querypilot/internal/llm"
	"github.com/querypilot/querypilot/internal/observability"
	"github.com/querypilot/querypilot/internal/tools"
)

func main() {
	// Best-effort: a missing .env file is not an error.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = handle.Close() }()

	generator, err := llm.NewWatsonxClient(llm.WatsonxConfig{
		BaseURL:   cfg.Model.URL,
		APIKey:    cfg.Model.APIKey,
		ProjectID: cfg.Model.ProjectID,
		ModelID:   cfg.Model.ModelID,
		Timeout:   cfg.Model.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize model client", slog.Any("error", err))
		os.Exit(1)
	}

	registry := tools.ForDatabase(handle)
	strategy := agent.NewReActStrategy(generator, registry, llm.ProfileParams(cfg.Agent))
	sqlAgent := agent.New(registry, strategy, logger)

	if cfg.Observability.MetricsAddr != "" {
		go serveMetrics(cfg.Observability.MetricsAddr, logger)
	}

	logger.Info("agent ready",
		slog.String("model", cfg.Model.ModelID),
		slog.String("driver", cfg.Database.Driver),
		slog.String("database", cfg.Database.Name),
	)

	os.Exit(cli.Run(ctx, os.Args[1:], cli.Options{
		Agent:        sqlAgent,
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Generator:    generator,
		HelperParams: llm.ProfileParams(cfg.Helper),
	}))
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", slog.Any("error", err))
	}
}
