package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/emirozbir/incident-triage/internal/collectors"
	"github.com/emirozbir/incident-triage/internal/config"
	"github.com/emirozbir/incident-triage/internal/report"
	"github.com/emirozbir/incident-triage/internal/tools"
)

func main() {
	// stdout carries the protocol; zap's production logger writes to stderr
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("TRIAGE_CONFIG"))
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	renderer, err := report.NewRenderer(cfg.Report.TemplatePath, report.NewBuilder(cfg.Report.FeedbackBaseURL))
	if err != nil {
		logger.Fatal("Failed to load report template", zap.Error(err))
	}

	k8s, err := collectors.NewKubernetesCollector(cfg.Kubernetes)
	if err != nil {
		logger.Warn("Kubernetes unavailable, cluster tools will return errors", zap.Error(err))
		k8s = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	git := collectors.NewGitCollector(cfg.Git)
	for _, err := range git.SSH().SetupAgent(ctx) {
		logger.Warn("Failed to add ssh key to agent", zap.Error(err))
	}

	registry, err := tools.NewTriageRegistry(tools.Dependencies{
		Kubernetes: k8s,
		Git:        git,
		Network:    collectors.NewNetworkCollector(cfg.Network),
		Renderer:   renderer,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to register tools", zap.Error(err))
	}

	logger.Info("Starting MCP tool server",
		zap.String("name", tools.ServerName),
		zap.String("version", tools.ServerVersion),
		zap.Strings("tools", registry.Names()))

	if err := tools.ServeStdio(ctx, registry); err != nil && ctx.Err() == nil {
		logger.Fatal("Tool server stopped", zap.Error(err))
	}
	logger.Info("Tool server stopped")
}
