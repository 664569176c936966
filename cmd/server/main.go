package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/emirozbir/incident-triage/internal/api"
	"github.com/emirozbir/incident-triage/internal/collectors"
	"github.com/emirozbir/incident-triage/internal/config"
	"github.com/emirozbir/incident-triage/internal/database"
	"github.com/emirozbir/incident-triage/internal/diagnosis"
	"github.com/emirozbir/incident-triage/internal/report"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load(os.Getenv("TRIAGE_CONFIG"))
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Starting incident-triage server",
		zap.String("version", "1.0.0"),
		zap.String("database_driver", cfg.Database.Driver),
	)

	// The report template is loaded once; a broken template aborts startup
	renderer, err := report.NewRenderer(cfg.Report.TemplatePath, report.NewBuilder(cfg.Report.FeedbackBaseURL))
	if err != nil {
		logger.Fatal("Failed to load report template", zap.Error(err))
	}

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database initialized", zap.String("driver", cfg.Database.Driver))

	// Live pod evidence is optional
	var pods diagnosis.PodInspector
	if k8s, err := collectors.NewKubernetesCollector(cfg.Kubernetes); err != nil {
		logger.Warn("Kubernetes unavailable, reports will use submitted evidence only", zap.Error(err))
	} else {
		pods = k8s
	}

	service := diagnosis.NewService(renderer, db, pods, logger, cfg.Server.MaxParallelAlerts)
	handler := api.NewHandler(db, service, logger)
	router := api.SetupRoutes(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shut down", zap.Error(err))
	}

	logger.Info("Server stopped")
}
