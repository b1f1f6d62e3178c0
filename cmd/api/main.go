package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clearledger/reconcile-backend/internal/api"
	"github.com/clearledger/reconcile-backend/internal/application/reconcile"
	"github.com/clearledger/reconcile-backend/internal/application/service"
	"github.com/clearledger/reconcile-backend/internal/domain/categorizer"
	"github.com/clearledger/reconcile-backend/internal/domain/matcher"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/config"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/logging"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/storage"
)

func main() {
	configFile := flag.String("config", "", "Configuration file path")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	matcherCfg := matcher.DefaultConfig()
	matcherCfg.ScoreFloor = cfg.Reconciliation.ScoreFloor
	matcherCfg.HighThreshold = cfg.Reconciliation.AutoApplyThreshold
	matcherCfg.MediumThreshold = cfg.Reconciliation.ReviewThreshold

	resolverCfg := categorizer.DefaultConfig()
	resolverCfg.FuzzyThreshold = cfg.Reconciliation.FuzzyVendorThreshold
	resolverCfg.Industry = cfg.Reconciliation.Industry

	var hints categorizer.HintProvider
	if cfg.OpenAI.APIKey != "" {
		hints = categorizer.NewOpenAIHintProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}
	resolver := categorizer.NewResolver(store, hints, nil, resolverCfg, logger)

	orchestrator := reconcile.NewOrchestrator(
		store,
		matcher.NewMatcher(matcherCfg),
		resolver,
		logging.NewLoggerWithSystem(cfg.Observability.Logging, "reconcile"),
	)

	svc := service.NewReconcileService(orchestrator, logger)
	svc.StartBackgroundCleanup(5 * time.Minute)
	defer svc.StopBackgroundCleanup()

	server := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, store, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
			os.Exit(1)
		}
	}
}
