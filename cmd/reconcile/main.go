package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/clearledger/reconcile-backend/internal/application/reconcile"
	"github.com/clearledger/reconcile-backend/internal/domain/categorizer"
	"github.com/clearledger/reconcile-backend/internal/domain/matcher"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/config"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/logging"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/storage"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		dryRun     = flag.Bool("dry-run", true, "Preview changes without applying")
		threshold  = flag.Float64("threshold", 0, "Auto-apply score threshold (0 = use config)")
		maxTx      = flag.Int("max", 0, "Maximum transactions to process (0 = use config)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggingCfg := cfg.Observability.Logging
	if *verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "reconcile")

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

	orchestrator := reconcile.NewOrchestrator(store, matcher.NewMatcher(matcherCfg), resolver, logger)

	opts := reconcile.Options{
		AutoApplyThreshold: cfg.Reconciliation.AutoApplyThreshold,
		MaxTransactions:    cfg.Reconciliation.MaxTransactions,
		CategoryConfidence: cfg.Reconciliation.CategoryConfidence,
		DryRun:             *dryRun,
	}
	if *threshold > 0 {
		opts.AutoApplyThreshold = *threshold
	}
	if *maxTx > 0 {
		opts.MaxTransactions = *maxTx
	}

	logger.Info("starting reconciliation",
		slog.Bool("dry_run", opts.DryRun),
		slog.Float64("threshold", opts.AutoApplyThreshold),
		slog.Int("max_transactions", opts.MaxTransactions),
	)

	report, err := orchestrator.Run(context.Background(), opts)
	if err != nil {
		logger.Error("reconciliation failed", "error", err)
		os.Exit(1)
	}

	printReport(report, opts.DryRun)

	if len(report.FailedWrites) > 0 {
		os.Exit(1)
	}
}

func printReport(report *reconcile.Report, dryRun bool) {
	fmt.Printf("\nReconciliation run %d", report.RunID)
	if dryRun {
		fmt.Print(" (dry run)")
	}
	fmt.Println()
	fmt.Printf("  matched:      %d\n", report.Matched)
	fmt.Printf("  needs review: %d\n", report.NeedsReview)
	fmt.Printf("  unmatched:    %d\n", report.Unmatched)
	fmt.Printf("  categorized:  %d\n", report.Categorized)

	if len(report.Suggestions) > 0 {
		fmt.Println("\nSuggestions needing review:")
		for _, s := range report.Suggestions {
			fmt.Printf("  %s -> %s (%s, score %.2f)\n",
				s.Transaction.ID, s.EntityID(), s.Tier, s.Score)
			for _, reason := range s.Reasons {
				fmt.Printf("    - %s\n", reason)
			}
		}
	}

	if len(report.Categories) > 0 {
		fmt.Println("\nCategorized transactions:")
		for _, c := range report.Categories {
			fmt.Printf("  %s -> %s (confidence %.2f)\n", c.TransactionID, c.Category, c.Confidence)
		}
	}

	if len(report.FailedWrites) > 0 {
		fmt.Println("\nFailed writes (retry individually):")
		for _, id := range report.FailedWrites {
			fmt.Printf("  %s\n", id)
		}
	}
}
