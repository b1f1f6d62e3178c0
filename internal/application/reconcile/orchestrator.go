// Package reconcile drives a reconciliation batch run over the
// unreconciled bank-feed transactions.
//
// A run moves through fixed phases: fetch the transaction, invoice, and
// expense pools once; match each transaction; partition the results by
// confidence; apply the high-confidence matches; categorize the
// unmatched debits; and report. Candidate pools are loaded once per run
// and treated as an immutable snapshot, so matching is pure computation
// bounded by O(transactions x candidates).
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"

	"github.com/clearledger/reconcile-backend/internal/domain/categorizer"
	"github.com/clearledger/reconcile-backend/internal/domain/ledger"
	"github.com/clearledger/reconcile-backend/internal/domain/matcher"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/storage"
)

// Orchestrator runs the reconciliation batch process
type Orchestrator struct {
	repo     storage.Repository
	matcher  *matcher.Matcher
	resolver *categorizer.Resolver
	logger   *slog.Logger
}

// NewOrchestrator creates a new batch orchestrator
func NewOrchestrator(
	repo storage.Repository,
	m *matcher.Matcher,
	resolver *categorizer.Resolver,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		repo:     repo,
		matcher:  m,
		resolver: resolver,
		logger:   logger,
	}
}

// Run executes one reconciliation batch. A failure fetching any pool
// aborts the run (nothing has been written at that point); a failure
// writing one transaction's state is logged, surfaced in the report,
// and does not abort the batch.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.AutoApplyThreshold == 0 {
		opts.AutoApplyThreshold = 0.85
	}
	if opts.CategoryConfidence == 0 {
		opts.CategoryConfidence = 0.7
	}

	runID, err := o.repo.StartRun(opts.AutoApplyThreshold, opts.MaxTransactions, opts.DryRun)
	if err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	report, runErr := o.run(ctx, opts)
	if runErr != nil {
		_ = o.repo.CompleteRun(runID, storage.RunSummary{Status: "failed"})
		return nil, runErr
	}
	report.RunID = runID

	suggestionsJSON, err := json.Marshal(report.Suggestions)
	if err != nil {
		o.logger.Warn("failed to serialize suggestions", "error", err)
		suggestionsJSON = []byte("[]")
	}

	if err := o.repo.CompleteRun(runID, storage.RunSummary{
		Matched:         report.Matched,
		NeedsReview:     report.NeedsReview,
		Unmatched:       report.Unmatched,
		Categorized:     report.Categorized,
		FailedWrites:    len(report.FailedWrites),
		Status:          "completed",
		SuggestionsJSON: string(suggestionsJSON),
	}); err != nil {
		o.logger.Warn("failed to record run completion", "run_id", runID, "error", err)
	}

	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, opts Options) (*Report, error) {
	// FETCH: load all pools once per run.
	transactions, err := o.repo.ListUnreconciledTransactions(opts.MaxTransactions)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	invoices, err := o.repo.ListOpenInvoices()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	expenses, err := o.repo.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expenses: %w", err)
	}

	o.logger.Info("starting reconciliation run",
		"transactions", len(transactions),
		"open_invoices", len(invoices),
		"expenses", len(expenses),
		"threshold", opts.AutoApplyThreshold,
		"dry_run", opts.DryRun,
	)

	report := &Report{}

	// MATCH_EACH and PARTITION.
	var autoMatched []matcher.Suggestion
	var unmatched []ledger.Transaction

	for _, tx := range transactions {
		var suggestion *matcher.Suggestion
		if tx.IsCredit() {
			suggestion = o.matcher.MatchInvoices(tx, invoices)
		} else {
			suggestion = o.matcher.MatchExpenses(tx, expenses)
		}

		switch {
		case suggestion == nil:
			unmatched = append(unmatched, tx)
		case suggestion.Score >= opts.AutoApplyThreshold:
			autoMatched = append(autoMatched, *suggestion)
		default:
			report.Suggestions = append(report.Suggestions, *suggestion)
		}
	}

	report.Matched = len(autoMatched)
	report.NeedsReview = len(report.Suggestions)
	report.Unmatched = len(unmatched)

	// APPLY_HIGH_CONFIDENCE: the only unconditional state mutation.
	for _, suggestion := range autoMatched {
		txID := suggestion.Transaction.ID
		o.logger.Debug("auto-applying match",
			"transaction_id", txID,
			"entity_id", suggestion.EntityID(),
			"score", suggestion.Score,
			"reasons", suggestion.Reasons,
		)

		if opts.DryRun {
			continue
		}
		if err := o.writeWithRetry(func() error { return o.repo.MarkReconciled(txID) }); err != nil {
			o.logger.Error("failed to mark transaction reconciled", "transaction_id", txID, "error", err)
			report.FailedWrites = append(report.FailedWrites, txID)
		}
	}

	// CATEGORIZE_UNMATCHED: debits lacking a category only.
	// Categorization and reconciliation are independent flags; the
	// transaction stays unreconciled.
	for _, tx := range unmatched {
		if !tx.IsDebit() || tx.Category != "" {
			continue
		}

		result := o.resolver.Resolve(ctx, tx)
		if result.Confidence <= opts.CategoryConfidence {
			o.logger.Debug("leaving transaction for manual categorization",
				"transaction_id", tx.ID,
				"suggested", result.Category,
				"confidence", result.Confidence,
			)
			continue
		}

		o.logger.Debug("categorizing transaction",
			"transaction_id", tx.ID,
			"category", result.Category,
			"confidence", result.Confidence,
		)

		if !opts.DryRun {
			if err := o.writeWithRetry(func() error { return o.repo.SetCategory(tx.ID, result.Category) }); err != nil {
				o.logger.Error("failed to set category", "transaction_id", tx.ID, "error", err)
				report.FailedWrites = append(report.FailedWrites, tx.ID)
				continue
			}
		}

		report.Categorized++
		report.Categories = append(report.Categories, CategoryAssignment{
			TransactionID: tx.ID,
			Category:      result.Category,
			Confidence:    result.Confidence,
		})
	}

	// REPORT.
	o.logger.Info("reconciliation run complete",
		"matched", report.Matched,
		"needs_review", report.NeedsReview,
		"unmatched", report.Unmatched,
		"categorized", report.Categorized,
		"failed_writes", len(report.FailedWrites),
	)

	return report, nil
}

// writeWithRetry retries transient store write failures a few times
// before giving up and surfacing the transaction in FailedWrites.
func (o *Orchestrator) writeWithRetry(write func() error) error {
	return retry.Do(
		write,
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}
