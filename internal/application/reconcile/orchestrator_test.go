package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/reconcile-backend/internal/domain/categorizer"
	"github.com/clearledger/reconcile-backend/internal/domain/ledger"
	"github.com/clearledger/reconcile-backend/internal/domain/matcher"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/storage"
)

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestOrchestrator(repo storage.Repository) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := categorizer.NewResolver(repo, nil, nil, categorizer.DefaultConfig(), logger)
	return NewOrchestrator(repo, matcher.NewMatcher(matcher.DefaultConfig()), resolver, logger)
}

// seedScenario loads a representative batch: one credit that matches an
// open invoice near-perfectly, one debit that only loosely matches an
// expense, one unmatched debit with an obvious category, one unmatched
// credit, and one unmatched debit that already carries a category.
func seedScenario(t *testing.T, repo *storage.MockRepository) {
	t.Helper()

	require.NoError(t, repo.SaveInvoice(&ledger.Invoice{
		ID:          "inv1",
		Number:      "INV-1042",
		TotalAmount: amt("1500.00"),
		IssueDate:   day(2024, 3, 10),
		Status:      ledger.InvoiceSent,
		ClientName:  "Acme Ltd",
	}))
	require.NoError(t, repo.SaveExpense(&ledger.Expense{
		ID:       "exp1",
		Amount:   amt("800.00"),
		Date:     day(2024, 3, 7),
		Vendor:   "Mega Hardware",
		Category: "Repairs",
	}))

	require.NoError(t, repo.SaveTransaction(&ledger.Transaction{
		ID:          "tx-auto",
		Amount:      amt("1500.00"),
		Date:        day(2024, 3, 10),
		Description: "INV-1042 Acme Ltd",
	}))
	require.NoError(t, repo.SaveTransaction(&ledger.Transaction{
		ID:          "tx-review",
		Amount:      amt("-880.00"),
		Date:        day(2024, 3, 12),
		Description: "card purchase",
	}))
	require.NoError(t, repo.SaveTransaction(&ledger.Transaction{
		ID:          "tx-fuel",
		Amount:      amt("-700.00"),
		Date:        day(2024, 3, 15),
		Description: "ENGEN FUEL STOP",
	}))
	require.NoError(t, repo.SaveTransaction(&ledger.Transaction{
		ID:          "tx-deposit",
		Amount:      amt("950.00"),
		Date:        day(2024, 3, 20),
		Description: "EFT DEPOSIT",
	}))
	require.NoError(t, repo.SaveTransaction(&ledger.Transaction{
		ID:          "tx-done",
		Amount:      amt("-300.00"),
		Date:        day(2024, 6, 1),
		Description: "misc widget",
		Category:    "Office Supplies",
	}))
}

func TestOrchestrator_PartitionsAndApplies(t *testing.T) {
	// Arrange
	repo := storage.NewMockRepository()
	seedScenario(t, repo)
	orch := newTestOrchestrator(repo)

	// Act
	report, err := orch.Run(context.Background(), DefaultOptions())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.NeedsReview)
	assert.Equal(t, 3, report.Unmatched)
	assert.Equal(t, 1, report.Categorized)
	assert.Empty(t, report.FailedWrites)

	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, "tx-review", report.Suggestions[0].Transaction.ID)
	assert.Equal(t, "exp1", report.Suggestions[0].EntityID())

	assert.Equal(t, []string{"tx-auto"}, repo.MarkReconciledCalls)
	assert.Equal(t, "Fuel", repo.SetCategoryCalls["tx-fuel"])

	applied, err := repo.GetTransaction("tx-auto")
	require.NoError(t, err)
	assert.True(t, applied.Reconciled)

	// The review candidate must not have been touched.
	review, err := repo.GetTransaction("tx-review")
	require.NoError(t, err)
	assert.False(t, review.Reconciled)
}

func TestOrchestrator_RecordsRun(t *testing.T) {
	repo := storage.NewMockRepository()
	seedScenario(t, repo)
	orch := newTestOrchestrator(repo)

	report, err := orch.Run(context.Background(), DefaultOptions())
	require.NoError(t, err)

	assert.True(t, repo.StartRunCalled)
	assert.True(t, repo.CompleteRunCalled)
	require.NotNil(t, repo.LastRunSummary)
	assert.Equal(t, "completed", repo.LastRunSummary.Status)
	assert.Equal(t, report.Matched, repo.LastRunSummary.Matched)
	assert.Equal(t, report.NeedsReview, repo.LastRunSummary.NeedsReview)
	assert.NotEmpty(t, repo.LastRunSummary.SuggestionsJSON)

	run, err := repo.GetRun(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
}

func TestOrchestrator_SecondRunIsIdempotent(t *testing.T) {
	repo := storage.NewMockRepository()
	seedScenario(t, repo)
	orch := newTestOrchestrator(repo)

	first, err := orch.Run(context.Background(), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, first.Matched)

	second, err := orch.Run(context.Background(), DefaultOptions())
	require.NoError(t, err)

	// The reconciled transaction leaves the pool and the categorized
	// debit keeps its category, so the second run changes nothing.
	assert.Equal(t, 0, second.Matched)
	assert.Equal(t, 0, second.Categorized)
	assert.Len(t, repo.MarkReconciledCalls, 1)
	assert.Len(t, repo.SetCategoryCalls, 1)
}

func TestOrchestrator_WriteFailureDoesNotAbortBatch(t *testing.T) {
	repo := storage.NewMockRepository()
	require.NoError(t, repo.SaveInvoice(&ledger.Invoice{
		ID: "inv1", Number: "INV-1", TotalAmount: amt("1000.00"),
		IssueDate: day(2024, 3, 1), Status: ledger.InvoiceSent,
	}))
	require.NoError(t, repo.SaveInvoice(&ledger.Invoice{
		ID: "inv2", Number: "INV-2", TotalAmount: amt("2000.00"),
		IssueDate: day(2024, 3, 2), Status: ledger.InvoiceSent,
	}))
	require.NoError(t, repo.SaveTransaction(&ledger.Transaction{
		ID: "tx-a", Amount: amt("1000.00"), Date: day(2024, 3, 1), Description: "INV-1 payment",
	}))
	require.NoError(t, repo.SaveTransaction(&ledger.Transaction{
		ID: "tx-b", Amount: amt("2000.00"), Date: day(2024, 3, 2), Description: "INV-2 payment",
	}))
	repo.MarkReconciledErr["tx-a"] = errors.New("database is locked")

	orch := newTestOrchestrator(repo)
	report, err := orch.Run(context.Background(), DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, []string{"tx-a"}, report.FailedWrites)

	healthy, err := repo.GetTransaction("tx-b")
	require.NoError(t, err)
	assert.True(t, healthy.Reconciled, "one failed write must not block the rest of the batch")

	require.NotNil(t, repo.LastRunSummary)
	assert.Equal(t, "completed", repo.LastRunSummary.Status)
	assert.Equal(t, 1, repo.LastRunSummary.FailedWrites)
}

func TestOrchestrator_FetchFailureAbortsRun(t *testing.T) {
	repo := storage.NewMockRepository()
	repo.ListUnreconciledErr = errors.New("disk I/O error")
	orch := newTestOrchestrator(repo)

	report, err := orch.Run(context.Background(), DefaultOptions())

	assert.Error(t, err)
	assert.Nil(t, report)
	assert.Empty(t, repo.MarkReconciledCalls)
	require.NotNil(t, repo.LastRunSummary)
	assert.Equal(t, "failed", repo.LastRunSummary.Status)
}

func TestOrchestrator_DryRunWritesNothing(t *testing.T) {
	repo := storage.NewMockRepository()
	seedScenario(t, repo)
	orch := newTestOrchestrator(repo)

	opts := DefaultOptions()
	opts.DryRun = true
	report, err := orch.Run(context.Background(), opts)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Categorized)
	assert.Empty(t, repo.MarkReconciledCalls)
	assert.Empty(t, repo.SetCategoryCalls)

	run, err := repo.GetRun(report.RunID)
	require.NoError(t, err)
	assert.True(t, run.DryRun)
}

func TestOrchestrator_OnlyUncategorizedDebitsAreCategorized(t *testing.T) {
	repo := storage.NewMockRepository()
	require.NoError(t, repo.SaveTransaction(&ledger.Transaction{
		ID: "tx-credit", Amount: amt("500.00"), Date: day(2024, 3, 1), Description: "client deposit",
	}))
	require.NoError(t, repo.SaveTransaction(&ledger.Transaction{
		ID: "tx-tagged", Amount: amt("-120.00"), Date: day(2024, 3, 2),
		Description: "engen fuel", Category: "Fuel",
	}))

	orch := newTestOrchestrator(repo)
	report, err := orch.Run(context.Background(), DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Unmatched)
	assert.Equal(t, 0, report.Categorized)
	assert.Empty(t, repo.SetCategoryCalls)
}

func TestOrchestrator_ThresholdOverrideSendsMatchToReview(t *testing.T) {
	repo := storage.NewMockRepository()
	require.NoError(t, repo.SaveInvoice(&ledger.Invoice{
		ID: "inv1", Number: "INV-1042", TotalAmount: amt("1500.00"),
		IssueDate: day(2024, 3, 10), Status: ledger.InvoiceSent, ClientName: "Acme Ltd",
	}))
	require.NoError(t, repo.SaveTransaction(&ledger.Transaction{
		ID: "tx-auto", Amount: amt("1500.00"), Date: day(2024, 3, 10), Description: "INV-1042 Acme Ltd",
	}))

	orch := newTestOrchestrator(repo)
	opts := DefaultOptions()
	opts.AutoApplyThreshold = 0.99
	report, err := orch.Run(context.Background(), opts)

	require.NoError(t, err)
	assert.Equal(t, 0, report.Matched)
	assert.Equal(t, 1, report.NeedsReview)
	assert.Empty(t, repo.MarkReconciledCalls)
}
