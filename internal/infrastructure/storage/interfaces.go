package storage

import (
	"github.com/clearledger/reconcile-backend/internal/domain/ledger"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL,
// etc.) and makes testing with mocks straightforward.
type Repository interface {
	TransactionRepository
	InvoiceRepository
	ExpenseRepository
	RunRepository
	Close() error
}

// TransactionRepository handles bank-feed transaction records
type TransactionRepository interface {
	// SaveTransaction inserts or updates a transaction
	SaveTransaction(tx *ledger.Transaction) error

	// GetTransaction retrieves a transaction by ID
	GetTransaction(id string) (*ledger.Transaction, error)

	// ListUnreconciledTransactions returns transactions with
	// reconciled = false, oldest first. limit of 0 means no cap.
	ListUnreconciledTransactions(limit int) ([]ledger.Transaction, error)

	// MarkReconciled sets the reconciled flag on one transaction.
	// Idempotent: marking an already reconciled transaction is a no-op.
	MarkReconciled(id string) error

	// SetCategory sets the category field on one transaction
	SetCategory(id string, category string) error
}

// InvoiceRepository handles invoice match targets (read-mostly)
type InvoiceRepository interface {
	// SaveInvoice inserts or updates an invoice
	SaveInvoice(inv *ledger.Invoice) error

	// ListOpenInvoices returns invoices in an open-like status
	ListOpenInvoices() ([]ledger.Invoice, error)
}

// ExpenseRepository handles expense match targets and the history
// consulted by the categorization strategies
type ExpenseRepository interface {
	// SaveExpense inserts or updates an expense
	SaveExpense(e *ledger.Expense) error

	// ListExpenses returns all expenses, newest first
	ListExpenses() ([]ledger.Expense, error)

	// RecentExpenses returns up to limit expenses, newest first
	RecentExpenses(limit int) ([]ledger.Expense, error)

	// ExpensesByVendor returns expenses with a case-insensitively
	// identical vendor, newest first
	ExpensesByVendor(vendor string) ([]ledger.Expense, error)
}

// RunRepository tracks reconciliation batch runs
type RunRepository interface {
	// StartRun records the start of a batch run and returns the run ID
	StartRun(threshold float64, limit int, dryRun bool) (int64, error)

	// CompleteRun records the outcome of a batch run
	CompleteRun(runID int64, summary RunSummary) error

	// ListRuns returns recent runs, newest first
	ListRuns(limit int) ([]ReconcileRun, error)

	// GetRun retrieves a run by ID
	GetRun(runID int64) (*ReconcileRun, error)

	// Stats returns aggregate transaction statistics
	Stats() (*Stats, error)
}

// RunSummary holds the outcome counters written on run completion.
type RunSummary struct {
	Matched         int
	NeedsReview     int
	Unmatched       int
	Categorized     int
	FailedWrites    int
	Status          string
	SuggestionsJSON string
}

// ReconcileRun represents a recorded batch run
type ReconcileRun struct {
	ID              int64   `json:"id"`
	StartedAt       string  `json:"started_at"`
	CompletedAt     string  `json:"completed_at,omitempty"`
	Threshold       float64 `json:"threshold"`
	MaxTransactions int     `json:"max_transactions"`
	DryRun          bool    `json:"dry_run"`
	Matched         int     `json:"matched"`
	NeedsReview     int     `json:"needs_review"`
	Unmatched       int     `json:"unmatched"`
	Categorized     int     `json:"categorized"`
	FailedWrites    int     `json:"failed_writes"`
	Status          string  `json:"status"`
	SuggestionsJSON string  `json:"suggestions_json,omitempty"`
}

// Stats holds aggregate transaction statistics for the dashboard
type Stats struct {
	TotalTransactions      int `json:"total_transactions"`
	ReconciledTransactions int `json:"reconciled_transactions"`
	CategorizedCount       int `json:"categorized_count"`
	OpenInvoices           int `json:"open_invoices"`
	TotalExpenses          int `json:"total_expenses"`
	TotalRuns              int `json:"total_runs"`
}
