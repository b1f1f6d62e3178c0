package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clearledger/reconcile-backend/internal/domain/ledger"
)

// MockRepository is an in-memory implementation of Repository for
// testing. It stores all data in maps and slices, making tests fast
// and isolated.
type MockRepository struct {
	transactions map[string]*ledger.Transaction
	invoices     map[string]*ledger.Invoice
	expenses     []ledger.Expense
	runs         map[int64]*ReconcileRun
	nextRunID    int64

	// Hooks for test assertions
	MarkReconciledCalls []string
	SetCategoryCalls    map[string]string
	StartRunCalled      bool
	CompleteRunCalled   bool
	LastRunSummary      *RunSummary

	// Error injection for testing error paths
	ListUnreconciledErr error
	ListOpenInvoicesErr error
	ListExpensesErr     error
	MarkReconciledErr   map[string]error
	SetCategoryErr      map[string]error
	StartRunErr         error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		transactions:      make(map[string]*ledger.Transaction),
		invoices:          make(map[string]*ledger.Invoice),
		runs:              make(map[int64]*ReconcileRun),
		nextRunID:         1,
		SetCategoryCalls:  make(map[string]string),
		MarkReconciledErr: make(map[string]error),
		SetCategoryErr:    make(map[string]error),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// SaveTransaction stores a copy of the transaction
func (m *MockRepository) SaveTransaction(tx *ledger.Transaction) error {
	clone := *tx
	m.transactions[tx.ID] = &clone
	return nil
}

// GetTransaction retrieves a transaction by ID
func (m *MockRepository) GetTransaction(id string) (*ledger.Transaction, error) {
	tx, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", id)
	}
	clone := *tx
	return &clone, nil
}

// ListUnreconciledTransactions returns unreconciled transactions sorted
// by date then ID for deterministic test runs
func (m *MockRepository) ListUnreconciledTransactions(limit int) ([]ledger.Transaction, error) {
	if m.ListUnreconciledErr != nil {
		return nil, m.ListUnreconciledErr
	}

	var out []ledger.Transaction
	for _, tx := range m.transactions {
		if !tx.Reconciled {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkReconciled sets the reconciled flag
func (m *MockRepository) MarkReconciled(id string) error {
	m.MarkReconciledCalls = append(m.MarkReconciledCalls, id)
	if err := m.MarkReconciledErr[id]; err != nil {
		return err
	}
	tx, ok := m.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %s not found", id)
	}
	tx.Reconciled = true
	return nil
}

// SetCategory sets the category field
func (m *MockRepository) SetCategory(id string, category string) error {
	m.SetCategoryCalls[id] = category
	if err := m.SetCategoryErr[id]; err != nil {
		return err
	}
	tx, ok := m.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %s not found", id)
	}
	tx.Category = category
	return nil
}

// SaveInvoice stores a copy of the invoice
func (m *MockRepository) SaveInvoice(inv *ledger.Invoice) error {
	clone := *inv
	m.invoices[inv.ID] = &clone
	return nil
}

// ListOpenInvoices returns open invoices sorted by issue date
func (m *MockRepository) ListOpenInvoices() ([]ledger.Invoice, error) {
	if m.ListOpenInvoicesErr != nil {
		return nil, m.ListOpenInvoicesErr
	}

	var out []ledger.Invoice
	for _, inv := range m.invoices {
		if inv.Status.IsOpen() {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.Before(out[j].IssueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveExpense appends the expense (newest first)
func (m *MockRepository) SaveExpense(e *ledger.Expense) error {
	m.expenses = append([]ledger.Expense{*e}, m.expenses...)
	return nil
}

// ListExpenses returns all expenses
func (m *MockRepository) ListExpenses() ([]ledger.Expense, error) {
	if m.ListExpensesErr != nil {
		return nil, m.ListExpensesErr
	}
	return append([]ledger.Expense{}, m.expenses...), nil
}

// RecentExpenses returns up to limit expenses
func (m *MockRepository) RecentExpenses(limit int) ([]ledger.Expense, error) {
	if m.ListExpensesErr != nil {
		return nil, m.ListExpensesErr
	}
	out := append([]ledger.Expense{}, m.expenses...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ExpensesByVendor returns expenses with a matching vendor
func (m *MockRepository) ExpensesByVendor(vendor string) ([]ledger.Expense, error) {
	if m.ListExpensesErr != nil {
		return nil, m.ListExpensesErr
	}
	var out []ledger.Expense
	for _, e := range m.expenses {
		if strings.EqualFold(strings.TrimSpace(e.Vendor), strings.TrimSpace(vendor)) {
			out = append(out, e)
		}
	}
	return out, nil
}

// StartRun records a run start
func (m *MockRepository) StartRun(threshold float64, limit int, dryRun bool) (int64, error) {
	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return 0, m.StartRunErr
	}
	id := m.nextRunID
	m.nextRunID++
	m.runs[id] = &ReconcileRun{
		ID:              id,
		StartedAt:       time.Now().UTC().Format(time.RFC3339),
		Threshold:       threshold,
		MaxTransactions: limit,
		DryRun:          dryRun,
		Status:          "running",
	}
	return id, nil
}

// CompleteRun records a run completion
func (m *MockRepository) CompleteRun(runID int64, summary RunSummary) error {
	m.CompleteRunCalled = true
	m.LastRunSummary = &summary
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %d not found", runID)
	}
	run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	run.Matched = summary.Matched
	run.NeedsReview = summary.NeedsReview
	run.Unmatched = summary.Unmatched
	run.Categorized = summary.Categorized
	run.FailedWrites = summary.FailedWrites
	run.Status = summary.Status
	run.SuggestionsJSON = summary.SuggestionsJSON
	return nil
}

// ListRuns returns recorded runs, newest first
func (m *MockRepository) ListRuns(limit int) ([]ReconcileRun, error) {
	var out []ReconcileRun
	for _, run := range m.runs {
		out = append(out, *run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetRun retrieves a run by ID
func (m *MockRepository) GetRun(runID int64) (*ReconcileRun, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	clone := *run
	return &clone, nil
}

// Stats returns aggregate statistics over the mock data
func (m *MockRepository) Stats() (*Stats, error) {
	stats := &Stats{
		TotalExpenses: len(m.expenses),
		TotalRuns:     len(m.runs),
	}
	for _, tx := range m.transactions {
		stats.TotalTransactions++
		if tx.Reconciled {
			stats.ReconciledTransactions++
		}
		if tx.Category != "" {
			stats.CategorizedCount++
		}
	}
	for _, inv := range m.invoices {
		if inv.Status.IsOpen() {
			stats.OpenInvoices++
		}
	}
	return stats, nil
}

// Close is a no-op for the mock
func (m *MockRepository) Close() error {
	return nil
}
