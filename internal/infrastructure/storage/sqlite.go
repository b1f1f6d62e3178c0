package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/clearledger/reconcile-backend/internal/domain/ledger"
)

const dateLayout = "2006-01-02"

// Storage provides SQLite database access for the accounting records
// and run history. It implements the Repository interface.
//
// Monetary amounts are stored as exact decimal strings, never floats.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveTransaction inserts or updates a transaction
func (s *Storage) SaveTransaction(tx *ledger.Transaction) error {
	query := `
	INSERT OR REPLACE INTO transactions
	(id, amount, date, description, merchant, category, reconciled)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		tx.ID,
		tx.Amount.String(),
		tx.Date.Format(dateLayout),
		tx.Description,
		tx.Merchant,
		tx.Category,
		tx.Reconciled,
	)
	return err
}

// GetTransaction retrieves a transaction by ID
func (s *Storage) GetTransaction(id string) (*ledger.Transaction, error) {
	row := s.db.QueryRow(`
	SELECT id, amount, date, description, merchant, category, reconciled
	FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// ListUnreconciledTransactions returns transactions awaiting
// reconciliation, oldest first
func (s *Storage) ListUnreconciledTransactions(limit int) ([]ledger.Transaction, error) {
	query := `
	SELECT id, amount, date, description, merchant, category, reconciled
	FROM transactions WHERE reconciled = 0 ORDER BY date ASC, id ASC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

// MarkReconciled sets the reconciled flag on one transaction
func (s *Storage) MarkReconciled(id string) error {
	res, err := s.db.Exec(`UPDATE transactions SET reconciled = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s not found", id)
	}
	return nil
}

// SetCategory sets the category field on one transaction
func (s *Storage) SetCategory(id string, category string) error {
	res, err := s.db.Exec(`UPDATE transactions SET category = ? WHERE id = ?`, category, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s not found", id)
	}
	return nil
}

// SaveInvoice inserts or updates an invoice
func (s *Storage) SaveInvoice(inv *ledger.Invoice) error {
	query := `
	INSERT OR REPLACE INTO invoices
	(id, number, total_amount, issue_date, status, client_name)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		inv.ID,
		inv.Number,
		inv.TotalAmount.String(),
		inv.IssueDate.Format(dateLayout),
		string(inv.Status),
		inv.ClientName,
	)
	return err
}

// ListOpenInvoices returns invoices still awaiting payment
func (s *Storage) ListOpenInvoices() ([]ledger.Invoice, error) {
	rows, err := s.db.Query(`
	SELECT id, number, total_amount, issue_date, status, client_name
	FROM invoices WHERE status IN ('sent', 'overdue') ORDER BY issue_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Invoice
	for rows.Next() {
		var inv ledger.Invoice
		var amount, issued, status string
		if err := rows.Scan(&inv.ID, &inv.Number, &amount, &issued, &status, &inv.ClientName); err != nil {
			return nil, err
		}
		if inv.TotalAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invoice %s has malformed amount %q: %w", inv.ID, amount, err)
		}
		if inv.IssueDate, err = time.Parse(dateLayout, issued); err != nil {
			return nil, fmt.Errorf("invoice %s has malformed issue date %q: %w", inv.ID, issued, err)
		}
		inv.Status = ledger.InvoiceStatus(status)
		out = append(out, inv)
	}
	return out, rows.Err()
}

// SaveExpense inserts or updates an expense
func (s *Storage) SaveExpense(e *ledger.Expense) error {
	query := `
	INSERT OR REPLACE INTO expenses
	(id, amount, date, vendor, category, description)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		e.ID,
		e.Amount.String(),
		e.Date.Format(dateLayout),
		e.Vendor,
		e.Category,
		e.Description,
	)
	return err
}

// ListExpenses returns all expenses, newest first
func (s *Storage) ListExpenses() ([]ledger.Expense, error) {
	return s.queryExpenses(`
	SELECT id, amount, date, vendor, category, description
	FROM expenses ORDER BY date DESC, id DESC`)
}

// RecentExpenses returns up to limit expenses, newest first
func (s *Storage) RecentExpenses(limit int) ([]ledger.Expense, error) {
	return s.queryExpenses(`
	SELECT id, amount, date, vendor, category, description
	FROM expenses ORDER BY date DESC, id DESC LIMIT ?`, limit)
}

// ExpensesByVendor returns expenses with an identical vendor name,
// case-insensitively, newest first
func (s *Storage) ExpensesByVendor(vendor string) ([]ledger.Expense, error) {
	return s.queryExpenses(`
	SELECT id, amount, date, vendor, category, description
	FROM expenses WHERE LOWER(TRIM(vendor)) = LOWER(TRIM(?))
	ORDER BY date DESC, id DESC`, vendor)
}

func (s *Storage) queryExpenses(query string, args ...interface{}) ([]ledger.Expense, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Expense
	for rows.Next() {
		var e ledger.Expense
		var amount, date string
		if err := rows.Scan(&e.ID, &amount, &date, &e.Vendor, &e.Category, &e.Description); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("expense %s has malformed amount %q: %w", e.ID, amount, err)
		}
		if e.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("expense %s has malformed date %q: %w", e.ID, date, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// StartRun records the start of a batch run
func (s *Storage) StartRun(threshold float64, limit int, dryRun bool) (int64, error) {
	res, err := s.db.Exec(`
	INSERT INTO reconcile_runs (started_at, threshold, max_transactions, dry_run, status)
	VALUES (?, ?, ?, ?, 'running')`,
		time.Now().UTC().Format(time.RFC3339), threshold, limit, dryRun)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CompleteRun records the outcome of a batch run
func (s *Storage) CompleteRun(runID int64, summary RunSummary) error {
	_, err := s.db.Exec(`
	UPDATE reconcile_runs
	SET completed_at = ?, matched = ?, needs_review = ?, unmatched = ?,
	    categorized = ?, failed_writes = ?, status = ?, suggestions_json = ?
	WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339),
		summary.Matched,
		summary.NeedsReview,
		summary.Unmatched,
		summary.Categorized,
		summary.FailedWrites,
		summary.Status,
		summary.SuggestionsJSON,
		runID,
	)
	return err
}

// ListRuns returns recent runs, newest first
func (s *Storage) ListRuns(limit int) ([]ReconcileRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
	SELECT id, started_at, COALESCE(completed_at, ''), threshold, max_transactions,
	       dry_run, matched, needs_review, unmatched, categorized, failed_writes,
	       status, COALESCE(suggestions_json, '')
	FROM reconcile_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReconcileRun
	for rows.Next() {
		var run ReconcileRun
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.CompletedAt, &run.Threshold,
			&run.MaxTransactions, &run.DryRun, &run.Matched, &run.NeedsReview,
			&run.Unmatched, &run.Categorized, &run.FailedWrites, &run.Status,
			&run.SuggestionsJSON); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(runID int64) (*ReconcileRun, error) {
	var run ReconcileRun
	err := s.db.QueryRow(`
	SELECT id, started_at, COALESCE(completed_at, ''), threshold, max_transactions,
	       dry_run, matched, needs_review, unmatched, categorized, failed_writes,
	       status, COALESCE(suggestions_json, '')
	FROM reconcile_runs WHERE id = ?`, runID).Scan(
		&run.ID, &run.StartedAt, &run.CompletedAt, &run.Threshold,
		&run.MaxTransactions, &run.DryRun, &run.Matched, &run.NeedsReview,
		&run.Unmatched, &run.Categorized, &run.FailedWrites, &run.Status,
		&run.SuggestionsJSON,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Stats returns aggregate transaction statistics
func (s *Storage) Stats() (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRow(`
	SELECT COUNT(*),
	       COALESCE(SUM(CASE WHEN reconciled = 1 THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN category != '' THEN 1 ELSE 0 END), 0)
	FROM transactions`).Scan(
		&stats.TotalTransactions,
		&stats.ReconciledTransactions,
		&stats.CategorizedCount,
	)
	if err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM invoices WHERE status IN ('sent', 'overdue')`).Scan(&stats.OpenInvoices); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM expenses`).Scan(&stats.TotalExpenses); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM reconcile_runs`).Scan(&stats.TotalRuns); err != nil {
		return nil, err
	}

	return stats, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	var amount, date string
	if err := row.Scan(&tx.ID, &amount, &date, &tx.Description, &tx.Merchant, &tx.Category, &tx.Reconciled); err != nil {
		return nil, err
	}

	var err error
	// Malformed rows are rejected here at the boundary, never coerced
	// to zero.
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %s has malformed amount %q: %w", tx.ID, amount, err)
	}
	if tx.Date, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("transaction %s has malformed date %q: %w", tx.ID, date, err)
	}

	return &tx, nil
}
