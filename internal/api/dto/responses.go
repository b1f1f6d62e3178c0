package dto

import "encoding/json"

// MessageResponse is a simple message wrapper.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// StartRunResponse is returned when a reconciliation job is accepted.
type StartRunResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	DryRun bool   `json:"dry_run"`
}

// ReportResponse summarizes a finished reconciliation batch.
type ReportResponse struct {
	RunID        int64    `json:"run_id"`
	Matched      int      `json:"matched"`
	NeedsReview  int      `json:"needs_review"`
	Unmatched    int      `json:"unmatched"`
	Categorized  int      `json:"categorized"`
	FailedWrites []string `json:"failed_writes,omitempty"`
}

// JobResponse describes one reconciliation job.
type JobResponse struct {
	JobID       string          `json:"job_id"`
	Status      string          `json:"status"`
	DryRun      bool            `json:"dry_run"`
	StartedAt   string          `json:"started_at"`
	CompletedAt *string         `json:"completed_at,omitempty"`
	Report      *ReportResponse `json:"report,omitempty"`
	Error       *string         `json:"error,omitempty"`
}

// JobListResponse wraps a list of jobs.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}

// RunResponse describes one historical reconciliation run.
type RunResponse struct {
	ID              int64           `json:"id"`
	StartedAt       string          `json:"started_at"`
	CompletedAt     string          `json:"completed_at,omitempty"`
	Threshold       float64         `json:"threshold"`
	MaxTransactions int             `json:"max_transactions"`
	DryRun          bool            `json:"dry_run"`
	Matched         int             `json:"matched"`
	NeedsReview     int             `json:"needs_review"`
	Unmatched       int             `json:"unmatched"`
	Categorized     int             `json:"categorized"`
	FailedWrites    int             `json:"failed_writes"`
	Status          string          `json:"status"`
	Suggestions     json.RawMessage `json:"suggestions,omitempty"`
}

// RunListResponse wraps a list of runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// TransactionResponse describes one bank transaction. Amounts are
// decimal strings so clients never see float rounding.
type TransactionResponse struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Merchant    string `json:"merchant,omitempty"`
	Category    string `json:"category,omitempty"`
	Reconciled  bool   `json:"reconciled"`
}

// TransactionListResponse wraps a list of transactions.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Count        int                   `json:"count"`
}

// StatsResponse carries aggregate bookkeeping statistics.
type StatsResponse struct {
	TotalTransactions      int `json:"total_transactions"`
	ReconciledTransactions int `json:"reconciled_transactions"`
	CategorizedCount       int `json:"categorized_count"`
	OpenInvoices           int `json:"open_invoices"`
	TotalExpenses          int `json:"total_expenses"`
	TotalRuns              int `json:"total_runs"`
}
