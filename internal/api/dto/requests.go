package dto

// StartRunRequest is the body for POST /api/reconcile.
type StartRunRequest struct {
	DryRun             bool    `json:"dry_run"`
	AutoApplyThreshold float64 `json:"auto_apply_threshold"`
	MaxTransactions    int     `json:"max_transactions"`
}
