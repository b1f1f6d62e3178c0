package reconcile

import (
	"github.com/clearledger/reconcile-backend/internal/domain/matcher"
)

// Options holds batch run configuration
type Options struct {
	// AutoApplyThreshold is the score at or above which a match is
	// applied without human review. Zero means use the default 0.85.
	AutoApplyThreshold float64

	// MaxTransactions caps how many transactions the run processes.
	// 0 means no cap.
	MaxTransactions int

	// DryRun previews the partition without writing anything back.
	DryRun bool

	// CategoryConfidence is the minimum resolver confidence before a
	// category is persisted. Zero means use the default 0.7.
	CategoryConfidence float64
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		AutoApplyThreshold: 0.85,
		CategoryConfidence: 0.7,
	}
}

// CategoryAssignment records one categorization performed during a run.
type CategoryAssignment struct {
	TransactionID string  `json:"transaction_id"`
	Category      string  `json:"category"`
	Confidence    float64 `json:"confidence"`
}

// Report summarizes a completed batch run. The needs-review suggestions
// are included in full so a human can act on them.
type Report struct {
	RunID int64 `json:"run_id"`

	Matched     int `json:"matched"`
	NeedsReview int `json:"needs_review"`
	Unmatched   int `json:"unmatched"`
	Categorized int `json:"categorized"`

	Suggestions []matcher.Suggestion `json:"suggestions"`
	Categories  []CategoryAssignment `json:"categories,omitempty"`

	// FailedWrites lists transaction IDs whose reconcile/category
	// write failed; these can be retried individually.
	FailedWrites []string `json:"failed_writes,omitempty"`
}
