package categorizer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clearledger/reconcile-backend/internal/domain/ledger"
)

// Config holds resolver configuration. Thresholds are tunable rather
// than hard-coded; the defaults mirror what worked in production.
type Config struct {
	// FuzzyThreshold is the minimum Levenshtein-based vendor
	// similarity for the fuzzy history strategy to accept a match.
	FuzzyThreshold float64 // Default: 0.8

	// FuzzyHistoryLimit bounds how many recent expenses the fuzzy
	// vendor strategy scans.
	FuzzyHistoryLimit int // Default: 100

	// LearningHistoryLimit bounds how many recent expenses the
	// word-overlap learning strategy scans.
	LearningHistoryLimit int // Default: 50

	// LearningMinScore is the overlap score a category must strictly
	// exceed before the learning strategy trusts it.
	LearningMinScore int // Default: 2

	// HintTimeout caps the external category-hint call. On timeout the
	// resolver falls through to the default category.
	HintTimeout time.Duration // Default: 5s

	// HintConfidenceCap bounds how far an external hint is trusted.
	// Capped below the auto-apply threshold so hints always get a
	// human look.
	HintConfidenceCap float64 // Default: 0.7

	// Industry is passed to the hint provider as business context.
	// Optional.
	Industry string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:       0.8,
		FuzzyHistoryLimit:    100,
		LearningHistoryLimit: 50,
		LearningMinScore:     2,
		HintTimeout:          5 * time.Second,
		HintConfidenceCap:    0.7,
	}
}

// Result is the ephemeral outcome of categorizing one transaction.
type Result struct {
	Category     string        `json:"category"`
	Confidence   float64       `json:"confidence"`
	Reasons      []string      `json:"reasons"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Alternative is a runner-up category suggestion.
type Alternative struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// History provides read access to past expense records. Implemented by
// the storage layer; mocked in tests.
type History interface {
	// RecentExpenses returns up to limit expenses, newest first.
	RecentExpenses(limit int) ([]ledger.Expense, error)

	// ExpensesByVendor returns expenses whose vendor matches the given
	// name case-insensitively, newest first.
	ExpensesByVendor(vendor string) ([]ledger.Expense, error)
}

// Hint is a category guess from an external collaborator.
type Hint struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// HintProvider supplies a best-effort external category guess. The
// deterministic fallback chain must work with it entirely absent.
type HintProvider interface {
	SuggestCategory(ctx context.Context, description string, amount decimal.Decimal, industry string) (*Hint, error)
}
