package matcher

import (
	"github.com/clearledger/reconcile-backend/internal/domain/ledger"
)

// Config holds matcher configuration. The floor and tier thresholds
// were chosen empirically; they are configuration rather than constants
// so threshold tuning doesn't touch the matching logic.
type Config struct {
	AmountWeight float64 // Default: 0.5
	DateWeight   float64 // Default: 0.3
	TextWeight   float64 // Default: 0.2

	// ScoreFloor is the minimum combined score below which no
	// suggestion is returned at all.
	ScoreFloor float64 // Default: 0.4

	// HighThreshold and MediumThreshold assign the confidence tier
	// from the winning score.
	HighThreshold   float64 // Default: 0.85
	MediumThreshold float64 // Default: 0.65
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		AmountWeight:    0.5,
		DateWeight:      0.3,
		TextWeight:      0.2,
		ScoreFloor:      0.4,
		HighThreshold:   0.85,
		MediumThreshold: 0.65,
	}
}

// Tier classifies how trustworthy a match is. HIGH matches are safe to
// apply without review; MEDIUM and LOW are surfaced to a human.
type Tier string

const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

// EntityKind identifies what kind of accounting record a suggestion
// points at.
type EntityKind string

const (
	EntityInvoice EntityKind = "invoice"
	EntityExpense EntityKind = "expense"
)

// Suggestion is the ephemeral result of matching one transaction
// against a candidate pool. Exactly one of Invoice or Expense is set,
// depending on Kind.
type Suggestion struct {
	Transaction ledger.Transaction `json:"transaction"`
	Kind        EntityKind         `json:"kind"`
	Invoice     *ledger.Invoice    `json:"invoice,omitempty"`
	Expense     *ledger.Expense    `json:"expense,omitempty"`
	Score       float64            `json:"score"`
	Tier        Tier               `json:"tier"`
	Reasons     []string           `json:"reasons"`
}

// EntityID returns the identifier of the matched record.
func (s *Suggestion) EntityID() string {
	switch s.Kind {
	case EntityInvoice:
		return s.Invoice.ID
	case EntityExpense:
		return s.Expense.ID
	}
	return ""
}
