// Package matcher scores bank transactions against open accounting
// records and produces at most one match suggestion per transaction.
//
// Credits are matched against open invoices, debits against expenses.
// Each candidate is scored on amount, date, and description similarity
// with fixed weights; the single best candidate above the score floor
// wins and is tagged with a confidence tier.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	suggestion := m.MatchInvoices(tx, openInvoices)
//	if suggestion != nil && suggestion.Tier == matcher.TierHigh {
//		// Safe to auto-apply.
//	}
package matcher

import (
	"github.com/clearledger/reconcile-backend/internal/domain/ledger"
	"github.com/clearledger/reconcile-backend/internal/domain/similarity"
)

// Matcher matches bank transactions against candidate records
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config,
	}
}

// signals holds the individual similarity scores for one candidate,
// used to derive human-readable reasons alongside the combined score.
type signals struct {
	amount float64
	date   float64
	text   float64
}

// MatchInvoices finds the best open invoice for a credit transaction.
// Returns nil if the pool is empty or no candidate clears the floor;
// an absent match is never an error.
func (m *Matcher) MatchInvoices(tx ledger.Transaction, invoices []ledger.Invoice) *Suggestion {
	var best *Suggestion

	for i := range invoices {
		inv := &invoices[i]

		sig := signals{
			amount: similarity.Amount(tx.Amount.Abs(), inv.TotalAmount),
			date:   similarity.Date(tx.Date, inv.IssueDate),
		}
		// The bank description may carry either the invoice number or
		// the client's name; take whichever matches better.
		numberSim := similarity.Text(tx.Description, inv.Number)
		clientSim := similarity.Text(tx.Description, inv.ClientName)
		sig.text = numberSim
		if clientSim > sig.text {
			sig.text = clientSim
		}

		score := m.combine(sig)
		if score < m.config.ScoreFloor {
			continue
		}
		// Ties keep the first-seen candidate. Pools are deterministic
		// per run, so this is stable.
		if best != nil && score <= best.Score {
			continue
		}

		best = &Suggestion{
			Transaction: tx,
			Kind:        EntityInvoice,
			Invoice:     inv,
			Score:       score,
			Tier:        m.tier(score),
			Reasons:     m.reasons(sig),
		}
	}

	return best
}

// MatchExpenses finds the best expense record for a debit transaction.
// Returns nil if the pool is empty or no candidate clears the floor.
func (m *Matcher) MatchExpenses(tx ledger.Transaction, expenses []ledger.Expense) *Suggestion {
	var best *Suggestion

	for i := range expenses {
		exp := &expenses[i]

		sig := signals{
			amount: similarity.Amount(tx.Amount.Abs(), exp.Amount),
			date:   similarity.Date(tx.Date, exp.Date),
		}
		vendorSim := similarity.Text(tx.Description, exp.Vendor)
		categorySim := similarity.Text(tx.Description, exp.Category)
		sig.text = vendorSim
		if categorySim > sig.text {
			sig.text = categorySim
		}

		score := m.combine(sig)
		if score < m.config.ScoreFloor {
			continue
		}
		if best != nil && score <= best.Score {
			continue
		}

		best = &Suggestion{
			Transaction: tx,
			Kind:        EntityExpense,
			Expense:     exp,
			Score:       score,
			Tier:        m.tier(score),
			Reasons:     m.reasons(sig),
		}
	}

	return best
}

// combine folds the individual signals into a single score using the
// configured weights.
func (m *Matcher) combine(sig signals) float64 {
	return sig.amount*m.config.AmountWeight +
		sig.date*m.config.DateWeight +
		sig.text*m.config.TextWeight
}

// tier assigns the confidence tier from the winning combined score.
func (m *Matcher) tier(score float64) Tier {
	switch {
	case score >= m.config.HighThreshold:
		return TierHigh
	case score >= m.config.MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Secondary thresholds for reason derivation. These explain which
// signals carried the match; they do not affect the score.
const (
	reasonAmountExact  = 0.9
	reasonAmountClose  = 0.7
	reasonDateExact    = 0.9
	reasonDateClose    = 0.6
	reasonTextMatching = 0.7
)

// reasons derives a human-auditable explanation from the individual
// signal scores.
func (m *Matcher) reasons(sig signals) []string {
	var out []string

	if sig.amount > reasonAmountExact {
		out = append(out, "exact amount match")
	} else if sig.amount > reasonAmountClose {
		out = append(out, "similar amount")
	}

	if sig.date > reasonDateExact {
		out = append(out, "same date")
	} else if sig.date > reasonDateClose {
		out = append(out, "close date proximity")
	}

	if sig.text > reasonTextMatching {
		out = append(out, "description matches")
	}

	return out
}
