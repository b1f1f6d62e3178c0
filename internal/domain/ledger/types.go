// Package ledger holds the domain types shared by the matching and
// categorization engine: bank-feed transactions and the accounting
// records they reconcile against.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a raw bank-feed transaction. Amounts are signed:
// positive is an inflow (credit), negative an outflow (debit).
type Transaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	Category    string          `json:"category,omitempty"`
	Reconciled  bool            `json:"reconciled"`
}

// IsCredit reports whether the transaction is an inflow.
func (t Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// IsDebit reports whether the transaction is an outflow.
func (t Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoiceOverdue InvoiceStatus = "overdue"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceVoided  InvoiceStatus = "voided"
)

// IsOpen reports whether the invoice is still awaiting payment and is
// therefore a candidate for matching against incoming credits.
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceSent || s == InvoiceOverdue
}

// Invoice is a match target for credit transactions. Read-only from the
// reconciliation engine's point of view.
type Invoice struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	IssueDate   time.Time       `json:"issue_date"`
	Status      InvoiceStatus   `json:"status"`
	ClientName  string          `json:"client_name,omitempty"`
}

// Expense is a match target for debit transactions. Its category field
// is the source of truth consulted by the history-based categorization
// strategies.
type Expense struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Vendor      string          `json:"vendor"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
}
