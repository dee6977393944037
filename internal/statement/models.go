package statement

import (
	"time"
)

// TransactionType tags a transaction as money in or money out.
type TransactionType string

const (
	// TypeCredit is money in: payments, refunds, reversals.
	TypeCredit TransactionType = "credit"
	// TypeDebit is money out: purchases, cash advances.
	TypeDebit TransactionType = "debit"
)

// Opposite returns the flipped type. Used when a parenthesized
// (negative) amount reverses the section a line appeared under.
func (t TransactionType) Opposite() TransactionType {
	if t == TypeCredit {
		return TypeDebit
	}
	return TypeCredit
}

// Transaction is one line item decoded from the activity listing.
// Amount is always non-negative; direction lives in Type.
// Persistence assigns identity later; this stays a plain value.
type Transaction struct {
	PostedDate      time.Time
	TransactionDate time.Time
	Description     string
	Amount          float64
	Type            TransactionType
}

// StatementSummary carries the statement-level figures from page one.
// Every field is independently optional: a pattern that does not match
// leaves its field nil without affecting the others.
type StatementSummary struct {
	BillPeriodStart *time.Time
	BillPeriodEnd   *time.Time
	PreviousBalance *float64
	NewBalance      *float64

	// Declared for future extraction; the current layout matcher does
	// not populate these.
	PaymentDueDate *time.Time
	MinimumPayment *float64
	Payments       *float64
	Purchases      *float64
}
