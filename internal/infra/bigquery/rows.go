package bigquery

import (
	"encoding/json"
	"math"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/statement-ledger/internal/statement"
)

// Parse status values for StatementRow.Status.
const (
	StatusNotParsed = "not_parsed"
	StatusParsing   = "parsing"
	StatusParsed    = "parsed"
	StatusError     = "error"
)

// StatementRow represents a statement record in BigQuery.
type StatementRow struct {
	StatementID string `bigquery:"statement_id"` // REQUIRED
	Filename    string `bigquery:"filename"`     // REQUIRED
	StorageURI  string `bigquery:"storage_uri"`  // REQUIRED

	EmailDate bigquery.NullTimestamp `bigquery:"email_date"` // NULLABLE

	BillPeriodStart bigquery.NullDate `bigquery:"bill_period_start"` // NULLABLE
	BillPeriodEnd   bigquery.NullDate `bigquery:"bill_period_end"`   // NULLABLE

	PreviousBalance *big.Rat `bigquery:"previous_balance"` // NULLABLE
	NewBalance      *big.Rat `bigquery:"new_balance"`      // NULLABLE

	Status       string              `bigquery:"status"`        // REQUIRED
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

// TransactionRow represents a transaction record in BigQuery.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id" json:"transaction_id"`
	StatementID   string `bigquery:"statement_id" json:"statement_id"`

	PostedDate      civil.Date `bigquery:"posted_date" json:"posted_date"`
	TransactionDate civil.Date `bigquery:"transaction_date" json:"transaction_date"`

	Description string   `bigquery:"description" json:"description"`
	Amount      *big.Rat `bigquery:"amount" json:"amount"`

	TransactionType string              `bigquery:"transaction_type" json:"transaction_type"`
	Category        bigquery.NullString `bigquery:"category" json:"category,omitempty"`

	CreatedTS time.Time `bigquery:"created_ts" json:"created_ts"`
}

// MarshalJSON renders the amount as a fixed two-decimal string so API
// responses never expose big.Rat internals.
func (t TransactionRow) MarshalJSON() ([]byte, error) {
	type Alias TransactionRow
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		*Alias
	}{
		Amount: RatString(t.Amount),
		Alias:  (*Alias)(&t),
	})
}

// SummaryUpdate carries the extracted summary fields written back onto a
// statement row when parsing succeeds. Nil fields stay untouched as NULL.
type SummaryUpdate struct {
	BillPeriodStart *time.Time
	BillPeriodEnd   *time.Time
	PreviousBalance *float64
	NewBalance      *float64
}

// SummaryUpdateFrom converts an extracted statement summary into the
// persistence shape.
func SummaryUpdateFrom(s statement.StatementSummary) SummaryUpdate {
	return SummaryUpdate{
		BillPeriodStart: s.BillPeriodStart,
		BillPeriodEnd:   s.BillPeriodEnd,
		PreviousBalance: s.PreviousBalance,
		NewBalance:      s.NewBalance,
	}
}

// TransactionRowsFrom converts parsed transactions into rows for one
// statement. Row order follows the parse order.
func TransactionRowsFrom(statementID string, txs []statement.Transaction, now time.Time) []*TransactionRow {
	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, &TransactionRow{
			TransactionID:   uuid.NewString(),
			StatementID:     statementID,
			PostedDate:      civil.DateOf(tx.PostedDate),
			TransactionDate: civil.DateOf(tx.TransactionDate),
			Description:     tx.Description,
			Amount:          RatFromFloat(tx.Amount),
			TransactionType: string(tx.Type),
			CreatedTS:       now,
		})
	}
	return rows
}

// RatFromFloat converts a monetary float into an exact cents-based rational.
func RatFromFloat(amount float64) *big.Rat {
	return big.NewRat(int64(math.Round(amount*100)), 100)
}

// RatString formats a rational amount with two decimals; nil becomes "0.00".
func RatString(r *big.Rat) string {
	if r == nil {
		return "0.00"
	}
	return r.FloatString(2)
}

// nullDateOf wraps an optional time as a BigQuery NullDate.
func nullDateOf(t *time.Time) bigquery.NullDate {
	if t == nil {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: civil.DateOf(*t), Valid: true}
}

// nullTimestampOf wraps an optional time as a BigQuery NullTimestamp.
func nullTimestampOf(t *time.Time) bigquery.NullTimestamp {
	if t == nil {
		return bigquery.NullTimestamp{}
	}
	return bigquery.NullTimestamp{Timestamp: *t, Valid: true}
}

// ratOf wraps an optional float as a rational, nil stays nil.
func ratOf(f *float64) *big.Rat {
	if f == nil {
		return nil
	}
	return RatFromFloat(*f)
}

// NewStatementRow builds a not-yet-parsed statement record for a freshly
// ingested PDF.
func NewStatementRow(filename, storageURI string, emailDate *time.Time, now time.Time) *StatementRow {
	return &StatementRow{
		StatementID: uuid.NewString(),
		Filename:    filename,
		StorageURI:  storageURI,
		EmailDate:   nullTimestampOf(emailDate),
		Status:      StatusNotParsed,
		CreatedTS:   now,
	}
}

// ValidStatus reports whether s is one of the known parse statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusNotParsed, StatusParsing, StatusParsed, StatusError:
		return true
	}
	return false
}

// truncateError caps an error message before it goes into a row.
func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	const maxLen = 2000
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
