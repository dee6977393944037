package bigquery

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/statement-ledger/internal/statement"
)

func TestRatFromFloat(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{45.67, "45.67"},
		{0, "0.00"},
		{1234.5, "1234.50"},
		{0.1, "0.10"},
		{999999.99, "999999.99"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := RatFromFloat(tt.amount).FloatString(2); got != tt.want {
				t.Errorf("RatFromFloat(%v) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}
}

func TestRatStringNil(t *testing.T) {
	if got := RatString(nil); got != "0.00" {
		t.Errorf("RatString(nil) = %q, want 0.00", got)
	}
}

func TestTransactionRowsFrom(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	txs := []statement.Transaction{
		{
			PostedDate:      time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC),
			TransactionDate: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
			Description:     "AMAZON MKTPLACE",
			Amount:          45.67,
			Type:            statement.TypeDebit,
		},
		{
			PostedDate:      time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC),
			TransactionDate: time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC),
			Description:     "PAYMENT RECEIVED - THANK YOU",
			Amount:          500,
			Type:            statement.TypeCredit,
		},
	}

	rows := TransactionRowsFrom("stmt-1", txs, now)

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.StatementID != "stmt-1" {
		t.Errorf("StatementID = %q, want stmt-1", first.StatementID)
	}
	if first.TransactionID == "" || first.TransactionID == rows[1].TransactionID {
		t.Error("transaction IDs must be unique and non-empty")
	}
	if first.PostedDate != civil.DateOf(txs[0].PostedDate) {
		t.Errorf("PostedDate = %v, want %v", first.PostedDate, civil.DateOf(txs[0].PostedDate))
	}
	if first.Amount.FloatString(2) != "45.67" {
		t.Errorf("Amount = %s, want 45.67", first.Amount.FloatString(2))
	}
	if first.TransactionType != "debit" {
		t.Errorf("TransactionType = %q, want debit", first.TransactionType)
	}
	if first.Category.Valid {
		t.Error("new rows must start uncategorized")
	}
	if rows[1].TransactionType != "credit" {
		t.Errorf("rows[1].TransactionType = %q, want credit", rows[1].TransactionType)
	}
}

func TestTransactionRowMarshalJSON(t *testing.T) {
	row := TransactionRow{
		TransactionID:   "tx-1",
		StatementID:     "stmt-1",
		TransactionDate: civil.Date{Year: 2024, Month: time.April, Day: 1},
		Description:     "UBER TRIP",
		Amount:          RatFromFloat(23.1),
		TransactionType: "debit",
	}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if !strings.Contains(string(data), `"amount":"23.10"`) {
		t.Errorf("expected two-decimal amount string, got: %s", data)
	}
}

func TestNewStatementRow(t *testing.T) {
	now := time.Now()
	emailDate := time.Date(2024, time.May, 2, 8, 30, 0, 0, time.UTC)

	row := NewStatementRow("april.pdf", "gs://bucket/statements/april.pdf", &emailDate, now)

	if row.StatementID == "" {
		t.Error("StatementID must be generated")
	}
	if row.Status != StatusNotParsed {
		t.Errorf("Status = %q, want %q", row.Status, StatusNotParsed)
	}
	if !row.EmailDate.Valid || !row.EmailDate.Timestamp.Equal(emailDate) {
		t.Errorf("EmailDate = %+v, want %v", row.EmailDate, emailDate)
	}
	if row.BillPeriodStart.Valid || row.NewBalance != nil {
		t.Error("summary fields must start empty")
	}

	noDate := NewStatementRow("b.pdf", "gs://bucket/statements/b.pdf", nil, now)
	if noDate.EmailDate.Valid {
		t.Error("nil email date must produce an invalid NullTimestamp")
	}
}

func TestSummaryUpdateFrom(t *testing.T) {
	start := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	balance := 350.25

	update := SummaryUpdateFrom(statement.StatementSummary{
		BillPeriodStart: &start,
		NewBalance:      &balance,
	})

	if update.BillPeriodStart == nil || !update.BillPeriodStart.Equal(start) {
		t.Errorf("BillPeriodStart = %v, want %v", update.BillPeriodStart, start)
	}
	if update.BillPeriodEnd != nil || update.PreviousBalance != nil {
		t.Error("absent summary fields must stay nil")
	}
	if update.NewBalance == nil || *update.NewBalance != balance {
		t.Errorf("NewBalance = %v, want %v", update.NewBalance, balance)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusNotParsed, StatusParsing, StatusParsed, StatusError} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "done", "PARSED", "not-parsed"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true, want false", s)
		}
	}
}
