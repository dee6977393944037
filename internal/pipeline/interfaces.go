// Package pipeline wires the ingest and parse flows end to end.
package pipeline

import (
	"context"

	"github.com/dvloznov/statement-ledger/internal/gmail"
	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/statement"
)

// Parser turns an encrypted statement PDF into transactions and a summary.
type Parser interface {
	Parse(pdfBytes []byte, password string) ([]statement.Transaction, statement.StatementSummary, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(pdfBytes []byte, password string) ([]statement.Transaction, statement.StatementSummary, error)

func (f ParserFunc) Parse(pdfBytes []byte, password string) ([]statement.Transaction, statement.StatementSummary, error) {
	return f(pdfBytes, password)
}

// Storage is the slice of object storage the flows need.
type Storage interface {
	UploadStatement(ctx context.Context, bucket, filename string, data []byte) (string, error)
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)
	StatementExists(ctx context.Context, bucket, filename string) (bool, error)
}

// StatementRepo is the slice of persistence the flows need for statements.
type StatementRepo interface {
	InsertStatement(ctx context.Context, row *infra.StatementRow) error
	FindStatementByFilename(ctx context.Context, filename string) (*infra.StatementRow, error)
	ListStatementsByStatus(ctx context.Context, status string) ([]*infra.StatementRow, error)
	UpdateStatementStatus(ctx context.Context, statementID, status string) error
	MarkStatementParsed(ctx context.Context, statementID string, summary infra.SummaryUpdate) error
	MarkStatementFailed(ctx context.Context, statementID string, parseErr error)
}

// TransactionRepo is the write side for parsed transactions.
type TransactionRepo interface {
	InsertTransactions(ctx context.Context, rows []*infra.TransactionRow) error
}

// EmailSource yields statement PDFs pulled from a mailbox.
type EmailSource interface {
	FetchStatements(ctx context.Context) ([]gmail.Attachment, error)
}
