// Package bigquery persists statements and their transactions in BigQuery.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const (
	statementsTable   = "statements"
	transactionsTable = "transactions"
	dateFormat        = "2006-01-02"
)

// StatementStore is the persistence boundary for statement records.
type StatementStore interface {
	// InsertStatement inserts a single StatementRow.
	InsertStatement(ctx context.Context, row *StatementRow) error

	// FindStatementByFilename retrieves a statement by its original
	// filename. Returns nil when none exists.
	FindStatementByFilename(ctx context.Context, filename string) (*StatementRow, error)

	// ListStatementsByStatus retrieves statements in the given parse status.
	ListStatementsByStatus(ctx context.Context, status string) ([]*StatementRow, error)

	// ListAllStatements retrieves every statement, newest first.
	ListAllStatements(ctx context.Context) ([]*StatementRow, error)

	// UpdateStatementStatus sets the parse status of a statement.
	UpdateStatementStatus(ctx context.Context, statementID, status string) error

	// MarkStatementParsed sets status=parsed and writes the extracted
	// summary fields onto the statement row.
	MarkStatementParsed(ctx context.Context, statementID string, summary SummaryUpdate) error

	// MarkStatementFailed sets status=error and records the failure message.
	MarkStatementFailed(ctx context.Context, statementID string, parseErr error)
}

// TransactionStore is the persistence boundary for transaction records.
type TransactionStore interface {
	// InsertTransactions inserts a batch of TransactionRow.
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error

	// ListUncategorizedTransactions retrieves transactions with no category yet.
	ListUncategorizedTransactions(ctx context.Context) ([]*TransactionRow, error)

	// UpdateTransactionCategory sets the category on a transaction.
	UpdateTransactionCategory(ctx context.Context, transactionID, category string) error

	// QueryTransactionsByDateRange retrieves transactions whose
	// transaction date falls inside [start, end], from parsed statements only.
	QueryTransactionsByDateRange(ctx context.Context, start, end string) ([]*TransactionRow, error)

	// ListTransactionsByStatement retrieves all transactions of one statement.
	ListTransactionsByStatement(ctx context.Context, statementID string) ([]*TransactionRow, error)
}

// Repository implements StatementStore and TransactionStore against a
// single BigQuery dataset.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewRepository creates a Repository with its own BigQuery client.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: bigquery client: %w", err)
	}
	return NewRepositoryWithClient(client, projectID, datasetID), nil
}

// NewRepositoryWithClient wraps an existing BigQuery client.
func NewRepositoryWithClient(client *bigquery.Client, projectID, datasetID string) *Repository {
	return &Repository{client: client, projectID: projectID, datasetID: datasetID}
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) table(name string) string {
	return fmt.Sprintf("%s.%s", r.datasetID, name)
}

// runDML executes a parameterized statement and waits for completion.
func (r *Repository) runDML(ctx context.Context, query string, params []bigquery.QueryParameter) error {
	q := r.client.Query(query)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}

var (
	_ StatementStore   = (*Repository)(nil)
	_ TransactionStore = (*Repository)(nil)
)
