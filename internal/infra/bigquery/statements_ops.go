package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/statement-ledger/internal/logger"
)

const statementColumns = `
	statement_id,
	filename,
	storage_uri,
	email_date,
	bill_period_start,
	bill_period_end,
	previous_balance,
	new_balance,
	status,
	error_message,
	created_ts,
	updated_ts`

// InsertStatement inserts a single StatementRow.
func (r *Repository) InsertStatement(ctx context.Context, row *StatementRow) error {
	inserter := r.client.Dataset(r.datasetID).Table(statementsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertStatement: inserting row: %w", err)
	}
	return nil
}

// FindStatementByFilename retrieves a statement by its original filename.
// Returns nil when no statement with the filename exists.
func (r *Repository) FindStatementByFilename(ctx context.Context, filename string) (*StatementRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE filename = @filename
		LIMIT 1
	`, statementColumns, r.table(statementsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "filename", Value: filename},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindStatementByFilename: reading query: %w", err)
	}

	var row StatementRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindStatementByFilename: reading row: %w", err)
	}

	return &row, nil
}

// ListStatementsByStatus retrieves statements in the given parse status,
// oldest first so the backlog drains in ingestion order.
func (r *Repository) ListStatementsByStatus(ctx context.Context, status string) ([]*StatementRow, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("ListStatementsByStatus: unknown status %q", status)
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE status = @status
		ORDER BY created_ts
	`, statementColumns, r.table(statementsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
	}

	return r.readStatements(ctx, q)
}

// ListAllStatements retrieves every statement, newest first.
func (r *Repository) ListAllStatements(ctx context.Context) ([]*StatementRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY created_ts DESC
	`, statementColumns, r.table(statementsTable)))

	return r.readStatements(ctx, q)
}

func (r *Repository) readStatements(ctx context.Context, q *bigquery.Query) ([]*StatementRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("readStatements: reading query: %w", err)
	}

	var statements []*StatementRow
	for {
		var row StatementRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("readStatements: iterating: %w", err)
		}
		statements = append(statements, &row)
	}

	return statements, nil
}

// UpdateStatementStatus sets the parse status of a statement.
func (r *Repository) UpdateStatementStatus(ctx context.Context, statementID, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("UpdateStatementStatus: unknown status %q", status)
	}

	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    updated_ts = @updated_ts
		WHERE statement_id = @statement_id
	`, r.table(statementsTable)), []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "updated_ts", Value: time.Now()},
		{Name: "statement_id", Value: statementID},
	})
	if err != nil {
		return fmt.Errorf("UpdateStatementStatus: %w", err)
	}

	return nil
}

// MarkStatementParsed sets status=parsed and writes the extracted summary
// fields onto the statement row. Missing summary fields are left NULL.
func (r *Repository) MarkStatementParsed(ctx context.Context, statementID string, summary SummaryUpdate) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    bill_period_start = @bill_period_start,
		    bill_period_end = @bill_period_end,
		    previous_balance = @previous_balance,
		    new_balance = @new_balance,
		    error_message = NULL,
		    updated_ts = @updated_ts
		WHERE statement_id = @statement_id
	`, r.table(statementsTable)), []bigquery.QueryParameter{
		{Name: "status", Value: StatusParsed},
		{Name: "bill_period_start", Value: nullDateOf(summary.BillPeriodStart)},
		{Name: "bill_period_end", Value: nullDateOf(summary.BillPeriodEnd)},
		{Name: "previous_balance", Value: ratOf(summary.PreviousBalance)},
		{Name: "new_balance", Value: ratOf(summary.NewBalance)},
		{Name: "updated_ts", Value: time.Now()},
		{Name: "statement_id", Value: statementID},
	})
	if err != nil {
		return fmt.Errorf("MarkStatementParsed: %w", err)
	}

	return nil
}

// MarkStatementFailed sets status=error and records the failure message.
// Failures here are logged rather than returned so one broken statement
// never stops the batch.
func (r *Repository) MarkStatementFailed(ctx context.Context, statementID string, parseErr error) {
	log := logger.FromContext(ctx)

	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    error_message = @error_message,
		    updated_ts = @updated_ts
		WHERE statement_id = @statement_id
	`, r.table(statementsTable)), []bigquery.QueryParameter{
		{Name: "status", Value: StatusError},
		{Name: "error_message", Value: truncateError(parseErr)},
		{Name: "updated_ts", Value: time.Now()},
		{Name: "statement_id", Value: statementID},
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("statement_id", statementID).
			Msg("MarkStatementFailed: update query")
	}
}
