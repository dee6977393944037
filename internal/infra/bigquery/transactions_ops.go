package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const transactionColumns = `
	transaction_id,
	statement_id,
	posted_date,
	transaction_date,
	description,
	amount,
	transaction_type,
	category,
	created_ts`

// InsertTransactions inserts a batch of TransactionRow.
func (r *Repository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := r.client.Dataset(r.datasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}

	return nil
}

// ListUncategorizedTransactions retrieves transactions that have no
// category assigned yet.
func (r *Repository) ListUncategorizedTransactions(ctx context.Context) ([]*TransactionRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE category IS NULL
		ORDER BY transaction_date, created_ts
	`, transactionColumns, r.table(transactionsTable)))

	return r.readTransactions(ctx, q, "ListUncategorizedTransactions")
}

// UpdateTransactionCategory sets the category on a transaction.
func (r *Repository) UpdateTransactionCategory(ctx context.Context, transactionID, category string) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET category = @category
		WHERE transaction_id = @transaction_id
	`, r.table(transactionsTable)), []bigquery.QueryParameter{
		{Name: "category", Value: category},
		{Name: "transaction_id", Value: transactionID},
	})
	if err != nil {
		return fmt.Errorf("UpdateTransactionCategory: %w", err)
	}

	return nil
}

// QueryTransactionsByDateRange retrieves transactions whose transaction
// date falls inside [start, end]. Dates are YYYY-MM-DD strings. Only
// transactions from successfully parsed statements are included.
func (r *Repository) QueryTransactionsByDateRange(ctx context.Context, start, end string) ([]*TransactionRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.statement_id,
			t.posted_date,
			t.transaction_date,
			t.description,
			t.amount,
			t.transaction_type,
			t.category,
			t.created_ts
		FROM %s t
		INNER JOIN %s s
		  ON t.statement_id = s.statement_id
		WHERE t.transaction_date >= @start_date
		  AND t.transaction_date <= @end_date
		  AND s.status = @status
		ORDER BY t.transaction_date, t.created_ts
	`, r.table(transactionsTable), r.table(statementsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
		{Name: "status", Value: StatusParsed},
	}

	return r.readTransactions(ctx, q, "QueryTransactionsByDateRange")
}

// ListTransactionsByStatement retrieves all transactions of one statement
// in parse order.
func (r *Repository) ListTransactionsByStatement(ctx context.Context, statementID string) ([]*TransactionRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE statement_id = @statement_id
		ORDER BY created_ts
	`, transactionColumns, r.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	return r.readTransactions(ctx, q, "ListTransactionsByStatement")
}

func (r *Repository) readTransactions(ctx context.Context, q *bigquery.Query, op string) ([]*TransactionRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: reading query: %w", op, err)
	}

	var rows []*TransactionRow
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iterating: %w", op, err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}
