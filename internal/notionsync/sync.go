package notionsync

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/logger"
)

// TransactionQuerier is the read side of persistence the sync consumes.
type TransactionQuerier interface {
	QueryTransactionsByDateRange(ctx context.Context, start, end string) ([]*bigquery.TransactionRow, error)
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Created  int
	Skipped  int
	Archived int
}

// SyncTransactions mirrors the transactions of [start, end] (YYYY-MM-DD)
// into the Notion database. Pages are keyed by Transaction ID: existing
// ones are left alone, missing ones are created, and pages whose
// transaction no longer exists are archived. With dryRun set, nothing is
// written and the result reports what would happen.
func SyncTransactions(ctx context.Context, store TransactionQuerier, notion NotionService, notionDBID, start, end string, dryRun bool) (SyncResult, error) {
	log := logger.FromContext(ctx)
	var result SyncResult

	transactions, err := store.QueryTransactionsByDateRange(ctx, start, end)
	if err != nil {
		return result, fmt.Errorf("SyncTransactions: querying transactions: %w", err)
	}

	log.Info().
		Str("start", start).
		Str("end", end).
		Int("transaction_count", len(transactions)).
		Bool("dry_run", dryRun).
		Msg("starting transaction sync")

	validIDs := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		validIDs[tx.TransactionID] = true
	}

	pages, err := queryAllPages(ctx, notion, notionDBID)
	if err != nil {
		return result, fmt.Errorf("SyncTransactions: querying Notion pages: %w", err)
	}

	existingIDs := make(map[string]bool, len(pages))
	for _, page := range pages {
		txID := ExtractTransactionID(page)

		if txID != "" && validIDs[txID] {
			existingIDs[txID] = true
			continue
		}

		// Stale page: either unkeyed or its transaction left the range.
		if dryRun {
			result.Archived++
			continue
		}
		if err := notion.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("page_id", string(page.ID)).
				Str("transaction_id", txID).
				Msg("failed to archive stale page")
			continue
		}
		result.Archived++
	}

	for _, tx := range transactions {
		if existingIDs[tx.TransactionID] {
			result.Skipped++
			continue
		}

		if dryRun {
			result.Created++
			continue
		}

		if _, err := notion.CreatePage(ctx, notionDBID, TransactionToNotionProperties(tx)); err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", tx.TransactionID).
				Msg("failed to create Notion page")
			continue
		}
		result.Created++
	}

	log.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("archived", result.Archived).
		Msg("transaction sync finished")

	return result, nil
}

// queryAllPages drains a Notion database through cursor pagination.
func queryAllPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		resp, err := notion.QueryDatabase(ctx, databaseID, &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    100,
		})
		if err != nil {
			return nil, err
		}

		pages = append(pages, resp.Results...)

		if !resp.HasMore {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

// CategoryTotal is one line of the monthly rollup.
type CategoryTotal struct {
	Category string
	Total    *big.Rat
	Count    int
}

// CategoryTotals aggregates debit transactions per category, largest
// total first. Credits are excluded so payments don't cancel spending.
func CategoryTotals(transactions []*bigquery.TransactionRow) []CategoryTotal {
	byCategory := make(map[string]*CategoryTotal)
	for _, tx := range transactions {
		if tx.TransactionType != "debit" {
			continue
		}

		category := "Uncategorized"
		if tx.Category.Valid && tx.Category.StringVal != "" {
			category = tx.Category.StringVal
		}

		entry, ok := byCategory[category]
		if !ok {
			entry = &CategoryTotal{Category: category, Total: new(big.Rat)}
			byCategory[category] = entry
		}
		if tx.Amount != nil {
			entry.Total.Add(entry.Total, tx.Amount)
		}
		entry.Count++
	}

	totals := make([]CategoryTotal, 0, len(byCategory))
	for _, entry := range byCategory {
		totals = append(totals, *entry)
	}

	sort.Slice(totals, func(i, j int) bool {
		if cmp := totals[i].Total.Cmp(totals[j].Total); cmp != 0 {
			return cmp > 0
		}
		return totals[i].Category < totals[j].Category
	})

	return totals
}
