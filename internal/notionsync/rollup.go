package notionsync

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/statement-ledger/internal/logger"
)

// RollupResult reports what happened to the rollup page.
type RollupResult struct {
	Title   string
	Created bool
	Updated bool
}

// SyncRollup writes one per-category spending summary page for
// [start, end] (YYYY-MM-DD) into the rollup database. The page is keyed
// by its Period title: an existing page for the same range is updated
// in place, otherwise a new one is created. With dryRun set, nothing is
// written and the result reports what would happen.
func SyncRollup(ctx context.Context, store TransactionQuerier, notion NotionService, rollupDBID, start, end string, dryRun bool) (RollupResult, error) {
	log := logger.FromContext(ctx)
	result := RollupResult{Title: rollupTitle(start, end)}

	transactions, err := store.QueryTransactionsByDateRange(ctx, start, end)
	if err != nil {
		return result, fmt.Errorf("SyncRollup: querying transactions: %w", err)
	}
	totals := CategoryTotals(transactions)

	pages, err := queryAllPages(ctx, notion, rollupDBID)
	if err != nil {
		return result, fmt.Errorf("SyncRollup: querying rollup pages: %w", err)
	}

	var pageID string
	for _, page := range pages {
		if pageTitle(page, "Period") == result.Title {
			pageID = string(page.ID)
			break
		}
	}

	if dryRun {
		result.Created = pageID == ""
		result.Updated = pageID != ""
		log.Info().
			Str("title", result.Title).
			Int("categories", len(totals)).
			Bool("would_update", result.Updated).
			Msg("dry run: skipping rollup write")
		return result, nil
	}

	props := RollupToNotionProperties(result.Title, totals)

	if pageID != "" {
		if _, err := notion.UpdatePage(ctx, pageID, props); err != nil {
			return result, fmt.Errorf("SyncRollup: updating rollup page: %w", err)
		}
		result.Updated = true
	} else {
		if _, err := notion.CreatePage(ctx, rollupDBID, props); err != nil {
			return result, fmt.Errorf("SyncRollup: creating rollup page: %w", err)
		}
		result.Created = true
	}

	log.Info().
		Str("title", result.Title).
		Int("categories", len(totals)).
		Bool("created", result.Created).
		Bool("updated", result.Updated).
		Msg("rollup page synced")

	return result, nil
}

func rollupTitle(start, end string) string {
	return fmt.Sprintf("Spending %s to %s", start, end)
}

// RollupToNotionProperties builds the rollup page: grand totals plus a
// one-line-per-category breakdown, largest spend first.
func RollupToNotionProperties(title string, totals []CategoryTotal) notionapi.Properties {
	grandTotal := new(big.Rat)
	count := 0
	lines := make([]string, 0, len(totals))
	for _, t := range totals {
		grandTotal.Add(grandTotal, t.Total)
		count += t.Count
		lines = append(lines, fmt.Sprintf("%s: $%s (%d)", t.Category, t.Total.FloatString(2), t.Count))
	}

	return notionapi.Properties{
		"Period": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: title,
					},
				},
			},
		},
		"Total Spend": notionapi.NumberProperty{
			Number: ratToFloat(grandTotal),
		},
		"Transactions": notionapi.NumberProperty{
			Number: float64(count),
		},
		"Breakdown": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: strings.Join(lines, "\n"),
					},
				},
			},
		},
	}
}
