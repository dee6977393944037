// Command sync-notion mirrors the transactions of a date range into a
// Notion database.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/notionsync"
)

func main() {
	now := time.Now()
	defaultStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	defaultEnd := defaultStart.AddDate(0, 1, -1)

	var (
		project = flag.String("project", os.Getenv("BQ_PROJECT"), "BigQuery project ID (or BQ_PROJECT env)")
		dataset = flag.String("dataset", os.Getenv("BQ_DATASET"), "BigQuery dataset ID (or BQ_DATASET env)")
		start   = flag.String("start", defaultStart.Format("2006-01-02"), "range start (YYYY-MM-DD)")
		end     = flag.String("end", defaultEnd.Format("2006-01-02"), "range end (YYYY-MM-DD)")
		dryRun  = flag.Bool("dry-run", false, "report what would change without writing to Notion")
	)
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	token := os.Getenv("NOTION_TOKEN")
	databaseID := os.Getenv("NOTION_DB_ID")
	if token == "" || databaseID == "" {
		log.Fatal().Msg("NOTION_TOKEN and NOTION_DB_ID are required")
	}
	if *project == "" || *dataset == "" {
		log.Fatal().Msg("project and dataset are required")
	}

	repo, err := infra.NewRepository(ctx, *project, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create repository")
	}
	defer repo.Close()

	notion := notionsync.NewNotionClient(token)
	result, err := notionsync.SyncTransactions(ctx, repo, notion, databaseID, *start, *end, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("sync failed")
	}

	log.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("archived", result.Archived).
		Bool("dry_run", *dryRun).
		Msg("sync finished")

	rollupDBID := os.Getenv("NOTION_ROLLUP_DB_ID")
	if rollupDBID == "" {
		log.Info().Msg("NOTION_ROLLUP_DB_ID not set - skipping rollup page")
		return
	}

	rollup, err := notionsync.SyncRollup(ctx, repo, notion, rollupDBID, *start, *end, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("rollup sync failed")
	}

	log.Info().
		Str("title", rollup.Title).
		Bool("created", rollup.Created).
		Bool("updated", rollup.Updated).
		Bool("dry_run", *dryRun).
		Msg("rollup finished")
}
