// Command parse-statements drains the not_parsed backlog: each PDF is
// decrypted, parsed, and its transactions written to BigQuery.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/dvloznov/statement-ledger/internal/gcs"
	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
	"github.com/dvloznov/statement-ledger/internal/statement"
)

func main() {
	var (
		project = flag.String("project", os.Getenv("BQ_PROJECT"), "BigQuery project ID (or BQ_PROJECT env)")
		dataset = flag.String("dataset", os.Getenv("BQ_DATASET"), "BigQuery dataset ID (or BQ_DATASET env)")
	)
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	password := os.Getenv("PDF_PASSWORD")
	if password == "" {
		log.Fatal().Msg("PDF_PASSWORD is required")
	}
	if *project == "" || *dataset == "" {
		log.Fatal().Msg("project and dataset are required")
	}

	storage, err := gcs.NewService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create storage service")
	}
	defer storage.Close()

	repo, err := infra.NewRepository(ctx, *project, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create repository")
	}
	defer repo.Close()

	flow := pipeline.NewParseFlow(repo, repo, storage, pipeline.ParserFunc(statement.Parse))
	parsed, failed, err := flow.RunBacklog(ctx, password)
	if err != nil {
		log.Fatal().Err(err).Msg("backlog run failed")
	}

	log.Info().
		Int("parsed", parsed).
		Int("failed", failed).
		Msg("backlog run finished")

	if failed > 0 {
		os.Exit(1)
	}
}
