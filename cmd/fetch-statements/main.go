// Command fetch-statements pulls statement PDFs from Gmail, uploads them
// to GCS, and registers them in BigQuery as not_parsed.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/dvloznov/statement-ledger/internal/gcs"
	"github.com/dvloznov/statement-ledger/internal/gmail"
	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
)

func main() {
	var (
		bucket  = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for statement PDFs (or GCS_BUCKET env)")
		project = flag.String("project", os.Getenv("BQ_PROJECT"), "BigQuery project ID (or BQ_PROJECT env)")
		dataset = flag.String("dataset", os.Getenv("BQ_DATASET"), "BigQuery dataset ID (or BQ_DATASET env)")
	)
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	if *bucket == "" || *project == "" || *dataset == "" {
		log.Fatal().Msg("bucket, project, and dataset are required")
	}

	fetcher, err := gmail.NewFetcher(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gmail fetcher")
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

	ingestor := pipeline.NewIngestor(fetcher, storage, repo, *bucket)
	result, err := ingestor.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("ingest run failed")
	}

	log.Info().
		Int("uploaded", result.Uploaded).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("ingest run finished")

	if result.Failed > 0 {
		os.Exit(1)
	}
}
