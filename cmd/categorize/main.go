// Command categorize labels every uncategorized transaction with a
// spending category from the Gemini model.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/dvloznov/statement-ledger/internal/categorize"
	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/logger"
)

// repoAdapter narrows the repository to what the categorize runner needs.
type repoAdapter struct {
	repo *infra.Repository
}

func (a *repoAdapter) ListUncategorized(ctx context.Context) ([]categorize.UncategorizedTransaction, error) {
	rows, err := a.repo.ListUncategorizedTransactions(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]categorize.UncategorizedTransaction, 0, len(rows))
	for _, row := range rows {
		pending = append(pending, categorize.UncategorizedTransaction{
			TransactionID: row.TransactionID,
			Description:   row.Description,
		})
	}
	return pending, nil
}

func (a *repoAdapter) UpdateCategory(ctx context.Context, transactionID, category string) error {
	return a.repo.UpdateTransactionCategory(ctx, transactionID, category)
}

func main() {
	var (
		project = flag.String("project", os.Getenv("BQ_PROJECT"), "BigQuery project ID (or BQ_PROJECT env)")
		dataset = flag.String("dataset", os.Getenv("BQ_DATASET"), "BigQuery dataset ID (or BQ_DATASET env)")
	)
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	if *project == "" || *dataset == "" {
		log.Fatal().Msg("project and dataset are required")
	}

	repo, err := infra.NewRepository(ctx, *project, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create repository")
	}
	defer repo.Close()

	categorizer, err := categorize.NewGeminiCategorizer(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create categorizer")
	}

	runner := categorize.NewRunner(&repoAdapter{repo: repo}, categorizer)
	updated, err := runner.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("categorize run failed")
	}

	log.Info().Int("updated", updated).Msg("categorize run finished")
}
