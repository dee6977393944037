// Command worker runs the parse queue as a daemon: it periodically
// enqueues the not_parsed backlog and processes jobs with a pool of
// workers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-ledger/internal/gcs"
	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/dvloznov/statement-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
	"github.com/dvloznov/statement-ledger/internal/statement"
)

func main() {
	var (
		project  = flag.String("project", os.Getenv("BQ_PROJECT"), "BigQuery project ID (or BQ_PROJECT env)")
		dataset  = flag.String("dataset", os.Getenv("BQ_DATASET"), "BigQuery dataset ID (or BQ_DATASET env)")
		interval = flag.Duration("interval", 5*time.Minute, "how often to scan the backlog")
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

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := func(ctx context.Context, job jobs.Job) error {
		parseJob, ok := job.(*jobs.ParseStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}
		return flow.Run(ctx, parseJob.StatementID, parseJob.StorageURI, password)
	}

	if err := queue.Start(workerCtx, handler); err != nil {
		log.Fatal().Err(err).Msg("failed to start queue")
	}

	// Scan loop: keep feeding the backlog into the queue until signaled.
	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()

		for {
			enqueueBacklog(workerCtx, repo, queue, jobStore)

			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	log.Info().Dur("interval", *interval).Msg("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("queue shutdown incomplete")
	}
}

// enqueueBacklog publishes a parse job for every not_parsed statement
// that doesn't already have an active job.
func enqueueBacklog(ctx context.Context, repo *infra.Repository, queue *inmemory.Queue, store *inmemory.Store) {
	log := logger.FromContext(ctx)

	backlog, err := repo.ListStatementsByStatus(ctx, infra.StatusNotParsed)
	if err != nil {
		log.Error().Err(err).Msg("backlog scan failed")
		return
	}

	for _, row := range backlog {
		active, err := store.ListJobs(ctx, jobs.JobFilter{StatementID: row.StatementID})
		if err == nil && hasActiveJob(active) {
			continue
		}

		job := &jobs.ParseStatementJob{
			StatementID: row.StatementID,
			StorageURI:  row.StorageURI,
		}
		if err := queue.PublishParseStatement(ctx, job); err != nil {
			log.Error().Err(err).Str("statement_id", row.StatementID).Msg("enqueue failed")
			continue
		}

		log.Info().
			Str("job_id", job.JobID).
			Str("statement_id", row.StatementID).
			Msg("parse job enqueued")
	}
}

func hasActiveJob(list []*jobs.ParseStatementJob) bool {
	for _, job := range list {
		switch job.Status {
		case jobs.JobStatusPending, jobs.JobStatusRunning, jobs.JobStatusRetrying:
			return true
		}
	}
	return false
}
