package pipeline

import (
	"context"
	"fmt"
	"time"

	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/logger"
)

// Ingestor moves statement PDFs from the mailbox into object storage and
// registers them for parsing.
type Ingestor struct {
	source     EmailSource
	storage    Storage
	statements StatementRepo
	bucket     string
}

// NewIngestor wires an ingest flow against the given bucket.
func NewIngestor(source EmailSource, storage Storage, statements StatementRepo, bucket string) *Ingestor {
	return &Ingestor{
		source:     source,
		storage:    storage,
		statements: statements,
		bucket:     bucket,
	}
}

// IngestResult summarizes one ingest run.
type IngestResult struct {
	Uploaded int
	Skipped  int
	Failed   int
}

// Run fetches matching emails and ingests each PDF attachment. A
// statement already present (by filename, in storage or in the ledger)
// is skipped so repeated runs are idempotent. One failing attachment is
// logged and counted, not fatal.
func (i *Ingestor) Run(ctx context.Context) (IngestResult, error) {
	log := logger.FromContext(ctx)
	var result IngestResult

	attachments, err := i.source.FetchStatements(ctx)
	if err != nil {
		return result, fmt.Errorf("Run: fetching statements: %w", err)
	}

	log.Info().Int("attachments", len(attachments)).Msg("fetched statement attachments")

	for _, att := range attachments {
		ingested, err := i.ingestOne(ctx, att.Filename, att.EmailDate, att.Data)
		if err != nil {
			log.Error().Err(err).Str("filename", att.Filename).Msg("attachment ingest failed")
			result.Failed++
			continue
		}
		if !ingested {
			log.Debug().Str("filename", att.Filename).Msg("attachment already ingested")
			result.Skipped++
			continue
		}

		log.Info().Str("filename", att.Filename).Msg("attachment ingested")
		result.Uploaded++
	}

	return result, nil
}

// ingestOne uploads a single attachment and inserts its ledger row.
// Returns false when the statement already exists.
func (i *Ingestor) ingestOne(ctx context.Context, filename string, emailDate time.Time, data []byte) (bool, error) {
	existing, err := i.statements.FindStatementByFilename(ctx, filename)
	if err != nil {
		return false, fmt.Errorf("checking ledger: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	inStorage, err := i.storage.StatementExists(ctx, i.bucket, filename)
	if err != nil {
		return false, fmt.Errorf("checking storage: %w", err)
	}
	if inStorage {
		return false, nil
	}

	storageURI, err := i.storage.UploadStatement(ctx, i.bucket, filename, data)
	if err != nil {
		return false, fmt.Errorf("uploading: %w", err)
	}

	row := infra.NewStatementRow(filename, storageURI, &emailDate, time.Now())
	if err := i.statements.InsertStatement(ctx, row); err != nil {
		return false, fmt.Errorf("inserting statement row: %w", err)
	}

	return true, nil
}
