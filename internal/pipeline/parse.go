package pipeline

import (
	"context"
	"fmt"
	"time"

	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/statement"
)

// Step is one stage of the parse flow.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is the shared scratch space the steps pass along.
type State struct {
	StatementID string
	StorageURI  string
	Password    string

	PDFBytes     []byte
	Transactions []statement.Transaction
	Summary      statement.StatementSummary
}

// ParseFlow runs one statement through mark-parsing, fetch, parse,
// insert, and mark-parsed.
type ParseFlow struct {
	statements   StatementRepo
	transactions TransactionRepo
	storage      Storage
	parser       Parser
	steps        []Step
}

// NewParseFlow wires the standard five-step parse flow.
func NewParseFlow(statements StatementRepo, transactions TransactionRepo, storage Storage, parser Parser) *ParseFlow {
	f := &ParseFlow{
		statements:   statements,
		transactions: transactions,
		storage:      storage,
		parser:       parser,
	}
	f.steps = []Step{
		&markParsingStep{statements: statements},
		&fetchPDFStep{storage: storage},
		&parseStatementStep{parser: parser},
		&insertTransactionsStep{transactions: transactions},
		&markParsedStep{statements: statements},
	}
	return f
}

// Run executes the flow for one statement. On any step failure the
// statement is marked errored and the step error is returned.
func (f *ParseFlow) Run(ctx context.Context, statementID, storageURI, password string) error {
	state := &State{
		StatementID: statementID,
		StorageURI:  storageURI,
		Password:    password,
	}

	for i, step := range f.steps {
		if err := step.Execute(ctx, state); err != nil {
			f.statements.MarkStatementFailed(ctx, statementID, err)
			return fmt.Errorf("parse step %d: %w", i+1, err)
		}
	}

	return nil
}

// RunBacklog parses every statement currently in not_parsed status. One
// failing statement is recorded and skipped; the counts of parsed and
// failed statements are returned.
func (f *ParseFlow) RunBacklog(ctx context.Context, password string) (parsed, failed int, err error) {
	log := logger.FromContext(ctx)

	backlog, err := f.statements.ListStatementsByStatus(ctx, infra.StatusNotParsed)
	if err != nil {
		return 0, 0, fmt.Errorf("RunBacklog: listing backlog: %w", err)
	}

	log.Info().Int("backlog", len(backlog)).Msg("parsing statement backlog")

	for _, row := range backlog {
		if err := f.Run(ctx, row.StatementID, row.StorageURI, password); err != nil {
			log.Error().
				Err(err).
				Str("statement_id", row.StatementID).
				Str("filename", row.Filename).
				Msg("statement parse failed")
			failed++
			continue
		}

		log.Info().
			Str("statement_id", row.StatementID).
			Str("filename", row.Filename).
			Msg("statement parsed")
		parsed++
	}

	return parsed, failed, nil
}

type markParsingStep struct {
	statements StatementRepo
}

func (s *markParsingStep) Execute(ctx context.Context, state *State) error {
	if err := s.statements.UpdateStatementStatus(ctx, state.StatementID, infra.StatusParsing); err != nil {
		return fmt.Errorf("marking parsing: %w", err)
	}
	return nil
}

type fetchPDFStep struct {
	storage Storage
}

func (s *fetchPDFStep) Execute(ctx context.Context, state *State) error {
	pdfBytes, err := s.storage.Fetch(ctx, state.StorageURI)
	if err != nil {
		return fmt.Errorf("fetching PDF: %w", err)
	}
	state.PDFBytes = pdfBytes
	return nil
}

type parseStatementStep struct {
	parser Parser
}

func (s *parseStatementStep) Execute(ctx context.Context, state *State) error {
	txs, summary, err := s.parser.Parse(state.PDFBytes, state.Password)
	if err != nil {
		return fmt.Errorf("parsing statement: %w", err)
	}
	state.Transactions = txs
	state.Summary = summary
	return nil
}

type insertTransactionsStep struct {
	transactions TransactionRepo
}

func (s *insertTransactionsStep) Execute(ctx context.Context, state *State) error {
	rows := infra.TransactionRowsFrom(state.StatementID, state.Transactions, time.Now())
	if err := s.transactions.InsertTransactions(ctx, rows); err != nil {
		return fmt.Errorf("inserting transactions: %w", err)
	}
	return nil
}

type markParsedStep struct {
	statements StatementRepo
}

func (s *markParsedStep) Execute(ctx context.Context, state *State) error {
	if err := s.statements.MarkStatementParsed(ctx, state.StatementID, infra.SummaryUpdateFrom(state.Summary)); err != nil {
		return fmt.Errorf("marking parsed: %w", err)
	}
	return nil
}
