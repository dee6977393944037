package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/dvloznov/statement-ledger/internal/jobs/inmemory"
)

type mockStatementStore struct {
	listAllFunc      func(ctx context.Context) ([]*infra.StatementRow, error)
	listByStatusFunc func(ctx context.Context, status string) ([]*infra.StatementRow, error)
}

func (m *mockStatementStore) InsertStatement(ctx context.Context, row *infra.StatementRow) error {
	return nil
}

func (m *mockStatementStore) FindStatementByFilename(ctx context.Context, filename string) (*infra.StatementRow, error) {
	return nil, nil
}

func (m *mockStatementStore) ListStatementsByStatus(ctx context.Context, status string) ([]*infra.StatementRow, error) {
	return m.listByStatusFunc(ctx, status)
}

func (m *mockStatementStore) ListAllStatements(ctx context.Context) ([]*infra.StatementRow, error) {
	return m.listAllFunc(ctx)
}

func (m *mockStatementStore) UpdateStatementStatus(ctx context.Context, statementID, status string) error {
	return nil
}

func (m *mockStatementStore) MarkStatementParsed(ctx context.Context, statementID string, summary infra.SummaryUpdate) error {
	return nil
}

func (m *mockStatementStore) MarkStatementFailed(ctx context.Context, statementID string, parseErr error) {
}

type mockTransactionStore struct {
	queryFunc           func(ctx context.Context, start, end string) ([]*infra.TransactionRow, error)
	listByStatementFunc func(ctx context.Context, statementID string) ([]*infra.TransactionRow, error)
}

func (m *mockTransactionStore) InsertTransactions(ctx context.Context, rows []*infra.TransactionRow) error {
	return nil
}

func (m *mockTransactionStore) ListUncategorizedTransactions(ctx context.Context) ([]*infra.TransactionRow, error) {
	return nil, nil
}

func (m *mockTransactionStore) UpdateTransactionCategory(ctx context.Context, transactionID, category string) error {
	return nil
}

func (m *mockTransactionStore) QueryTransactionsByDateRange(ctx context.Context, start, end string) ([]*infra.TransactionRow, error) {
	return m.queryFunc(ctx, start, end)
}

func (m *mockTransactionStore) ListTransactionsByStatement(ctx context.Context, statementID string) ([]*infra.TransactionRow, error) {
	return m.listByStatementFunc(ctx, statementID)
}

type capturingPublisher struct {
	published []*jobs.ParseStatementJob
}

func (p *capturingPublisher) PublishParseStatement(ctx context.Context, job *jobs.ParseStatementJob) error {
	if job.JobID == "" {
		job.JobID = "job-" + job.StatementID
	}
	p.published = append(p.published, job)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func TestListStatements(t *testing.T) {
	store := &mockStatementStore{
		listAllFunc: func(ctx context.Context) ([]*infra.StatementRow, error) {
			return []*infra.StatementRow{
				{StatementID: "stmt-1", Filename: "a.pdf", Status: infra.StatusParsed},
			}, nil
		},
	}

	h := NewStatementsHandler(store, &mockTransactionStore{}, &capturingPublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/statements", nil)
	rec := httptest.NewRecorder()
	h.ListStatements(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestListStatementsRejectsUnknownStatus(t *testing.T) {
	h := NewStatementsHandler(&mockStatementStore{}, &mockTransactionStore{}, &capturingPublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/statements?status=bogus", nil)
	rec := httptest.NewRecorder()
	h.ListStatements(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEnqueueParsingWholeBacklog(t *testing.T) {
	store := &mockStatementStore{
		listByStatusFunc: func(ctx context.Context, status string) ([]*infra.StatementRow, error) {
			return []*infra.StatementRow{
				{StatementID: "stmt-1", StorageURI: "gs://b/1.pdf"},
				{StatementID: "stmt-2", StorageURI: "gs://b/2.pdf"},
			}, nil
		},
	}
	publisher := &capturingPublisher{}
	h := NewStatementsHandler(store, &mockTransactionStore{}, publisher, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/statements/parse", nil)
	rec := httptest.NewRecorder()
	h.EnqueueParsing(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(publisher.published) != 2 {
		t.Errorf("published %d jobs, want 2", len(publisher.published))
	}
}

func TestEnqueueParsingSingleStatement(t *testing.T) {
	store := &mockStatementStore{
		listByStatusFunc: func(ctx context.Context, status string) ([]*infra.StatementRow, error) {
			return []*infra.StatementRow{
				{StatementID: "stmt-1", StorageURI: "gs://b/1.pdf"},
				{StatementID: "stmt-2", StorageURI: "gs://b/2.pdf"},
			}, nil
		},
	}
	publisher := &capturingPublisher{}
	h := NewStatementsHandler(store, &mockTransactionStore{}, publisher, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/statements/parse", strings.NewReader(`{"statement_id":"stmt-2"}`))
	rec := httptest.NewRecorder()
	h.EnqueueParsing(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(publisher.published) != 1 || publisher.published[0].StatementID != "stmt-2" {
		t.Errorf("published = %+v, want only stmt-2", publisher.published)
	}
}

func TestEnqueueParsingUnknownStatement(t *testing.T) {
	store := &mockStatementStore{
		listByStatusFunc: func(ctx context.Context, status string) ([]*infra.StatementRow, error) {
			return nil, nil
		},
	}
	h := NewStatementsHandler(store, &mockTransactionStore{}, &capturingPublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/statements/parse", strings.NewReader(`{"statement_id":"nope"}`))
	rec := httptest.NewRecorder()
	h.EnqueueParsing(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListTransactionsValidatesDates(t *testing.T) {
	h := NewTransactionsHandler(&mockTransactionStore{}, zerolog.Nop())

	for _, target := range []string{
		"/api/transactions",
		"/api/transactions?start=2024-04-01",
		"/api/transactions?start=04/01/2024&end=04/30/2024",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h.ListTransactions(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestListTransactions(t *testing.T) {
	store := &mockTransactionStore{
		queryFunc: func(ctx context.Context, start, end string) ([]*infra.TransactionRow, error) {
			if start != "2024-04-01" || end != "2024-04-30" {
				t.Errorf("queried %s..%s", start, end)
			}
			return []*infra.TransactionRow{
				{TransactionID: "tx-1", Description: "AMAZON", Amount: infra.RatFromFloat(45.67), TransactionType: "debit"},
			}, nil
		},
	}
	h := NewTransactionsHandler(store, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/transactions?start=2024-04-01&end=2024-04-30", nil)
	rec := httptest.NewRecorder()
	h.ListTransactions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"amount":"45.67"`) {
		t.Errorf("body = %s, want formatted amount", rec.Body.String())
	}
}

func TestGetJob(t *testing.T) {
	store := inmemory.NewStore()
	job := &jobs.ParseStatementJob{JobID: "job-1", StatementID: "stmt-1", Status: jobs.JobStatusPending}
	if err := store.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	h := NewJobsHandler(store, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil)
	rec := httptest.NewRecorder()
	h.GetJob(rec, req, "job-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"job_id":"job-1"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.GetJob(rec, req, "missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown job", rec.Code)
	}
}
