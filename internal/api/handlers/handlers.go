// Package handlers implements the HTTP endpoints of the statement API.
package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/api/middleware"
	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/jobs"
)

var dateParam = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// StatementsHandler serves statement listing and parse enqueueing.
type StatementsHandler struct {
	statements   infra.StatementStore
	transactions infra.TransactionStore
	publisher    jobs.Publisher
	log          zerolog.Logger
}

// NewStatementsHandler creates a statements handler.
func NewStatementsHandler(statements infra.StatementStore, transactions infra.TransactionStore, publisher jobs.Publisher, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		statements:   statements,
		transactions: transactions,
		publisher:    publisher,
		log:          log,
	}
}

// ListStatements handles GET /api/statements. An optional status query
// parameter narrows the listing.
func (h *StatementsHandler) ListStatements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		rows []*infra.StatementRow
		err  error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		if !infra.ValidStatus(status) {
			middleware.WriteError(w, http.StatusBadRequest, "Unknown status")
			return
		}
		rows, err = h.statements.ListStatementsByStatus(ctx, status)
	} else {
		rows, err = h.statements.ListAllStatements(ctx)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list statements")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list statements")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"statements": rows,
		"count":      len(rows),
	})
}

// EnqueueParsing handles POST /api/statements/parse. With a statement_id
// in the body only that statement is enqueued; otherwise the whole
// not_parsed backlog is.
func (h *StatementsHandler) EnqueueParsing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		StatementID string `json:"statement_id"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	backlog, err := h.statements.ListStatementsByStatus(ctx, infra.StatusNotParsed)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list backlog")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list statements")
		return
	}

	var enqueued []string
	for _, row := range backlog {
		if req.StatementID != "" && row.StatementID != req.StatementID {
			continue
		}

		job := &jobs.ParseStatementJob{
			StatementID: row.StatementID,
			StorageURI:  row.StorageURI,
		}
		if err := h.publisher.PublishParseStatement(ctx, job); err != nil {
			h.log.Error().Err(err).Str("statement_id", row.StatementID).Msg("failed to enqueue parse job")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
			return
		}
		enqueued = append(enqueued, job.JobID)
	}

	if req.StatementID != "" && len(enqueued) == 0 {
		middleware.WriteError(w, http.StatusNotFound, "Statement not found in backlog")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_ids": enqueued,
		"count":   len(enqueued),
	})
}

// ListStatementTransactions handles GET /api/statements/{id}/transactions.
func (h *StatementsHandler) ListStatementTransactions(w http.ResponseWriter, r *http.Request, statementID string) {
	rows, err := h.transactions.ListTransactionsByStatement(r.Context(), statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("failed to list statement transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": rows,
		"count":        len(rows),
	})
}

// TransactionsHandler serves transaction queries.
type TransactionsHandler struct {
	transactions infra.TransactionStore
	log          zerolog.Logger
}

// NewTransactionsHandler creates a transactions handler.
func NewTransactionsHandler(transactions infra.TransactionStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{transactions: transactions, log: log}
}

// ListTransactions handles GET /api/transactions?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	if !dateParam.MatchString(start) || !dateParam.MatchString(end) {
		middleware.WriteError(w, http.StatusBadRequest, "start and end must be YYYY-MM-DD")
		return
	}

	rows, err := h.transactions.QueryTransactionsByDateRange(r.Context(), start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": rows,
		"count":        len(rows),
	})
}

// JobsHandler serves job status lookups.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs with optional status and statement_id filters.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.JobFilter{
		StatementID: r.URL.Query().Get("statement_id"),
		Status:      jobs.JobStatus(r.URL.Query().Get("status")),
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
