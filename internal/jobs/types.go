// Package jobs defines the async work queue boundary for statement parsing.
package jobs

import (
	"context"
	"time"
)

// JobType identifies what kind of work a job carries.
type JobType string

const (
	// JobTypeParseStatement is a request to parse one stored statement PDF.
	JobTypeParseStatement JobType = "parse_statement"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ParseStatementJob asks a worker to parse a statement PDF already
// sitting in object storage.
type ParseStatementJob struct {
	JobID string `json:"job_id"`

	// StatementID is the statement's row ID in BigQuery.
	StatementID string `json:"statement_id"`

	// StorageURI is the gs:// location of the PDF.
	StorageURI string `json:"storage_uri"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds the failure message of the last attempt.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is the minimal view handlers get of any queued work item.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ParseStatementJob) GetID() string        { return j.JobID }
func (j *ParseStatementJob) GetType() JobType     { return JobTypeParseStatement }
func (j *ParseStatementJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues jobs. Implementations may be in-memory or backed by
// a real broker.
type Publisher interface {
	// PublishParseStatement enqueues a statement parsing job.
	PublishParseStatement(ctx context.Context, job *ParseStatementJob) error

	// Close releases publisher resources.
	Close() error
}

// Consumer drains jobs from a queue and hands them to a handler.
type Consumer interface {
	// Start launches the worker loop. The handler runs once per job; a
	// returned error marks the attempt failed and may trigger a retry.
	Start(ctx context.Context, handler JobHandler) error

	// Stop shuts the queue down and waits for in-flight jobs.
	Stop(ctx context.Context) error
}

// JobHandler processes a single job.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so callers can poll progress.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ParseStatementJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ParseStatementJob, error)

	// ListJobs retrieves jobs matching the filter.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ParseStatementJob, error)
}

// JobFilter narrows ListJobs results. Zero values mean "any".
type JobFilter struct {
	StatementID string
	Status      JobStatus
	Limit       int
	Offset      int
}
