package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/statement-ledger/internal/jobs"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var processed atomic.Int32
	handler := func(ctx context.Context, job jobs.Job) error {
		processed.Add(1)
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.ParseStatementJob{
		StatementID: "stmt-1",
		StorageURI:  "gs://bucket/statements/a.pdf",
	}
	if err := q.PublishParseStatement(context.Background(), job); err != nil {
		t.Fatalf("PublishParseStatement: %v", err)
	}

	if job.JobID == "" {
		t.Error("publish must assign a job ID")
	}

	waitFor(t, 2*time.Second, func() bool { return processed.Load() == 1 })

	waitFor(t, 2*time.Second, func() bool {
		got, err := store.GetJob(context.Background(), job.JobID)
		return err == nil && got.Status == jobs.JobStatusCompleted
	})
}

func TestQueueRetriesFailedJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var attempts atomic.Int32
	handler := func(ctx context.Context, job jobs.Job) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient failure")
		}
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.ParseStatementJob{StatementID: "stmt-2", StorageURI: "gs://b/o.pdf"}
	if err := q.PublishParseStatement(context.Background(), job); err != nil {
		t.Fatalf("PublishParseStatement: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool { return attempts.Load() >= 2 })

	waitFor(t, 5*time.Second, func() bool {
		got, err := store.GetJob(context.Background(), job.JobID)
		return err == nil && got.Status == jobs.JobStatusCompleted
	})
}

func TestQueueExhaustsRetries(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	handler := func(ctx context.Context, job jobs.Job) error {
		return errors.New("permanent failure")
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.ParseStatementJob{
		StatementID: "stmt-3",
		StorageURI:  "gs://b/o.pdf",
		MaxRetries:  1,
	}
	if err := q.PublishParseStatement(context.Background(), job); err != nil {
		t.Fatalf("PublishParseStatement: %v", err)
	}

	waitFor(t, 10*time.Second, func() bool {
		got, err := store.GetJob(context.Background(), job.JobID)
		return err == nil && got.Status == jobs.JobStatusFailed
	})

	got, err := store.GetJob(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Error == "" {
		t.Error("failed job must keep its error message")
	}
}

func TestQueueRejectsPublishAfterClose(t *testing.T) {
	q := NewQueue(1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err := q.PublishParseStatement(context.Background(), &jobs.ParseStatementJob{StatementID: "s"})
	if err == nil {
		t.Error("expected an error publishing to a closed queue")
	}
}

func TestQueueStopWaitsForInflight(t *testing.T) {
	q := NewQueue(10, nil)

	var mu sync.Mutex
	started := false
	finished := false

	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		started = true
		mu.Unlock()
		time.Sleep(200 * time.Millisecond)
		mu.Lock()
		finished = true
		mu.Unlock()
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := q.PublishParseStatement(context.Background(), &jobs.ParseStatementJob{StatementID: "s"}); err != nil {
		t.Fatalf("PublishParseStatement: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return started
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !finished {
		t.Error("Stop returned before the in-flight job finished")
	}
}

func TestStoreListJobsFilter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Now()
	seed := []*jobs.ParseStatementJob{
		{JobID: "j1", StatementID: "stmt-a", Status: jobs.JobStatusPending, CreatedAt: base},
		{JobID: "j2", StatementID: "stmt-a", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(time.Second)},
		{JobID: "j3", StatementID: "stmt-b", Status: jobs.JobStatusPending, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	byStatement, err := store.ListJobs(ctx, jobs.JobFilter{StatementID: "stmt-a"})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(byStatement) != 2 {
		t.Errorf("got %d jobs for stmt-a, want 2", len(byStatement))
	}

	pending, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusPending})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("got %d pending jobs, want 2", len(pending))
	}
	if pending[0].JobID != "j3" {
		t.Errorf("pending[0] = %s, want j3 (newest first)", pending[0].JobID)
	}

	limited, err := store.ListJobs(ctx, jobs.JobFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d jobs with limit 1, want 1", len(limited))
	}
}

func TestStoreCopiesJobs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.ParseStatementJob{JobID: "j1", StatementID: "stmt-a"}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	job.StatementID = "mutated"

	got, err := store.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.StatementID != "stmt-a" {
		t.Error("store must hold a copy, not the caller's pointer")
	}
}
