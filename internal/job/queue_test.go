package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func newTestQueue(t *testing.T) *JobQueue {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "jobs.db")+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	_, err = db.Exec(`
		CREATE TABLE jobs (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			label TEXT NOT NULL,
			params TEXT NOT NULL,
			progress REAL DEFAULT 0,
			result TEXT,
			error TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			started_at DATETIME,
			completed_at DATETIME
		)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	q := NewJobQueue(db)
	t.Cleanup(func() {
		q.Stop()
		db.Close()
	})
	return q
}

// waitForStatus polls until the job reaches the wanted status or times out.
func waitForStatus(t *testing.T, q *JobQueue, id string, want JobStatus) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j, err := q.GetJob(id)
		if err == nil && j.Status == want {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	j, _ := q.GetJob(id)
	t.Fatalf("job %s never reached %s, last seen: %+v", id, want, j)
	return nil
}

func TestEnqueueRunsHandler(t *testing.T) {
	q := newTestQueue(t)

	q.RegisterHandler(JobTranslateAll, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		updateProgress(0.5)
		j.Result = json.RawMessage(`{"translated":3}`)
		return nil
	})

	j, err := q.Enqueue(JobTranslateAll, "video-1", TranslateAllParams{TargetLang: "fi", VTT: "WEBVTT"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	done := waitForStatus(t, q, j.ID, StatusCompleted)
	if done.Progress != 1.0 {
		t.Errorf("progress = %v, want 1.0", done.Progress)
	}
	if string(done.Result) != `{"translated":3}` {
		t.Errorf("result = %s", done.Result)
	}
	if done.Label != "video-1" {
		t.Errorf("label = %q", done.Label)
	}

	var params TranslateAllParams
	if err := json.Unmarshal(done.Params, &params); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	if params.TargetLang != "fi" || params.VTT != "WEBVTT" {
		t.Errorf("params = %+v", params)
	}
}

func TestHandlerErrorFailsJob(t *testing.T) {
	q := newTestQueue(t)

	q.RegisterHandler(JobTranslateAll, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		return errors.New("transport unavailable")
	})

	j, err := q.Enqueue(JobTranslateAll, "video-1", TranslateAllParams{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	failed := waitForStatus(t, q, j.ID, StatusFailed)
	if failed.Error != "transport unavailable" {
		t.Errorf("error = %q", failed.Error)
	}
}

func TestRetryJob(t *testing.T) {
	q := newTestQueue(t)

	attempts := 0
	q.RegisterHandler(JobTranslateAll, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		attempts++
		if attempts == 1 {
			return errors.New("translation failed after retries")
		}
		return nil
	})

	j, err := q.Enqueue(JobTranslateAll, "video-1", TranslateAllParams{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitForStatus(t, q, j.ID, StatusFailed)

	if err := q.RetryJob(j.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	done := waitForStatus(t, q, j.ID, StatusCompleted)
	if done.Error != "" {
		t.Errorf("error not cleared: %q", done.Error)
	}

	// retrying a completed job is rejected
	if err := q.RetryJob(j.ID); err == nil {
		t.Error("retry of completed job accepted")
	}
}

func TestCancelPendingJob(t *testing.T) {
	q := newTestQueue(t)

	block := make(chan struct{})
	q.RegisterHandler(JobTranslateAll, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		select {
		case <-block:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	first, err := q.Enqueue(JobTranslateAll, "video-1", TranslateAllParams{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitForStatus(t, q, first.ID, StatusRunning)

	// second job sits pending behind the blocked worker
	second, err := q.Enqueue(JobTranslateAll, "video-2", TranslateAllParams{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.CancelJob(second.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitForStatus(t, q, second.ID, StatusCancelled)

	close(block)
	waitForStatus(t, q, first.ID, StatusCompleted)
}

func TestListJobsNewestFirst(t *testing.T) {
	q := newTestQueue(t)
	q.RegisterHandler(JobTranslateAll, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		return nil
	})

	a, _ := q.Enqueue(JobTranslateAll, "a", TranslateAllParams{})
	waitForStatus(t, q, a.ID, StatusCompleted)
	time.Sleep(10 * time.Millisecond)
	b, _ := q.Enqueue(JobTranslateAll, "b", TranslateAllParams{})
	waitForStatus(t, q, b.ID, StatusCompleted)

	jobs, err := q.ListJobs()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs", len(jobs))
	}
	if jobs[0].ID != b.ID {
		t.Errorf("newest job not first: %s", jobs[0].ID)
	}
}
